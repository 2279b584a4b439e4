// Package constraint checks structural require/forbid rules against raw
// SQL text. Checks are pure keyword/pattern matches with no database
// access and no statement parsing.
package constraint

import "regexp"

var (
	reJoin         = regexp.MustCompile(`(?i)\bJOIN\b`)
	reGroupBy      = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
	reOrderBy      = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	reNestedSelect = regexp.MustCompile(`(?i)\(\s*SELECT\b`)
)

// Flags is the set of boolean structural rules attached to a test case.
// At most one of each require/forbid pair can fire per check; independent
// dimensions can all fire on the same statement.
type Flags struct {
	RequireJoin         bool `json:"require_join,omitempty" yaml:"require_join"`
	ForbidJoin          bool `json:"forbid_join,omitempty" yaml:"forbid_join"`
	RequireNestedSelect bool `json:"require_nested_select,omitempty" yaml:"require_nested_select"`
	ForbidNestedSelect  bool `json:"forbid_nested_select,omitempty" yaml:"forbid_nested_select"`
	RequireGroupBy      bool `json:"require_group_by,omitempty" yaml:"require_group_by"`
	ForbidGroupBy       bool `json:"forbid_group_by,omitempty" yaml:"forbid_group_by"`
	RequireOrderBy      bool `json:"require_order_by,omitempty" yaml:"require_order_by"`
	ForbidOrderBy       bool `json:"forbid_order_by,omitempty" yaml:"forbid_order_by"`
}

// Zero reports whether no flag is set.
func (f Flags) Zero() bool {
	return f == Flags{}
}

type rule struct {
	base    string
	pattern *regexp.Regexp
	require bool
	forbid  bool
}

// Check returns the names of every violated flag. Require flags fire when
// the pattern is absent; forbid flags fire when it is present.
func Check(query string, flags Flags) []string {
	rules := []rule{
		{"join", reJoin, flags.RequireJoin, flags.ForbidJoin},
		{"group_by", reGroupBy, flags.RequireGroupBy, flags.ForbidGroupBy},
		{"order_by", reOrderBy, flags.RequireOrderBy, flags.ForbidOrderBy},
	}

	var violations []string
	for _, r := range rules {
		found := r.pattern.MatchString(query)
		if r.require && !found {
			violations = append(violations, "require_"+r.base)
		}
		if r.forbid && found {
			violations = append(violations, "forbid_"+r.base)
		}
	}

	// Nested select counts occurrences rather than testing presence.
	nested := len(reNestedSelect.FindAllStringIndex(query, -1))
	if flags.RequireNestedSelect && nested == 0 {
		violations = append(violations, "require_nested_select")
	}
	if flags.ForbidNestedSelect && nested > 0 {
		violations = append(violations, "forbid_nested_select")
	}
	return violations
}

// First returns the first violated flag name, or "" when the statement
// satisfies every flag. The grading loop only surfaces one violation.
func First(query string, flags Flags) string {
	if v := Check(query, flags); len(v) > 0 {
		return v[0]
	}
	return ""
}

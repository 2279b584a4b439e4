package oracle

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"sqlgrade/internal/config"
	"sqlgrade/internal/constraint"
	"sqlgrade/internal/db"
	"sqlgrade/internal/spec"
	"sqlgrade/internal/sqlparse"
	"sqlgrade/internal/util"
)

// BuildSuite generates one TestSpec per answer-key item, iterating keys in
// numeric order. When the instructor's own query violates its declared
// constraints the violations are recorded and no oracle is generated for
// that key. A non-empty allowedAfter clock time is stamped on every
// generated entry; constraint-violation entries carry no gate since they
// are never graded against an oracle. The returned suite embeds the
// credentials of the database the oracles were captured against.
func BuildSuite(ctx context.Context, exec db.Executor, items map[string]spec.Item, dbcfg config.DBConfig, allowedAfter string) *spec.Suite {
	suite := &spec.Suite{
		DBConfig: dbcfg,
		Tests:    make(map[string]*spec.TestSpec, len(items)),
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sortKeysNumeric(keys)

	for _, key := range keys {
		item := items[key]
		qtype := strings.ToLower(strings.TrimSpace(item.Type))
		if qtype == "" {
			qtype = string(sqlparse.AnalyzeQueryType(item.Query))
		}

		ts := &spec.TestSpec{
			Query:     item.Query,
			QueryType: qtype,
			Score:     item.Score,
			Flags:     item.Flags,
		}

		if violations := constraint.Check(item.Query, item.Flags); len(violations) > 0 {
			util.Warnf("%s: instructor query violates its own constraints: %s", key, strings.Join(violations, ", "))
			ts.ConstraintViolations = violations
			suite.Tests[key] = ts
			continue
		}

		Generate(ctx, exec, item.Query, qtype, item, ts)
		if ts.Error != "" {
			util.Warnf("%s: oracle generation incomplete: %s", key, ts.Error)
		}
		ts.AllowedAfter = allowedAfter
		suite.Tests[key] = ts
	}
	return suite
}

// ItemsFromStatements maps parsed statements to positional question keys
// q1..qN, merging per-question metadata (score, constraint flags, test
// inputs) from the answer key by position when present.
func ItemsFromStatements(stmts []sqlparse.Statement, meta []spec.Item) map[string]spec.Item {
	items := make(map[string]spec.Item, len(stmts))
	for i, stmt := range stmts {
		item := spec.Item{Score: 1}
		if i < len(meta) {
			item = meta[i]
		}
		item.Query = stmt.Text
		if item.Type == "" {
			item.Type = string(stmt.Type)
		}
		items[questionKey(i)] = item
	}
	return items
}

func questionKey(i int) string {
	return "q" + strconv.Itoa(i+1)
}

func sortKeysNumeric(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		return spec.SortKeyNumeric(keys[i]) < spec.SortKeyNumeric(keys[j])
	})
}

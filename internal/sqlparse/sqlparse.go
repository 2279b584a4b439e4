// Package sqlparse splits raw SQL scripts into individual statements and
// classifies each statement's broad type. Splitting honors MySQL-style
// DELIMITER control lines; classification is lexical only, there is no AST.
package sqlparse

import (
	"regexp"
	"strings"
)

// QueryType is the broad classification of a single SQL statement.
type QueryType string

const (
	TypeSelect    QueryType = "select"
	TypeDDLDML    QueryType = "ddl_dml"
	TypeView      QueryType = "view"
	TypeFunction  QueryType = "function"
	TypeTrigger   QueryType = "trigger"
	TypeProcedure QueryType = "procedure"
	TypeUnknown   QueryType = "unknown"
	// TypeMissing marks a statement position the author left empty, e.g.
	// a bare delimiter standing in for a skipped answer.
	TypeMissing QueryType = "missing"
)

// Statement is one delimiter-terminated SQL statement in source order.
type Statement struct {
	Text string
	Type QueryType
}

// IsMissing reports whether the statement is an empty placeholder.
func (s Statement) IsMissing() bool {
	return s.Type == TypeMissing || strings.TrimSpace(s.Text) == ""
}

const defaultDelimiter = ";"

var (
	reLineComment = regexp.MustCompile(`(?m)--.*$`)
	reWhitespace  = regexp.MustCompile(`\s+`)

	reCreateFunction  = regexp.MustCompile(`(?i)\bCREATE\s+(?:OR\s+REPLACE\s+)?FUNCTION\b`)
	reCreateView      = regexp.MustCompile(`(?i)\bCREATE\s+(?:OR\s+REPLACE\s+)?VIEW\b`)
	reCreateTrigger   = regexp.MustCompile(`(?i)\bCREATE\s+(?:OR\s+REPLACE\s+)?TRIGGER\b`)
	reCreateProcedure = regexp.MustCompile(`(?i)\bCREATE\s+(?:OR\s+REPLACE\s+)?PROCEDURE\b`)
	reCreate          = regexp.MustCompile(`(?i)\bCREATE\b`)
	reDML             = regexp.MustCompile(`(?i)\b(?:INSERT|UPDATE|DELETE)\b`)
	reSelect          = regexp.MustCompile(`(?i)\bSELECT\b`)
)

// AnalyzeQueryType classifies a statement by an ordered regex cascade.
// The precedence is a contract: CREATE forms win over DML keywords, which
// win over SELECT. A CREATE TABLE with an embedded SELECT is ddl_dml.
func AnalyzeQueryType(query string) QueryType {
	clean := reLineComment.ReplaceAllString(query, "")
	clean = reWhitespace.ReplaceAllString(clean, " ")

	switch {
	case reCreateFunction.MatchString(clean):
		return TypeFunction
	case reCreateView.MatchString(clean):
		return TypeView
	case reCreateTrigger.MatchString(clean):
		return TypeTrigger
	case reCreateProcedure.MatchString(clean):
		return TypeProcedure
	case reCreate.MatchString(clean):
		return TypeDDLDML
	case reDML.MatchString(clean):
		return TypeDDLDML
	case reSelect.MatchString(clean):
		return TypeSelect
	}
	return TypeUnknown
}

// splitState carries the mutable delimiter and the statement accumulator
// across lines, keeping Split a pure fold over the input.
type splitState struct {
	delimiter string
	buf       strings.Builder
	queries   []string
}

// Split splits a raw SQL script into statements honoring the active
// delimiter (default ";", changeable via DELIMITER lines) and classifies
// each one. Empty statements are preserved as missing placeholders so that
// positional question numbering survives skipped answers.
func Split(script string) []Statement {
	if script == "" {
		return nil
	}
	content := strings.ReplaceAll(script, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	st := splitState{delimiter: defaultDelimiter}
	for _, raw := range strings.Split(content, "\n") {
		st.feed(raw)
	}
	st.flushTail()

	out := make([]Statement, 0, len(st.queries))
	for _, q := range st.queries {
		if strings.TrimSpace(q) == "" {
			out = append(out, Statement{Text: "", Type: TypeMissing})
			continue
		}
		out = append(out, Statement{Text: q, Type: AnalyzeQueryType(q)})
	}
	return out
}

func (st *splitState) feed(raw string) {
	line := strings.TrimSpace(raw)

	// Comment-only lines never reach the accumulator.
	if strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
		return
	}

	if strings.HasPrefix(strings.ToUpper(line), "DELIMITER") {
		st.handleDelimiterLine(raw)
		return
	}

	raw = stripInlineComment(raw, "--")
	raw = stripInlineComment(raw, "#")

	stripped := strings.TrimSpace(raw)

	// A line that is exactly the delimiter is an intentionally skipped
	// answer; emit the placeholder immediately.
	if stripped == st.delimiter {
		st.queries = append(st.queries, "")
		st.buf.Reset()
		return
	}
	if stripped == "" {
		return
	}

	st.buf.WriteString(raw)
	st.buf.WriteString("\n")
	trimmed := strings.TrimRight(st.buf.String(), " \t\n\r")
	if len(trimmed) >= len(st.delimiter) && strings.HasSuffix(trimmed, st.delimiter) {
		final := strings.TrimSpace(trimmed[:len(trimmed)-len(st.delimiter)])
		// Emit even when empty to keep positions aligned.
		st.queries = append(st.queries, final)
		st.buf.Reset()
	}
}

// handleDelimiterLine flushes any pending statement, then installs the new
// delimiter. Interior whitespace in the delimiter spelling is collapsed, so
// "DELIMITER / /" yields "//". No operand resets to ";".
func (st *splitState) handleDelimiterLine(raw string) {
	pending := st.buf.String()
	if t := strings.TrimSpace(pending); t != "" {
		st.queries = append(st.queries, t)
	} else if pending != "" {
		st.queries = append(st.queries, "")
	}
	st.buf.Reset()

	fields := strings.Fields(raw)
	if len(fields) > 1 {
		st.delimiter = strings.Join(fields[1:], "")
	} else {
		st.delimiter = defaultDelimiter
	}
}

func (st *splitState) flushTail() {
	rest := st.buf.String()
	if strings.TrimSpace(rest) == "" {
		if rest != "" {
			st.queries = append(st.queries, "")
		}
		return
	}
	final := strings.TrimSpace(rest)
	if st.delimiter != "" && len(final) >= len(st.delimiter) && strings.HasSuffix(final, st.delimiter) {
		final = strings.TrimSpace(final[:len(final)-len(st.delimiter)])
	}
	st.queries = append(st.queries, final)
}

// stripInlineComment removes a trailing marker comment when the prefix up
// to the marker holds a balanced count of quote characters. This is a
// heuristic, not a string-literal scanner; quotes inside comments or
// escaped quotes can fool it.
func stripInlineComment(raw, marker string) string {
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return raw
	}
	before := raw[:idx]
	if strings.Count(before, "'")%2 == 0 && strings.Count(before, `"`)%2 == 0 {
		return raw[:idx]
	}
	return raw
}

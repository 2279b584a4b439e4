package oracle

import "regexp"

// Name extraction is backtick-tolerant but deliberately not a full
// identifier parser: extracted names are re-embedded with simple backtick
// quoting and are expected to already be valid unquoted identifiers.
var (
	reTableDDL = regexp.MustCompile("(?i)\\b(?:CREATE|ALTER|DROP)\\s+TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?(?:`?([\\w$]+)`?\\.)?`?([\\w$]+)`?")

	reSimpleTable = regexp.MustCompile("(?i)\\b(?:CREATE|ALTER|DROP)\\s+TABLE\\s+`?([\\w$]+)`?")

	reCreateFunc = regexp.MustCompile("(?i)\\bCREATE\\s+(?:OR\\s+REPLACE\\s+)?FUNCTION\\s+`?([\\w$]+)`?")

	reCreateView = regexp.MustCompile("(?i)\\bCREATE\\s+(?:OR\\s+REPLACE\\s+)?VIEW\\s+`?([\\w$]+)`?")

	reDMLTable = regexp.MustCompile("(?i)\\b(?:INTO|UPDATE)\\s+`?(?:[\\w$]+`?\\.)?`?([\\w$]+)`?")

	reSelectStart = regexp.MustCompile(`(?i)^\s*SELECT\b`)

	reDMLKeywords = regexp.MustCompile(`(?i)\b(?:INSERT|UPDATE|DELETE)\b`)
)

// extractName pulls an identifier out of a statement. The complex pattern
// may capture schema.table; group 2 is the table, group 1 the schema (or
// the table when unqualified). The simple pattern is the fallback.
func extractName(query string, complexRe, simpleRe *regexp.Regexp) string {
	if m := complexRe.FindStringSubmatch(query); m != nil {
		if len(m) > 2 && m[2] != "" {
			return m[2]
		}
		return m[1]
	}
	if simpleRe != nil {
		if m := simpleRe.FindStringSubmatch(query); m != nil {
			return m[1]
		}
	}
	return ""
}

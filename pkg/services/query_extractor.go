package services

import "strings"

// ClauseKeyword starts a line that belongs to a statement.
type ClauseKeyword string

const (
	ClauseSelect  ClauseKeyword = "select"
	ClauseWith    ClauseKeyword = "with"
	ClauseInsert  ClauseKeyword = "insert"
	ClauseUpdate  ClauseKeyword = "update"
	ClauseDelete  ClauseKeyword = "delete"
	ClauseFrom    ClauseKeyword = "from"
	ClauseWhere   ClauseKeyword = "where"
	ClauseOrderBy ClauseKeyword = "order by"
	ClauseGroupBy ClauseKeyword = "group by"
	ClauseLimit   ClauseKeyword = "limit"
)

// ClauseKeywords lists every keyword Extract keeps lines for.
var ClauseKeywords = []ClauseKeyword{
	ClauseSelect,
	ClauseWith,
	ClauseInsert,
	ClauseUpdate,
	ClauseDelete,
	ClauseFrom,
	ClauseWhere,
	ClauseOrderBy,
	ClauseGroupBy,
	ClauseLimit,
}

// Extraction is the statement pulled out of generated text, along with the
// lines that were kept and the non-blank lines that were discarded.
type Extraction struct {
	Statement string
	Kept      []string
	Dropped   []string
}

// Extract returns the single-line statement contained in text.
//
// Lines whose trimmed, lowercased form starts with a clause keyword are kept,
// trimmed and joined with single spaces; a trailing ";" is added if missing.
// Lines starting with anything else (JOIN, HAVING, AND, a closing paren...)
// are discarded.
func Extract(text string) string {
	return Analyze(text).Statement
}

// Analyze is Extract that also reports which lines were kept and dropped.
func Analyze(text string) Extraction {
	var ex Extraction
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		trimmed := strings.TrimSpace(line)
		if isClauseLine(trimmed) {
			ex.Kept = append(ex.Kept, trimmed)
			continue
		}
		if trimmed != "" {
			ex.Dropped = append(ex.Dropped, trimmed)
		}
	}

	stmt := strings.TrimSpace(strings.Join(ex.Kept, " "))
	if !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	ex.Statement = stmt
	return ex
}

func isClauseLine(trimmed string) bool {
	lower := strings.ToLower(trimmed)
	for _, kw := range ClauseKeywords {
		if strings.HasPrefix(lower, string(kw)) {
			return true
		}
	}
	return false
}

// lineBreaks maps every line boundary to \n: \r\n, \r, vertical tab, form
// feed, the file/group/record separators, NEL, and the Unicode line and
// paragraph separators.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\v", "\n",
	"\f", "\n",
	"\x1c", "\n",
	"\x1d", "\n",
	"\x1e", "\n",
	"\u0085", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
)

func normalizeNewlines(s string) string {
	return lineBreaks.Replace(s)
}

package services

import "strings"

// QueryKeyword is a leading keyword that marks generated text as a statement.
type QueryKeyword string

const (
	KeywordSelect QueryKeyword = "select"
	KeywordWith   QueryKeyword = "with"
	KeywordInsert QueryKeyword = "insert"
	KeywordDelete QueryKeyword = "delete"
	KeywordUpdate QueryKeyword = "update"
)

// QueryKeywords lists every keyword IsQuery looks for.
var QueryKeywords = []QueryKeyword{
	KeywordSelect,
	KeywordWith,
	KeywordInsert,
	KeywordDelete,
	KeywordUpdate,
}

// IsQuery reports whether generated text is a statement rather than prose.
// The trimmed, lowercased text must start with a keyword or contain one right
// after a line break. Keywords in the middle of a line do not count.
func IsQuery(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range QueryKeywords {
		if strings.HasPrefix(lower, string(kw)) || strings.Contains(lower, "\n"+string(kw)) {
			return true
		}
	}
	return false
}

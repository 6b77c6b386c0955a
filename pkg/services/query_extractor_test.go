package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"clean statement", "SELECT x FROM t", "SELECT x FROM t;"},
		{"already terminated", "SELECT x FROM t;", "SELECT x FROM t;"},
		{"drops prose", "Sure, here it is:\nSELECT x\nFROM t\nHope that helps!", "SELECT x FROM t;"},
		{
			"multi-clause",
			"SELECT subject_line, SUM(emails_opened) * 1.0 / SUM(emails_sent) AS open_rate\n  FROM email_campaigns\n  WHERE emails_sent > 0\n  GROUP BY subject_line\n  ORDER BY open_rate DESC\n  LIMIT 5;",
			"SELECT subject_line, SUM(emails_opened) * 1.0 / SUM(emails_sent) AS open_rate FROM email_campaigns WHERE emails_sent > 0 GROUP BY subject_line ORDER BY open_rate DESC LIMIT 5;",
		},
		{"continuation lines dropped", "SELECT a\nFROM t\nJOIN u ON t.id = u.id\nHAVING COUNT(*) > 1", "SELECT a FROM t;"},
		{"crlf", "SELECT a\r\nFROM t\r\n", "SELECT a FROM t;"},
		{"lone carriage return", "Sure:\rSELECT a\rFROM t", "SELECT a FROM t;"},
		{"form feed and vertical tab", "SELECT a\fFROM t\vWHERE a > 1", "SELECT a FROM t WHERE a > 1;"},
		{"record separators", "Sure:\x1cSELECT a\x1dFROM t\x1eLIMIT 3", "SELECT a FROM t LIMIT 3;"},
		{"unicode line separators", "Here:\u2028SELECT a\u2029FROM t\u0085ORDER BY a", "SELECT a FROM t ORDER BY a;"},
		{"code fence dropped", "```sql\nSELECT a FROM t;\n```", "SELECT a FROM t;"},
		{"no clause lines", "I cannot answer that.", ";"},
		{"empty", "", ";"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	once := Extract("Sure:\nSELECT a\nFROM t\nWHERE a > 1")
	assert.Equal(t, once, Extract(once))
}

func TestAnalyze(t *testing.T) {
	got := Analyze("Sure, here it is:\n\nselect x\n   from t\n  AND y = 1\nHope that helps!")

	want := Extraction{
		Statement: "select x from t;",
		Kept:      []string{"select x", "from t"},
		Dropped:   []string{"Sure, here it is:", "AND y = 1", "Hope that helps!"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
}

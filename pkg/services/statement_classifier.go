package services

import (
	"regexp"
	"strings"
)

// StatementType represents the type of SQL statement.
type StatementType int

const (
	StatementTypeDDL     StatementType = iota // CREATE, DROP, ALTER, TRUNCATE
	StatementTypeDML                          // INSERT, UPDATE, DELETE, REPLACE, MERGE
	StatementTypeDQL                          // SELECT, WITH...SELECT
	StatementTypeTCL                          // COMMIT, ROLLBACK, SAVEPOINT, BEGIN
	StatementTypeUtility                      // SHOW, DESCRIBE, EXPLAIN, PRAGMA
	StatementTypeOther                        // Unrecognized statements
)

// String returns the string representation of the statement type.
func (st StatementType) String() string {
	switch st {
	case StatementTypeDDL:
		return "DDL"
	case StatementTypeDML:
		return "DML"
	case StatementTypeDQL:
		return "DQL"
	case StatementTypeTCL:
		return "TCL"
	case StatementTypeUtility:
		return "UTILITY"
	case StatementTypeOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// StatementInfo summarizes a statement for logs and metrics.
type StatementInfo struct {
	Type       StatementType
	IsReadOnly bool
	Tables     []string
}

// StatementClassifier classifies statements with anchored regex patterns.
// It is safe for concurrent use.
type StatementClassifier struct {
	ddlPatterns     []*regexp.Regexp
	dmlPatterns     []*regexp.Regexp
	dqlPatterns     []*regexp.Regexp
	tclPatterns     []*regexp.Regexp
	utilityPatterns []*regexp.Regexp
	tablePatterns   []*regexp.Regexp
}

// NewStatementClassifier creates a new statement classifier.
func NewStatementClassifier() *StatementClassifier {
	return &StatementClassifier{
		ddlPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*CREATE\s+`),
			regexp.MustCompile(`(?i)^\s*DROP\s+`),
			regexp.MustCompile(`(?i)^\s*ALTER\s+`),
			regexp.MustCompile(`(?i)^\s*TRUNCATE\s+`),
			regexp.MustCompile(`(?i)^\s*RENAME\s+`),
		},
		dmlPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*INSERT\s+`),
			regexp.MustCompile(`(?i)^\s*UPDATE\s+`),
			regexp.MustCompile(`(?i)^\s*DELETE\s+`),
			regexp.MustCompile(`(?i)^\s*REPLACE\s+`),
			regexp.MustCompile(`(?i)^\s*MERGE\s+`),
			regexp.MustCompile(`(?i)^\s*WITH\s+.*\s+(INSERT|UPDATE|DELETE)\s+`),
		},
		dqlPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*SELECT\s+`),
			regexp.MustCompile(`(?i)^\s*WITH\s+.*\s+SELECT\s+`),
			regexp.MustCompile(`(?i)^\s*\(\s*SELECT\s+`),
			regexp.MustCompile(`(?i)^\s*VALUES\s+`),
		},
		tclPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*BEGIN\b`),
			regexp.MustCompile(`(?i)^\s*START\s+TRANSACTION\b`),
			regexp.MustCompile(`(?i)^\s*COMMIT\b`),
			regexp.MustCompile(`(?i)^\s*ROLLBACK\b`),
			regexp.MustCompile(`(?i)^\s*SAVEPOINT\s+`),
		},
		utilityPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*SHOW\s+`),
			regexp.MustCompile(`(?i)^\s*DESCRIBE\s+`),
			regexp.MustCompile(`(?i)^\s*DESC\s+`),
			regexp.MustCompile(`(?i)^\s*EXPLAIN\s+`),
			regexp.MustCompile(`(?i)^\s*PRAGMA\s+`),
			regexp.MustCompile(`(?i)^\s*SUMMARIZE\s+`),
		},
		tablePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bFROM\s+(\w+)`),
			regexp.MustCompile(`(?i)\bJOIN\s+(\w+)`),
			regexp.MustCompile(`(?i)\bUPDATE\s+(\w+)`),
			regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+(\w+)`),
		},
	}
}

// Classify returns the statement type.
func (c *StatementClassifier) Classify(sql string) StatementType {
	s := strings.TrimSpace(sql)
	if s == "" {
		return StatementTypeOther
	}

	groups := []struct {
		patterns []*regexp.Regexp
		typ      StatementType
	}{
		{c.ddlPatterns, StatementTypeDDL},
		{c.dmlPatterns, StatementTypeDML},
		{c.dqlPatterns, StatementTypeDQL},
		{c.tclPatterns, StatementTypeTCL},
		{c.utilityPatterns, StatementTypeUtility},
	}
	for _, g := range groups {
		for _, p := range g.patterns {
			if p.MatchString(s) {
				return g.typ
			}
		}
	}
	return StatementTypeOther
}

// IsReadOnly reports whether the statement cannot modify data.
func (c *StatementClassifier) IsReadOnly(sql string) bool {
	switch c.Classify(sql) {
	case StatementTypeDQL, StatementTypeUtility:
		return true
	default:
		return false
	}
}

// Analyze returns the statement type, read-only flag and referenced tables.
func (c *StatementClassifier) Analyze(sql string) StatementInfo {
	typ := c.Classify(sql)
	info := StatementInfo{
		Type:       typ,
		IsReadOnly: typ == StatementTypeDQL || typ == StatementTypeUtility,
	}

	seen := make(map[string]bool)
	for _, p := range c.tablePatterns {
		for _, m := range p.FindAllStringSubmatch(sql, -1) {
			name := strings.ToLower(m[1])
			if !seen[name] {
				seen[name] = true
				info.Tables = append(info.Tables, name)
			}
		}
	}
	return info
}

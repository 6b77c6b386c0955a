package models

import "time"

// AnswerKind tells how a question was answered.
type AnswerKind string

const (
	// AnswerKindSQL means the reply was a statement that was executed.
	AnswerKindSQL AnswerKind = "sql"
	// AnswerKindDirect means the reply was prose and is returned as is.
	AnswerKindDirect AnswerKind = "direct"
)

// Answer is the outcome of one question.
type Answer struct {
	ID           string        `json:"id"`
	Question     string        `json:"question"`
	Kind         AnswerKind    `json:"kind"`
	Reply        string        `json:"reply"`
	Statement    string        `json:"statement,omitempty"`
	DroppedLines []string      `json:"dropped_lines,omitempty"`
	Result       *ResultSet    `json:"result,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Release frees the result set held by the answer, if any.
func (a *Answer) Release() {
	if a != nil && a.Result != nil {
		a.Result.Release()
	}
}

// Advice is the outcome of one subject line review.
type Advice struct {
	ID          string        `json:"id"`
	Subject     string        `json:"subject"`
	Suggestions string        `json:"suggestions"`
	Duration    time.Duration `json:"duration"`
}

package models

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrorColumn is the single column of an error result set.
const ErrorColumn = "error"

// ExecutionError describes a statement that failed to execute.
type ExecutionError struct {
	Statement string `json:"statement"`
	Message   string `json:"message"`
	Cause     error  `json:"-"`
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return e.Message
}

// Unwrap returns the driver error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// ResultSet is the outcome of executing one statement: rows or an error.
//
// A failed execution still carries a table: Columns is ["error"] and Record
// holds one row with the error description.
type ResultSet struct {
	Statement     string          `json:"statement"`
	Columns       []string        `json:"columns"`
	Record        arrow.Record    `json:"-"`
	Err           *ExecutionError `json:"error,omitempty"`
	Truncated     bool            `json:"truncated"`
	Cached        bool            `json:"cached"`
	ExecutionTime time.Duration   `json:"execution_time"`
}

// NewErrorResult builds the one-row error table for a failed statement.
func NewErrorResult(alloc memory.Allocator, statement string, cause error) *ResultSet {
	msg := "unknown execution error"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}

	schema := arrow.NewSchema([]arrow.Field{
		{Name: ErrorColumn, Type: arrow.BinaryTypes.String},
	}, nil)
	builder := array.NewRecordBuilder(alloc, schema)
	defer builder.Release()
	builder.Field(0).(*array.StringBuilder).Append(msg)

	return &ResultSet{
		Statement: statement,
		Columns:   []string{ErrorColumn},
		Record:    builder.NewRecord(),
		Err: &ExecutionError{
			Statement: statement,
			Message:   msg,
			Cause:     cause,
		},
	}
}

// NumRows returns the number of rows held by the result set.
func (r *ResultSet) NumRows() int64 {
	if r == nil || r.Record == nil {
		return 0
	}
	return r.Record.NumRows()
}

// IsEmpty reports whether there are no rows.
func (r *ResultSet) IsEmpty() bool {
	return r.NumRows() == 0
}

// IsError reports whether the statement failed.
func (r *ResultSet) IsError() bool {
	return r != nil && r.Err != nil
}

// Head returns a slice of at most n leading rows. The caller must release it.
func (r *ResultSet) Head(n int) arrow.Record {
	if r == nil || r.Record == nil {
		return nil
	}
	end := int64(n)
	if end > r.Record.NumRows() {
		end = r.Record.NumRows()
	}
	if end < 0 {
		end = 0
	}
	return r.Record.NewSlice(0, end)
}

// StringRows renders every cell as text, NULL for nulls.
func (r *ResultSet) StringRows() [][]string {
	if r == nil || r.Record == nil {
		return nil
	}

	rec := r.Record
	rows := make([][]string, rec.NumRows())
	for i := range rows {
		row := make([]string, rec.NumCols())
		for j := 0; j < int(rec.NumCols()); j++ {
			col := rec.Column(j)
			if col.IsNull(i) {
				row[j] = "NULL"
				continue
			}
			row[j] = col.ValueStr(i)
		}
		rows[i] = row
	}
	return rows
}

// Retain increments the reference count of the underlying record.
func (r *ResultSet) Retain() {
	if r != nil && r.Record != nil {
		r.Record.Retain()
	}
}

// Release decrements the reference count of the underlying record.
func (r *ResultSet) Release() {
	if r != nil && r.Record != nil {
		r.Record.Release()
	}
}

// String implements fmt.Stringer for logs.
func (r *ResultSet) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.IsError() {
		return fmt.Sprintf("error: %s", r.Err.Message)
	}
	return fmt.Sprintf("%d rows x %d columns", r.NumRows(), len(r.Columns))
}

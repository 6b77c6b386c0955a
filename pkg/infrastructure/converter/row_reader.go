package converter

import (
	"context"
	"database/sql"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"

	"github.com/TFMV/campaignqa/pkg/errors"
)

// DefaultMaxRows caps how many rows a single statement materializes.
const DefaultMaxRows = 10000

// Result is a materialized statement result.
type Result struct {
	Record    arrow.Record
	Columns   []string
	Truncated bool
}

// RowReader reads SQL rows into a single Arrow record.
type RowReader struct {
	allocator memory.Allocator
	maxRows   int
	logger    zerolog.Logger
}

// NewRowReader creates a reader. maxRows <= 0 selects DefaultMaxRows.
func NewRowReader(allocator memory.Allocator, maxRows int, logger zerolog.Logger) *RowReader {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &RowReader{
		allocator: allocator,
		maxRows:   maxRows,
		logger:    logger,
	}
}

// Read drains rows (up to the row cap) and builds a record. Column types are
// inferred from the scanned values, falling back to the driver's declared type
// for all-NULL columns. The caller owns rows and must close it.
func (r *RowReader) Read(ctx context.Context, rows *sql.Rows) (*Result, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to get column types")
	}

	names := make([]string, len(colTypes))
	for i, ct := range colTypes {
		names[i] = ct.Name()
	}

	var (
		buffered  [][]interface{}
		truncated bool
	)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeDeadlineExceeded, "row read cancelled")
		}
		if len(buffered) == r.maxRows {
			truncated = true
			break
		}

		values := make([]interface{}, len(colTypes))
		dest := make([]interface{}, len(colTypes))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, errors.CodeExecutionFailed, "failed to scan row")
		}
		buffered = append(buffered, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "row iteration failed")
	}

	fields := make([]arrow.Field, len(colTypes))
	column := make([]interface{}, len(buffered))
	for i, ct := range colTypes {
		for j, row := range buffered {
			column[j] = row[i]
		}
		fields[i] = arrow.Field{
			Name:     names[i],
			Type:     InferType(column, DatabaseTypeToArrow(ct.DatabaseTypeName())),
			Nullable: true,
		}
	}

	schema := arrow.NewSchema(fields, nil)
	builder := array.NewRecordBuilder(r.allocator, schema)
	defer builder.Release()

	for _, row := range buffered {
		for i, v := range row {
			appendValue(builder.Field(i), v)
		}
	}

	if truncated {
		r.logger.Warn().
			Int("max_rows", r.maxRows).
			Msg("Result truncated at row cap")
	}

	return &Result{
		Record:    builder.NewRecord(),
		Columns:   names,
		Truncated: truncated,
	}, nil
}

// appendValue appends v to b, converting it to the builder's type.
func appendValue(b array.Builder, v interface{}) {
	if classify(v) == kindNull {
		b.AppendNull()
		return
	}

	switch bb := b.(type) {
	case *array.Int64Builder:
		bb.Append(toInt64(v))
	case *array.Float64Builder:
		bb.Append(toFloat64(v))
	case *array.BooleanBuilder:
		bb.Append(v.(bool))
	case *array.StringBuilder:
		bb.Append(toString(v))
	default:
		b.AppendNull()
	}
}

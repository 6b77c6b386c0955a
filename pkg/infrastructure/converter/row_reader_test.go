package converter

import (
	"context"
	"database/sql"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDuckDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRowReader_Read(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	db := openDuckDB(t)
	rows, err := db.Query(`
		SELECT * FROM (VALUES
			(1, 'Spring sale', 0.25, true, NULL),
			(2, 'Last chance', 0.05, false, NULL)
		) AS t(template_id, subject_line, open_rate, promo, notes)`)
	require.NoError(t, err)
	defer rows.Close()

	reader := NewRowReader(alloc, 0, zerolog.New(zerolog.NewTestWriter(t)))
	res, err := reader.Read(context.Background(), rows)
	require.NoError(t, err)
	defer res.Record.Release()

	assert.False(t, res.Truncated)
	assert.Equal(t, []string{"template_id", "subject_line", "open_rate", "promo", "notes"}, res.Columns)
	require.EqualValues(t, 2, res.Record.NumRows())

	schema := res.Record.Schema()
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(0).Type)
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(1).Type)
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(4).Type)

	ids := res.Record.Column(0).(*array.Int64)
	assert.Equal(t, int64(2), ids.Value(1))
	subjects := res.Record.Column(1).(*array.String)
	assert.Equal(t, "Last chance", subjects.Value(1))
	assert.True(t, res.Record.Column(4).IsNull(0))
}

func TestRowReader_Truncates(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	db := openDuckDB(t)
	rows, err := db.Query("SELECT range AS n FROM range(100)")
	require.NoError(t, err)
	defer rows.Close()

	res, err := NewRowReader(alloc, 10, zerolog.Nop()).Read(context.Background(), rows)
	require.NoError(t, err)
	defer res.Record.Release()

	assert.True(t, res.Truncated)
	assert.EqualValues(t, 10, res.Record.NumRows())
}

func TestRowReader_EmptyResult(t *testing.T) {
	db := openDuckDB(t)
	rows, err := db.Query("SELECT 1 AS a, 'x' AS b WHERE false")
	require.NoError(t, err)
	defer rows.Close()

	res, err := NewRowReader(nil, 0, zerolog.Nop()).Read(context.Background(), rows)
	require.NoError(t, err)
	defer res.Record.Release()

	assert.EqualValues(t, 0, res.Record.NumRows())
	assert.Equal(t, []string{"a", "b"}, res.Columns)
}

func TestRowReader_CancelledContext(t *testing.T) {
	db := openDuckDB(t)
	rows, err := db.Query("SELECT range FROM range(5)")
	require.NoError(t, err)
	defer rows.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewRowReader(nil, 0, zerolog.Nop()).Read(ctx, rows)
	assert.Error(t, err)
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/infrastructure/converter"
	"github.com/TFMV/campaignqa/pkg/infrastructure/pool"
	"github.com/TFMV/campaignqa/pkg/models"
)

// RunQuery executes statement on a pooled handle and reads its rows.
// Driver errors are returned with CodeExecutionFailed.
func RunQuery(ctx context.Context, p pool.ConnectionPool, reader *converter.RowReader, statement string, logger zerolog.Logger) (*converter.Result, error) {
	logger.Debug().
		Str("statement", statement).
		Msg("Executing statement")

	db, err := p.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get connection from pool")
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		p.LogQuery(statement, time.Since(start), err)
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, err.Error())
	}
	defer rows.Close()

	res, err := reader.Read(ctx, rows)
	p.LogQuery(statement, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Int64("rows", res.Record.NumRows()).
		Bool("truncated", res.Truncated).
		Dur("duration", time.Since(start)).
		Msg("Statement executed")

	return res, nil
}

// DescribeTable lists the columns of table using an empty projection.
func DescribeTable(ctx context.Context, db *sql.DB, table string) ([]models.Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", table))
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeNotFound, "failed to describe table %s", table)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to get column types")
	}

	cols := make([]models.Column, len(types))
	for i, ct := range types {
		nullable, ok := ct.Nullable()
		cols[i] = models.Column{
			Name:     ct.Name(),
			Type:     ct.DatabaseTypeName(),
			Nullable: nullable || !ok,
		}
	}
	return cols, rows.Err()
}

// ValidateColumns fails with CodeDatasetSchema when a required column is missing.
func ValidateColumns(path string, cols []models.Column) error {
	missing := models.MissingColumns(cols)
	if len(missing) == 0 {
		return nil
	}
	return errors.New(errors.CodeDatasetSchema, fmt.Sprintf("dataset %s is missing required columns", path)).
		WithDetail("missing", missing)
}

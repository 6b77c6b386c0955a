// Package sqlite provides the SQLite-backed dataset repository.
package sqlite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/infrastructure/converter"
	"github.com/TFMV/campaignqa/pkg/infrastructure/pool"
	"github.com/TFMV/campaignqa/pkg/models"
	"github.com/TFMV/campaignqa/pkg/repositories"
)

// SQLite column affinities used when creating the table.
const (
	affinityInteger = "INTEGER"
	affinityReal    = "REAL"
	affinityText    = "TEXT"
)

// datasetRepository implements repositories.DatasetRepository for SQLite.
type datasetRepository struct {
	pool   pool.ConnectionPool
	reader *converter.RowReader
	logger zerolog.Logger

	mu      sync.RWMutex
	dataset *models.Dataset
}

// NewDatasetRepository creates a new SQLite dataset repository.
func NewDatasetRepository(p pool.ConnectionPool, reader *converter.RowReader, logger zerolog.Logger) repositories.DatasetRepository {
	return &datasetRepository{
		pool:   p,
		reader: reader,
		logger: logger,
	}
}

// Load reads a CSV file and inserts it into the campaign table. Column types
// are inferred from the data: INTEGER, REAL, or TEXT. Empty cells are NULL.
func (r *datasetRepository) Load(ctx context.Context, path string) (*models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dataset != nil {
		return nil, errors.New(errors.CodeInvalidRequest, "dataset already loaded")
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".parquet" {
		return nil, errors.New(errors.CodeDatasetLoadFailed, "the sqlite engine only loads CSV files")
	}

	start := time.Now()
	r.logger.Info().Str("path", path).Msg("Loading dataset")

	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	cols := make([]models.Column, len(header))
	for i, name := range header {
		cols[i] = models.Column{Name: name, Type: inferAffinity(records, i), Nullable: true}
	}
	if err := repositories.ValidateColumns(path, cols); err != nil {
		return nil, err
	}

	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get database connection")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatasetLoadFailed, "failed to begin load transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, createTableStmt(cols)); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatasetLoadFailed, "failed to create dataset table")
	}

	insert, err := tx.PrepareContext(ctx, insertStmt(cols))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatasetLoadFailed, "failed to prepare insert")
	}
	defer insert.Close()

	for n, rec := range records {
		args := make([]interface{}, len(cols))
		for i := range cols {
			args[i] = convertCell(rec[i], cols[i].Type)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return nil, errors.Wrapf(err, errors.CodeDatasetLoadFailed, "failed to insert row %d", n+1)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatasetLoadFailed, "failed to commit dataset")
	}

	r.dataset = &models.Dataset{
		Table:    models.CampaignTable,
		Path:     path,
		Engine:   pool.DriverSQLite,
		Rows:     int64(len(records)),
		Columns:  cols,
		LoadedAt: time.Now(),
		LoadTime: time.Since(start),
	}

	r.logger.Info().
		Int64("rows", r.dataset.Rows).
		Int("columns", len(cols)).
		Dur("load_time", r.dataset.LoadTime).
		Msg("Dataset loaded")

	return r.dataset, nil
}

// Dataset returns the loaded dataset description.
func (r *datasetRepository) Dataset() (*models.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.dataset == nil {
		return nil, errors.ErrDatasetNotLoaded
	}
	return r.dataset, nil
}

// Columns returns the declared columns of the campaign table.
func (r *datasetRepository) Columns(ctx context.Context) ([]models.Column, error) {
	ds, err := r.Dataset()
	if err != nil {
		return nil, err
	}
	out := make([]models.Column, len(ds.Columns))
	copy(out, ds.Columns)
	return out, nil
}

// Query executes a statement against the loaded dataset.
func (r *datasetRepository) Query(ctx context.Context, statement string) (*converter.Result, error) {
	return repositories.RunQuery(ctx, r.pool, r.reader, statement, r.logger)
}

func (r *datasetRepository) Dialect() string {
	return "SQLite"
}

// readCSV returns the trimmed header and all data records.
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CodeDatasetLoadFailed, "failed to open %s", path)
	}
	defer f.Close()

	cr := csv.NewReader(f)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.New(errors.CodeDatasetLoadFailed, fmt.Sprintf("%s is empty", path))
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CodeDatasetLoadFailed, "failed to read header of %s", path)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CodeDatasetLoadFailed, "failed to parse %s", path)
	}
	return header, records, nil
}

// inferAffinity picks the narrowest affinity that fits every non-empty cell.
func inferAffinity(records [][]string, col int) string {
	affinity := affinityInteger
	seen := false
	for _, rec := range records {
		cell := strings.TrimSpace(rec[col])
		if cell == "" {
			continue
		}
		seen = true
		if affinity == affinityInteger {
			if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
				continue
			}
			affinity = affinityReal
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return affinityText
		}
	}
	if !seen {
		return affinityText
	}
	return affinity
}

// convertCell converts a raw CSV cell to the Go value for its affinity.
func convertCell(cell, affinity string) interface{} {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	switch affinity {
	case affinityInteger:
		v, _ := strconv.ParseInt(trimmed, 10, 64)
		return v
	case affinityReal:
		v, _ := strconv.ParseFloat(trimmed, 64)
		return v
	default:
		return cell
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createTableStmt(cols []models.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c.Name) + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", models.CampaignTable, strings.Join(defs, ", "))
}

func insertStmt(cols []models.Column) string {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		models.CampaignTable, strings.Join(names, ", "), strings.Join(marks, ", "))
}

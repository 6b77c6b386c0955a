// Package repositories defines interfaces for data access operations.
package repositories

import (
	"context"

	"github.com/TFMV/campaignqa/pkg/infrastructure/converter"
	"github.com/TFMV/campaignqa/pkg/models"
)

// DatasetRepository loads the campaign dataset into an embedded engine and
// runs statements against it.
type DatasetRepository interface {
	// Load reads the file at path into the campaign table and validates its
	// columns. It may be called once.
	Load(ctx context.Context, path string) (*models.Dataset, error)
	// Dataset returns the loaded dataset description.
	Dataset() (*models.Dataset, error)
	// Columns describes the campaign table as the engine sees it.
	Columns(ctx context.Context) ([]models.Column, error)
	// Query executes a statement and materializes its rows.
	Query(ctx context.Context, statement string) (*converter.Result, error)
	// Dialect names the SQL dialect the engine speaks, e.g. "DuckDB".
	Dialect() string
}

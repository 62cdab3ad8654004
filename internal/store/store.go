// Package store persists published tests and scored results.
package store

import (
	"context"
	"errors"

	"github.com/sat-practice/backend/internal/models"
)

// ErrNotFound is returned when a test or result id is unknown.
var ErrNotFound = errors.New("not found")

// Store is the key/blob persistence used by the API.
// Writes to the same id are serialized; the last write wins.
type Store interface {
	PutTest(ctx context.Context, test *models.Test) error
	GetTest(ctx context.Context, testID string) (*models.Test, error)
	ListTests(ctx context.Context) ([]models.TestSummary, error)
	DeleteTest(ctx context.Context, testID string) error

	PutResult(ctx context.Context, result *models.Result) error
	GetResult(ctx context.Context, resultID string) (*models.Result, error)
	ListResults(ctx context.Context, testID string) ([]models.Result, error)

	Close() error
}

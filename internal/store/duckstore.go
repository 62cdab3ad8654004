package store

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/marcboeker/go-duckdb"
	"github.com/sat-practice/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// DuckStore keeps tests and results in a DuckDB file. Each row carries a few
// indexed columns for listing plus the full record as a msgpack payload.
type DuckStore struct {
	db     *sql.DB
	dbPath string

	// writeMu gives at-most-one writer per store, which covers per-id writes.
	writeMu sync.Mutex

	// Semaphore to limit concurrent queries
	querySem chan struct{}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tests (
		test_id         VARCHAR PRIMARY KEY,
		title           VARCHAR NOT NULL,
		question_count  INTEGER NOT NULL,
		images_required INTEGER NOT NULL,
		created_at      TIMESTAMP NOT NULL,
		payload         BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		result_id    VARCHAR PRIMARY KEY,
		test_id      VARCHAR NOT NULL,
		student_id   VARCHAR NOT NULL,
		score        INTEGER NOT NULL,
		submitted_at TIMESTAMP NOT NULL,
		payload      BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_test ON results(test_id)`,
}

// Options tunes the DuckDB connection.
type Options struct {
	Threads     int
	MemoryLimit string
}

// DefaultOptions suits a small single-node deployment.
func DefaultOptions() Options {
	return Options{Threads: 2, MemoryLimit: "256MB"}
}

// NewDuckStore opens (or creates) the database at dbPath with DefaultOptions.
func NewDuckStore(dbPath string) (*DuckStore, error) {
	return NewDuckStoreWithOptions(dbPath, DefaultOptions())
}

// NewDuckStoreWithOptions opens (or creates) the database at dbPath.
func NewDuckStoreWithOptions(dbPath string, opts Options) (*DuckStore, error) {
	def := DefaultOptions()
	if opts.Threads <= 0 {
		opts.Threads = def.Threads
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = def.MemoryLimit
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	log.Infof("[DuckStore] Opening database at: %s", dbPath)
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				log.Warnf("[DuckStore] Pragma warning: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &DuckStore{
		db:       db,
		dbPath:   dbPath,
		querySem: make(chan struct{}, 4),
	}, nil
}

func (ds *DuckStore) acquire(ctx context.Context) (func(), error) {
	select {
	case ds.querySem <- struct{}{}:
		return func() { <-ds.querySem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PutTest inserts or replaces a test.
func (ds *DuckStore) PutTest(ctx context.Context, test *models.Test) error {
	if test == nil || test.TestID == "" {
		return errors.New("test id is required")
	}
	payload, err := encode(test)
	if err != nil {
		return fmt.Errorf("failed to encode test %s: %w", test.TestID, err)
	}

	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	_, err = ds.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tests (test_id, title, question_count, images_required, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		test.TestID, test.Title, len(test.Questions), len(test.ImageRequirements), test.CreatedAt.UTC(), payload)
	if err != nil {
		return fmt.Errorf("failed to store test %s: %w", test.TestID, err)
	}
	return nil
}

// GetTest loads a test by id.
func (ds *DuckStore) GetTest(ctx context.Context, testID string) (*models.Test, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var payload []byte
	err = ds.db.QueryRowContext(ctx, `SELECT payload FROM tests WHERE test_id = ?`, testID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("test %s: %w", testID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load test %s: %w", testID, err)
	}

	var test models.Test
	if err := decode(payload, &test); err != nil {
		return nil, fmt.Errorf("failed to decode test %s: %w", testID, err)
	}
	return &test, nil
}

// ListTests returns test summaries, newest first.
func (ds *DuckStore) ListTests(ctx context.Context) ([]models.TestSummary, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := ds.db.QueryContext(ctx,
		`SELECT test_id, title, question_count, images_required, created_at
		 FROM tests ORDER BY created_at DESC, test_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.TestSummary, 0)
	for rows.Next() {
		var s models.TestSummary
		if err := rows.Scan(&s.TestID, &s.Title, &s.QuestionCount, &s.ImagesRequired, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test row: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// DeleteTest removes a test and every result submitted against it.
func (ds *DuckStore) DeleteTest(ctx context.Context, testID string) error {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM tests WHERE test_id = ?`, testID)
	if err != nil {
		return fmt.Errorf("failed to delete test %s: %w", testID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("test %s: %w", testID, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE test_id = ?`, testID); err != nil {
		return fmt.Errorf("failed to delete results of %s: %w", testID, err)
	}
	return tx.Commit()
}

// PutResult inserts or replaces a result.
func (ds *DuckStore) PutResult(ctx context.Context, result *models.Result) error {
	if result == nil || result.ResultID == "" {
		return errors.New("result id is required")
	}
	payload, err := encode(result)
	if err != nil {
		return fmt.Errorf("failed to encode result %s: %w", result.ResultID, err)
	}

	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	_, err = ds.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (result_id, test_id, student_id, score, submitted_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.ResultID, result.TestID, result.StudentID, result.Score, result.SubmittedAt.UTC(), payload)
	if err != nil {
		return fmt.Errorf("failed to store result %s: %w", result.ResultID, err)
	}
	return nil
}

// GetResult loads a result by id.
func (ds *DuckStore) GetResult(ctx context.Context, resultID string) (*models.Result, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var payload []byte
	err = ds.db.QueryRowContext(ctx, `SELECT payload FROM results WHERE result_id = ?`, resultID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", resultID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result %s: %w", resultID, err)
	}

	var result models.Result
	if err := decode(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", resultID, err)
	}
	return &result, nil
}

// ListResults returns every result for a test, newest first.
func (ds *DuckStore) ListResults(ctx context.Context, testID string) ([]models.Result, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := ds.db.QueryContext(ctx,
		`SELECT payload FROM results WHERE test_id = ? ORDER BY submitted_at DESC, result_id`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	results := make([]models.Result, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		var r models.Result
		if err := decode(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Path returns the database file path.
func (ds *DuckStore) Path() string {
	return ds.dbPath
}

// Close closes the database. The file is kept.
func (ds *DuckStore) Close() error {
	if ds.db == nil {
		return nil
	}
	start := time.Now()
	err := ds.db.Close()
	log.Debugf("[DuckStore] Closed %s in %v", ds.dbPath, time.Since(start))
	return err
}

// Payloads reuse the json tags so stored records match the API shape.
func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

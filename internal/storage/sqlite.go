package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/recallkit/recall-mcp/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Release the processing slot if a previous run died mid-job
	if err := failStaleProcessing(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether the error is a unique-constraint failure.
// Both the cgo and pure Go drivers surface the constraint name in the message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// Context operations

func (s *SQLiteStorage) CreateContext(ctx context.Context, record *types.Context) error {
	query := `
		INSERT INTO contexts (id, fingerprint, content_fingerprint, category_slug, type,
		                      title, description, summary, raw_content, asset_id,
		                      created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Fingerprint, record.ContentFingerprint, record.CategorySlug,
		string(record.Type), record.Title, record.Description, record.Summary,
		record.RawContent, nullable(record.AssetID), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("context %s: %w", record.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create context: %w", err)
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	return nil
}

const contextColumns = `id, fingerprint, content_fingerprint, category_slug, type,
	title, description, summary, raw_content, COALESCE(asset_id, ''),
	created_at, updated_at`

func (s *SQLiteStorage) GetContext(ctx context.Context, id string) (*types.Context, error) {
	query := `SELECT ` + contextColumns + ` FROM contexts WHERE id = ?`
	return s.scanContextRow(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) GetContextByFingerprint(ctx context.Context, fingerprint string) (*types.Context, error) {
	query := `SELECT ` + contextColumns + ` FROM contexts WHERE fingerprint = ? ORDER BY created_at LIMIT 1`
	return s.scanContextRow(s.db.QueryRowContext(ctx, query, fingerprint))
}

func (s *SQLiteStorage) GetContextByContentFingerprint(ctx context.Context, fingerprint string) (*types.Context, error) {
	query := `SELECT ` + contextColumns + ` FROM contexts WHERE content_fingerprint = ? ORDER BY created_at LIMIT 1`
	return s.scanContextRow(s.db.QueryRowContext(ctx, query, fingerprint))
}

func (s *SQLiteStorage) ListContexts(ctx context.Context) ([]*types.Context, error) {
	query := `SELECT ` + contextColumns + ` FROM contexts ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contexts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return s.scanContexts(rows)
}

func (s *SQLiteStorage) ListContextsByCategory(ctx context.Context, slug string) ([]*types.Context, error) {
	query := `SELECT ` + contextColumns + ` FROM contexts WHERE category_slug = ? ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to list contexts by category: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return s.scanContexts(rows)
}

// DeleteContext removes the context, its embeddings, and its asset in one
// transaction so a partial cascade can never be observed.
func (s *SQLiteStorage) DeleteContext(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var assetID sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT asset_id FROM contexts WHERE id = ?", id).Scan(&assetID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load context: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE context_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM contexts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}
	if assetID.Valid && assetID.String != "" {
		if _, err := tx.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", assetID.String); err != nil {
			return fmt.Errorf("failed to delete asset: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) scanContextRow(row *sql.Row) (*types.Context, error) {
	var record types.Context
	var contextType string
	err := row.Scan(&record.ID, &record.Fingerprint, &record.ContentFingerprint,
		&record.CategorySlug, &contextType, &record.Title, &record.Description,
		&record.Summary, &record.RawContent, &record.AssetID,
		&record.CreatedAt, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan context: %w", err)
	}
	record.Type = types.ContextType(contextType)
	return &record, nil
}

func (s *SQLiteStorage) scanContexts(rows *sql.Rows) ([]*types.Context, error) {
	var records []*types.Context
	for rows.Next() {
		var record types.Context
		var contextType string
		err := rows.Scan(&record.ID, &record.Fingerprint, &record.ContentFingerprint,
			&record.CategorySlug, &contextType, &record.Title, &record.Description,
			&record.Summary, &record.RawContent, &record.AssetID,
			&record.CreatedAt, &record.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan context: %w", err)
		}
		record.Type = types.ContextType(contextType)
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Category operations

func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *types.Category) error {
	query := `INSERT INTO categories (slug, label, created_at) VALUES (?, ?, ?)`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query, category.Slug, category.Label, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %s: %w", category.Slug, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	category.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) GetCategory(ctx context.Context, slug string) (*types.Category, error) {
	query := `SELECT slug, label, created_at FROM categories WHERE slug = ?`
	var category types.Category
	err := s.db.QueryRowContext(ctx, query, slug).Scan(&category.Slug, &category.Label, &category.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]*types.Category, error) {
	query := `SELECT slug, label, created_at FROM categories ORDER BY label`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []*types.Category
	for rows.Next() {
		var category types.Category
		if err := rows.Scan(&category.Slug, &category.Label, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &category)
	}
	return categories, rows.Err()
}

// RenameCategory re-keys a category and migrates every dependent context and
// embedding in a single transaction. A crash mid-rename leaves the old state
// fully intact.
func (s *SQLiteStorage) RenameCategory(ctx context.Context, oldSlug, newSlug, newLabel string) error {
	if oldSlug == newSlug {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var label string
	err = tx.QueryRowContext(ctx, "SELECT label FROM categories WHERE slug = ?", oldSlug).Scan(&label)
	if err == sql.ErrNoRows {
		return fmt.Errorf("category %s: %w", oldSlug, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}

	if newLabel == "" {
		newLabel = label
	}

	// Insert the new slug before migrating dependents so the contexts table
	// foreign key stays satisfied throughout.
	_, err = tx.ExecContext(ctx, "INSERT INTO categories (slug, label) VALUES (?, ?)", newSlug, newLabel)
	if err != nil {
		if !isUniqueViolation(err) {
			return fmt.Errorf("failed to create renamed category: %w", err)
		}
		// Target slug already exists - merge into it
	}

	if _, err := tx.ExecContext(ctx, "UPDATE contexts SET category_slug = ?, updated_at = ? WHERE category_slug = ?",
		newSlug, time.Now(), oldSlug); err != nil {
		return fmt.Errorf("failed to migrate contexts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE embeddings SET category = ? WHERE category = ?",
		newSlug, oldSlug); err != nil {
		return fmt.Errorf("failed to migrate embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE slug = ?", oldSlug); err != nil {
		return fmt.Errorf("failed to remove old category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rename: %w", err)
	}
	return nil
}

// Asset operations

func (s *SQLiteStorage) CreateAsset(ctx context.Context, asset *types.Asset) error {
	query := `INSERT INTO assets (id, mime_type, data, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query, asset.ID, asset.MimeType, asset.Data, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("asset %s: %w", asset.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}
	asset.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) GetAsset(ctx context.Context, id string) (*types.Asset, error) {
	query := `SELECT id, mime_type, data, created_at FROM assets WHERE id = ?`
	var asset types.Asset
	err := s.db.QueryRowContext(ctx, query, id).Scan(&asset.ID, &asset.MimeType, &asset.Data, &asset.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

func (s *SQLiteStorage) DeleteAsset(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{
		QueueByStatus: make(map[types.QueueStatus]int),
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM contexts", &status.Contexts},
		{"SELECT COUNT(*) FROM categories", &status.Categories},
		{"SELECT COUNT(*) FROM embeddings", &status.Embeddings},
		{"SELECT COUNT(*) FROM assets", &status.Assets},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count records: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM queue_items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count queue items: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("failed to scan queue count: %w", err)
		}
		status.QueueByStatus[types.QueueStatus(st)] = n
	}
	return status, rows.Err()
}

// nullable converts an empty string to a SQL NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

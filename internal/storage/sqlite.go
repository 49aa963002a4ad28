package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/launchsearch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

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

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// withTx runs fn inside a transaction, committing on success
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Item operations

const itemColumns = `key, type, data, launch_count, pin_position, hidden, weight, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var kind string
	var pin sql.NullInt64
	var weight any
	if err := row.Scan(&item.Key, &kind, &item.Data, &item.LaunchCount, &pin,
		&item.Hidden, &weight, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Kind = types.ItemKind(kind)
	if pin.Valid {
		p := int(pin.Int64)
		item.PinPosition = &p
	}
	item.Weight = parseWeight(weight)
	return &item, nil
}

// getItemWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getItemWithQuerier(ctx context.Context, q querier, key string) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM searchables WHERE key = ?`
	item, err := scanItem(q.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SQLiteStorage) GetItem(ctx context.Context, key string) (*Item, error) {
	return s.getItemWithQuerier(ctx, s.querier(), key)
}

// CreateItem inserts a new item. It fails with ErrAlreadyExists when the key is taken.
func (s *SQLiteStorage) CreateItem(ctx context.Context, item *Item) error {
	if item.Key == "" {
		return types.ErrEmptyKey
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidKind, item.Kind)
	}

	query := `
		INSERT INTO searchables (key, type, data, launch_count, pin_position, hidden, weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	var pin sql.NullInt64
	if item.PinPosition != nil {
		pin = sql.NullInt64{Int64: int64(*item.PinPosition), Valid: true}
	}
	var weight sql.NullFloat64
	if item.Weight != nil {
		weight = sql.NullFloat64{Float64: *item.Weight, Valid: true}
	}

	_, err := s.querier().ExecContext(ctx, query,
		item.Key, string(item.Kind), item.Data, item.LaunchCount, pin, item.Hidden, weight, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("item %s: %w", item.Key, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// UpdateItemUsage stores a new launch count and weight for an existing item
func (s *SQLiteStorage) UpdateItemUsage(ctx context.Context, key string, launchCount int, weight float64) error {
	query := `UPDATE searchables SET launch_count = ?, weight = ?, updated_at = ? WHERE key = ?`
	result, err := s.querier().ExecContext(ctx, query, launchCount, weight, time.Now(), key)
	if err != nil {
		return fmt.Errorf("failed to update item usage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetHidden marks an item hidden or visible, creating the row when missing
func (s *SQLiteStorage) SetHidden(ctx context.Context, key string, kind types.ItemKind, hidden bool) error {
	if key == "" {
		return types.ErrEmptyKey
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidKind, kind)
	}

	query := `
		INSERT INTO searchables (key, type, hidden, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET hidden = excluded.hidden, updated_at = excluded.updated_at
	`
	now := time.Now()
	if _, err := s.querier().ExecContext(ctx, query, key, string(kind), hidden, now, now); err != nil {
		return fmt.Errorf("failed to set hidden: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListItems(ctx context.Context) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM searchables ORDER BY key`
	rows, err := s.querier().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Favorite operations

// AddFavorite appends key to the end of the favorites list. Adding an existing favorite is a no-op.
func (s *SQLiteStorage) AddFavorite(ctx context.Context, key string) error {
	if key == "" {
		return types.ErrEmptyKey
	}
	return s.withTx(ctx, func(q querier) error {
		var next int
		if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM favorites`).Scan(&next); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `INSERT INTO favorites (key, position) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`, key, next)
		if err != nil {
			return fmt.Errorf("failed to add favorite: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStorage) RemoveFavorite(ctx context.Context, key string) error {
	_, err := s.querier().ExecContext(ctx, `DELETE FROM favorites WHERE key = ?`, key)
	return err
}

// ListFavorites returns favorites ordered by position
func (s *SQLiteStorage) ListFavorites(ctx context.Context) ([]Favorite, error) {
	rows, err := s.querier().QueryContext(ctx, `SELECT key, position FROM favorites ORDER BY position, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.Key, &f.Position); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// Tag operations

func (s *SQLiteStorage) CreateTag(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag name cannot be empty")
	}

	now := time.Now()
	result, err := s.querier().ExecContext(ctx, `INSERT INTO tags (name, created_at) VALUES (?, ?)`, name, now)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("tag %s: %w", name, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Tag{ID: id, Name: name, CreatedAt: now}, nil
}

func (s *SQLiteStorage) ListTags(ctx context.Context) ([]*Tag, error) {
	rows, err := s.querier().QueryContext(ctx, `SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// TagItem adds key to the tag. Unknown tags yield ErrNotFound.
func (s *SQLiteStorage) TagItem(ctx context.Context, tagID int64, key string) error {
	if key == "" {
		return types.ErrEmptyKey
	}
	return s.withTx(ctx, func(q querier) error {
		var exists int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM tags WHERE id = ?`, tagID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `INSERT INTO tag_items (tag_id, key) VALUES (?, ?) ON CONFLICT DO NOTHING`, tagID, key)
		return err
	})
}

func (s *SQLiteStorage) UntagItem(ctx context.Context, tagID int64, key string) error {
	_, err := s.querier().ExecContext(ctx, `DELETE FROM tag_items WHERE tag_id = ? AND key = ?`, tagID, key)
	return err
}

func (s *SQLiteStorage) ListTagMembers(ctx context.Context, tagID int64) ([]string, error) {
	rows, err := s.querier().QueryContext(ctx, `SELECT key FROM tag_items WHERE tag_id = ? ORDER BY key`, tagID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// History operations

func (s *SQLiteStorage) RecordQuery(ctx context.Context, query string, at time.Time) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	_, err := s.querier().ExecContext(ctx, `INSERT INTO search_history (query, timestamp) VALUES (?, ?)`, query, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// ListRecentQueries returns up to limit queries, newest first
func (s *SQLiteStorage) ListRecentQueries(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.querier().QueryContext(ctx,
		`SELECT id, query, timestamp FROM search_history ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

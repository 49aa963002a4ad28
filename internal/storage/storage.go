package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/dshills/launchsearch/pkg/types"
)

// Storage defines the interface for persisting launcher items, favorites, tags and search history
type Storage interface {
	// Item operations
	GetItem(ctx context.Context, key string) (*Item, error)
	CreateItem(ctx context.Context, item *Item) error
	UpdateItemUsage(ctx context.Context, key string, launchCount int, weight float64) error
	SetHidden(ctx context.Context, key string, kind types.ItemKind, hidden bool) error
	ListItems(ctx context.Context) ([]*Item, error)

	// Favorite operations
	AddFavorite(ctx context.Context, key string) error
	RemoveFavorite(ctx context.Context, key string) error
	ListFavorites(ctx context.Context) ([]Favorite, error)

	// Tag operations
	CreateTag(ctx context.Context, name string) (*Tag, error)
	ListTags(ctx context.Context) ([]*Tag, error)
	TagItem(ctx context.Context, tagID int64, key string) error
	UntagItem(ctx context.Context, tagID int64, key string) error
	ListTagMembers(ctx context.Context, tagID int64) ([]string, error)

	// History operations
	RecordQuery(ctx context.Context, query string, at time.Time) error
	ListRecentQueries(ctx context.Context, limit int) ([]HistoryEntry, error)

	// Database operations
	Close() error
}

// Item is the persisted record of a searchable item
type Item struct {
	Key         string
	Kind        types.ItemKind
	Data        string // optional display payload
	LaunchCount int
	PinPosition *int     // Nullable
	Hidden      bool
	Weight      *float64 // Nullable; nil when missing or unreadable
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Favorite is a pinned item and its position in the favorites list
type Favorite struct {
	Key      string `json:"key"`
	Position int    `json:"position"`
}

// Tag groups favorites under a name
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is one recorded search query
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// parseWeight converts a raw column value into a weight. Values that are not
// numbers yield nil so callers treat them as "no bias".
func parseWeight(raw any) *float64 {
	var w float64
	switch v := raw.(type) {
	case float64:
		w = v
	case int64:
		w = float64(v)
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return nil
		}
		w = f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		w = f
	default:
		return nil
	}
	return &w
}

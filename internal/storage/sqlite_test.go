package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/launchsearch/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.db)
}

func TestNewSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launch.db")

	first, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.CreateItem(context.Background(), &Item{Key: "app.a", Kind: types.KindApp}))
	require.NoError(t, first.Close())

	// Migrations must not re-run on an up-to-date database.
	second, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer second.Close()

	item, err := second.GetItem(context.Background(), "app.a")
	require.NoError(t, err)
	assert.Equal(t, types.KindApp, item.Kind)
}

func TestCreateItem(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	w := 0.15
	item := &Item{Key: "com.android.chrome", Kind: types.KindApp, LaunchCount: 1, Weight: &w}
	require.NoError(t, storage.CreateItem(ctx, item))
	assert.False(t, item.CreatedAt.IsZero())

	// Duplicate key
	err := storage.CreateItem(ctx, &Item{Key: "com.android.chrome", Kind: types.KindApp})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// Validation
	assert.ErrorIs(t, storage.CreateItem(ctx, &Item{Kind: types.KindApp}), types.ErrEmptyKey)
	assert.ErrorIs(t, storage.CreateItem(ctx, &Item{Key: "x", Kind: "widget"}), types.ErrInvalidKind)
}

func TestGetItem(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	w := 0.42
	pin := 3
	key := types.ShortcutKey("com.android.chrome", "new_tab")
	require.NoError(t, storage.CreateItem(ctx, &Item{
		Key: key, Kind: types.KindShortcut, LaunchCount: 2, Weight: &w, PinPosition: &pin, Data: `{"label":"New tab"}`,
	}))

	got, err := storage.GetItem(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, types.KindShortcut, got.Kind)
	assert.Equal(t, 2, got.LaunchCount)
	require.NotNil(t, got.Weight)
	assert.InDelta(t, 0.42, *got.Weight, 1e-12)
	require.NotNil(t, got.PinPosition)
	assert.Equal(t, 3, *got.PinPosition)
	assert.Equal(t, `{"label":"New tab"}`, got.Data)
}

func TestGetItem_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.GetItem(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetItem_MalformedWeight(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.db.ExecContext(ctx,
		`INSERT INTO searchables (key, type, launch_count, weight) VALUES ('bad', 'app', 4, 'not-a-number')`)
	require.NoError(t, err)

	got, err := storage.GetItem(ctx, "bad")
	require.NoError(t, err)
	assert.Nil(t, got.Weight)
	assert.Equal(t, 4, got.LaunchCount)
}

func TestUpdateItemUsage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, storage.CreateItem(ctx, &Item{Key: "app", Kind: types.KindApp}))
	require.NoError(t, storage.UpdateItemUsage(ctx, "app", 5, 0.6))

	got, err := storage.GetItem(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, 5, got.LaunchCount)
	require.NotNil(t, got.Weight)
	assert.InDelta(t, 0.6, *got.Weight, 1e-12)

	assert.ErrorIs(t, storage.UpdateItemUsage(ctx, "missing", 1, 0.1), ErrNotFound)
}

func TestSetHidden(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	// Creates the row when missing
	require.NoError(t, storage.SetHidden(ctx, "app.hidden", types.KindApp, true))
	got, err := storage.GetItem(ctx, "app.hidden")
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	assert.Equal(t, 0, got.LaunchCount)

	// Keeps usage when toggled back
	require.NoError(t, storage.UpdateItemUsage(ctx, "app.hidden", 3, 0.3))
	require.NoError(t, storage.SetHidden(ctx, "app.hidden", types.KindApp, false))
	got, err = storage.GetItem(ctx, "app.hidden")
	require.NoError(t, err)
	assert.False(t, got.Hidden)
	assert.Equal(t, 3, got.LaunchCount)

	items, err := storage.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFavorites(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, storage.AddFavorite(ctx, "b"))
	require.NoError(t, storage.AddFavorite(ctx, "a"))
	require.NoError(t, storage.AddFavorite(ctx, "b")) // no-op

	favs, err := storage.ListFavorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Favorite{{Key: "b", Position: 0}, {Key: "a", Position: 1}}, favs)

	require.NoError(t, storage.RemoveFavorite(ctx, "b"))
	favs, err = storage.ListFavorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Favorite{{Key: "a", Position: 1}}, favs)
}

func TestTags(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	work, err := storage.CreateTag(ctx, "work")
	require.NoError(t, err)
	_, err = storage.CreateTag(ctx, "games")
	require.NoError(t, err)

	_, err = storage.CreateTag(ctx, "work")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	tags, err := storage.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "games", tags[0].Name)

	require.NoError(t, storage.TagItem(ctx, work.ID, "mail"))
	require.NoError(t, storage.TagItem(ctx, work.ID, "calendar"))
	assert.ErrorIs(t, storage.TagItem(ctx, 999, "mail"), ErrNotFound)

	members, err := storage.ListTagMembers(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"calendar", "mail"}, members)

	require.NoError(t, storage.UntagItem(ctx, work.ID, "mail"))
	members, err = storage.ListTagMembers(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"calendar"}, members)
}

func TestSearchHistory(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, storage.RecordQuery(ctx, "chrome", base))
	require.NoError(t, storage.RecordQuery(ctx, "maps", base.Add(time.Minute)))
	require.NoError(t, storage.RecordQuery(ctx, "   ", base.Add(2*time.Minute)))
	require.NoError(t, storage.RecordQuery(ctx, "mail", base.Add(3*time.Minute)))

	entries, err := storage.ListRecentQueries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "mail", entries[0].Query)
	assert.Equal(t, "maps", entries[1].Query)
}

func TestMigrations_Rollback(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, RollbackMigration(ctx, storage.db))

	v, err := currentSchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, ApplyMigrations(ctx, storage.db))
	v, err = currentSchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

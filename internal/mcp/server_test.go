package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/launchsearch/internal/executor"
	"github.com/dshills/launchsearch/internal/favorites"
	"github.com/dshills/launchsearch/internal/platform"
	"github.com/dshills/launchsearch/internal/searcher"
	"github.com/dshills/launchsearch/internal/settings"
	"github.com/dshills/launchsearch/internal/storage"
	"github.com/dshills/launchsearch/internal/weights"
)

const testCatalog = `
apps:
  - key: com.android.chrome
    label: Chrome
    shortcuts:
      - id: incognito
        shortLabel: Incognito tab
  - key: com.android.contacts
    label: Contacts
  - key: org.mozilla.firefox
    label: Firefox
`

type fixture struct {
	server *Server
	opener *platform.LogOpener
	store  *storage.SQLiteStorage
}

func setupServer(t *testing.T) fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/apps.yaml", []byte(testCatalog), 0o644))
	catalog, err := platform.NewCatalog(fs, "/apps.yaml")
	require.NoError(t, err)

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ws, err := weights.NewStore(store)
	require.NoError(t, err)

	set := settings.Default()
	set.Behavior.ShortcutCacheTTL = 0
	cfg := settings.Static(set)

	session, err := searcher.NewSession(catalog, catalog, ws, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	opener := platform.NewLogOpener(nil)
	gw, err := platform.NewGateway(catalog, opener)
	require.NoError(t, err)

	exec, err := executor.New(gw, gw, ws, executor.WithHistory(store))
	require.NoError(t, err)
	t.Cleanup(exec.Release)

	fav, err := favorites.New(catalog, store, ws)
	require.NoError(t, err)

	server, err := NewServer(Deps{
		Session:   session,
		Executor:  exec,
		Favorites: fav,
		Weights:   ws,
		Apps:      catalog,
		Settings:  cfg,
	})
	require.NoError(t, err)
	return fixture{server: server, opener: opener, store: store}
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(h handler, args map[string]interface{}) (map[string]interface{}, error) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		return nil, err
	}
	text := res.Content[0].(mcp.TextContent).Text
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mustCall(t *testing.T, h handler, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, err := call(h, args)
	require.NoError(t, err)
	return out
}

func TestNewServer_Deps(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.ErrorContains(t, err, "session is required")
}

func TestSearchTool(t *testing.T) {
	fx := setupServer(t)
	s := fx.server

	out := mustCall(t, s.handleSearch, map[string]interface{}{"query": "chrome", "wait_ms": float64(2000)})
	assert.Equal(t, "chrome", out["query"])
	assert.Empty(t, out["loading"])

	results := out["results"].(map[string]interface{})
	apps := results["apps"].([]interface{})
	require.Len(t, apps, 1)
	app := apps[0].(map[string]interface{})["app"].(map[string]interface{})
	assert.Equal(t, "com.android.chrome", app["key"])
	assert.Len(t, results["shortcuts"].([]interface{}), 1)

	best := out["best_match"].(map[string]interface{})
	assert.Equal(t, "app", best["kind"])
	assert.Equal(t, "com.android.chrome", best["key"])

	out = mustCall(t, s.handleSearch, map[string]interface{}{"query": ""})
	assert.Equal(t, float64(0), out["total"])
	assert.Nil(t, out["best_match"])
}

func TestSearchTool_InvalidParams(t *testing.T) {
	fx := setupServer(t)

	_, err := call(fx.server.handleSearch, map[string]interface{}{})
	assert.True(t, IsMCPError(err, ErrorCodeInvalidParams))

	_, err = call(fx.server.handleSearch, map[string]interface{}{"query": "x", "wait_ms": float64(-1)})
	assert.True(t, IsMCPError(err, ErrorCodeInvalidParams))

	req := mcp.CallToolRequest{}
	req.Params.Arguments = "not an object"
	_, err = fx.server.handleSearch(context.Background(), req)
	assert.True(t, IsMCPError(err, ErrorCodeInvalidParams))
}

func TestToggleFilterTool(t *testing.T) {
	fx := setupServer(t)
	s := fx.server

	out := mustCall(t, s.handleGetFilters, nil)
	assert.Equal(t, true, out["all_enabled"])
	assert.Equal(t, float64(9), out["enabled_count"])

	out = mustCall(t, s.handleToggleFilter, map[string]interface{}{"key": "Files"})
	assert.Equal(t, []interface{}{"files"}, out["enabled_categories"])
	assert.Equal(t, false, out["all_enabled"])

	out = mustCall(t, s.handleToggleFilter, map[string]interface{}{"key": "files"})
	assert.Equal(t, true, out["all_enabled"])

	_, err := call(s.handleToggleFilter, map[string]interface{}{"key": "bogus"})
	assert.True(t, IsMCPError(err, ErrorCodeInvalidParams))
}

func TestLaunchBestMatchTool(t *testing.T) {
	fx := setupServer(t)
	s := fx.server
	ctx := context.Background()

	_, err := call(s.handleLaunchBestMatch, nil)
	assert.True(t, IsMCPError(err, ErrorCodeNoBestMatch))

	mustCall(t, s.handleSearch, map[string]interface{}{"query": "fire", "wait_ms": float64(0)})
	out := mustCall(t, s.handleLaunchBestMatch, nil)
	launched := out["launched"].(map[string]interface{})
	assert.Equal(t, "org.mozilla.firefox", launched["key"])
	assert.Equal(t, []string{"org.mozilla.firefox"}, fx.opener.Opened())

	history, err := fx.store.ListRecentQueries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "fire", history[0].Query)

	out = mustCall(t, s.handleGetWeight, map[string]interface{}{"key": "org.mozilla.firefox"})
	assert.InDelta(t, 0.15, out["weight"].(float64), 1e-12)
}

func TestLaunchItemTool(t *testing.T) {
	fx := setupServer(t)
	s := fx.server

	out := mustCall(t, s.handleLaunchItem, map[string]interface{}{"key": "shortcut:com.android.chrome:incognito"})
	assert.Equal(t, "shortcut:com.android.chrome:incognito", out["launched"])
	assert.Equal(t, "shortcut", out["kind"])
	assert.InDelta(t, 0.15, out["weight"].(float64), 1e-12)

	out = mustCall(t, s.handleLaunchItem, map[string]interface{}{"key": "com.android.chrome"})
	assert.Equal(t, "app", out["kind"])
	out = mustCall(t, s.handleLaunchItem, map[string]interface{}{"key": "com.android.chrome"})
	assert.InDelta(t, 0.15*0.85+0.15, out["weight"].(float64), 1e-12)

	out = mustCall(t, s.handleLaunchItem, map[string]interface{}{
		"kind": "shortcut", "owner": "com.android.chrome", "shortcut_id": "incognito",
	})
	assert.InDelta(t, 0.15*0.85+0.15, out["weight"].(float64), 1e-12)

	_, err := call(s.handleLaunchItem, map[string]interface{}{"key": "com.missing"})
	assert.True(t, IsMCPError(err, ErrorCodeUnknownItem))
	_, err = call(s.handleLaunchItem, map[string]interface{}{"key": "x", "kind": "widget"})
	assert.True(t, IsMCPError(err, ErrorCodeInvalidParams))
	_, err = call(s.handleLaunchItem, map[string]interface{}{"kind": "shortcut"})
	assert.True(t, IsMCPError(err, ErrorCodeInvalidParams))
	_, err = call(s.handleLaunchItem, map[string]interface{}{"key": "shortcut:com.android.chrome:nope"})
	assert.True(t, IsMCPError(err, ErrorCodeLaunchFailed))
}

func TestExecuteActionTool(t *testing.T) {
	fx := setupServer(t)
	s := fx.server

	mustCall(t, s.handleSearch, map[string]interface{}{"query": "555-1234", "wait_ms": float64(0)})
	out := mustCall(t, s.handleExecuteAction, map[string]interface{}{"action_id": "contacts:call:555-1234"})
	assert.Equal(t, true, out["submitted"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.executor.Drain(ctx))
	assert.Equal(t, []string{"tel:555-1234"}, fx.opener.Opened())

	_, err := call(s.handleExecuteAction, map[string]interface{}{"action_id": "contacts:call:999"})
	assert.True(t, IsMCPError(err, ErrorCodeUnknownAction))
	_, err = call(s.handleExecuteAction, nil)
	assert.True(t, IsMCPError(err, ErrorCodeInvalidParams))
}

func TestFavoritesTool(t *testing.T) {
	fx := setupServer(t)
	ctx := context.Background()
	require.NoError(t, fx.store.AddFavorite(ctx, "org.mozilla.firefox"))
	tag, err := fx.store.CreateTag(ctx, "browsers")
	require.NoError(t, err)
	require.NoError(t, fx.store.TagItem(ctx, tag.ID, "org.mozilla.firefox"))

	out := mustCall(t, fx.server.handleFavorites, nil)
	favs := out["favorites"].([]interface{})
	require.Len(t, favs, 1)
	assert.Equal(t, "org.mozilla.firefox", favs[0].(map[string]interface{})["key"])
	assert.Len(t, out["all_apps"].([]interface{}), 3)
	assert.Len(t, out["tags"].([]interface{}), 1)

	out = mustCall(t, fx.server.handleFavorites, map[string]interface{}{"tag_id": float64(tag.ID)})
	assert.Equal(t, float64(tag.ID), out["selected_tag"])

	_, err = call(fx.server.handleGetWeight, nil)
	assert.True(t, IsMCPError(err, ErrorCodeInvalidParams))
}

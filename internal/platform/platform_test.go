package platform

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/launchsearch/pkg/types"
)

const testCatalog = `
apps:
  - key: com.android.chrome
    label: Chrome
    shortcuts:
      - id: incognito
        shortLabel: Incognito tab
        longLabel: New incognito tab
      - id: web
        shortLabel: Open web
        target: https://example.com
  - key: com.google.android.deskclock
    label: Clock
    target: clock-app
  - key: com.android.contacts
  - key: org.mozilla.firefox
    label: Firefox
`

func setupCatalog(t *testing.T, content string) *Catalog {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/launchsearch/apps.yaml", []byte(content), 0o644))
	c, err := NewCatalog(fs, "/etc/launchsearch/apps.yaml")
	require.NoError(t, err)
	return c
}

func setupGateway(t *testing.T) (*Gateway, *LogOpener, *bytes.Buffer) {
	t.Helper()
	opener := NewLogOpener(nil)
	var shared bytes.Buffer
	g, err := NewGateway(setupCatalog(t, testCatalog), opener, WithShareWriter(&shared))
	require.NoError(t, err)
	return g, opener, &shared
}

func TestCatalog_Load(t *testing.T) {
	c := setupCatalog(t, testCatalog)
	ctx := context.Background()

	apps, err := c.ListApps(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 4)
	assert.Equal(t, types.AppInfo{Key: "com.android.chrome", Label: "Chrome"}, apps[0])
	assert.Equal(t, "com.android.contacts", apps[2].Label, "label defaults to key")

	refs, err := c.ListShortcuts(ctx, "com.android.chrome")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, types.ShortcutRef{
		OwnerKey:   "com.android.chrome",
		ID:         "incognito",
		ShortLabel: "Incognito tab",
		LongLabel:  "New incognito tab",
	}, refs[0])

	refs, err = c.ListShortcuts(ctx, "org.mozilla.firefox")
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = c.ListShortcuts(ctx, "com.missing")
	assert.ErrorIs(t, err, ErrUnknownApp)

	app, ok := c.App("org.mozilla.firefox")
	assert.True(t, ok)
	assert.Equal(t, "Firefox", app.Label)
}

func TestCatalog_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := NewCatalog(fs, "/missing.yaml")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/dup.yaml", []byte("apps:\n  - key: a\n  - key: a\n"), 0o644))
	_, err = NewCatalog(fs, "/dup.yaml")
	assert.ErrorIs(t, err, ErrDuplicateApp)

	require.NoError(t, afero.WriteFile(fs, "/nokey.yaml", []byte("apps:\n  - label: A\n"), 0o644))
	_, err = NewCatalog(fs, "/nokey.yaml")
	assert.ErrorIs(t, err, types.ErrEmptyKey)

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("apps: [\n"), 0o644))
	_, err = NewCatalog(fs, "/bad.yaml")
	assert.Error(t, err)

	empty, err := NewCatalog(fs, "")
	require.NoError(t, err)
	apps, err := empty.ListApps(context.Background())
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestCatalog_Reload(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/apps.yaml", []byte("apps:\n  - key: a\n"), 0o644))
	c, err := NewCatalog(fs, "/apps.yaml")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/apps.yaml", []byte("apps:\n  - key: a\n  - key: b\n"), 0o644))
	require.NoError(t, c.Reload())
	apps, err := c.ListApps(context.Background())
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}

func TestCatalog_FindByKeyword(t *testing.T) {
	c := setupCatalog(t, testCatalog)

	app, ok := c.FindByKeyword(ClockApps...)
	require.True(t, ok)
	assert.Equal(t, "com.google.android.deskclock", app.Key)

	app, ok = c.FindByKeyword("CONTACTS")
	require.True(t, ok)
	assert.Equal(t, "com.android.contacts", app.Key)

	_, ok = c.FindByKeyword(CalendarApps...)
	assert.False(t, ok)
}

func TestURIs(t *testing.T) {
	assert.Equal(t, "tel:%2B1%20555%20123", CallURI("+1 555 123"))
	assert.Equal(t, "sms:555", MessageURI("555"))
	assert.Equal(t, "mailto:a%40b.com", EmailURI("a@b.com"))
	assert.Equal(t, "https://www.google.com/search?q=golang%20generics", WebSearchURI("golang generics"))
	assert.Equal(t, "https://en.wikipedia.org/w/index.php?search=Berlin", WikipediaSearchURI("Berlin"))
	assert.Equal(t, "geo:0,0?q=a%26b", PlacesURI("a&b"))
}

func TestGateway_Launch(t *testing.T) {
	g, opener, _ := setupGateway(t)
	ctx := context.Background()

	require.NoError(t, g.LaunchItem(ctx, "com.android.chrome"))
	require.NoError(t, g.LaunchItem(ctx, "com.google.android.deskclock"))
	require.NoError(t, g.LaunchShortcut(ctx, "com.android.chrome", "incognito"))
	require.NoError(t, g.LaunchShortcut(ctx, "com.android.chrome", "web"))
	assert.Equal(t, []string{
		"com.android.chrome",
		"clock-app",
		"com.android.chrome",
		"https://example.com",
	}, opener.Opened())

	assert.ErrorIs(t, g.LaunchItem(ctx, "com.missing"), ErrUnknownApp)
	assert.ErrorIs(t, g.LaunchShortcut(ctx, "com.android.chrome", "nope"), ErrUnknownShortcut)
}

func TestGateway_Actions(t *testing.T) {
	g, opener, shared := setupGateway(t)
	ctx := context.Background()

	require.NoError(t, g.Call(ctx, "555"))
	require.NoError(t, g.Message(ctx, "555"))
	require.NoError(t, g.Email(ctx, "a@b.com"))
	require.NoError(t, g.OpenURL(ctx, "example.com"))
	require.NoError(t, g.OpenURL(ctx, "http://example.com"))
	require.NoError(t, g.WebSearch(ctx, "go"))
	require.NoError(t, g.SearchWikipedia(ctx, "go"))
	require.NoError(t, g.SearchPlaces(ctx, "cafe"))
	require.NoError(t, g.Timer(ctx, "10 min"))
	require.NoError(t, g.SetAlarm(ctx, "7am"))
	require.NoError(t, g.CreateContact(ctx, "555"))
	require.NoError(t, g.ScheduleEvent(ctx, "lunch tomorrow")) // no calendar installed
	require.NoError(t, g.SearchFiles(ctx, "report"))           // no file manager installed
	require.NoError(t, g.Share(ctx, "hello"))

	assert.Equal(t, []string{
		"tel:555",
		"sms:555",
		"mailto:a%40b.com",
		"https://example.com",
		"http://example.com",
		"https://www.google.com/search?q=go",
		"https://en.wikipedia.org/w/index.php?search=go",
		"geo:0,0?q=cafe",
		"clock-app",
		"clock-app",
		"com.android.contacts",
	}, opener.Opened())
	assert.Equal(t, "hello\n", shared.String())
}

type failingOpener struct{}

func (failingOpener) Open(context.Context, string) error { return errors.New("no handler") }

func TestGateway_OpenerFailure(t *testing.T) {
	g, err := NewGateway(setupCatalog(t, testCatalog), failingOpener{})
	require.NoError(t, err)
	assert.ErrorContains(t, g.Call(context.Background(), "555"), "no handler")
	assert.NoError(t, g.Share(context.Background(), "logged only"))

	_, err = NewGateway(nil, failingOpener{})
	assert.ErrorIs(t, err, ErrCatalogRequired)
	_, err = NewGateway(setupCatalog(t, testCatalog), nil)
	assert.ErrorIs(t, err, ErrOpenerRequired)
}

func TestCommandOpener(t *testing.T) {
	o, err := NewCommandOpener("xdg-open --flag")
	require.NoError(t, err)
	assert.Equal(t, "xdg-open", o.Command)
	assert.Equal(t, []string{"--flag"}, o.Args)

	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	o = &CommandOpener{Command: path}
	assert.NoError(t, o.Open(context.Background(), "ignored"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.Open(ctx, "ignored"), context.Canceled)
}

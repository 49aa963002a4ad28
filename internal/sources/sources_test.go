package sources

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/launchsearch/internal/filters"
	"github.com/dshills/launchsearch/internal/settings"
	"github.com/dshills/launchsearch/internal/weights"
	"github.com/dshills/launchsearch/pkg/types"
)

func allSources() settings.Sources {
	return settings.Default().Sources
}

func input(query string) Input {
	return NewInput(query, filters.Default(), allSources(), weights.EmptySnapshot())
}

func networked(query string) Input {
	f := filters.Default()
	f.AllowNetwork = true
	return NewInput(query, f, allSources(), weights.EmptySnapshot())
}

func actionTypes(actions []types.ActionResult) []types.ActionType {
	out := make([]types.ActionType, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Type)
	}
	return out
}

var testApps = []types.AppInfo{
	{Key: "com.android.chrome", Label: "Chrome"},
	{Key: "com.google.android.apps.maps", Label: "Maps"},
	{Key: "org.mozilla.firefox", Label: "Firefox"},
	{Key: "com.example.chromecast", Label: "Home"},
}

func TestApps_RankingAndWeights(t *testing.T) {
	in := input("chrome")
	got := Apps(in, testApps)
	require.Len(t, got, 2)
	assert.Equal(t, "com.android.chrome", got[0].App.Key) // exact label
	assert.InDelta(t, 0.6, got[0].TotalScore, 1e-12)
	assert.Equal(t, "com.example.chromecast", got[1].App.Key) // substring of key
	assert.InDelta(t, 0.74*0.6, got[1].TotalScore, 1e-12)

	// A strong weight lifts the weaker text match above the exact match.
	in.Weights = weights.Snapshot{Weights: map[string]float64{"com.example.chromecast": 1}, Hidden: map[string]bool{}}
	got = Apps(in, testApps)
	assert.Equal(t, "com.example.chromecast", got[0].App.Key)
}

func TestApps_HiddenAndGates(t *testing.T) {
	in := input("chrome")
	in.Weights = weights.Snapshot{Weights: map[string]float64{}, Hidden: map[string]bool{"com.android.chrome": true}}
	got := Apps(in, testApps)
	require.Len(t, got, 1)
	assert.Equal(t, "com.example.chromecast", got[0].App.Key)

	in.Filters.HiddenItems = true
	assert.Len(t, Apps(in, testApps), 2)

	in.Filters.Apps = false
	assert.Empty(t, Apps(in, testApps))

	in = input("chrome")
	in.Sources.Apps = false
	assert.Empty(t, Apps(in, testApps))
	assert.NotNil(t, Apps(in, testApps))
}

func TestTools(t *testing.T) {
	got := Tools(input("2+3"))
	require.Len(t, got, 1)
	assert.Equal(t, types.ActionShare, got[0].Type)
	assert.Equal(t, "Copy result 5", got[0].Title)
	assert.Equal(t, "5", got[0].Value)
	assert.Equal(t, "2+3", got[0].Subtitle)
	assert.Equal(t, "tools:share:5", got[0].ID)
	assert.Equal(t, 1.0, got[0].TotalScore)

	got = Tools(input("10 min"))
	assert.Equal(t, []types.ActionType{types.ActionTimer}, actionTypes(got))
	assert.Equal(t, "Start timer for 10 min", got[0].Title)

	in := input("2+3")
	in.Sources.UnitConverter = false
	assert.Empty(t, Tools(in))
}

func TestContacts(t *testing.T) {
	assert.Equal(t,
		[]types.ActionType{types.ActionCall, types.ActionMessage, types.ActionCreateContact},
		actionTypes(Contacts(input("555-1234"))))

	assert.Equal(t,
		[]types.ActionType{types.ActionEmail, types.ActionCreateContact},
		actionTypes(Contacts(input("a@b.com"))))

	assert.Empty(t, Contacts(input("chrome")))

	in := input("555-1234")
	in.Filters.Contacts = false
	assert.Empty(t, Contacts(in))
}

func TestCalendarAndFiles(t *testing.T) {
	got := Calendar(input("lunch tomorrow"))
	require.Len(t, got, 1)
	assert.Equal(t, types.ActionScheduleEvent, got[0].Type)
	assert.Equal(t, 0.85, got[0].TotalScore)

	assert.Empty(t, Calendar(input("lunch")))
	assert.Empty(t, Calendar(input("5"))) // too short

	assert.Len(t, Files(input("report")), 1)
	assert.Empty(t, Files(input("r")))
}

func TestWebsites(t *testing.T) {
	assert.Empty(t, Websites(input("example.com")), "requires allowNetwork")

	got := Websites(networked("example.com"))
	require.Len(t, got, 1)
	assert.Equal(t, types.ActionOpenURL, got[0].Type)
	assert.Equal(t, "Open https://example.com", got[0].Title)
	assert.Equal(t, "example.com", got[0].Value)

	got = Websites(networked("golang generics"))
	require.Len(t, got, 1)
	assert.Equal(t, types.ActionWebSearch, got[0].Type)
}

func TestActions(t *testing.T) {
	got := Actions(input("example.com"))
	assert.Equal(t, []types.ActionType{types.ActionOpenURL, types.ActionWebSearch, types.ActionShare}, actionTypes(got))

	got = Actions(input("10 min"))
	assert.Equal(t, []types.ActionType{
		types.ActionScheduleEvent, types.ActionWebSearch, types.ActionShare, types.ActionTimer, types.ActionSetAlarm,
	}, actionTypes(got))

	// Generic actions ignore filters.
	in := input("chrome")
	in.Filters = filters.State{}
	in.Sources = settings.Sources{}
	assert.Len(t, Actions(in), 2)

	assert.Empty(t, Actions(input("   ")))
}

func TestArticlesAndPlaces(t *testing.T) {
	assert.False(t, ArticlesEnabled(input("berlin")))
	assert.True(t, ArticlesEnabled(networked("berlin")))
	assert.False(t, ArticlesEnabled(networked("ber")))
	assert.True(t, PlacesEnabled(networked("be")))
	assert.False(t, PlacesEnabled(networked("b")))

	assert.Equal(t, "articles:searchWikipedia:berlin", Articles(networked("berlin"))[0].ID)
	assert.Equal(t, 0.75, Places(networked("berlin"))[0].TotalScore)
}

func TestShortcuts(t *testing.T) {
	owner := types.AppInfo{Key: "com.android.chrome", Label: "Chrome"}
	refs := []types.ShortcutRef{
		{ID: "incognito", ShortLabel: "Incognito tab", LongLabel: "New incognito tab"},
		{ID: "new_tab", ShortLabel: "New tab"},
		{ID: "other", ShortLabel: "Settings"},
	}

	in := input("new")
	assert.True(t, ShortcutsEnabled(in, 1))
	assert.False(t, ShortcutsEnabled(in, 0))
	assert.False(t, ShortcutsEnabled(input("ne"), 1))

	got := ScoreShortcuts(in, owner, refs)
	require.Len(t, got, 2)
	assert.Equal(t, "shortcut:com.android.chrome:incognito", got[0].Key)
	assert.Equal(t, "Chrome", got[0].AppLabel)
	assert.InDelta(t, 0.92*0.6, got[0].TotalScore, 1e-12)

	// Falls back to the owner weight, prefers its own.
	in.Weights = weights.Snapshot{
		Weights: map[string]float64{
			"com.android.chrome":                  0.5,
			"shortcut:com.android.chrome:new_tab": 0.25,
		},
		Hidden: map[string]bool{},
	}
	got = ScoreShortcuts(in, owner, refs)
	assert.InDelta(t, 0.92*0.6+0.5*0.4, got[0].TotalScore, 1e-12)
	assert.InDelta(t, 0.92*0.6+0.25*0.4, got[1].TotalScore, 1e-12)

	// Owner label matches every shortcut.
	assert.Len(t, ScoreShortcuts(input("chrome"), owner, refs), 3)

	in.Weights.Hidden = map[string]bool{"shortcut:com.android.chrome:new_tab": true}
	assert.Len(t, ScoreShortcuts(in, owner, refs), 1)
}

func TestUnique(t *testing.T) {
	a := types.NewAction(types.BucketActions, types.ActionShare, "one", "x", "", 0.5)
	b := types.NewAction(types.BucketActions, types.ActionShare, "two", "x", "", 0.4)
	c := types.NewAction(types.BucketActions, types.ActionCall, "three", "x", "", 0.3)
	got := Unique([]types.ActionResult{a, b, c})
	assert.Equal(t, []types.ActionResult{a, c}, got)
}

func TestSafe(t *testing.T) {
	got := Safe(slog.Default(), types.BucketFiles, func() []types.ActionResult {
		panic("permission denied")
	})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = Safe(slog.Default(), types.BucketFiles, func() []types.ActionResult { return nil })
	assert.NotNil(t, got)
}

func TestSafe_DropsOutOfRangeScores(t *testing.T) {
	ok := types.NewAction(types.BucketTools, types.ActionShare, "ok", "1", "", 1)
	got := Safe(slog.Default(), types.BucketTools, func() []types.ActionResult {
		return []types.ActionResult{
			ok,
			types.NewAction(types.BucketTools, types.ActionShare, "high", "2", "", 1.5),
			types.NewAction(types.BucketTools, types.ActionShare, "low", "3", "", -0.1),
		}
	})
	assert.Equal(t, []types.ActionResult{ok}, got)
}

func TestScoresWithinBounds(t *testing.T) {
	heavy := weights.Snapshot{
		Weights: map[string]float64{"com.android.chrome": 1, "org.mozilla.firefox": 0.7},
		Hidden:  map[string]bool{},
	}
	owner := types.AppInfo{Key: "com.android.chrome", Label: "Chrome"}
	refs := []types.ShortcutRef{{ID: "tab", ShortLabel: "New tab"}, {ID: "inc", ShortLabel: "Chrome incognito"}}

	queries := []string{
		"chrome", "c", "Fire", "555-1234", "me@example.com", "example.com",
		"10 min", "lunch tomorrow", "2*(3+4)", "1/0", "what is go",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			in := networked(q)
			in.Weights = heavy

			var all []types.Result
			for _, r := range Apps(in, testApps) {
				all = append(all, r)
			}
			for _, r := range ScoreShortcuts(in, owner, refs) {
				all = append(all, r)
			}
			for _, fn := range []func(Input) []types.ActionResult{
				Tools, Contacts, Calendar, Files, Websites, Actions, Articles, Places,
			} {
				for _, r := range fn(in) {
					all = append(all, r)
				}
			}
			for _, r := range all {
				assert.NoError(t, types.Validate(r), "%T %v", r, r.Score())
			}
		})
	}
}

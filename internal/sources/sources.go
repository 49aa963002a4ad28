// Package sources computes the candidates of each result bucket for one
// query. Every function is pure over an Input; the searcher decides when
// each one runs and where its output is committed.
package sources

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dshills/launchsearch/internal/calculator"
	"github.com/dshills/launchsearch/internal/classifier"
	"github.com/dshills/launchsearch/internal/filters"
	"github.com/dshills/launchsearch/internal/scoring"
	"github.com/dshills/launchsearch/internal/settings"
	"github.com/dshills/launchsearch/internal/weights"
	"github.com/dshills/launchsearch/pkg/types"
)

// Length thresholds a query must reach before a source produces results
const (
	MinContactsLen  = 2
	MinCalendarLen  = 2
	MinFilesLen     = 2
	MinShortcutsLen = 3
	MinArticlesLen  = 4
	MinPlacesLen    = 2
)

// Input is everything a source needs for one search pass
type Input struct {
	Query   string // trimmed, original case
	Class   classifier.Classification
	Calc    *calculator.Result // nil when the query is not an expression
	Filters filters.State
	Sources settings.Sources
	Weights weights.Snapshot
}

// NewInput trims and classifies query
func NewInput(query string, f filters.State, src settings.Sources, snap weights.Snapshot) Input {
	q := strings.TrimSpace(query)
	in := Input{
		Query:   q,
		Class:   classifier.Classify(q),
		Filters: f,
		Sources: src,
		Weights: snap,
	}
	if r, ok := calculator.Lookup(q); ok {
		in.Calc = &r
	}
	return in
}

func (in Input) length() int {
	return len([]rune(in.Query))
}

func (in Input) visible(key string) bool {
	return in.Filters.HiddenItems || !in.Weights.IsHidden(key)
}

// Apps scores every installed app against its label and key.
// Hidden apps are skipped unless the hiddenItems filter is on.
func Apps(in Input, apps []types.AppInfo) []types.AppResult {
	if !in.Sources.Apps || !in.Filters.Apps {
		return []types.AppResult{}
	}

	out := []types.AppResult{}
	for _, app := range apps {
		fs := scoring.FieldScore(in.Query, app.Label, app.Key)
		if fs <= 0 || !in.visible(app.Key) {
			continue
		}
		out = append(out, types.AppResult{
			App:        app,
			TotalScore: scoring.TotalScore(fs, in.Weights.Weight(app.Key)),
		})
	}
	scoring.Rank(out, types.AppResult.Score)
	return out
}

// Tools produces the calculator result and a timer for duration queries
func Tools(in Input) []types.ActionResult {
	out := []types.ActionResult{}
	if !in.Sources.Calculator || !in.Sources.UnitConverter || !in.Filters.Tools {
		return out
	}
	if in.Calc != nil {
		value := calculator.Format(in.Calc.Value)
		out = append(out, types.NewAction(types.BucketTools, types.ActionShare,
			"Copy result "+value, value, in.Calc.Expression, 1))
	}
	if in.Class.HasDuration() {
		out = append(out, types.NewAction(types.BucketTools, types.ActionTimer,
			"Start timer for "+in.Query, in.Query, "", 0.9))
	}
	return Unique(out)
}

// Contacts offers call/message/email and contact creation for phone numbers and addresses
func Contacts(in Input) []types.ActionResult {
	out := []types.ActionResult{}
	if !in.Sources.Contacts || !in.Filters.Contacts || in.length() < MinContactsLen {
		return out
	}
	q := in.Query
	if in.Class.IsPhone {
		out = append(out,
			types.NewAction(types.BucketContacts, types.ActionCall, "Call "+q, q, "", 1),
			types.NewAction(types.BucketContacts, types.ActionMessage, "Message "+q, q, "", 0.95),
			types.NewAction(types.BucketContacts, types.ActionCreateContact, "Create contact for "+q, q, "", 0.9),
		)
	}
	if in.Class.IsEmail {
		out = append(out,
			types.NewAction(types.BucketContacts, types.ActionEmail, "Email "+q, q, "", 1),
			types.NewAction(types.BucketContacts, types.ActionCreateContact, "Create contact for "+q, q, "", 0.9),
		)
	}
	return Unique(out)
}

// Calendar offers to schedule an event when the query carries a date or time hint
func Calendar(in Input) []types.ActionResult {
	if !in.Sources.Calendar || !in.Filters.Events || in.length() < MinCalendarLen || !in.Class.HasDateTimeHint {
		return []types.ActionResult{}
	}
	return []types.ActionResult{
		types.NewAction(types.BucketCalendar, types.ActionScheduleEvent, "Schedule event: "+in.Query, in.Query, "", 0.85),
	}
}

// Files offers a file search
func Files(in Input) []types.ActionResult {
	if !in.Sources.Files || !in.Filters.Files || in.length() < MinFilesLen {
		return []types.ActionResult{}
	}
	return []types.ActionResult{
		types.NewAction(types.BucketFiles, types.ActionSearchFiles, fmt.Sprintf("Search files for “%s”", in.Query), in.Query, "", 0.8),
	}
}

// Websites opens URL-like queries or searches the web. Requires allowNetwork.
func Websites(in Input) []types.ActionResult {
	if !in.Sources.Websites || !in.Filters.Websites || !in.Filters.AllowNetwork || in.Query == "" {
		return []types.ActionResult{}
	}
	if in.Class.IsURL {
		return []types.ActionResult{
			types.NewAction(types.BucketWebsites, types.ActionOpenURL, "Open "+classifier.ToURL(in.Query), in.Query, "", 0.9),
		}
	}
	return []types.ActionResult{
		types.NewAction(types.BucketWebsites, types.ActionWebSearch, fmt.Sprintf("Search websites for “%s”", in.Query), in.Query, "", 0.7),
	}
}

// Actions produces the generic text actions. They ignore filters and source settings.
func Actions(in Input) []types.ActionResult {
	q := in.Query
	if q == "" {
		return []types.ActionResult{}
	}

	var out []types.ActionResult
	if in.Class.IsURL {
		out = append(out, types.NewAction(types.BucketActions, types.ActionOpenURL, "Open "+classifier.ToURL(q), q, "", 0.95))
	}
	if in.Class.IsPhone {
		out = append(out,
			types.NewAction(types.BucketActions, types.ActionCall, "Call "+q, q, "", 1),
			types.NewAction(types.BucketActions, types.ActionMessage, "Message "+q, q, "", 0.95),
			types.NewAction(types.BucketActions, types.ActionCreateContact, "Create contact for "+q, q, "", 0.9),
		)
	}
	if in.Class.IsEmail {
		out = append(out,
			types.NewAction(types.BucketActions, types.ActionEmail, "Email "+q, q, "", 1),
			types.NewAction(types.BucketActions, types.ActionCreateContact, "Create contact for "+q, q, "", 0.9),
		)
	}
	if in.Class.HasDateTimeHint {
		out = append(out, types.NewAction(types.BucketActions, types.ActionScheduleEvent, "Schedule event: "+q, q, "", 0.8))
	}
	out = append(out,
		types.NewAction(types.BucketActions, types.ActionWebSearch, fmt.Sprintf("Search web for “%s”", q), q, "", 0.65),
		types.NewAction(types.BucketActions, types.ActionShare, fmt.Sprintf("Share “%s”", q), q, "", 0.5),
	)
	if in.Class.HasDuration() {
		out = append(out,
			types.NewAction(types.BucketActions, types.ActionTimer, "Set timer for "+q, q, "", 0.85),
			types.NewAction(types.BucketActions, types.ActionSetAlarm, "Set alarm using "+q, q, "", 0.8),
		)
	}
	return Unique(out)
}

// ArticlesEnabled reports whether the articles source runs for in
func ArticlesEnabled(in Input) bool {
	return in.Sources.Wikipedia && in.Filters.Articles && in.Filters.AllowNetwork && in.length() >= MinArticlesLen
}

// Articles builds the article search result
func Articles(in Input) []types.ActionResult {
	return []types.ActionResult{
		types.NewAction(types.BucketArticles, types.ActionSearchWikipedia, fmt.Sprintf("Search Wikipedia for “%s”", in.Query), in.Query, "", 0.7),
	}
}

// PlacesEnabled reports whether the places source runs for in
func PlacesEnabled(in Input) bool {
	return in.Sources.Locations && in.Filters.Places && in.Filters.AllowNetwork && in.length() >= MinPlacesLen
}

// Places builds the place search result
func Places(in Input) []types.ActionResult {
	return []types.ActionResult{
		types.NewAction(types.BucketPlaces, types.ActionSearchPlaces, fmt.Sprintf("Search places for “%s”", in.Query), in.Query, "", 0.75),
	}
}

// ShortcutsEnabled reports whether shortcut lookup runs given the number of ranked apps
func ShortcutsEnabled(in Input, rankedApps int) bool {
	return in.Sources.AppShortcuts && in.Filters.Shortcuts && in.length() >= MinShortcutsLen && rankedApps > 0
}

// ScoreShortcuts scores the shortcuts of one owner app. The weight of a
// shortcut falls back to the owner's weight when it was never launched itself.
// The result is unsorted.
func ScoreShortcuts(in Input, owner types.AppInfo, refs []types.ShortcutRef) []types.ShortcutResult {
	var out []types.ShortcutResult
	for _, ref := range refs {
		if ref.OwnerKey == "" {
			ref.OwnerKey = owner.Key
		}
		key := ref.Key()
		if !in.visible(key) {
			continue
		}

		fs := scoring.FieldScore(in.Query, ref.ShortLabel, ref.LongLabel, owner.Label)
		if fs <= 0 {
			continue
		}

		w, ok := in.Weights.Weights[key]
		if !ok {
			w = in.Weights.Weights[ref.OwnerKey]
		}
		out = append(out, types.ShortcutResult{
			Key:        key,
			Shortcut:   ref,
			AppLabel:   owner.Label,
			TotalScore: scoring.TotalScore(fs, w),
		})
	}
	return out
}

// Unique drops actions whose id was already seen, keeping the first
func Unique(actions []types.ActionResult) []types.ActionResult {
	seen := make(map[string]struct{}, len(actions))
	out := make([]types.ActionResult, 0, len(actions))
	for _, a := range actions {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Safe runs fn and turns a panic into an empty result. Entries that fail
// types.Validate are dropped.
func Safe[T types.Result](logger *slog.Logger, bucket types.Bucket, fn func() []T) (out []T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("source failed", "bucket", bucket, "err", fmt.Errorf("panic: %v", r))
			out = []T{}
		}
	}()
	out = []T{}
	for _, r := range fn() {
		if err := types.Validate(r); err != nil {
			logger.Warn("dropping result", "bucket", bucket, "score", r.Score(), "err", err)
			continue
		}
		out = append(out, r)
	}
	return out
}

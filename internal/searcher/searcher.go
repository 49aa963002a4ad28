package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/launchsearch/internal/filters"
	"github.com/dshills/launchsearch/internal/scoring"
	"github.com/dshills/launchsearch/internal/settings"
	"github.com/dshills/launchsearch/internal/sources"
	"github.com/dshills/launchsearch/internal/weights"
	"github.com/dshills/launchsearch/pkg/types"
)

var (
	ErrItemIndexRequired        = errors.New("searcher: item index is required")
	ErrShortcutProviderRequired = errors.New("searcher: shortcut provider is required")
	ErrWeightsRequired          = errors.New("searcher: weight snapshotter is required")
	ErrSettingsRequired         = errors.New("searcher: settings source is required")
	ErrClosed                   = errors.New("searcher: session closed")
)

// ItemIndex lists the installed apps
type ItemIndex interface {
	ListApps(ctx context.Context) ([]types.AppInfo, error)
}

// ShortcutProvider lists the shortcuts published by one app
type ShortcutProvider interface {
	ListShortcuts(ctx context.Context, ownerKey string) ([]types.ShortcutRef, error)
}

// WeightSnapshotter returns the current usage weights and hidden flags
type WeightSnapshotter interface {
	Snapshot(ctx context.Context) (weights.Snapshot, error)
}

// SettingsSource returns the live settings snapshot
type SettingsSource interface {
	Settings() settings.Settings
}

// State is a consistent view of a session
type State struct {
	SessionID  string              `json:"session_id"`
	Query      string              `json:"query"`
	Generation uint64              `json:"generation"`
	Filters    filters.State       `json:"filters"`
	Results    types.SearchResults `json:"results"`
	Loading    []types.Bucket      `json:"loading"`
	BestMatch  types.Result        `json:"best_match,omitempty"`
}

// Session aggregates every result source for one query input.
//
// Each SetQuery starts a new generation. Synchronous buckets commit inline.
// Shortcut lookup and the debounced network buckets run in the background
// and commit only while their generation is still current.
type Session struct {
	id        string
	items     ItemIndex
	shortcuts ShortcutProvider
	weights   WeightSnapshotter
	settings  SettingsSource
	logger    *slog.Logger
	cache     *shortcutCache

	// bg outlives single requests and is cancelled by Close
	bg     context.Context
	cancel context.CancelFunc

	generation atomic.Uint64

	mu      sync.Mutex
	query   string
	filters filters.State
	results types.SearchResults // ranked order
	loading map[types.Bucket]bool
	timers  []*time.Timer
	changed chan struct{}
	closed  bool

	wg sync.WaitGroup
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session with empty results and the default filters
func NewSession(items ItemIndex, shortcuts ShortcutProvider, snap WeightSnapshotter, cfg SettingsSource, opts ...Option) (*Session, error) {
	switch {
	case items == nil:
		return nil, ErrItemIndexRequired
	case shortcuts == nil:
		return nil, ErrShortcutProviderRequired
	case snap == nil:
		return nil, ErrWeightsRequired
	case cfg == nil:
		return nil, ErrSettingsRequired
	}

	set := cfg.Settings()
	bg, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        uuid.NewString(),
		items:     items,
		shortcuts: shortcuts,
		weights:   snap,
		settings:  cfg,
		logger:    slog.Default(),
		cache:     newShortcutCache(shortcutCacheSize, set.Behavior.ShortcutCacheTTL),
		bg:        bg,
		cancel:    cancel,
		filters:   set.Behavior.DefaultFilter,
		results:   types.EmptyResults(),
		loading:   make(map[types.Bucket]bool),
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// SetQuery starts a new search generation for query. A blank query clears
// every bucket and resets the filters to the configured default.
func (s *Session) SetQuery(ctx context.Context, query string) {
	s.search(ctx, query, true, anyGeneration)
}

// Refresh re-runs the current query, for example after settings or weights changed
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	q := s.query
	base := s.generation.Load()
	s.mu.Unlock()
	s.search(ctx, q, true, base)
}

// ToggleFilter applies the toggle law to key and re-runs a non-blank query
func (s *Session) ToggleFilter(ctx context.Context, key filters.Key) (filters.State, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return filters.State{}, ErrClosed
	}
	next, err := s.filters.Toggle(key)
	if err != nil {
		s.mu.Unlock()
		return s.filters, fmt.Errorf("toggle %q: %w", key, err)
	}
	s.filters = next
	q := s.query
	base := s.generation.Load()
	s.mu.Unlock()

	s.logger.Debug("filter toggled", "key", key, "enabled", next.Enabled(key))
	if strings.TrimSpace(q) != "" {
		s.search(ctx, q, false, base)
	}
	return next, nil
}

// anyGeneration starts a search whatever the current generation is
const anyGeneration = ^uint64(0)

// search runs one generation. resetFilters applies the default filters when
// the trimmed query is blank. A re-run of the current query passes the
// generation it read the query in as base; it is dropped when a newer
// query has started since.
func (s *Session) search(ctx context.Context, query string, resetFilters bool, base uint64) {
	set := s.settings.Settings()
	trimmed := strings.TrimSpace(query)
	s.cache.setTTL(set.Behavior.ShortcutCacheTTL)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if base != anyGeneration && s.generation.Load() != base {
		s.mu.Unlock()
		s.logger.Debug("re-run skipped, query changed", "query", query)
		return
	}
	gen := s.generation.Add(1)
	s.stopTimersLocked()
	s.query = query
	s.results = types.EmptyResults()
	clear(s.loading)
	if trimmed == "" {
		if resetFilters {
			s.filters = set.Behavior.DefaultFilter
		}
		s.notifyLocked()
		s.mu.Unlock()
		return
	}
	f := s.filters
	s.mu.Unlock()

	snap, err := s.weights.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("weight snapshot failed", "err", err)
		snap = weights.EmptySnapshot()
	}
	in := sources.NewInput(trimmed, f, set.Sources, snap)

	apps := sources.Safe(s.logger, types.BucketApps, func() []types.AppResult {
		list, err := s.items.ListApps(ctx)
		if err != nil {
			s.logger.Warn("list apps failed", "err", err)
			return nil
		}
		return sources.Apps(in, list)
	})

	next := types.EmptyResults()
	next.Apps = apps
	for b, fn := range map[types.Bucket]func(sources.Input) []types.ActionResult{
		types.BucketTools:    sources.Tools,
		types.BucketContacts: sources.Contacts,
		types.BucketCalendar: sources.Calendar,
		types.BucketFiles:    sources.Files,
		types.BucketWebsites: sources.Websites,
		types.BucketActions:  sources.Actions,
	} {
		actions := sources.Safe(s.logger, b, func() []types.ActionResult { return fn(in) })
		scoring.Rank(actions, types.ActionResult.Score)
		next.SetActionBucket(b, actions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation.Load() != gen {
		s.logger.Debug("discarding stale results", "generation", gen, "bucket", "sync")
		return
	}
	s.results = next

	if sources.ShortcutsEnabled(in, len(apps)) {
		n := min(set.Behavior.ShortcutCandidates, len(apps))
		candidates := make([]types.AppInfo, n)
		for i := range n {
			candidates[i] = apps[i].App
		}
		s.loading[types.BucketShortcuts] = true
		s.wg.Add(1)
		go s.searchShortcuts(gen, in, candidates, set.Behavior.ShortcutWorkers)
	}
	if sources.ArticlesEnabled(in) {
		s.scheduleLocked(gen, types.BucketArticles, set.Behavior.ArticlesDelay, func() []types.ActionResult {
			return sources.Articles(in)
		})
	}
	if sources.PlacesEnabled(in) {
		s.scheduleLocked(gen, types.BucketPlaces, set.Behavior.PlacesDelay, func() []types.ActionResult {
			return sources.Places(in)
		})
	}
	s.notifyLocked()
}

// scheduleLocked runs fn after delay and commits its output to bucket b
func (s *Session) scheduleLocked(gen uint64, b types.Bucket, delay time.Duration, fn func() []types.ActionResult) {
	s.loading[b] = true
	s.wg.Add(1)
	t := time.AfterFunc(delay, func() {
		defer s.wg.Done()
		if s.generation.Load() != gen {
			return
		}
		actions := sources.Safe(s.logger, b, fn)
		scoring.Rank(actions, types.ActionResult.Score)
		s.commit(gen, b, func(r *types.SearchResults) {
			r.SetActionBucket(b, actions)
		})
	})
	s.timers = append(s.timers, t)
}

// commit applies set to the results if gen is still current and clears the loading flag of b
func (s *Session) commit(gen uint64, b types.Bucket, set func(*types.SearchResults)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation.Load() != gen {
		s.logger.Debug("discarding stale results", "generation", gen, "bucket", b)
		return false
	}
	set(&s.results)
	delete(s.loading, b)
	s.notifyLocked()
	return true
}

func (s *Session) stopTimersLocked() {
	for _, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
	}
	s.timers = nil
}

// notifyLocked wakes every Wait call
func (s *Session) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Query returns the raw query text
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Generation returns the current search generation
func (s *Session) Generation() uint64 {
	return s.generation.Load()
}

// Filters returns the current filter state
func (s *Session) Filters() filters.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Results returns the results in presentation order. Every bucket is
// reversed when results are shown bottom-up.
func (s *Session) Results() types.SearchResults {
	bottomUp := s.settings.Settings().Behavior.ResultsBottomUp
	s.mu.Lock()
	defer s.mu.Unlock()
	if bottomUp {
		return s.results.Reversed()
	}
	return s.results.Clone()
}

// Loading returns the buckets still waiting for an async commit
func (s *Session) Loading() []types.Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingLocked()
}

func (s *Session) loadingLocked() []types.Bucket {
	out := []types.Bucket{}
	for _, b := range types.AllBuckets {
		if s.loading[b] {
			out = append(out, b)
		}
	}
	return out
}

// BestMatch returns the result launched on submit, or nil
func (s *Session) BestMatch() types.Result {
	launchOnEnter := s.settings.Settings().Behavior.LaunchOnEnter
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResolveBestMatch(s.results, s.query, launchOnEnter)
}

// State returns a consistent view of the session
func (s *Session) State() State {
	set := s.settings.Settings()
	s.mu.Lock()
	defer s.mu.Unlock()

	results := s.results.Clone()
	if set.Behavior.ResultsBottomUp {
		results = s.results.Reversed()
	}
	return State{
		SessionID:  s.id,
		Query:      s.query,
		Generation: s.generation.Load(),
		Filters:    s.filters,
		Results:    results,
		Loading:    s.loadingLocked(),
		BestMatch:  ResolveBestMatch(s.results, s.query, set.Behavior.LaunchOnEnter),
	}
}

// Wait blocks until no bucket of the current generation is loading
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if len(s.loading) == 0 || s.closed {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// InvalidateShortcuts drops the cached shortcut listings
func (s *Session) InvalidateShortcuts() {
	s.cache.purge()
}

// Close stops pending timers and waits for in-flight lookups to finish
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopTimersLocked()
	s.notifyLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// Package executor performs the side effects of a chosen search result:
// launching apps and shortcuts, recording their usage weight, and running
// actions on a worker pool without blocking the caller.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/dshills/launchsearch/pkg/types"
)

var (
	ErrLauncherRequired = errors.New("executor: launch gateway is required")
	ErrActionsRequired  = errors.New("executor: action gateway is required")
	ErrWeightsRequired  = errors.New("executor: weight recorder is required")
)

// LaunchGateway starts apps and shortcuts on the platform
type LaunchGateway interface {
	LaunchItem(ctx context.Context, key string) error
	LaunchShortcut(ctx context.Context, ownerKey, shortcutID string) error
}

// ActionGateway performs one platform side effect per action type
type ActionGateway interface {
	Call(ctx context.Context, value string) error
	Message(ctx context.Context, value string) error
	CreateContact(ctx context.Context, value string) error
	Email(ctx context.Context, value string) error
	ScheduleEvent(ctx context.Context, value string) error
	SetAlarm(ctx context.Context, value string) error
	Timer(ctx context.Context, value string) error
	OpenURL(ctx context.Context, value string) error
	WebSearch(ctx context.Context, value string) error
	Share(ctx context.Context, value string) error
	SearchFiles(ctx context.Context, value string) error
	SearchWikipedia(ctx context.Context, value string) error
	SearchPlaces(ctx context.Context, value string) error
}

// WeightRecorder persists a launch
type WeightRecorder interface {
	RecordLaunch(ctx context.Context, key string, kind types.ItemKind) (float64, error)
}

// HistoryRecorder remembers queries whose best match was launched
type HistoryRecorder interface {
	RecordQuery(ctx context.Context, query string, at time.Time) error
}

// Dispatch runs the gateway method for a.Type. Unknown types do nothing.
func Dispatch(ctx context.Context, gw ActionGateway, a types.ActionResult) error {
	var fn func(context.Context, string) error
	switch a.Type {
	case types.ActionCall:
		fn = gw.Call
	case types.ActionMessage:
		fn = gw.Message
	case types.ActionCreateContact:
		fn = gw.CreateContact
	case types.ActionEmail:
		fn = gw.Email
	case types.ActionScheduleEvent:
		fn = gw.ScheduleEvent
	case types.ActionSetAlarm:
		fn = gw.SetAlarm
	case types.ActionTimer:
		fn = gw.Timer
	case types.ActionOpenURL:
		fn = gw.OpenURL
	case types.ActionWebSearch:
		fn = gw.WebSearch
	case types.ActionShare:
		fn = gw.Share
	case types.ActionSearchFiles:
		fn = gw.SearchFiles
	case types.ActionSearchWikipedia:
		fn = gw.SearchWikipedia
	case types.ActionSearchPlaces:
		fn = gw.SearchPlaces
	default:
		return nil
	}
	if err := fn(ctx, a.Value); err != nil {
		return fmt.Errorf("%s %q: %w", a.Type, a.Value, err)
	}
	return nil
}

// Executor launches results and records their usage
type Executor struct {
	launcher LaunchGateway
	actions  ActionGateway
	weights  WeightRecorder
	history  HistoryRecorder
	pool     *ants.Pool
	logger   *slog.Logger

	// launches of one key must not interleave in the weight store
	launchMu sync.Mutex
	wg       sync.WaitGroup
}

// Option configures an Executor
type Option func(*Executor) error

// WithPoolSize sets the number of workers running actions. Default is 4.
func WithPoolSize(size int) Option {
	return func(e *Executor) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithHistory records the query of every best match launch
func WithHistory(h HistoryRecorder) Option {
	return func(e *Executor) error {
		e.history = h
		return nil
	}
}

// New creates an executor
func New(launcher LaunchGateway, actions ActionGateway, weights WeightRecorder, opts ...Option) (*Executor, error) {
	if launcher == nil {
		return nil, ErrLauncherRequired
	}
	if actions == nil {
		return nil, ErrActionsRequired
	}
	if weights == nil {
		return nil, ErrWeightsRequired
	}

	pool, err := ants.NewPool(4)
	if err != nil {
		return nil, err
	}
	e := &Executor{
		launcher: launcher,
		actions:  actions,
		weights:  weights,
		pool:     pool,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Release()
			return nil, optErr
		}
	}
	return e, nil
}

// Execute submits a to the worker pool and returns immediately.
// Failures of the action are logged.
func (e *Executor) Execute(a types.ActionResult) error {
	e.wg.Add(1)
	err := e.pool.Submit(func() {
		defer e.wg.Done()
		if err := Dispatch(context.Background(), e.actions, a); err != nil {
			e.logger.Error("action failed", "id", a.ID, "err", err)
			return
		}
		e.logger.Debug("action executed", "id", a.ID)
	})
	if err != nil {
		e.wg.Done()
		return fmt.Errorf("submit action %s: %w", a.ID, err)
	}
	return nil
}

// LaunchApp starts app and records the launch.
// A failure to record the weight is logged, not returned.
func (e *Executor) LaunchApp(ctx context.Context, app types.AppInfo) error {
	if app.Key == "" {
		return types.ErrEmptyKey
	}
	if err := e.launcher.LaunchItem(ctx, app.Key); err != nil {
		return fmt.Errorf("launch %s: %w", app.Key, err)
	}
	e.record(ctx, app.Key, types.KindApp)
	return nil
}

// LaunchShortcut starts ref and records the launch under its synthetic key
func (e *Executor) LaunchShortcut(ctx context.Context, ref types.ShortcutRef) error {
	if ref.OwnerKey == "" || ref.ID == "" {
		return types.ErrEmptyKey
	}
	if err := e.launcher.LaunchShortcut(ctx, ref.OwnerKey, ref.ID); err != nil {
		return fmt.Errorf("launch shortcut %s: %w", ref.Key(), err)
	}
	e.record(ctx, ref.Key(), types.KindShortcut)
	return nil
}

func (e *Executor) record(ctx context.Context, key string, kind types.ItemKind) {
	e.launchMu.Lock()
	defer e.launchMu.Unlock()
	w, err := e.weights.RecordLaunch(ctx, key, kind)
	if err != nil {
		e.logger.Error("failed to record launch", "key", key, "err", err)
		return
	}
	e.logger.Info("launched", "key", key, "kind", kind, "weight", w)
}

// Launch runs r: apps and shortcuts are launched, actions are executed
func (e *Executor) Launch(ctx context.Context, r types.Result) error {
	switch v := r.(type) {
	case types.AppResult:
		return e.LaunchApp(ctx, v.App)
	case types.ShortcutResult:
		return e.LaunchShortcut(ctx, v.Shortcut)
	case types.ActionResult:
		return e.Execute(v)
	case nil:
		return types.ErrNilResult
	}
	return fmt.Errorf("%w: %T", types.ErrInvalidKind, r)
}

// LaunchBestMatch launches r and records query in the history when configured
func (e *Executor) LaunchBestMatch(ctx context.Context, query string, r types.Result) error {
	if err := e.Launch(ctx, r); err != nil {
		return err
	}
	if e.history == nil {
		return nil
	}
	if err := e.history.RecordQuery(ctx, query, time.Now().UTC()); err != nil {
		e.logger.Warn("failed to record search history", "query", query, "err", err)
	}
	return nil
}

// Drain waits for submitted actions to finish
func (e *Executor) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases the worker pool.
// The executor should not be used after calling Release.
func (e *Executor) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

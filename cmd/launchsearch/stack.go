package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/launchsearch/internal/executor"
	"github.com/dshills/launchsearch/internal/favorites"
	"github.com/dshills/launchsearch/internal/platform"
	"github.com/dshills/launchsearch/internal/searcher"
	"github.com/dshills/launchsearch/internal/settings"
	"github.com/dshills/launchsearch/internal/storage"
	"github.com/dshills/launchsearch/internal/weights"
)

// logOpenCommand selects the opener that only logs targets
const logOpenCommand = "log"

// stack is the wired launcher: persistence, catalog, search session and executor
type stack struct {
	settings  *settings.Manager
	store     storage.Storage
	weights   *weights.Store
	catalog   *platform.Catalog
	gateway   *platform.Gateway
	executor  *executor.Executor
	session   *searcher.Session
	favorites *favorites.Service
	logger    *slog.Logger
}

func openStore(s settings.Storage, logger *slog.Logger) (storage.Storage, error) {
	switch s.Backend {
	case "badger":
		return storage.NewBadgerStorage(s.Path, logger)
	case "sqlite":
		if s.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create storage dir: %w", err)
			}
		}
		return storage.NewSQLiteStorage(s.Path)
	}
	return nil, fmt.Errorf("unknown storage backend: %q", s.Backend)
}

func newOpener(command string, dryRun bool, logger *slog.Logger) platform.Opener {
	if dryRun || command == logOpenCommand {
		return platform.NewLogOpener(logger)
	}
	opener, err := platform.NewCommandOpener(command)
	if err != nil {
		logger.Warn("no opener for this platform, launches are only logged", "err", err)
		return platform.NewLogOpener(logger)
	}
	return opener
}

// buildStack loads settings and wires every component. Shared text goes to
// share; a nil share only logs it.
func buildStack(configFile string, dryRun bool, share io.Writer, logger *slog.Logger) (*stack, error) {
	cfg, err := settings.Load(configFile, settings.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	set := cfg.Settings()

	store, err := openStore(set.Storage, logger)
	if err != nil {
		return nil, err
	}
	st := &stack{settings: cfg, store: store, logger: logger}

	if err := st.wire(set, dryRun, share); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// serveStack builds the stack for the MCP server. stdout carries the
// protocol, so nothing in it may write there.
func serveStack(configFile string, dryRun bool, logger *slog.Logger) (*stack, error) {
	return buildStack(configFile, dryRun, nil, logger)
}

func (st *stack) wire(set settings.Settings, dryRun bool, share io.Writer) error {
	var err error
	logger := st.logger

	st.weights, err = weights.NewStore(st.store, weights.WithLogger(logger))
	if err != nil {
		return err
	}

	st.catalog, err = platform.NewOsCatalog(set.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	st.gateway, err = platform.NewGateway(st.catalog, newOpener(set.Catalog.OpenCommand, dryRun, logger),
		platform.WithShareWriter(share),
		platform.WithGatewayLogger(logger),
	)
	if err != nil {
		return err
	}

	st.executor, err = executor.New(st.gateway, st.gateway, st.weights,
		executor.WithPoolSize(set.Executor.PoolSize),
		executor.WithHistory(st.store),
		executor.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	st.session, err = searcher.NewSession(st.catalog, st.catalog, st.weights, st.settings, searcher.WithLogger(logger))
	if err != nil {
		return err
	}

	st.favorites, err = favorites.New(st.catalog, st.store, st.weights, favorites.WithLogger(logger))
	return err
}

// watch reloads the catalog and re-runs the current query whenever the
// settings file changes
func (st *stack) watch(ctx context.Context) {
	st.settings.OnChange(func(s settings.Settings) {
		if err := st.catalog.Reload(); err != nil {
			st.logger.Warn("catalog reload failed", "path", s.Catalog.Path, "err", err)
		}
		st.session.InvalidateShortcuts()
		st.session.Refresh(ctx)
	})
	st.settings.Watch()
}

// Close drains pending actions and releases every resource
func (st *stack) Close() error {
	var errs []error
	if st.session != nil {
		errs = append(errs, st.session.Close())
	}
	if st.executor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		errs = append(errs, st.executor.Drain(ctx))
		cancel()
		st.executor.Release()
	}
	if st.store != nil {
		errs = append(errs, st.store.Close())
	}
	return errors.Join(errs...)
}

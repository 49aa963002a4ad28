package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dshills/launchsearch/internal/favorites"
	"github.com/dshills/launchsearch/internal/filters"
	"github.com/dshills/launchsearch/internal/mcp"
	"github.com/dshills/launchsearch/internal/storage"
	"github.com/dshills/launchsearch/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const drainTimeout = 5 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "launchsearch",
		Usage:   "Launcher search and ranking engine",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Settings file (yaml, toml or json)",
				EnvVars: []string{"LAUNCHSEARCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log launches instead of opening anything",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the search session over MCP on stdio",
				Action: serveCommand,
			},
			{
				Name:      "search",
				Usage:     "Run one query and print the ranked results",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Toggle a filter key before searching (repeatable)",
					},
					&cli.DurationFlag{
						Name:  "wait",
						Usage: "How long to wait for delayed buckets",
						Value: time.Second,
					},
				},
			},
			{
				Name:      "launch",
				Usage:     "Launch an app or shortcut:<owner>:<id> and record the launch",
				ArgsUsage: "KEY",
				Action:    launchCommand,
			},
			{
				Name:      "weight",
				Usage:     "Print the usage weight of a key",
				ArgsUsage: "KEY",
				Action:    weightCommand,
			},
			{
				Name:      "hide",
				Usage:     "Hide an app or shortcut from results",
				ArgsUsage: "KEY",
				Action:    hideCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "unhide",
						Usage: "Show the item again",
					},
				},
			},
			{
				Name:   "favorites",
				Usage:  "Print favorites, tag groups and all apps",
				Action: favoritesCommand,
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "tag",
						Usage: "Only favorites with this tag id",
						Value: favorites.AllTags,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Print recent queries launched with enter",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of queries",
						Value: 20,
					},
				},
			},
			{
				Name:  "version",
				Usage: "Print build information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "launchsearch %s\n", version)
					fmt.Fprintf(c.App.Writer, "Build Time: %s\n", buildTime)
					fmt.Fprintf(c.App.Writer, "Build Mode: %s\n", storage.BuildMode)
					fmt.Fprintf(c.App.Writer, "SQLite Driver: %s\n", storage.DriverName)
					return nil
				},
			},
		},
	}
}

// setupLogger logs to stderr; stdout is reserved for MCP and command output
func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", c.String("log-level"))
	}

	handler := slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

func openStack(c *cli.Context) (*stack, error) {
	return buildStack(c.String("config"), c.Bool("dry-run"), c.App.Writer, slog.Default())
}

func requireArg(c *cli.Context, name string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return arg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := serveStack(c.String("config"), c.Bool("dry-run"), slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("shutdown failed", "err", err)
		}
	}()
	st.watch(ctx)

	server, err := mcp.NewServer(mcp.Deps{
		Session:   st.session,
		Executor:  st.executor,
		Favorites: st.favorites,
		Weights:   st.weights,
		Apps:      st.catalog,
		Settings:  st.settings,
	}, mcp.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	slog.Info("launchsearch starting", "version", version, "build_mode", storage.BuildMode, "driver", storage.DriverName)
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	keys := make([]filters.Key, 0, len(c.StringSlice("filter")))
	for _, raw := range c.StringSlice("filter") {
		k, err := filters.ParseKey(raw)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}

	st, err := openStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := c.Context
	for _, k := range keys {
		if _, err := st.session.ToggleFilter(ctx, k); err != nil {
			return err
		}
	}
	st.session.SetQuery(ctx, query)

	waitCtx, cancel := context.WithTimeout(ctx, c.Duration("wait"))
	defer cancel()
	if err := st.session.Wait(waitCtx); err != nil {
		slog.Debug("some buckets still loading", "loading", st.session.Loading())
	}
	return printJSON(c.App.Writer, st.session.State())
}

func launchCommand(c *cli.Context) error {
	key, err := requireArg(c, "KEY")
	if err != nil {
		return err
	}

	st, err := openStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := c.Context
	if owner, id, ok := types.ParseShortcutKey(key); ok {
		err = st.executor.LaunchShortcut(ctx, types.ShortcutRef{OwnerKey: owner, ID: id})
	} else {
		app, found := st.catalog.App(key)
		if !found {
			return fmt.Errorf("unknown app: %s", key)
		}
		err = st.executor.LaunchApp(ctx, app)
	}
	if err != nil {
		return err
	}

	weight, err := st.weights.Get(ctx, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "launched %s (weight %.4f)\n", key, weight)
	return nil
}

func weightCommand(c *cli.Context) error {
	key, err := requireArg(c, "KEY")
	if err != nil {
		return err
	}

	st, err := openStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	weight, err := st.weights.Get(c.Context, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%.4f\n", weight)
	return nil
}

func hideCommand(c *cli.Context) error {
	key, err := requireArg(c, "KEY")
	if err != nil {
		return err
	}

	st, err := openStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	kind := types.KindApp
	if _, _, ok := types.ParseShortcutKey(key); ok {
		kind = types.KindShortcut
	}
	hidden := !c.Bool("unhide")
	if err := st.weights.SetHidden(c.Context, key, kind, hidden); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s hidden=%t\n", key, hidden)
	return nil
}

func favoritesCommand(c *cli.Context) error {
	st, err := openStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	set := st.settings.Settings()
	view, err := st.favorites.View(c.Context, set.Behavior.DefaultFilter, set.Behavior.ResultsBottomUp, c.Int64("tag"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, view)
}

func historyCommand(c *cli.Context) error {
	st, err := openStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.store.ListRecentQueries(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(c.App.Writer, "%s  %s\n", e.Timestamp.Format(time.RFC3339), e.Query)
	}
	return nil
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/launchsearch/internal/executor"
	"github.com/dshills/launchsearch/internal/favorites"
	"github.com/dshills/launchsearch/internal/searcher"
	"github.com/dshills/launchsearch/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "launchsearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// WeightReader looks usage weights up
type WeightReader interface {
	Get(ctx context.Context, key string) (float64, error)
}

// AppLookup resolves an app key
type AppLookup interface {
	App(key string) (types.AppInfo, bool)
}

// Deps are the components the tools operate on
type Deps struct {
	Session   *searcher.Session
	Executor  *executor.Executor
	Favorites *favorites.Service
	Weights   WeightReader
	Apps      AppLookup
	Settings  searcher.SettingsSource
}

func (d Deps) validate() error {
	switch {
	case d.Session == nil:
		return errors.New("session is required")
	case d.Executor == nil:
		return errors.New("executor is required")
	case d.Favorites == nil:
		return errors.New("favorites service is required")
	case d.Weights == nil:
		return errors.New("weight reader is required")
	case d.Apps == nil:
		return errors.New("app lookup is required")
	case d.Settings == nil:
		return errors.New("settings source is required")
	}
	return nil
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	session   *searcher.Session
	executor  *executor.Executor
	favorites *favorites.Service
	weights   WeightReader
	apps      AppLookup
	settings  searcher.SettingsSource
	logger    *slog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server instance over one search session
func NewServer(deps Deps, opts ...Option) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid server dependencies: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		session:   deps.Session,
		executor:  deps.Executor,
		favorites: deps.Favorites,
		weights:   deps.Weights,
		apps:      deps.Apps,
		settings:  deps.Settings,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", "session", s.session.ID())
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(toggleFilterTool(), s.handleToggleFilter)
	s.mcp.AddTool(getFiltersTool(), s.handleGetFilters)
	s.mcp.AddTool(launchBestMatchTool(), s.handleLaunchBestMatch)
	s.mcp.AddTool(launchItemTool(), s.handleLaunchItem)
	s.mcp.AddTool(executeActionTool(), s.handleExecuteAction)
	s.mcp.AddTool(getWeightTool(), s.handleGetWeight)
	s.mcp.AddTool(favoritesTool(), s.handleFavorites)
	return nil
}

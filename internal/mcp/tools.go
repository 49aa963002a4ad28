package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/launchsearch/internal/favorites"
	"github.com/dshills/launchsearch/internal/filters"
	"github.com/dshills/launchsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNoBestMatch   = -32001 // Nothing to launch for the current query
	ErrorCodeUnknownItem   = -32002 // App or shortcut is not in the catalog
	ErrorCodeUnknownAction = -32003 // Action id is not in the current results
	ErrorCodeLaunchFailed  = -32004 // Platform refused to launch
)

const (
	defaultWaitMS = 1000
	maxWaitMS     = 10000
)

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	waitMS := getIntDefault(args, "wait_ms", defaultWaitMS)
	if waitMS < 0 || waitMS > maxWaitMS {
		return nil, newMCPError(ErrorCodeInvalidParams, "wait_ms must be between 0 and 10000", map[string]interface{}{
			"param": "wait_ms",
			"value": waitMS,
		})
	}

	s.session.SetQuery(ctx, query)
	if waitMS > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, time.Duration(waitMS)*time.Millisecond)
		// Still-loading buckets are reported, not treated as failure.
		_ = s.session.Wait(waitCtx)
		cancel()
	}

	st := s.session.State()
	response := map[string]interface{}{
		"session_id": st.SessionID,
		"query":      st.Query,
		"generation": st.Generation,
		"filters":    st.Filters,
		"loading":    st.Loading,
		"total":      st.Results.Total(),
		"results":    st.Results,
		"best_match": describeResult(st.BestMatch),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleToggleFilter handles the toggle_filter tool invocation
func (s *Server) handleToggleFilter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	raw, _ := args["key"].(string)
	key, err := filters.ParseKey(raw)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid filter key", map[string]interface{}{
			"param":   "key",
			"value":   raw,
			"allowed": filterKeyNames(),
		})
	}

	state, err := s.session.ToggleFilter(ctx, key)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "toggle failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(filtersResponse(state))), nil
}

// handleGetFilters handles the get_filters tool invocation
func (s *Server) handleGetFilters(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(filtersResponse(s.session.Filters()))), nil
}

// handleLaunchBestMatch handles the launch_best_match tool invocation
func (s *Server) handleLaunchBestMatch(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	best := s.session.BestMatch()
	if best == nil {
		return nil, newMCPError(ErrorCodeNoBestMatch, "no best match for the current query", map[string]interface{}{
			"query":           s.session.Query(),
			"launch_on_enter": s.settings.Settings().Behavior.LaunchOnEnter,
		})
	}

	if err := s.executor.LaunchBestMatch(ctx, s.session.Query(), best); err != nil {
		return nil, newMCPError(ErrorCodeLaunchFailed, "launch failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"launched": describeResult(best),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleLaunchItem handles the launch_item tool invocation
func (s *Server) handleLaunchItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	key := getStringDefault(args, "key", "")
	kind := types.ItemKind(getStringDefault(args, "kind", string(types.KindApp)))
	owner := getStringDefault(args, "owner", "")
	shortcutID := getStringDefault(args, "shortcut_id", "")
	if o, id, ok := types.ParseShortcutKey(key); ok {
		kind = types.KindShortcut
		owner, shortcutID = o, id
	}
	if !kind.Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
			"param":   "kind",
			"value":   kind,
			"allowed": []string{string(types.KindApp), string(types.KindShortcut)},
		})
	}

	var launchedKey string
	switch kind {
	case types.KindApp:
		if key == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "key parameter is required", map[string]interface{}{
				"param":  "key",
				"reason": "missing or empty",
			})
		}
		app, ok := s.apps.App(key)
		if !ok {
			return nil, newMCPError(ErrorCodeUnknownItem, "unknown app", map[string]interface{}{"key": key})
		}
		err = s.executor.LaunchApp(ctx, app)
		launchedKey = app.Key
	case types.KindShortcut:
		ref := types.ShortcutRef{OwnerKey: owner, ID: shortcutID}
		if ref.OwnerKey == "" || ref.ID == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "owner and shortcut_id are required for shortcuts", map[string]interface{}{
				"param":  "shortcut_id",
				"reason": "missing or empty",
			})
		}
		if _, ok := s.apps.App(ref.OwnerKey); !ok {
			return nil, newMCPError(ErrorCodeUnknownItem, "unknown app", map[string]interface{}{"key": ref.OwnerKey})
		}
		err = s.executor.LaunchShortcut(ctx, ref)
		launchedKey = ref.Key()
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeLaunchFailed, "launch failed", map[string]interface{}{
			"key":   launchedKey,
			"error": err.Error(),
		})
	}

	weight, err := s.weights.Get(ctx, launchedKey)
	if err != nil {
		s.logger.Warn("failed to read weight after launch", "key", launchedKey, "err", err)
	}
	response := map[string]interface{}{
		"launched": launchedKey,
		"kind":     kind,
		"weight":   weight,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleExecuteAction handles the execute_action tool invocation
func (s *Server) handleExecuteAction(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id := getStringDefault(args, "action_id", "")
	if id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "action_id parameter is required", map[string]interface{}{
			"param":  "action_id",
			"reason": "missing or empty",
		})
	}

	results := s.session.Results()
	action, ok := results.FindAction(id)
	if !ok {
		return nil, newMCPError(ErrorCodeUnknownAction, "action is not in the current results", map[string]interface{}{
			"action_id": id,
			"query":     s.session.Query(),
		})
	}

	if err := s.executor.Execute(action); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to submit action", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"submitted": true,
		"action":    describeResult(action),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetWeight handles the get_weight tool invocation
func (s *Server) handleGetWeight(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	key := getStringDefault(args, "key", "")
	if key == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "key parameter is required", map[string]interface{}{
			"param":  "key",
			"reason": "missing or empty",
		})
	}

	weight, err := s.weights.Get(ctx, key)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get weight", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"key":    key,
		"weight": weight,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFavorites handles the favorites tool invocation
func (s *Server) handleFavorites(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	tagID := int64(getIntDefault(args, "tag_id", int(favorites.AllTags)))
	bottomUp := s.settings.Settings().Behavior.ResultsBottomUp

	view, err := s.favorites.View(ctx, s.session.Filters(), bottomUp, tagID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to build favorites view", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"favorites":    view.Favorites,
		"tags":         view.Tags,
		"all_apps":     view.AllApps,
		"selected_tag": view.SelectedTag,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

func filtersResponse(state filters.State) map[string]interface{} {
	return map[string]interface{}{
		"filters":            state,
		"enabled_categories": state.EnabledCategories(),
		"enabled_count":      state.EnabledCategoriesCount(),
		"all_enabled":        state.AllCategoriesEnabled(),
	}
}

// describeResult flattens a result for responses, nil stays nil
func describeResult(r types.Result) map[string]interface{} {
	switch v := r.(type) {
	case types.AppResult:
		return map[string]interface{}{
			"kind":        "app",
			"key":         v.App.Key,
			"label":       v.App.Label,
			"total_score": v.TotalScore,
		}
	case types.ShortcutResult:
		return map[string]interface{}{
			"kind":        "shortcut",
			"key":         v.Key,
			"label":       v.Shortcut.ShortLabel,
			"app_label":   v.AppLabel,
			"total_score": v.TotalScore,
		}
	case types.ActionResult:
		return map[string]interface{}{
			"kind":        "action",
			"id":          v.ID,
			"source":      v.Source,
			"action_type": v.Type,
			"title":       v.Title,
			"value":       v.Value,
			"total_score": v.TotalScore,
		}
	}
	return nil
}

// arguments returns the tool arguments; missing arguments read as empty
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// IsMCPError reports whether err is an MCPError with code
func IsMCPError(err error, code int) bool {
	var mcpErr *MCPError
	return errors.As(err, &mcpErr) && mcpErr.Code == code
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/launchsearch/internal/filters"
)

func filterKeyNames() []string {
	keys := []string{string(filters.AllowNetwork), string(filters.HiddenItems)}
	for _, c := range filters.Categories {
		keys = append(keys, string(c))
	}
	return keys
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Set the launcher query and return the ranked results of every source",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query text; an empty query clears the results and resets the filters",
				},
				"wait_ms": map[string]interface{}{
					"type":        "integer",
					"description": "How long to wait for shortcut, article and place results (0-10000)",
					"default":     defaultWaitMS,
					"minimum":     0,
					"maximum":     maxWaitMS,
				},
			},
			Required: []string{"query"},
		},
	}
}

// toggleFilterTool returns the tool definition for toggle_filter
func toggleFilterTool() mcp.Tool {
	return mcp.Tool{
		Name:        "toggle_filter",
		Description: "Toggle a result category or the allowNetwork/hiddenItems flags and search again",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "Filter key",
					"enum":        filterKeyNames(),
				},
			},
			Required: []string{"key"},
		},
	}
}

// getFiltersTool returns the tool definition for get_filters
func getFiltersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_filters",
		Description: "Return the current filter state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// launchBestMatchTool returns the tool definition for launch_best_match
func launchBestMatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "launch_best_match",
		Description: "Launch the best match of the current query, as pressing enter in the search field",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// launchItemTool returns the tool definition for launch_item
func launchItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "launch_item",
		Description: "Launch an app or an app shortcut and record the launch",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "App key, or shortcut key in the form shortcut:<owner>:<id>",
				},
				"kind": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"app", "shortcut"},
					"default": "app",
				},
				"owner": map[string]interface{}{
					"type":        "string",
					"description": "Owner app key of a shortcut, when key is not a shortcut key",
				},
				"shortcut_id": map[string]interface{}{
					"type":        "string",
					"description": "Shortcut id, when key is not a shortcut key",
				},
			},
		},
	}
}

// executeActionTool returns the tool definition for execute_action
func executeActionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "execute_action",
		Description: "Execute an action result of the current query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"action_id": map[string]interface{}{
					"type":        "string",
					"description": "Action id as returned by search (<source>:<type>:<value>)",
				},
			},
			Required: []string{"action_id"},
		},
	}
}

// getWeightTool returns the tool definition for get_weight
func getWeightTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_weight",
		Description: "Return the usage weight of an app or shortcut key",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{
					"type": "string",
				},
			},
			Required: []string{"key"},
		},
	}
}

// favoritesTool returns the tool definition for favorites
func favoritesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "favorites",
		Description: "Return the empty-query view: favorites, tag groups and all apps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"tag_id": map[string]interface{}{
					"type":        "integer",
					"description": "Only show favorites with this tag",
				},
			},
		},
	}
}

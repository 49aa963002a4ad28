// Package mcp exposes a launcher search session over the Model Context Protocol (MCP).
//
// One server owns one search session. The tools mirror what a user does in
// the launcher's search field:
//   - search: set the query and read the ranked buckets
//   - toggle_filter / get_filters: change or inspect the category filters
//   - launch_best_match: act as pressing enter
//   - launch_item: launch an app or app shortcut and record the launch
//   - execute_action: run an action result of the current query
//   - get_weight: read the usage weight of a key
//   - favorites: the empty-query view
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. The server is started with:
//
//	launchsearch serve
//
// and reads requests on stdin, writing responses to stdout. Logs go to stderr.
//
// # Tool: search
//
//	Request:
//	{
//	  "name": "search",
//	  "arguments": {"query": "fire", "wait_ms": 500}
//	}
//
//	Response:
//	{
//	  "query": "fire",
//	  "generation": 3,
//	  "loading": {},
//	  "total": 4,
//	  "results": {"apps": [{"app": {"key": "org.mozilla.firefox", "label": "Firefox"}, "total_score": 0.552}], ...},
//	  "best_match": {"kind": "app", "key": "org.mozilla.firefox", "label": "Firefox", "total_score": 0.552}
//	}
//
// wait_ms bounds how long the call waits for the asynchronous buckets
// (shortcuts, articles, places). Buckets still pending are listed in loading.
//
// # Tool: execute_action
//
// Action ids have the form <source>:<type>:<value> and must belong to the
// current results:
//
//	{"name": "execute_action", "arguments": {"action_id": "contacts:call:555-1234"}}
//
// Actions run on the executor pool; the response only confirms submission.
//
// # Error Handling
//
// Errors are JSON-RPC errors with a data object describing the parameter:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid filter key",
//	    "data": {"param": "key", "value": "bogus", "allowed": ["allowNetwork", ...]}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32001: No best match for the current query
//   - -32002: Unknown app or shortcut
//   - -32003: Action not in the current results
//   - -32004: Launch failed
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "launchsearch": {
//	      "command": "/usr/local/bin/launchsearch",
//	      "args": ["serve", "--config", "~/.config/launchsearch/config.yaml"]
//	    }
//	  }
//	}
package mcp

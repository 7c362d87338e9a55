// Package mcp implements the Model Context Protocol (MCP) server for Recall.
//
// The server exposes the capture engine to AI assistants as eight tools:
//   - submit_for_indexing: Submit a page or content for background indexing
//   - save_snippet: Save a user-selected text snippet
//   - search: Semantic search over saved contexts
//   - deep_research: Assemble budgeted context for a question
//   - delete_context: Delete a context and its embeddings
//   - rename_category: Rename a category slug and migrate its contexts
//   - list_categories: Enumerate categories
//   - get_status: Store statistics and provider info
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries the protocol, so all logging goes to stderr.
//
// # Basic Usage
//
// The server is started through the recall binary:
//
//	recall
//
// It then listens on stdin for MCP protocol messages and writes responses
// to stdout until the client disconnects or the process receives SIGINT
// or SIGTERM.
package mcp

// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes snippet execution to remote callers through
// the mark3labs/mcp-go library. Tools:
//
//   - execute_snippet: compile and run a snippet, reporting progress when the
//     client supplies a progress token
//   - list_languages and language_versions: what can run and which toolchain
//   - usage_stats: submitted snippets (optionally per author) and executions per
//     language, when the store is enabled
//   - rebuild_languages: rebuild every language image (opt-in)
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(cfg, logger, pipeline, registry, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver

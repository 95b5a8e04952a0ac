// Package main is the entry point for the snipbox MCP server.
//
// The server compiles and runs untrusted code snippets in one of more than
// twenty languages. Every snippet runs in its own short-lived container with
// networking disabled and CPU and memory caps applied. On start the server
// builds every language image in the background and marks the languages that
// built as available.
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging and viper for configuration.
package main

package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/isdmx/snipbox/config"
	"github.com/isdmx/snipbox/pipeline"
	"github.com/isdmx/snipbox/registry"
	"github.com/isdmx/snipbox/sandbox"
	"github.com/isdmx/snipbox/store"
)

const defaultAuthor = "mcp"

// Executor runs snippets.
type Executor interface {
	Run(ctx context.Context, req pipeline.Request, reporter pipeline.Reporter) (*pipeline.Outcome, error)
}

// Catalog lists languages and rebuilds their images.
type Catalog interface {
	Languages() []registry.Info
	Rebuild(ctx context.Context) error
}

// StatsSource reports usage statistics.
type StatsSource interface {
	Stats(ctx context.Context) ([]store.LanguageStat, error)
	SnippetCount(ctx context.Context, author string) (int64, error)
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	executor  Executor
	catalog   Catalog
	stats     StatsSource
	mcpServer *server.MCPServer
}

// New creates a new MCPServer. stats may be nil when the store is disabled.
func New(cfg *config.Config, logger *zap.Logger, executor Executor, catalog Catalog, stats StatsSource) (*MCPServer, error) {
	s := &MCPServer{
		config:   cfg,
		logger:   logger,
		executor: executor,
		catalog:  catalog,
		stats:    stats,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.Bool("server.enable_rebuild_tool", cfg.Server.EnableRebuildTool),
		zap.String("sandbox.runtime", cfg.Sandbox.Runtime),
		zap.String("sandbox.cpus", cfg.Sandbox.CPUs),
		zap.String("sandbox.memory", cfg.Sandbox.Memory),
		zap.String("sandbox.kernel_memory", cfg.Sandbox.KernelMemory),
		zap.Int("sandbox.compile_timeout_sec", cfg.Sandbox.CompileTimeoutSec),
		zap.Int("sandbox.execution_timeout_sec", cfg.Sandbox.ExecutionTimeoutSec),
		zap.String("sandbox.snippets_dir", cfg.Sandbox.SnippetsDir),
		zap.Bool("store.enabled", cfg.Store.Enabled),
	)

	s.mcpServer = server.NewMCPServer("snipbox", "1.0.0", server.WithToolCapabilities(false))

	s.registerExecuteSnippetTool()
	s.registerListLanguagesTool()
	s.registerLanguageVersionsTool()
	s.registerUsageStatsTool()
	if cfg.Server.EnableRebuildTool {
		s.registerRebuildLanguagesTool()
	}

	return s, nil
}

func (s *MCPServer) registerExecuteSnippetTool() {
	tool := mcp.NewTool("execute_snippet",
		mcp.WithDescription("Compile and run a code snippet in an isolated, network-less container. "+
			"Bare statements are wrapped in a main function for languages that need one."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Source code. When language is omitted the first line names the language."),
		),
		mcp.WithString("language",
			mcp.Description("Language code such as c, py, rust or js (see list_languages)"),
		),
		mcp.WithString("author",
			mcp.Description("Identifier of the submitter, used to separate scratch files and statistics"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleExecuteSnippet)
}

func (s *MCPServer) handleExecuteSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("code parameter is required: %v", err)), nil
	}

	lang := request.GetString("language", "")
	if strings.TrimSpace(lang) == "" {
		lang, code, err = pipeline.ParseSnippet(code)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid snippet: %v", err)), nil
		}
	}

	author := request.GetString("author", defaultAuthor)
	s.logger.Info("snippet execution requested", zap.String("language", lang), zap.String("author", author))

	outcome, err := s.executor.Run(ctx, pipeline.Request{Code: code, Author: author, Language: lang}, s.reporter(request))
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	text, err := yaml.Marshal(newExecutionReport(outcome))
	if err != nil {
		return nil, fmt.Errorf("failed to render result: %w", err)
	}

	result := mcp.NewToolResultText(string(text))
	result.IsError = outcome.Status != pipeline.StatusSucceeded
	return result, nil
}

func (s *MCPServer) registerListLanguagesTool() {
	tool := mcp.NewTool("list_languages",
		mcp.WithDescription("List supported languages with their codes and whether they can currently run"),
	)
	s.mcpServer.AddTool(tool, s.handleListLanguages)
}

func (s *MCPServer) handleListLanguages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return renderYAML(s.catalog.Languages())
}

func (s *MCPServer) registerLanguageVersionsTool() {
	tool := mcp.NewTool("language_versions",
		mcp.WithDescription("Show the toolchain version reported by every available language"),
	)
	s.mcpServer.AddTool(tool, s.handleLanguageVersions)
}

type versionEntry struct {
	Language string `yaml:"language"`
	Version  string `yaml:"version"`
}

func (s *MCPServer) handleLanguageVersions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var entries []versionEntry
	for _, info := range s.catalog.Languages() {
		if !info.Available {
			continue
		}
		version := info.Version
		if version == "" {
			version = "unknown"
		}
		entries = append(entries, versionEntry{Language: info.Name, Version: version})
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no languages are available"), nil
	}
	return renderYAML(entries)
}

func (s *MCPServer) registerUsageStatsTool() {
	tool := mcp.NewTool("usage_stats",
		mcp.WithDescription("Show how many snippets were submitted and how many were executed per language"),
		mcp.WithString("author",
			mcp.Description("Only count snippets submitted by this author"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleUsageStats)
}

type usageReport struct {
	Author    string               `yaml:"author,omitempty"`
	Snippets  int64                `yaml:"snippets"`
	Languages []store.LanguageStat `yaml:"languages,omitempty"`
}

func (s *MCPServer) handleUsageStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.stats == nil {
		return mcp.NewToolResultError("usage statistics are disabled"), nil
	}
	author := strings.TrimSpace(request.GetString("author", ""))

	count, err := s.stats.SnippetCount(ctx, author)
	if err != nil {
		s.logger.Error("failed to count snippets", zap.String("author", author), zap.Error(err))
		return mcp.NewToolResultError("failed to load usage statistics"), nil
	}
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		s.logger.Error("failed to load usage statistics", zap.Error(err))
		return mcp.NewToolResultError("failed to load usage statistics"), nil
	}
	return renderYAML(usageReport{Author: author, Snippets: count, Languages: stats})
}

func (s *MCPServer) registerRebuildLanguagesTool() {
	tool := mcp.NewTool("rebuild_languages",
		mcp.WithDescription("Rebuild every language image and refresh availability and versions. This can take a long time."),
	)
	s.mcpServer.AddTool(tool, s.handleRebuildLanguages)
}

func (s *MCPServer) handleRebuildLanguages(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("language rebuild requested")
	if err := s.catalog.Rebuild(ctx); err != nil {
		s.logger.Error("language rebuild failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("rebuild failed: %v", err)), nil
	}

	var available, unavailable []string
	for _, info := range s.catalog.Languages() {
		if info.Available {
			available = append(available, info.Name)
		} else {
			unavailable = append(unavailable, info.Name)
		}
	}
	return renderYAML(map[string][]string{"available": available, "unavailable": unavailable})
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func renderYAML(v any) (*mcp.CallToolResult, error) {
	text, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to render result: %w", err)
	}
	return mcp.NewToolResultText(string(text)), nil
}

// userMessage turns a pipeline error into text fit for the caller.
func userMessage(err error) string {
	var unknown *registry.UnknownLanguageError
	switch {
	case errors.As(err, &unknown):
		return fmt.Sprintf("Unknown language %q. Available languages: %s", unknown.Code, strings.Join(unknown.Available, ", "))
	case errors.Is(err, registry.ErrLanguageUnavailable):
		return "This language is currently unavailable. Ask an operator to rebuild the language images."
	case errors.Is(err, sandbox.ErrInvalidAuthor):
		return "Invalid author identifier."
	case errors.Is(err, pipeline.ErrSaveFailed):
		return "Could not save the snippet. Please try again later."
	case errors.Is(err, pipeline.ErrContainerStartFailed):
		return "Could not start a sandbox session. Please try again later."
	case errors.Is(err, pipeline.ErrCopyFailed):
		return "Could not copy the snippet into the sandbox. Please try again later."
	default:
		return fmt.Sprintf("Execution failed: %v", err)
	}
}

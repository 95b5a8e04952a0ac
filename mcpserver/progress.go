package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/snipbox/pipeline"
)

// progressReporter forwards pipeline progress lines as MCP progress notifications.
type progressReporter struct {
	logger *zap.Logger
	token  mcp.ProgressToken
	step   int
}

// reporter returns a Reporter for the request, or nil when the client did not
// ask for progress.
func (s *MCPServer) reporter(request mcp.CallToolRequest) pipeline.Reporter {
	if request.Params.Meta == nil || request.Params.Meta.ProgressToken == nil {
		return nil
	}
	return &progressReporter{logger: s.logger, token: request.Params.Meta.ProgressToken}
}

func (p *progressReporter) Progress(ctx context.Context, message string) {
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return
	}
	p.step++
	err := srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
		"progressToken": p.token,
		"progress":      p.step,
		"message":       message,
	})
	if err != nil {
		p.logger.Debug("failed to send progress", zap.String("message", message), zap.Error(err))
	}
}

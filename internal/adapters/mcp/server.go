// Package mcpadapter exposes the import pipeline as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/adapters/submission"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/ports"
)

const serverName = "wildlife-rescue-ingest"

const (
	toolImportReport = "import_report"
	toolRecentLogs   = "recent_import_logs"
)

type Tools struct {
	importer   ports.ReportImporter
	logs       ports.ImportLogQuery
	maxPayload int
	logger     *slog.Logger
}

func NewTools(importer ports.ReportImporter, logs ports.ImportLogQuery, maxPayload int, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{importer: importer, logs: logs, maxPayload: maxPayload, logger: logger}
}

// Server builds an MCP server with every tool registered.
func (t *Tools) Server(version string) *server.MCPServer {
	srv := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	srv.AddTool(importReportTool(), t.importReport)
	srv.AddTool(recentLogsTool(), t.recentLogs)
	return srv
}

func importReportTool() mcp.Tool {
	return mcp.NewTool(toolImportReport,
		mcp.WithDescription("Import one wildlife rescue report (PDF or UTF-8 text) and return the import outcome."),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("Stable identifier of the source file.")),
		mcp.WithString("file_name", mcp.Description("Display name of the source file.")),
		mcp.WithString("folder_id", mcp.Description("Folder the file was found in.")),
		mcp.WithString("modified_at", mcp.Description("Last modification time, RFC 3339.")),
		mcp.WithString("content_base64", mcp.Required(), mcp.Description("File content, base64 encoded.")),
	)
}

func recentLogsTool() mcp.Tool {
	return mcp.NewTool(toolRecentLogs,
		mcp.WithDescription("List the most recent import log entries, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries."), mcp.Min(1)),
	)
}

func (t *Tools) importReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg := submission.Message{
		FileID:        req.GetString("file_id", ""),
		FileName:      req.GetString("file_name", ""),
		FolderID:      req.GetString("folder_id", ""),
		ModifiedAt:    req.GetString("modified_at", ""),
		ContentBase64: req.GetString("content_base64", ""),
	}
	sub, err := msg.Submission(t.maxPayload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := t.importer.Import(ctx, sub)
	t.logger.Info("mcp_import_completed", "file_id", sub.FileID, "status", result.Status, "log_id", result.LogID)
	return jsonResult(result)
}

func (t *Tools) recentLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must be a positive integer"), nil
	}
	entries, err := t.logs.Recent(ctx, limit)
	if err != nil {
		t.logger.Error("mcp_recent_logs_failed", "error", err)
		return mcp.NewToolResultError("import logs are temporarily unavailable"), nil
	}
	return jsonResult(map[string]any{"items": entries})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/timelog/internal/adapters/server/common"
	"github.com/hylla/timelog/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the activity tools.
func NewHandler(cfg Config, activities common.ActivitiesService) (*Handler, error) {
	if activities == nil {
		return nil, fmt.Errorf("activities service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerLogActivityTool(mcpSrv, activities)
	registerQueryTools(mcpSrv, activities)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "timelog"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerLogActivityTool registers the `timelog.log_activity` tool.
func registerLogActivityTool(srv *mcpserver.MCPServer, activities common.ActivitiesService) {
	srv.AddTool(
		mcp.NewTool(
			"timelog.log_activity",
			mcp.WithDescription("Append one finished activity to the activity log. A second activity with the same timestamp is rejected."),
			mcp.WithString("timestamp", mcp.Required(), mcp.Description("Start instant, RFC 3339 (2025-06-04T14:00:00Z)")),
			mcp.WithString("duration", mcp.Required(), mcp.Description("ISO-8601 duration (PT30M)")),
			mcp.WithString("client", mcp.Required(), mcp.Description("Client name")),
			mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
			mcp.WithString("task", mcp.Required(), mcp.Description("Task name")),
			mcp.WithString("notes", mcp.Description("Optional free-form notes")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			timestamp, err := req.RequireString("timestamp")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			duration, err := req.RequireString("duration")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := activities.LogActivity(ctx, common.LogActivityRequest{
				Timestamp: timestamp,
				Duration:  duration,
				Client:    req.GetString("client", ""),
				Project:   req.GetString("project", ""),
				Task:      req.GetString("task", ""),
				Notes:     req.GetString("notes", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			if !status.Success {
				return mcp.NewToolResultError("duplicate: " + status.ErrorMessage), nil
			}
			result, err := mcp.NewToolResultJSON(status)
			if err != nil {
				return nil, fmt.Errorf("encode log_activity result: %w", err)
			}
			return result, nil
		},
	)
}

// registerQueryTools registers the recent, timesheet, and report tools.
func registerQueryTools(srv *mcpserver.MCPServer, activities common.ActivitiesService) {
	srv.AddTool(
		mcp.NewTool(
			"timelog.recent_activities",
			mcp.WithDescription("Return the last 30 days of activities grouped by day plus today/yesterday/week/month totals."),
			mcp.WithString("today", mcp.Description("Reference date YYYY-MM-DD (defaults to the current date)")),
			mcp.WithString("time_zone", mcp.Description("IANA time zone (defaults to the configured zone)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			recent, err := activities.RecentActivities(ctx, common.RecentActivitiesRequest{
				Today:    req.GetString("today", ""),
				TimeZone: req.GetString("time_zone", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(recent)
			if err != nil {
				return nil, fmt.Errorf("encode recent_activities result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"timelog.timesheet",
			mcp.WithDescription("Return hours per day, client, project, and task for an inclusive date range with capacity and overtime offset."),
			mcp.WithString("from", mcp.Required(), mcp.Description("First date YYYY-MM-DD")),
			mcp.WithString("to", mcp.Required(), mcp.Description("Last date YYYY-MM-DD (inclusive)")),
			mcp.WithString("time_zone", mcp.Description("IANA time zone")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			from, err := req.RequireString("from")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			to, err := req.RequireString("to")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			timesheet, err := activities.Timesheet(ctx, common.TimesheetRequest{
				From:     from,
				To:       to,
				TimeZone: req.GetString("time_zone", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(timesheet)
			if err != nil {
				return nil, fmt.Errorf("encode timesheet result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"timelog.report",
			mcp.WithDescription("Return hours aggregated by client, project, or task for an inclusive date range."),
			mcp.WithString("scope", mcp.Required(), mcp.Description("Aggregation scope"), mcp.Enum(domain.ScopeNames()...)),
			mcp.WithString("from", mcp.Required(), mcp.Description("First date YYYY-MM-DD")),
			mcp.WithString("to", mcp.Required(), mcp.Description("Last date YYYY-MM-DD (inclusive)")),
			mcp.WithString("time_zone", mcp.Description("IANA time zone")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			scope, err := req.RequireString("scope")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			from, err := req.RequireString("from")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			to, err := req.RequireString("to")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			report, err := activities.Report(ctx, common.ReportRequest{
				Scope:    scope,
				From:     from,
				To:       to,
				TimeZone: req.GetString("time_zone", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(report)
			if err != nil {
				return nil, fmt.Errorf("encode report result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrServiceUnavailable):
		return mcp.NewToolResultError("service_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

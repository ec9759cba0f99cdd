package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/hylla/timelog/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubActivitiesService provides deterministic activity responses for MCP tool tests.
type stubActivitiesService struct {
	logResponse   common.LogActivityResponse
	recent        common.RecentActivitiesResponse
	timesheet     common.TimesheetResponse
	report        common.ReportResponse
	err           error
	lastLog       common.LogActivityRequest
	lastRecent    common.RecentActivitiesRequest
	lastTimesheet common.TimesheetRequest
	lastReport    common.ReportRequest
}

// LogActivity records the request and returns the configured status.
func (s *stubActivitiesService) LogActivity(_ context.Context, req common.LogActivityRequest) (common.LogActivityResponse, error) {
	s.lastLog = req
	if s.err != nil {
		return common.LogActivityResponse{}, s.err
	}
	return s.logResponse, nil
}

// RecentActivities records the request and returns the configured view.
func (s *stubActivitiesService) RecentActivities(_ context.Context, req common.RecentActivitiesRequest) (common.RecentActivitiesResponse, error) {
	s.lastRecent = req
	if s.err != nil {
		return common.RecentActivitiesResponse{}, s.err
	}
	return s.recent, nil
}

// Timesheet records the request and returns the configured timesheet.
func (s *stubActivitiesService) Timesheet(_ context.Context, req common.TimesheetRequest) (common.TimesheetResponse, error) {
	s.lastTimesheet = req
	if s.err != nil {
		return common.TimesheetResponse{}, s.err
	}
	return s.timesheet, nil
}

// Report records the request and returns the configured report.
func (s *stubActivitiesService) Report(_ context.Context, req common.ReportRequest) (common.ReportResponse, error) {
	s.lastReport = req
	if s.err != nil {
		return common.ReportResponse{}, s.err
	}
	return s.report, nil
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map for stable assertions.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "timelog-test",
				"version": "1.0.0",
			},
		},
	}
}

// newTestServer starts one MCP handler over the stub and completes initialize.
func newTestServer(t *testing.T, svc *stubActivitiesService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, svc)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubActivitiesService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersActivityTools verifies tool discovery lists all four activity tools.
func TestHandlerRegistersActivityTools(t *testing.T) {
	server := newTestServer(t, &stubActivitiesService{})
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	var scopeEnum []any
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
		if name == "timelog.report" {
			schema, _ := toolMap["inputSchema"].(map[string]any)
			properties, _ := schema["properties"].(map[string]any)
			scope, _ := properties["scope"].(map[string]any)
			scopeEnum, _ = scope["enum"].([]any)
		}
	}
	if !slices.Equal(scopeEnum, []any{"clients", "projects", "tasks"}) {
		t.Fatalf("report scope enum = %#v", scopeEnum)
	}
	for _, required := range []string{
		"timelog.log_activity",
		"timelog.recent_activities",
		"timelog.timesheet",
		"timelog.report",
	} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %q: %#v", required, toolNames)
		}
	}
}

// TestHandlerLogActivityToolCall verifies argument mapping and duplicate reporting.
func TestHandlerLogActivityToolCall(t *testing.T) {
	svc := &stubActivitiesService{logResponse: common.LogActivityResponse{Success: true}}
	server := newTestServer(t, svc)

	args := map[string]any{
		"timestamp": "2025-06-04T14:00:00Z",
		"duration":  "PT2H",
		"client":    "ACME",
		"project":   "Foobar",
		"task":      "Code",
	}
	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "timelog.log_activity", args))
	structured := toolResultStructured(t, callResp.Result)
	if got, _ := structured["success"].(bool); !got {
		t.Fatalf("success = %#v, want true", structured["success"])
	}
	want := common.LogActivityRequest{Timestamp: "2025-06-04T14:00:00Z", Duration: "PT2H", Client: "ACME", Project: "Foobar", Task: "Code"}
	if svc.lastLog != want {
		t.Fatalf("lastLog = %#v, want %#v", svc.lastLog, want)
	}

	svc.logResponse = common.LogActivityResponse{ErrorMessage: "Activity not logged because another one already exists with timestamp 2025-06-04T14:00:00Z."}
	_, dupResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "timelog.log_activity", args))
	if isError, _ := dupResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", dupResp.Result["isError"])
	}
	if text := toolResultText(t, dupResp.Result); !strings.HasPrefix(text, "duplicate: Activity not logged") {
		t.Fatalf("text = %q, want duplicate prefix", text)
	}
}

// TestHandlerQueryToolCalls verifies query tools forward arguments and return structured payloads.
func TestHandlerQueryToolCalls(t *testing.T) {
	svc := &stubActivitiesService{
		recent:    common.RecentActivitiesResponse{TimeZone: "Europe/Berlin", WorkingDays: []common.WorkingDay{}},
		timesheet: common.TimesheetResponse{Entries: []common.TimesheetEntry{}, WorkingHoursSummary: common.WorkingHoursSummary{TotalHours: "PT16H", Capacity: "PT40H", Offset: "-PT8H"}},
		report:    common.ReportResponse{Entries: []common.ReportEntry{{Name: "ACME", Hours: "PT16H"}}, TotalHours: "PT16H"},
	}
	server := newTestServer(t, svc)

	_, recentResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "timelog.recent_activities", map[string]any{
		"today":     "2025-06-05",
		"time_zone": "Europe/Berlin",
	}))
	if got, _ := toolResultStructured(t, recentResp.Result)["timeZone"].(string); got != "Europe/Berlin" {
		t.Fatalf("timeZone = %q, want Europe/Berlin", got)
	}
	if svc.lastRecent != (common.RecentActivitiesRequest{Today: "2025-06-05", TimeZone: "Europe/Berlin"}) {
		t.Fatalf("lastRecent = %#v", svc.lastRecent)
	}

	_, timesheetResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "timelog.timesheet", map[string]any{
		"from": "2025-06-02",
		"to":   "2025-06-08",
	}))
	summary, ok := toolResultStructured(t, timesheetResp.Result)["workingHoursSummary"].(map[string]any)
	if !ok || summary["offset"] != "-PT8H" {
		t.Fatalf("workingHoursSummary = %#v", summary)
	}
	if svc.lastTimesheet != (common.TimesheetRequest{From: "2025-06-02", To: "2025-06-08"}) {
		t.Fatalf("lastTimesheet = %#v", svc.lastTimesheet)
	}

	_, reportResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "timelog.report", map[string]any{
		"scope": "clients",
		"from":  "2025-06-02",
		"to":    "2025-06-08",
	}))
	if got, _ := toolResultStructured(t, reportResp.Result)["totalHours"].(string); got != "PT16H" {
		t.Fatalf("totalHours = %q, want PT16H", got)
	}
	if svc.lastReport.Scope != "clients" {
		t.Fatalf("scope = %q, want clients", svc.lastReport.Scope)
	}
}

// TestHandlerToolErrors verifies missing arguments and service failures surface as tool errors.
func TestHandlerToolErrors(t *testing.T) {
	svc := &stubActivitiesService{}
	server := newTestServer(t, svc)

	_, missingArgResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "timelog.timesheet", map[string]any{
		"from": "2025-06-02",
	}))
	if isError, _ := missingArgResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", missingArgResp.Result["isError"])
	}

	svc.err = errors.Join(common.ErrInvalidRequest, errors.New("from must not be after to"))
	_, mappedErrResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "timelog.report", map[string]any{
		"scope": "clients",
		"from":  "2025-06-08",
		"to":    "2025-06-02",
	}))
	if isError, _ := mappedErrResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", mappedErrResp.Result["isError"])
	}
	if text := toolResultText(t, mappedErrResp.Result); !strings.HasPrefix(text, "invalid_request:") {
		t.Fatalf("text = %q, want invalid_request prefix", text)
	}
}

// TestNewHandlerRequiresActivities verifies service dependency enforcement.
func TestNewHandlerRequiresActivities(t *testing.T) {
	handler, err := NewHandler(Config{}, nil)
	if err == nil {
		t.Fatalf("NewHandler() error = nil, want non-nil")
	}
	if handler != nil {
		t.Fatalf("handler = %#v, want nil", handler)
	}
}

// TestNormalizeConfig verifies deterministic config defaults and path normalization.
func TestNormalizeConfig(t *testing.T) {
	cases := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "defaults",
			in:   Config{},
			want: Config{ServerName: "timelog", ServerVersion: "dev", EndpointPath: "/mcp"},
		},
		{
			name: "trimmed values and slash prefix",
			in:   Config{ServerName: " timelog-server ", ServerVersion: " v1.2.3 ", EndpointPath: "custom/path"},
			want: Config{ServerName: "timelog-server", ServerVersion: "v1.2.3", EndpointPath: "/custom/path"},
		},
		{
			name: "endpoint trim of repeated slashes",
			in:   Config{ServerName: "timelog", ServerVersion: "dev", EndpointPath: "///mcp///"},
			want: Config{ServerName: "timelog", ServerVersion: "dev", EndpointPath: "/mcp"},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeConfig(tt.in); got != tt.want {
				t.Fatalf("normalizeConfig() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestHandlerServeHTTPUnavailable verifies nil handler paths fail closed with 503.
func TestHandlerServeHTTPUnavailable(t *testing.T) {
	for _, handler := range []*Handler{nil, {}} {
		req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
		if !strings.Contains(rec.Body.String(), "mcp handler unavailable") {
			t.Fatalf("body = %q, want mcp handler unavailable", rec.Body.String())
		}
	}
}

// TestToolResultFromErrorMapping verifies deterministic error-to-tool-result mapping.
func TestToolResultFromErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{name: "nil error", err: nil, wantPrefix: "unknown error"},
		{name: "invalid request", err: errors.Join(common.ErrInvalidRequest, errors.New("bad")), wantPrefix: "invalid_request:"},
		{name: "unavailable", err: common.ErrServiceUnavailable, wantPrefix: "service_unavailable:"},
		{name: "storage", err: errors.New("disk"), wantPrefix: "internal_error:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := toolResultFromError(tc.err)
			if !result.IsError {
				t.Fatalf("IsError = false, want true")
			}
			text, ok := result.Content[0].(mcp.TextContent)
			if !ok {
				t.Fatalf("content[0] has unexpected type %T", result.Content[0])
			}
			if !strings.HasPrefix(text.Text, tc.wantPrefix) {
				t.Fatalf("text = %q, want prefix %q", text.Text, tc.wantPrefix)
			}
		})
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hylla/timelog/internal/adapters/server/common"
)

// stubActivitiesService provides deterministic activities responses for handler tests.
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

// LogActivity records the request and returns the configured response.
func (s *stubActivitiesService) LogActivity(_ context.Context, req common.LogActivityRequest) (common.LogActivityResponse, error) {
	s.lastLog = req
	if s.err != nil {
		return common.LogActivityResponse{}, s.err
	}
	return s.logResponse, nil
}

// RecentActivities records the request and returns the configured response.
func (s *stubActivitiesService) RecentActivities(_ context.Context, req common.RecentActivitiesRequest) (common.RecentActivitiesResponse, error) {
	s.lastRecent = req
	if s.err != nil {
		return common.RecentActivitiesResponse{}, s.err
	}
	return s.recent, nil
}

// Timesheet records the request and returns the configured response.
func (s *stubActivitiesService) Timesheet(_ context.Context, req common.TimesheetRequest) (common.TimesheetResponse, error) {
	s.lastTimesheet = req
	if s.err != nil {
		return common.TimesheetResponse{}, s.err
	}
	return s.timesheet, nil
}

// Report records the request and returns the configured response.
func (s *stubActivitiesService) Report(_ context.Context, req common.ReportRequest) (common.ReportResponse, error) {
	s.lastReport = req
	if s.err != nil {
		return common.ReportResponse{}, s.err
	}
	return s.report, nil
}

// TestHandlerLogActivitySuccess verifies the JSON body reaches the service and the status is echoed.
func TestHandlerLogActivitySuccess(t *testing.T) {
	svc := &stubActivitiesService{logResponse: common.LogActivityResponse{Success: true}}
	handler := NewHandler(svc)

	body := `{"timestamp":"2025-06-04T14:00:00Z","duration":"PT30M","client":"ACME","project":"Foobar","task":"Code","notes":"n"}`
	req := httptest.NewRequest(http.MethodPost, "/log-activity", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"success":true}` {
		t.Fatalf("body = %s", got)
	}
	want := common.LogActivityRequest{Timestamp: "2025-06-04T14:00:00Z", Duration: "PT30M", Client: "ACME", Project: "Foobar", Task: "Code", Notes: "n"}
	if svc.lastLog != want {
		t.Fatalf("lastLog = %#v", svc.lastLog)
	}
}

// TestHandlerLogActivityDuplicate verifies a failed status is still a 200 response.
func TestHandlerLogActivityDuplicate(t *testing.T) {
	svc := &stubActivitiesService{logResponse: common.LogActivityResponse{ErrorMessage: "Activity not logged because another one already exists with timestamp 2025-06-04T14:00:00Z."}}
	handler := NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/log-activity/", strings.NewReader(`{"timestamp":"2025-06-04T14:00:00Z"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got["success"] != false || got["errorMessage"] == "" {
		t.Fatalf("unexpected body %#v", got)
	}
}

func TestHandlerLogActivityRejectsMalformedBody(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: `{"timestamp":"2025-06-04T14:00:00Z","user":"x"}`},
		{name: "trailing content", body: `{"timestamp":"2025-06-04T14:00:00Z"}{}`},
		{name: "not json", body: `timestamp=now`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubActivitiesService{}
			handler := NewHandler(svc)
			req := httptest.NewRequest(http.MethodPost, "/log-activity", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			var envelope ErrorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if envelope.Error.Code != "invalid_request" {
				t.Fatalf("code = %q, want invalid_request", envelope.Error.Code)
			}
		})
	}
}

// TestHandlerQueryParameters verifies query strings map onto transport requests.
func TestHandlerQueryParameters(t *testing.T) {
	svc := &stubActivitiesService{
		recent:    common.RecentActivitiesResponse{TimeZone: "Europe/Berlin", WorkingDays: []common.WorkingDay{}},
		timesheet: common.TimesheetResponse{Entries: []common.TimesheetEntry{}},
		report:    common.ReportResponse{Entries: []common.ReportEntry{}, TotalHours: "PT0S"},
	}
	handler := NewHandler(svc)

	for _, target := range []string{
		"/recent-activities?today=2025-06-05&timeZone=Europe/Berlin",
		"/timesheet?from=2025-06-02&to=2025-06-08&timeZone=UTC",
		"/report?from=2025-06-02&to=2025-06-08&scope=projects",
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want %d", target, rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s content type = %q", target, ct)
		}
	}

	if svc.lastRecent != (common.RecentActivitiesRequest{Today: "2025-06-05", TimeZone: "Europe/Berlin"}) {
		t.Fatalf("lastRecent = %#v", svc.lastRecent)
	}
	if svc.lastTimesheet != (common.TimesheetRequest{From: "2025-06-02", To: "2025-06-08", TimeZone: "UTC"}) {
		t.Fatalf("lastTimesheet = %#v", svc.lastTimesheet)
	}
	if svc.lastReport != (common.ReportRequest{Scope: "projects", From: "2025-06-02", To: "2025-06-08"}) {
		t.Fatalf("lastReport = %#v", svc.lastReport)
	}
}

// TestHandlerErrorMapping verifies structured status mapping for service errors.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid", err: errors.Join(common.ErrInvalidRequest, errors.New("from is required")), wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "unavailable", err: common.ErrServiceUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: "service_unavailable"},
		{name: "canceled", err: context.Canceled, wantStatus: http.StatusServiceUnavailable, wantCode: "request_canceled"},
		{name: "storage", err: errors.New("disk gone"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler(&stubActivitiesService{err: tc.err})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/timesheet?from=x", nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var envelope ErrorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if envelope.Error.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", envelope.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestHandlerRouting(t *testing.T) {
	handler := NewHandler(&stubActivitiesService{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log-activity", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("Allow = %q, want POST", allow)
	}

	rec = httptest.NewRecorder()
	NewHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil service status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

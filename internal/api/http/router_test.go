package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type stubAuthenticator struct {
	username, password string
	session            *domain.Session
	err                error
}

func (s *stubAuthenticator) Authenticate(_ context.Context, username, password string) (*domain.Session, error) {
	s.username, s.password = username, password
	return s.session, s.err
}

type stubTickets struct {
	ticket     *domain.Ticket
	lastFilter service.TicketListFilter
	lastActor  domain.Identity
	err        error
}

func (s *stubTickets) ListTickets(_ context.Context, filter service.TicketListFilter) (*service.TicketPage, error) {
	s.lastFilter = filter
	return &service.TicketPage{Tickets: []domain.Ticket{*s.ticket}, Total: 1, Page: 1, PageSize: 20}, nil
}

func (s *stubTickets) GetTicket(_ context.Context, id string) (*domain.Ticket, error) {
	if id != s.ticket.ID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return s.ticket, nil
}

func (s *stubTickets) Stats(context.Context) (*service.TicketStats, error) {
	return &service.TicketStats{Total: 3, ByStatus: []service.StatusCount{
		{Status: domain.TicketStatusWaitingThirdParty, DisplayStatus: "Menunggu Approval", Count: 3},
	}}, nil
}

func (s *stubTickets) AddReply(_ context.Context, actor domain.Identity, _ string, message string) (*domain.TicketReply, error) {
	s.lastActor = actor
	return &domain.TicketReply{ID: "r1", Author: actor.DisplayName, Message: message, Delivered: true}, nil
}

func (s *stubTickets) ListHistory(context.Context, string, int, int) ([]domain.TicketHistory, error) {
	return []domain.TicketHistory{{ID: "h1", ChangeType: domain.ChangeTypeStatus, ChangedBy: "u1"}}, nil
}

func (s *stubTickets) UpdateTicketStatus(_ context.Context, actor domain.Identity, _ string, requested string) (*service.StatusUpdateResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastActor = actor
	status, _ := domain.ParseStatus(requested)
	updated := *s.ticket
	updated.Status = status
	return &service.StatusUpdateResult{Ticket: &updated, DisplayStatus: status.DisplayLabel(), Notified: true}, nil
}

func (s *stubTickets) AssignPIC(_ context.Context, _ domain.Identity, _ string, pic string) (*domain.Ticket, error) {
	updated := *s.ticket
	updated.PIC = pic
	return &updated, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	auth    *stubAuthenticator
	tickets *stubTickets
}

func newTestServer(t *testing.T, checks ...handlers.DependencyCheck) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenManager("router-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	s := &testServer{
		tokens: tokens,
		auth:   &stubAuthenticator{},
		tickets: &stubTickets{ticket: &domain.Ticket{
			ID: "t1", TicketCode: "TKT-1", Status: domain.TicketStatusWaitingThirdParty, Platform: domain.PlatformTelegram, ChatID: "9",
		}},
	}
	metrics := observability.NewMetrics("test")
	s.app = NewApp("helpdesk-test", MiddlewareConfig{
		Logger:      zaptest.NewLogger(t),
		Metrics:     metrics,
		Timeout:     5 * time.Second,
		CORSOrigins: "*",
	}, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", checks...),
		Auth:           handlers.NewAuthHandler(s.auth),
		Tickets:        handlers.NewTicketsHandler(s.tickets, s.tickets, s.tickets),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})
	return s
}

func (s *testServer) bearer(t *testing.T) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(domain.Identity{SubjectID: "u1", DisplayName: "Rina"})
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, body
}

func jsonRequest(method, target, body, authorization string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func errorCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestLogin(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	expires := time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC)
	s.auth.session = &domain.Session{Token: "jwt", ExpiresAt: expires, Identity: domain.Identity{SubjectID: "17", DisplayName: "Dewi"}}

	form := url.Values{"username": {"dewi"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	status, body := s.do(t, req)
	if status != http.StatusOK {
		t.Fatalf("status %d body %v", status, body)
	}
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	if data["token"] != "jwt" || user["id"] != "17" || user["name"] != "Dewi" {
		t.Fatalf("unexpected body %v", body)
	}
	if s.auth.username != "dewi" || s.auth.password != "pw" {
		t.Fatalf("form credentials not passed through: %q/%q", s.auth.username, s.auth.password)
	}
}

func TestLogin_ErrorsRenderedAsDomainErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "missing", err: apperrors.NewMissingField("password"), wantStatus: http.StatusBadRequest, wantCode: apperrors.CodeMissingField},
		{name: "rejected", err: apperrors.NewInvalidCredentials(""), wantStatus: http.StatusUnauthorized, wantCode: apperrors.CodeInvalidCredentials},
		{name: "unreachable", err: apperrors.NewProvidersUnreachable(nil), wantStatus: http.StatusServiceUnavailable, wantCode: apperrors.CodeProvidersUnreachable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)
			s.auth.err = tt.err
			status, body := s.do(t, jsonRequest(http.MethodPost, "/auth/login", `{"username":"a","password":"b"}`, ""))
			if status != tt.wantStatus || errorCode(body) != tt.wantCode {
				t.Fatalf("status=%d body=%v", status, body)
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	for _, target := range []string{"/auth/me", "/api/tickets", "/api/tickets/t1"} {
		status, body := s.do(t, jsonRequest(http.MethodGet, target, "", ""))
		if status != http.StatusUnauthorized || errorCode(body) != apperrors.CodeUnauthorized {
			t.Fatalf("%s: status=%d body=%v", target, status, body)
		}
	}
	status, _ := s.do(t, jsonRequest(http.MethodGet, "/auth/me", "", "Bearer not-a-jwt"))
	if status != http.StatusUnauthorized {
		t.Fatalf("forged token accepted: %d", status)
	}
}

func TestMe(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	status, body := s.do(t, jsonRequest(http.MethodGet, "/auth/me", "", s.bearer(t)))
	data := body["data"].(map[string]any)
	if status != http.StatusOK || data["id"] != "u1" || data["name"] != "Rina" {
		t.Fatalf("status=%d body=%v", status, body)
	}
}

func TestTicketRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	token := s.bearer(t)

	status, body := s.do(t, jsonRequest(http.MethodGet, "/api/tickets?status=Menunggu%20Approval,done&platform=Telegram&q=vpn&page=2", "", token))
	if status != http.StatusOK {
		t.Fatalf("list status %d %v", status, body)
	}
	items := body["data"].(map[string]any)["items"].([]any)
	if items[0].(map[string]any)["display_status"] != "Menunggu Approval" {
		t.Fatalf("list missing display_status: %v", items)
	}
	f := s.tickets.lastFilter
	if len(f.Statuses) != 2 || f.Statuses[0] != "Menunggu Approval" || f.Platform != "Telegram" || f.Search != "vpn" || f.Page != 2 {
		t.Fatalf("unexpected filter %+v", f)
	}

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/tickets/stats", "", token))
	if status != http.StatusOK || body["data"].(map[string]any)["total"] != float64(3) {
		t.Fatalf("stats status=%d body=%v", status, body)
	}

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/tickets/missing", "", token))
	if status != http.StatusNotFound || errorCode(body) != apperrors.CodeNotFound {
		t.Fatalf("get missing status=%d body=%v", status, body)
	}

	status, body = s.do(t, jsonRequest(http.MethodPut, "/api/tickets/t1/status", `{"status":"DONE"}`, token))
	if status != http.StatusOK {
		t.Fatalf("status update %d %v", status, body)
	}
	data := body["data"].(map[string]any)
	if data["display_status"] != "Done" || data["ticket"].(map[string]any)["status"] != "done" || s.tickets.lastActor.SubjectID != "u1" {
		t.Fatalf("unexpected status update %v", data)
	}

	status, body = s.do(t, jsonRequest(http.MethodPut, "/api/tickets/t1/pic", `{"pic":"Budi"}`, token))
	if status != http.StatusOK || body["data"].(map[string]any)["pic"] != "Budi" {
		t.Fatalf("pic status=%d body=%v", status, body)
	}

	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/tickets/t1/replies", `{"message":"halo"}`, token))
	if status != http.StatusCreated || body["data"].(map[string]any)["author"] != "Rina" {
		t.Fatalf("reply status=%d body=%v", status, body)
	}

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/tickets/t1/history", "", token))
	if status != http.StatusOK || len(body["data"].([]any)) != 1 {
		t.Fatalf("history status=%d body=%v", status, body)
	}
}

func TestStatusUpdateTerminalRendersConflict(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.tickets.err = apperrors.NewTerminalState("TKT-1")
	status, body := s.do(t, jsonRequest(http.MethodPut, "/api/tickets/t1/status", `{"status":"diproses"}`, s.bearer(t)))
	if status != http.StatusConflict || errorCode(body) != apperrors.CodeTerminalState {
		t.Fatalf("status=%d body=%v", status, body)
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	status, body := s.do(t, jsonRequest(http.MethodGet, "/nope", "", ""))
	if status != http.StatusNotFound || errorCode(body) != apperrors.CodeNotFound {
		t.Fatalf("status=%d body=%v", status, body)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t,
		handlers.DependencyCheck{Name: "mongo", Pinger: stubPinger{}},
		handlers.DependencyCheck{Name: "postgres", Pinger: stubPinger{err: persistence.ErrNotConfigured}},
		handlers.DependencyCheck{Name: "redis", Pinger: stubPinger{err: context.DeadlineExceeded}, Optional: true},
	)
	status, body := s.do(t, jsonRequest(http.MethodGet, "/health/ready", "", ""))
	if status != http.StatusOK {
		t.Fatalf("ready status=%d body=%v", status, body)
	}
	deps := body["dependencies"].(map[string]any)
	if deps["mongo"] != "ok" || deps["postgres"] != "disabled" || deps["redis"] == "ok" {
		t.Fatalf("unexpected deps %v", deps)
	}

	down := newTestServer(t, handlers.DependencyCheck{Name: "mongo", Pinger: stubPinger{err: context.DeadlineExceeded}})
	if status, _ := down.do(t, jsonRequest(http.MethodGet, "/health/ready", "", "")); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when mongo is down, got %d", status)
	}
	if status, _ := down.do(t, jsonRequest(http.MethodGet, "/health/live", "", "")); status != http.StatusOK {
		t.Fatalf("live status %d", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	_, _ = s.do(t, jsonRequest(http.MethodGet, "/health/live", "", ""))

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "test_http_requests_total") {
		t.Fatalf("metrics status=%d body=%s", resp.StatusCode, raw)
	}
}

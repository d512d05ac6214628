package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandlerExposesRecordedSeries(t *testing.T) {
	t.Parallel()

	m := NewMetrics("helpdesk")
	m.RecordRequest("/api/tickets/:id/status", "PUT", 200, 15*time.Millisecond)
	m.RecordError("/auth/login", "POST", "INVALID_CREDENTIALS")
	m.RecordNotification("Telegram", "failed")
	m.RecordSSOAttempt("unreachable")
	m.RecordStatusChange("done")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`helpdesk_http_requests_total{method="PUT",route="/api/tickets/:id/status",status="200"} 1`,
		`helpdesk_http_errors_total{code="INVALID_CREDENTIALS",method="POST",route="/auth/login"} 1`,
		`helpdesk_chat_notifications_total{outcome="failed",platform="Telegram"} 1`,
		`helpdesk_sso_attempts_total{outcome="unreachable"} 1`,
		`helpdesk_ticket_status_changes_total{status="done"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordNotification("WhatsApp", "sent")
	m.RecordSSOAttempt("accepted")
	m.RecordStatusChange("done")
}

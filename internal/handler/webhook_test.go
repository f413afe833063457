package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/outbehaving/outbehaving-api/internal/infra/observability"

	"go.uber.org/zap"
)

func newWebhook() http.HandlerFunc {
	return webhookHandler("proffyn-secret", observability.NewMetrics(), zap.NewNop())
}

func TestWebhook_VerificationEchoesChallenge(t *testing.T) {
	h := newWebhook()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=proffyn-secret&hub.challenge=abc123", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "abc123" {
		t.Errorf("expected challenge echoed back, got %q", rec.Body.String())
	}
}

func TestWebhook_VerificationRejectsBadToken(t *testing.T) {
	h := newWebhook()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=abc123", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec.Body.String() != "Verification failed" {
		t.Errorf("expected verification failure body, got %q", rec.Body.String())
	}
}

func TestWebhook_VerificationRejectsWrongMode(t *testing.T) {
	h := newWebhook()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=unsubscribe&hub.verify_token=proffyn-secret&hub.challenge=abc123", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestWebhook_EventAcknowledged(t *testing.T) {
	h := newWebhook()

	req := httptest.NewRequest(http.MethodPost, "/webhook",
		strings.NewReader(`{"object":"page","entry":[{"id":"1"}]}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "EVENT_RECEIVED" {
		t.Errorf("expected EVENT_RECEIVED, got %q", rec.Body.String())
	}
}

func TestWebhook_EventWithMalformedBodyStillAcknowledged(t *testing.T) {
	h := newWebhook()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for malformed payload, got %d", rec.Code)
	}
	if rec.Body.String() != "EVENT_RECEIVED" {
		t.Errorf("expected EVENT_RECEIVED, got %q", rec.Body.String())
	}
}

func TestWebhook_OtherMethodsRejected(t *testing.T) {
	h := newWebhook()

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "/webhook", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", method, rec.Code)
		}
		if rec.Body.String() != "Method Not Allowed" {
			t.Errorf("%s: expected method not allowed body, got %q", method, rec.Body.String())
		}
	}
}

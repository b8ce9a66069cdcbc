package chi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paylink-dev/paylink-go/webhook"
)

const (
	testSecret = "test_secret_123"
	testBody   = `{"event":"payment.succeeded","data":{"id":"pi_test"}}`
)

func setupRouter(secret string) *chi.Mux {
	r := chi.NewRouter()
	r.With(NewWebhookMiddleware(Config{Secret: secret})).
		Post("/webhooks/paylink", func(w http.ResponseWriter, r *http.Request) {
			body, ok := r.Context().Value(EventContextKey).([]byte)
			if !ok {
				http.Error(w, "missing event body", http.StatusInternalServerError)
				return
			}
			event, err := webhook.ParseEvent(body)
			if err != nil {
				http.Error(w, "bad event", http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(event.Event))
		})
	return r
}

func TestWebhookMiddleware(t *testing.T) {
	now := time.Now().Unix()

	t.Run("valid signature passes through", func(t *testing.T) {
		r := setupRouter(testSecret)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/paylink", strings.NewReader(testBody))
		req.Header.Set(webhook.SignatureHeader, webhook.BuildHeader([]byte(testBody), testSecret, now))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if w.Body.String() != "payment.succeeded" {
			t.Errorf("expected handler to see the event, got %s", w.Body.String())
		}
	})

	t.Run("invalid signature rejected", func(t *testing.T) {
		r := setupRouter(testSecret)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/paylink", strings.NewReader(testBody))
		req.Header.Set(webhook.SignatureHeader, webhook.BuildHeader([]byte(testBody), "wrong_secret", now))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		r := setupRouter(testSecret)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/paylink", strings.NewReader(testBody))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		r := setupRouter(testSecret)

		tampered := strings.Replace(testBody, "pi_test", "pi_evil", 1)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/paylink", strings.NewReader(tampered))
		req.Header.Set(webhook.SignatureHeader, webhook.BuildHeader([]byte(testBody), testSecret, now))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

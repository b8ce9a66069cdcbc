package gin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paylink-dev/paylink-go/webhook"
)

const (
	testSecret = "test_secret_123"
	testBody   = `{"event":"payment.succeeded","data":{"id":"pi_test"}}`
)

func setupRouter(secret string, opts ...webhook.Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/paylink", NewWebhookMiddleware(Config{
		Secret:  secret,
		Options: opts,
	}), func(c *gin.Context) {
		body := c.MustGet(EventContextKey).([]byte)
		event, err := webhook.ParseEvent(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad event"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": event.Event})
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
		if !strings.Contains(w.Body.String(), "payment.succeeded") {
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

	t.Run("stale delivery rejected", func(t *testing.T) {
		r := setupRouter(testSecret)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/paylink", strings.NewReader(testBody))
		req.Header.Set(webhook.SignatureHeader, webhook.BuildHeader([]byte(testBody), testSecret, now-600))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for stale delivery, got %d", w.Code)
		}
	})

	t.Run("custom tolerance option", func(t *testing.T) {
		r := setupRouter(testSecret, webhook.WithTolerance(time.Hour))

		req := httptest.NewRequest(http.MethodPost, "/webhooks/paylink", strings.NewReader(testBody))
		req.Header.Set(webhook.SignatureHeader, webhook.BuildHeader([]byte(testBody), testSecret, now-600))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200 with widened tolerance, got %d", w.Code)
		}
	})

	t.Run("custom header name", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.POST("/hooks", NewWebhookMiddleware(Config{
			Secret: testSecret,
			Header: "X-Custom-Signature",
		}), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/hooks", strings.NewReader(testBody))
		req.Header.Set("X-Custom-Signature", webhook.BuildHeader([]byte(testBody), testSecret, now))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})
}

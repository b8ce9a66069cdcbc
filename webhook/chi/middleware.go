// Package chi provides Chi-compatible middleware for paylink webhook
// verification. It uses the stdlib http.Handler interface and delegates
// the signature check to the webhook package.
package chi

import (
	"context"
	"io"
	"net/http"

	"github.com/paylink-dev/paylink-go/logger"
	"github.com/paylink-dev/paylink-go/webhook"
)

type contextKey struct{}

// EventContextKey is the request context key the verified raw event body
// is stored under.
var EventContextKey = contextKey{}

// Config configures the verification middleware.
type Config struct {
	// Secret is the shared webhook signing secret (required).
	Secret string

	// Header overrides the signature header name. Defaults to
	// webhook.SignatureHeader.
	Header string

	// Options are passed through to webhook.Verify (tolerance, clock).
	Options []webhook.Option

	// Logger receives rejected-delivery logs. Defaults to no-op.
	Logger logger.Logger
}

// NewWebhookMiddleware creates a Chi middleware that verifies inbound
// paylink webhook deliveries: it reads the exact request body, verifies
// the signature header, responds 401 on failure, and otherwise passes
// the raw body to the next handler through the request context.
//
// Example usage:
//
//	r := chi.NewRouter()
//	r.With(NewWebhookMiddleware(Config{Secret: secret})).
//	    Post("/webhooks/paylink", func(w http.ResponseWriter, r *http.Request) {
//	        body := r.Context().Value(EventContextKey).([]byte)
//	        event, _ := webhook.ParseEvent(body)
//	        _ = event
//	        w.WriteHeader(http.StatusOK)
//	    })
func NewWebhookMiddleware(config Config) func(http.Handler) http.Handler {
	header := config.Header
	if header == "" {
		header = webhook.SignatureHeader
	}
	log := config.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				log.Warn("webhook body read failed", map[string]any{"error": err.Error()})
				http.Error(w, "unreadable body", http.StatusBadRequest)
				return
			}

			if !webhook.Verify(body, r.Header.Get(header), config.Secret, config.Options...) {
				log.Warn("webhook signature rejected", map[string]any{"path": r.URL.Path})
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), EventContextKey, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

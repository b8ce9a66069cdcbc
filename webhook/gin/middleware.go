// Package gin provides Gin-compatible middleware for paylink webhook
// verification. It is a thin adapter that reads the exact request body,
// delegates the signature check to the webhook package, and aborts the
// handler chain on failure.
package gin

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paylink-dev/paylink-go/logger"
	"github.com/paylink-dev/paylink-go/webhook"
)

// EventContextKey is the Gin context key the verified raw event body is
// stored under.
const EventContextKey = "paylink_event"

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

// NewWebhookMiddleware creates a Gin middleware that verifies inbound
// paylink webhook deliveries.
//
// The middleware:
//   - Reads the raw request body (the exact bytes the signature covers)
//   - Verifies the signature header against the shared secret
//   - Responds 401 and aborts the chain when verification fails
//   - Stores the raw body in the context under EventContextKey and calls
//     c.Next() on success
//
// Example usage:
//
//	r := gin.Default()
//	r.POST("/webhooks/paylink", NewWebhookMiddleware(Config{Secret: secret}), func(c *gin.Context) {
//	    body := c.MustGet(EventContextKey).([]byte)
//	    event, _ := webhook.ParseEvent(body)
//	    c.JSON(200, gin.H{"received": event.Event})
//	})
func NewWebhookMiddleware(config Config) gin.HandlerFunc {
	header := config.Header
	if header == "" {
		header = webhook.SignatureHeader
	}
	log := config.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}

	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			log.Warn("webhook body read failed", map[string]any{"error": err.Error()})
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		if !webhook.Verify(body, c.GetHeader(header), config.Secret, config.Options...) {
			log.Warn("webhook signature rejected", map[string]any{"path": c.Request.URL.Path})
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Set(EventContextKey, body)
		c.Next()
	}
}

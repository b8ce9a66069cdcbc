// Package webhook verifies that payment events delivered to a merchant
// backend genuinely originated from the paylink backend and are not
// replays. Verification is a pure check over the exact raw request body:
// any re-serialization of the body changes the signed payload and breaks
// legitimate signatures, so handlers must pass the bytes as received.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the allowed skew between the signing timestamp and
// verification time. Events outside the window are rejected as replays.
const DefaultTolerance = 300 * time.Second

// SignatureHeader is the header paylink signs events under.
const SignatureHeader = "X-Paylink-Signature"

// envelope is the parsed (timestamp, signature) pair extracted from a
// signature header. Constructed and consumed within a single Verify call.
type envelope struct {
	timestamp int64
	signature string
}

// Option configures a verification call.
type Option func(*verifier)

type verifier struct {
	tolerance time.Duration
	now       func() time.Time
}

// WithTolerance overrides the replay tolerance window.
func WithTolerance(d time.Duration) Option {
	return func(v *verifier) {
		v.tolerance = d
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(v *verifier) {
		v.now = now
	}
}

// Verify reports whether rawBody was signed by the holder of secret
// within the tolerance window. It never panics or returns an error: every
// malformed input resolves to false.
//
// The header format is "t=<unix-seconds>,v1=<hex signature>" where the
// signature is HMAC-SHA256 over "<t>.<rawBody>". The hex comparison is
// constant-time and both the signature and the timestamp window must
// pass.
func Verify(rawBody []byte, signatureHeader, secret string, opts ...Option) bool {
	v := &verifier{
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	env, ok := parseHeader(signatureHeader)
	if !ok || secret == "" {
		return false
	}

	expected := Sign(rawBody, secret, env.timestamp)

	// hmac.Equal takes time independent of where the first mismatch
	// occurs; a byte loop or == would leak the matching prefix length.
	if !hmac.Equal([]byte(expected), []byte(env.signature)) {
		return false
	}

	skew := v.now().Unix() - env.timestamp
	if skew < 0 {
		skew = -skew
	}
	return time.Duration(skew)*time.Second <= v.tolerance
}

// Sign computes the lowercase hex signature for a body at a timestamp.
// Exposed so tests and backend fakes can produce valid headers.
func Sign(rawBody []byte, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildHeader renders a signature header for a body, for fakes and tests.
func BuildHeader(rawBody []byte, secret string, timestamp int64) string {
	return "t=" + strconv.FormatInt(timestamp, 10) + ",v1=" + Sign(rawBody, secret, timestamp)
}

// parseHeader extracts the t and v1 fields from a comma-separated
// key=value header. Missing, empty, duplicate-free and non-conforming
// inputs all resolve to not-ok.
func parseHeader(header string) (envelope, bool) {
	if header == "" {
		return envelope{}, false
	}

	var env envelope
	var haveT, haveV1 bool

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return envelope{}, false
			}
			env.timestamp = ts
			haveT = true
		case "v1":
			if value == "" || !isLowerHex(value) {
				return envelope{}, false
			}
			env.signature = value
			haveV1 = true
		}
	}

	if !haveT || !haveV1 {
		return envelope{}, false
	}
	return env, true
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Event is the decoded payment event body.
type Event struct {
	// Event is the event name (e.g., "payment.succeeded").
	Event string `json:"event"`

	// Data is the event payload, left raw for the handler to decode.
	Data json.RawMessage `json:"data"`
}

// ParseEvent decodes a verified event body. It must only be called after
// Verify accepted the raw bytes; parsing plays no part in verification.
func ParseEvent(rawBody []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(rawBody, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

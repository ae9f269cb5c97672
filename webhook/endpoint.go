package webhook

import (
	"fmt"
	"strings"
	"time"

	"github.com/Juzanki/smartbiz-hub/event"
	"github.com/Juzanki/smartbiz-hub/webhook/signature"
)

/* Endpoint represents one user-registered webhook destination
 * Uses value semantics as it represents data, not behavior
 */
type Endpoint struct {
	ID          string
	UserID      int64
	URL         string
	Secret      string
	Description string

	// SubscribedEvents filters deliveries; empty means receive all events.
	// Entries support a trailing ".*" wildcard ("gift.*").
	SubscribedEvents []string

	Active             bool
	MaxRetries         int
	BackoffSeconds     int
	RateLimitPerMinute int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the endpoint configuration
func (e Endpoint) Validate() error {
	if e.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
		return fmt.Errorf("url must be http(s): %s", e.URL)
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if e.BackoffSeconds < 0 {
		return fmt.Errorf("backoff_seconds cannot be negative")
	}
	if e.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute cannot be negative")
	}
	for _, sub := range e.SubscribedEvents {
		if err := event.ValidateType(sub); err != nil {
			return fmt.Errorf("invalid subscription: %w", err)
		}
	}
	return nil
}

// SignPayload returns the hex HMAC-SHA256 digest of payload using the
// endpoint secret, or the empty string when no secret is set.
func (e Endpoint) SignPayload(payload []byte) string {
	return signature.Sign(e.Secret, payload)
}

// VerifySignature checks sig against payload using constant-time comparison.
// Returns false when no secret is set.
func (e Endpoint) VerifySignature(payload []byte, sig string) bool {
	return signature.Verify(e.Secret, payload, sig)
}

// Accepts reports whether the endpoint should receive ev: it must be active
// and the event type must match its subscription filter.
func (e Endpoint) Accepts(ev event.Event) bool {
	return e.Active && ev.MatchesTypes(e.SubscribedEvents)
}

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Juzanki/smartbiz-hub/event"
	"github.com/Juzanki/smartbiz-hub/webhook/signature"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single outbound HTTP attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultBurstAttempts caps the immediate in-call attempts per delivery
	// cycle. Attempts beyond the burst are left to the scheduled retrier.
	DefaultBurstAttempts = 3

	// DefaultRetryDelay is the fixed pause between in-call attempts.
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetries applies when an endpoint does not set its own.
	DefaultMaxRetries = 3

	// DefaultBackoffSeconds is the base of the exponential retry schedule.
	DefaultBackoffSeconds = 30

	// maxResponseBody caps how much of the receiver's response is retained
	// in the delivery log.
	maxResponseBody = 4 << 10
)

// SenderConfig tunes delivery behavior. Zero values fall back to defaults.
type SenderConfig struct {
	Timeout       time.Duration
	BurstAttempts int
	RetryDelay    time.Duration
}

// Sender performs signed HTTP deliveries to webhook endpoints and records
// every attempt in the delivery log before the caller learns the outcome.
type Sender struct {
	repo   Repository
	client *http.Client
	cfg    SenderConfig
	log    zerolog.Logger
	now    func() time.Time
}

// NewSender creates a Sender backed by repo.
func NewSender(repo Repository, cfg SenderConfig, log zerolog.Logger) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BurstAttempts <= 0 {
		cfg.BurstAttempts = DefaultBurstAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Sender{
		repo:   repo,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Deliver serializes ev, creates a delivery log entry, and attempts the HTTP
// POST. On failure it retries with a fixed short delay, up to the burst cap
// and the endpoint's max retries. Each attempt is persisted. A failed but
// non-terminal cycle schedules a longer-horizon retry via NextRetryAt.
//
// The returned error covers bookkeeping failures only; a delivery that ends
// in failure is reported through the log entry, not the error.
func (s *Sender) Deliver(ctx context.Context, e Endpoint, ev event.Event) (DeliveryLog, error) {
	payload, err := ev.Bytes()
	if err != nil {
		return DeliveryLog{}, fmt.Errorf("serializing event: %w", err)
	}

	maxRetries := e.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	backoff := e.BackoffSeconds
	if backoff <= 0 {
		backoff = DefaultBackoffSeconds
	}

	l := DeliveryLog{
		ID:             uuid.New().String(),
		EndpointID:     e.ID,
		UserID:         e.UserID,
		TargetURL:      e.URL,
		EventType:      ev.Type,
		Payload:        payload,
		RequestID:      uuid.New().String(),
		Signature:      e.SignPayload(payload),
		MaxRetries:     maxRetries,
		BackoffSeconds: backoff,
		CreatedAt:      s.now(),
		SentAt:         s.now(),
	}

	if err := s.repo.StoreDelivery(ctx, l); err != nil {
		return DeliveryLog{}, fmt.Errorf("storing delivery log: %w", err)
	}

	for i := 0; i < s.cfg.BurstAttempts && l.Attempt < l.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return l, ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
		}

		s.attempt(ctx, &l)
		if err := s.repo.UpdateDelivery(ctx, l); err != nil {
			return l, fmt.Errorf("updating delivery log: %w", err)
		}
		if l.Success {
			return l, nil
		}
	}

	l.ScheduleRetry(s.now())
	if err := s.repo.UpdateDelivery(ctx, l); err != nil {
		return l, fmt.Errorf("updating delivery log: %w", err)
	}

	s.log.Warn().
		Str("delivery_id", l.ID).
		Str("endpoint_id", l.EndpointID).
		Str("event_type", l.EventType).
		Int("attempt", l.Attempt).
		Bool("terminal", l.Terminal()).
		Str("error", l.ErrorMessage).
		Msg("delivery failed")

	return l, nil
}

// Retry performs one more attempt for a previously failed delivery and
// reschedules or finalizes it. The endpoint is re-read so a rotated secret or
// changed URL applies to the retry; a deleted or deactivated endpoint
// finalizes the entry instead.
func (s *Sender) Retry(ctx context.Context, l DeliveryLog) (DeliveryLog, error) {
	if l.Terminal() {
		return l, nil
	}

	e, err := s.repo.GetEndpoint(ctx, l.EndpointID)
	if err != nil || !e.Active {
		l.MarkFailure(l.ResponseCode, l.ResponseBody, "endpoint no longer active", 0)
		l.NextRetryAt = nil
		if uerr := s.repo.UpdateDelivery(ctx, l); uerr != nil {
			return l, fmt.Errorf("updating delivery log: %w", uerr)
		}
		return l, nil
	}

	l.TargetURL = e.URL
	l.Signature = e.SignPayload(l.Payload)

	s.attempt(ctx, &l)
	if !l.Success {
		l.ScheduleRetry(s.now())
	}
	if err := s.repo.UpdateDelivery(ctx, l); err != nil {
		return l, fmt.Errorf("updating delivery log: %w", err)
	}
	return l, nil
}

// attempt runs one HTTP POST and marks the log entry with the outcome.
func (s *Sender) attempt(ctx context.Context, l *DeliveryLog) {
	l.MarkAttempt(s.now())

	start := s.now()
	code, body, err := s.post(ctx, l)
	duration := s.now().Sub(start)

	switch {
	case err != nil:
		l.MarkFailure(0, "", err.Error(), duration)
	case code >= 200 && code < 300:
		l.MarkSuccess(code, body, duration)
	default:
		l.MarkFailure(code, body, fmt.Sprintf("non-2xx status: %d", code), duration)
	}
}

// post performs the bounded HTTP call itself.
func (s *Sender) post(ctx context.Context, l *DeliveryLog) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.TargetURL, bytes.NewReader(l.Payload))
	if err != nil {
		return 0, "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", l.RequestID)
	if l.Signature != "" {
		req.Header.Set(signature.Header, l.Signature)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return res.StatusCode, "", fmt.Errorf("reading response: %w", err)
	}
	return res.StatusCode, string(body), nil
}

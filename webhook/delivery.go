package webhook

import (
	"time"
)

/* DeliveryLog records one outbound delivery and its retry state.
 * Created on the first attempt; mutated on each retry (attempt increments,
 * response fields overwritten). Terminal when Success is true or when the
 * entry has been attempted and no further retry is scheduled, at which point
 * NextRetryAt is nil. Attempt always reflects the real number of attempts.
 */
type DeliveryLog struct {
	ID         string
	EndpointID string
	UserID     int64
	TargetURL  string
	EventType  string
	Payload    []byte
	RequestID  string
	Signature  string

	ResponseCode int
	ResponseBody string
	ErrorMessage string

	Success        bool
	Attempt        int
	MaxRetries     int
	BackoffSeconds int
	NextRetryAt    *time.Time
	DurationMS     int64

	SentAt    time.Time
	CreatedAt time.Time
}

// MarkAttempt records that another attempt was made at sentAt.
func (l *DeliveryLog) MarkAttempt(sentAt time.Time) {
	l.Attempt++
	l.SentAt = sentAt
}

// MarkSuccess records a successful delivery and clears retry state.
func (l *DeliveryLog) MarkSuccess(statusCode int, body string, duration time.Duration) {
	l.Success = true
	l.ResponseCode = statusCode
	l.ResponseBody = body
	l.ErrorMessage = ""
	l.DurationMS = duration.Milliseconds()
	l.NextRetryAt = nil
}

// MarkFailure records a failed attempt. statusCode is zero for transport
// errors that produced no HTTP response.
func (l *DeliveryLog) MarkFailure(statusCode int, body, errMsg string, duration time.Duration) {
	l.Success = false
	l.ResponseCode = statusCode
	l.ResponseBody = body
	if errMsg != "" {
		if len(errMsg) > 255 {
			errMsg = errMsg[:255]
		}
		l.ErrorMessage = errMsg
	}
	l.DurationMS = duration.Milliseconds()
}

// ScheduleRetry computes the next retry time with exponential backoff:
// now + backoff * 2^(attempt-1). Once the attempt count has reached
// MaxRetries no further retry is scheduled and NextRetryAt is cleared,
// making the entry terminal.
func (l *DeliveryLog) ScheduleRetry(now time.Time) {
	if l.Attempt >= l.MaxRetries {
		l.NextRetryAt = nil
		return
	}
	exp := l.Attempt - 1
	if exp < 0 {
		exp = 0
	}
	delay := time.Duration(l.BackoffSeconds) * time.Second * (1 << uint(exp))
	next := now.Add(delay)
	l.NextRetryAt = &next
}

// Terminal reports whether the entry has reached a final state: delivered,
// or attempted and failed with no further retry scheduled. Covers both
// exhausted retries and entries abandoned early, without touching Attempt.
func (l *DeliveryLog) Terminal() bool {
	return l.Success || (l.Attempt > 0 && l.NextRetryAt == nil)
}

// Status derives the lifecycle state for observability.
func (l *DeliveryLog) Status() Status {
	switch {
	case l.Success:
		return Delivered
	case l.Attempt == 0:
		return Pending
	case l.NextRetryAt != nil:
		return Retrying
	default:
		return Failed
	}
}

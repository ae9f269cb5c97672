package webhook_test

import (
	"testing"
	"time"

	"github.com/Juzanki/smartbiz-hub/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRetry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first retry waits backoff seconds", func(t *testing.T) {
		l := webhook.DeliveryLog{Attempt: 1, MaxRetries: 3, BackoffSeconds: 30}
		l.ScheduleRetry(now)

		require.NotNil(t, l.NextRetryAt)
		assert.Equal(t, now.Add(30*time.Second), *l.NextRetryAt)
	})

	t.Run("second retry doubles the delay", func(t *testing.T) {
		l := webhook.DeliveryLog{Attempt: 2, MaxRetries: 3, BackoffSeconds: 30}
		l.ScheduleRetry(now)

		require.NotNil(t, l.NextRetryAt)
		assert.Equal(t, now.Add(60*time.Second), *l.NextRetryAt)
	})

	t.Run("exhausted attempts clear the schedule", func(t *testing.T) {
		next := now.Add(time.Minute)
		l := webhook.DeliveryLog{Attempt: 3, MaxRetries: 3, BackoffSeconds: 30, NextRetryAt: &next}
		l.ScheduleRetry(now)

		assert.Nil(t, l.NextRetryAt)
		assert.True(t, l.Terminal())
	})

	t.Run("attempt beyond max also clears", func(t *testing.T) {
		l := webhook.DeliveryLog{Attempt: 5, MaxRetries: 3, BackoffSeconds: 30}
		l.ScheduleRetry(now)
		assert.Nil(t, l.NextRetryAt)
	})
}

func TestMarkSuccessFailure(t *testing.T) {
	t.Run("success clears retry state and error", func(t *testing.T) {
		next := time.Now().Add(time.Minute)
		l := webhook.DeliveryLog{Attempt: 2, MaxRetries: 3, ErrorMessage: "boom", NextRetryAt: &next}

		l.MarkSuccess(200, `{"ok":true}`, 120*time.Millisecond)

		assert.True(t, l.Success)
		assert.Equal(t, 200, l.ResponseCode)
		assert.Equal(t, `{"ok":true}`, l.ResponseBody)
		assert.Empty(t, l.ErrorMessage)
		assert.Nil(t, l.NextRetryAt)
		assert.EqualValues(t, 120, l.DurationMS)
		assert.True(t, l.Terminal())
	})

	t.Run("failure records response and truncates long errors", func(t *testing.T) {
		l := webhook.DeliveryLog{}
		long := make([]byte, 400)
		for i := range long {
			long[i] = 'x'
		}

		l.MarkFailure(500, "oops", string(long), 50*time.Millisecond)

		assert.False(t, l.Success)
		assert.Equal(t, 500, l.ResponseCode)
		assert.Equal(t, "oops", l.ResponseBody)
		assert.Len(t, l.ErrorMessage, 255)
	})

	t.Run("failure keeps previous error when none given", func(t *testing.T) {
		l := webhook.DeliveryLog{ErrorMessage: "previous"}
		l.MarkFailure(502, "", "", 0)
		assert.Equal(t, "previous", l.ErrorMessage)
	})
}

func TestTerminal(t *testing.T) {
	next := time.Now().Add(time.Minute)

	t.Run("fresh entry is not terminal", func(t *testing.T) {
		l := webhook.DeliveryLog{MaxRetries: 3}
		assert.False(t, l.Terminal())
	})

	t.Run("scheduled entry is not terminal", func(t *testing.T) {
		l := webhook.DeliveryLog{Attempt: 1, MaxRetries: 3, NextRetryAt: &next}
		assert.False(t, l.Terminal())
	})

	t.Run("failed entry with no schedule is terminal before exhaustion", func(t *testing.T) {
		l := webhook.DeliveryLog{Attempt: 1, MaxRetries: 3}
		assert.True(t, l.Terminal())
	})
}

func TestMarkAttempt(t *testing.T) {
	l := webhook.DeliveryLog{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l.MarkAttempt(at)
	l.MarkAttempt(at.Add(time.Second))

	assert.Equal(t, 2, l.Attempt)
	assert.Equal(t, at.Add(time.Second), l.SentAt)
}

func TestDeliveryStatus(t *testing.T) {
	next := time.Now().Add(time.Minute)

	cases := []struct {
		name string
		log  webhook.DeliveryLog
		want webhook.Status
	}{
		{"fresh entry is pending", webhook.DeliveryLog{MaxRetries: 3}, webhook.Pending},
		{"scheduled entry is retrying", webhook.DeliveryLog{Attempt: 1, MaxRetries: 3, NextRetryAt: &next}, webhook.Retrying},
		{"delivered", webhook.DeliveryLog{Attempt: 1, MaxRetries: 3, Success: true}, webhook.Delivered},
		{"exhausted is failed", webhook.DeliveryLog{Attempt: 3, MaxRetries: 3}, webhook.Failed},
		{"abandoned before exhaustion is failed", webhook.DeliveryLog{Attempt: 1, MaxRetries: 3}, webhook.Failed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.log.Status())
		})
	}
}

func TestStatus(t *testing.T) {
	t.Run("string round trip", func(t *testing.T) {
		for _, s := range []webhook.Status{webhook.Pending, webhook.Retrying, webhook.Delivered, webhook.Failed} {
			assert.Equal(t, s, webhook.NewStatus(s.String()))
		}
	})

	t.Run("unknown string defaults to pending", func(t *testing.T) {
		assert.Equal(t, webhook.Pending, webhook.NewStatus("bogus"))
	})

	t.Run("final states", func(t *testing.T) {
		assert.True(t, webhook.Delivered.IsFinal())
		assert.True(t, webhook.Failed.IsFinal())
		assert.False(t, webhook.Retrying.IsFinal())
		assert.False(t, webhook.Pending.IsFinal())
	})

	t.Run("validate rejects out of range", func(t *testing.T) {
		require.Error(t, webhook.Status(99).Validate())
		require.NoError(t, webhook.Delivered.Validate())
	})
}

func TestEndpointValidate(t *testing.T) {
	valid := webhook.Endpoint{URL: "https://example.com/hook", MaxRetries: 3, BackoffSeconds: 30}

	t.Run("success", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})

	t.Run("error - empty url", func(t *testing.T) {
		e := valid
		e.URL = ""
		require.Error(t, e.Validate())
	})

	t.Run("error - non-http url", func(t *testing.T) {
		e := valid
		e.URL = "ftp://example.com"
		require.Error(t, e.Validate())
	})

	t.Run("error - negative retries", func(t *testing.T) {
		e := valid
		e.MaxRetries = -1
		require.Error(t, e.Validate())
	})

	t.Run("error - bad subscription", func(t *testing.T) {
		e := valid
		e.SubscribedEvents = []string{"gift sent"}
		require.Error(t, e.Validate())
	})
}

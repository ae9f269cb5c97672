package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Juzanki/smartbiz-hub/event"
	"github.com/Juzanki/smartbiz-hub/webhook"
	"github.com/Juzanki/smartbiz-hub/webhook/mocks"
	"github.com/Juzanki/smartbiz-hub/webhook/signature"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSender(repo webhook.Repository) *webhook.Sender {
	return webhook.NewSender(repo, webhook.SenderConfig{
		Timeout:    2 * time.Second,
		RetryDelay: time.Millisecond,
	}, zerolog.Nop())
}

func testEvent(t *testing.T) event.Event {
	t.Helper()
	ev, err := event.New("gift.sent", map[string]interface{}{"gift_id": 7, "stream_id": 42})
	require.NoError(t, err)
	return ev
}

func permissiveRepo(t *testing.T) *mocks.Repository {
	repo := mocks.NewRepository(t)
	repo.On("StoreDelivery", mock.Anything, mock.Anything).Return(nil).Maybe()
	repo.On("UpdateDelivery", mock.Anything, mock.Anything).Return(nil).Maybe()
	return repo
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("success - 2xx on first attempt", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"received":true}`))
		}))
		defer srv.Close()

		e := webhook.Endpoint{ID: "ep-1", UserID: 9, URL: srv.URL, Active: true, MaxRetries: 3, BackoffSeconds: 30}
		l, err := testSender(permissiveRepo(t)).Deliver(ctx, e, testEvent(t))

		require.NoError(t, err)
		assert.True(t, l.Success)
		assert.Equal(t, 1, l.Attempt)
		assert.Equal(t, http.StatusOK, l.ResponseCode)
		assert.Equal(t, `{"received":true}`, l.ResponseBody)
		assert.Nil(t, l.NextRetryAt)
		assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	})

	t.Run("signed endpoint sends verifiable X-Signature", func(t *testing.T) {
		var gotSig string
		var gotBody []byte
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotSig = r.Header.Get("X-Signature")
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		e := webhook.Endpoint{ID: "ep-1", URL: srv.URL, Secret: "topsecret", Active: true}
		_, err := testSender(permissiveRepo(t)).Deliver(ctx, e, testEvent(t))

		require.NoError(t, err)
		require.NotEmpty(t, gotSig)
		assert.True(t, signature.Verify("topsecret", gotBody, gotSig))
	})

	t.Run("unsigned endpoint omits X-Signature", func(t *testing.T) {
		var hasSig bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasSig = r.Header["X-Signature"]
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		e := webhook.Endpoint{ID: "ep-1", URL: srv.URL, Active: true}
		_, err := testSender(permissiveRepo(t)).Deliver(ctx, e, testEvent(t))

		require.NoError(t, err)
		assert.False(t, hasSig)
	})

	t.Run("scenario - 500 three times with max_retries 3 is terminal", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		e := webhook.Endpoint{ID: "ep-1", URL: srv.URL, Active: true, MaxRetries: 3, BackoffSeconds: 30}
		l, err := testSender(permissiveRepo(t)).Deliver(ctx, e, testEvent(t))

		require.NoError(t, err)
		assert.False(t, l.Success)
		assert.Equal(t, 3, l.Attempt)
		assert.Nil(t, l.NextRetryAt)
		assert.True(t, l.Terminal())
		assert.Equal(t, http.StatusInternalServerError, l.ResponseCode)
		assert.Contains(t, l.ErrorMessage, "non-2xx status: 500")
		assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
	})

	t.Run("capped burst schedules a longer-horizon retry", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		sender := webhook.NewSender(permissiveRepo(t), webhook.SenderConfig{
			Timeout:       2 * time.Second,
			BurstAttempts: 1,
			RetryDelay:    time.Millisecond,
		}, zerolog.Nop())

		e := webhook.Endpoint{ID: "ep-1", URL: srv.URL, Active: true, MaxRetries: 5, BackoffSeconds: 30}
		l, err := sender.Deliver(ctx, e, testEvent(t))

		require.NoError(t, err)
		assert.False(t, l.Success)
		assert.Equal(t, 1, l.Attempt)
		require.NotNil(t, l.NextRetryAt)
		assert.False(t, l.Terminal())
	})

	t.Run("transport error records message, no status code", func(t *testing.T) {
		e := webhook.Endpoint{ID: "ep-1", URL: "http://127.0.0.1:1", Active: true, MaxRetries: 1}
		l, err := testSender(permissiveRepo(t)).Deliver(ctx, e, testEvent(t))

		require.NoError(t, err)
		assert.False(t, l.Success)
		assert.Equal(t, 0, l.ResponseCode)
		assert.NotEmpty(t, l.ErrorMessage)
	})

	t.Run("recovers on a later in-call attempt", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&hits, 1) < 2 {
				http.Error(w, "boom", http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		e := webhook.Endpoint{ID: "ep-1", URL: srv.URL, Active: true, MaxRetries: 3}
		l, err := testSender(permissiveRepo(t)).Deliver(ctx, e, testEvent(t))

		require.NoError(t, err)
		assert.True(t, l.Success)
		assert.Equal(t, 2, l.Attempt)
		assert.Equal(t, http.StatusAccepted, l.ResponseCode)
	})

	t.Run("every attempt is persisted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		repo := mocks.NewRepository(t)
		repo.On("StoreDelivery", mock.Anything, webhook.MatchDelivery(func(l webhook.DeliveryLog) bool {
			return l.Attempt == 0 && !l.Success
		})).Return(nil).Once()
		// Three attempt updates plus the final schedule update.
		repo.On("UpdateDelivery", mock.Anything, mock.Anything).Return(nil).Times(4)

		e := webhook.Endpoint{ID: "ep-1", URL: srv.URL, Active: true, MaxRetries: 3}
		_, err := testSender(repo).Deliver(ctx, e, testEvent(t))
		require.NoError(t, err)
	})
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("successful retry finalizes the entry", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		repo := permissiveRepo(t)
		e := webhook.Endpoint{ID: "ep-1", URL: srv.URL, Active: true, MaxRetries: 3}
		repo.On("GetEndpoint", mock.Anything, "ep-1").Return(e, nil)

		next := time.Now().Add(-time.Minute)
		l := webhook.DeliveryLog{
			ID: "d-1", EndpointID: "ep-1", TargetURL: srv.URL,
			Payload: []byte(`{"type":"gift.sent","timestamp":"2026-03-01T12:00:00Z","data":{}}`),
			Attempt: 1, MaxRetries: 3, BackoffSeconds: 30, NextRetryAt: &next,
		}

		updated, err := testSender(repo).Retry(ctx, l)

		require.NoError(t, err)
		assert.True(t, updated.Success)
		assert.Equal(t, 2, updated.Attempt)
		assert.Nil(t, updated.NextRetryAt)
	})

	t.Run("failed retry reschedules until exhausted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		repo := permissiveRepo(t)
		e := webhook.Endpoint{ID: "ep-1", URL: srv.URL, Active: true, MaxRetries: 3}
		repo.On("GetEndpoint", mock.Anything, "ep-1").Return(e, nil)

		next := time.Now().Add(-time.Minute)
		l := webhook.DeliveryLog{
			ID: "d-1", EndpointID: "ep-1", TargetURL: srv.URL,
			Payload: []byte(`{}`),
			Attempt: 1, MaxRetries: 3, BackoffSeconds: 30, NextRetryAt: &next,
		}

		updated, err := testSender(repo).Retry(ctx, l)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Attempt)
		require.NotNil(t, updated.NextRetryAt)

		updated, err = testSender(repo).Retry(ctx, updated)
		require.NoError(t, err)
		assert.Equal(t, 3, updated.Attempt)
		assert.Nil(t, updated.NextRetryAt)
		assert.True(t, updated.Terminal())
	})

	t.Run("deactivated endpoint finalizes without an attempt", func(t *testing.T) {
		repo := permissiveRepo(t)
		repo.On("GetEndpoint", mock.Anything, "ep-1").
			Return(webhook.Endpoint{ID: "ep-1", Active: false}, nil)

		next := time.Now().Add(-time.Minute)
		l := webhook.DeliveryLog{
			ID: "d-1", EndpointID: "ep-1", TargetURL: "http://example.com",
			Payload: []byte(`{}`),
			Attempt: 1, MaxRetries: 3, NextRetryAt: &next,
		}

		updated, err := testSender(repo).Retry(ctx, l)

		require.NoError(t, err)
		assert.False(t, updated.Success)
		assert.True(t, updated.Terminal())
		assert.Equal(t, "endpoint no longer active", updated.ErrorMessage)
		// The attempt count stays truthful: no attempt was made here.
		assert.Equal(t, 1, updated.Attempt)
		assert.Nil(t, updated.NextRetryAt)
		assert.Equal(t, webhook.Failed, updated.Status())
	})

	t.Run("terminal entry is left alone", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		l := webhook.DeliveryLog{ID: "d-1", Success: true, Attempt: 1, MaxRetries: 3}

		updated, err := testSender(repo).Retry(ctx, l)

		require.NoError(t, err)
		assert.Equal(t, l, updated)
	})
}

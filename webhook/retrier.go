package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval is how often the retrier scans for due deliveries.
	DefaultPollInterval = 30 * time.Second

	// DefaultRetryBatch caps how many due deliveries one poll cycle re-attempts.
	DefaultRetryBatch = 50
)

// Retryer abstracts the single-attempt retry used by the poller
type Retryer interface {
	Retry(ctx context.Context, l DeliveryLog) (DeliveryLog, error)
}

// Retrier drives the longer-horizon retry schedule: it periodically polls the
// delivery log for entries whose NextRetryAt has come due and re-attempts each
// once. Exhausted entries stay in the log as terminal failures; there is no
// dead-letter escalation.
type Retrier struct {
	repo     DeliveryReader
	retryer  Retryer
	interval time.Duration
	batch    int
	cron     *cron.Cron
	running  sync.Mutex
	log      zerolog.Logger
}

// NewRetrier creates a Retrier polling every interval. Non-positive interval
// or batch fall back to defaults.
func NewRetrier(repo DeliveryReader, retryer Retryer, interval time.Duration, batch int, log zerolog.Logger) *Retrier {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if batch <= 0 {
		batch = DefaultRetryBatch
	}
	return &Retrier{
		repo:     repo,
		retryer:  retryer,
		interval: interval,
		batch:    batch,
		cron:     cron.New(),
		log:      log,
	}
}

// Start schedules the poll job and begins running it in the background.
func (r *Retrier) Start(ctx context.Context) {
	r.cron.Schedule(cron.Every(r.interval), cron.FuncJob(func() {
		r.RunOnce(ctx)
	}))
	r.cron.Start()
	r.log.Info().Dur("interval", r.interval).Msg("retry poller started")
}

// Stop halts the poll schedule and waits for a running cycle to finish.
func (r *Retrier) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info().Msg("retry poller stopped")
}

// RunOnce processes one batch of due deliveries. Exposed for tests and for
// callers that want a manual drain. Cycles never overlap: an entry stays
// listed as due until its attempt finishes and is persisted, so a second
// concurrent cycle would re-attempt the same deliveries. An invocation that
// finds a cycle still running skips instead.
func (r *Retrier) RunOnce(ctx context.Context) int {
	if !r.running.TryLock() {
		r.log.Debug().Msg("previous retry cycle still running, skipping")
		return 0
	}
	defer r.running.Unlock()

	due, err := r.repo.DueRetries(ctx, time.Now(), r.batch)
	if err != nil {
		r.log.Error().Err(err).Msg("listing due retries")
		return 0
	}

	retried := 0
	for _, l := range due {
		select {
		case <-ctx.Done():
			return retried
		default:
		}

		updated, err := r.retryer.Retry(ctx, l)
		if err != nil {
			r.log.Error().Str("delivery_id", l.ID).Err(err).Msg("retry bookkeeping failed")
			continue
		}
		retried++

		evt := r.log.Debug()
		if updated.Terminal() && !updated.Success {
			evt = r.log.Warn()
		}
		evt.Str("delivery_id", updated.ID).
			Str("endpoint_id", updated.EndpointID).
			Int("attempt", updated.Attempt).
			Bool("success", updated.Success).
			Bool("terminal", updated.Terminal()).
			Msg("retry attempted")
	}
	return retried
}

package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/Juzanki/smartbiz-hub/event"
	"github.com/Juzanki/smartbiz-hub/webhook/signature"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the business operations for endpoint management and event
// fan-out
type UseCase interface {
	RegisterEndpoint(ctx context.Context, e Endpoint) (Endpoint, error)
	GetEndpoint(ctx context.Context, id string) (Endpoint, error)
	ListEndpoints(ctx context.Context, userID int64) ([]Endpoint, error)
	UpdateEndpoint(ctx context.Context, e Endpoint) (Endpoint, error)
	DeleteEndpoint(ctx context.Context, id string) error
	RotateSecret(ctx context.Context, id string) (Endpoint, error)
	Deliveries(ctx context.Context, endpointID string, limit int) ([]DeliveryLog, error)
	Emit(ctx context.Context, userID int64, ev event.Event) (int, error)
}

// Deliverer abstracts the HTTP sender so the service can be tested without
// network I/O
type Deliverer interface {
	Deliver(ctx context.Context, e Endpoint, ev event.Event) (DeliveryLog, error)
}

type Service struct {
	Repo      Repository
	Deliverer Deliverer
	Log       zerolog.Logger
}

// NewService creates a new webhook service with dependency injection
func NewService(repo Repository, deliverer Deliverer, log zerolog.Logger) *Service {
	return &Service{
		Repo:      repo,
		Deliverer: deliverer,
		Log:       log,
	}
}

// RegisterEndpoint validates and stores a new endpoint. A missing secret is
// generated so every endpoint can sign its deliveries by default.
func (s *Service) RegisterEndpoint(ctx context.Context, e Endpoint) (Endpoint, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = DefaultMaxRetries
	}
	if e.BackoffSeconds == 0 {
		e.BackoffSeconds = DefaultBackoffSeconds
	}
	if e.Secret == "" {
		secret, err := signature.GenerateSecret()
		if err != nil {
			return Endpoint{}, fmt.Errorf("generating secret: %w", err)
		}
		e.Secret = secret
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt

	if err := e.Validate(); err != nil {
		return Endpoint{}, fmt.Errorf("validating endpoint: %w", err)
	}

	if err := s.Repo.StoreEndpoint(ctx, e); err != nil {
		return Endpoint{}, fmt.Errorf("storing endpoint: %w", err)
	}
	return e, nil
}

// GetEndpoint retrieves an endpoint by ID
func (s *Service) GetEndpoint(ctx context.Context, id string) (Endpoint, error) {
	e, err := s.Repo.GetEndpoint(ctx, id)
	if err != nil {
		return Endpoint{}, fmt.Errorf("getting endpoint: %w", err)
	}
	return e, nil
}

// ListEndpoints returns every endpoint registered by a user
func (s *Service) ListEndpoints(ctx context.Context, userID int64) ([]Endpoint, error) {
	list, err := s.Repo.ListEndpointsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints: %w", err)
	}
	return list, nil
}

// UpdateEndpoint validates and persists changes to an existing endpoint
func (s *Service) UpdateEndpoint(ctx context.Context, e Endpoint) (Endpoint, error) {
	if err := e.Validate(); err != nil {
		return Endpoint{}, fmt.Errorf("validating endpoint: %w", err)
	}
	e.UpdatedAt = time.Now()
	if err := s.Repo.UpdateEndpoint(ctx, e); err != nil {
		return Endpoint{}, fmt.Errorf("updating endpoint: %w", err)
	}
	return e, nil
}

// DeleteEndpoint removes an endpoint; its delivery logs are kept for auditing
func (s *Service) DeleteEndpoint(ctx context.Context, id string) error {
	if err := s.Repo.DeleteEndpoint(ctx, id); err != nil {
		return fmt.Errorf("deleting endpoint: %w", err)
	}
	return nil
}

// RotateSecret generates and stores a fresh signing secret for an endpoint
func (s *Service) RotateSecret(ctx context.Context, id string) (Endpoint, error) {
	e, err := s.Repo.GetEndpoint(ctx, id)
	if err != nil {
		return Endpoint{}, fmt.Errorf("getting endpoint: %w", err)
	}
	secret, err := signature.GenerateSecret()
	if err != nil {
		return Endpoint{}, fmt.Errorf("generating secret: %w", err)
	}
	e.Secret = secret
	e.UpdatedAt = time.Now()
	if err := s.Repo.UpdateEndpoint(ctx, e); err != nil {
		return Endpoint{}, fmt.Errorf("updating endpoint: %w", err)
	}
	return e, nil
}

// Deliveries returns the most recent delivery log rows for an endpoint
func (s *Service) Deliveries(ctx context.Context, endpointID string, limit int) ([]DeliveryLog, error) {
	logs, err := s.Repo.ListDeliveriesByEndpoint(ctx, endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	return logs, nil
}

// Emit fans an event out to every active endpoint of the user whose
// subscription matches the event type. Deliveries run fire-and-forget:
// failures surface only through the persisted delivery log, never back to the
// emitter. Returns the number of endpoints targeted.
func (s *Service) Emit(ctx context.Context, userID int64, ev event.Event) (int, error) {
	if err := ev.Validate(); err != nil {
		return 0, fmt.Errorf("validating event: %w", err)
	}

	endpoints, err := s.Repo.ListActiveEndpoints(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("listing active endpoints: %w", err)
	}

	// Deliveries outlive the emitting request.
	bg := context.WithoutCancel(ctx)

	targeted := 0
	for _, e := range endpoints {
		if !e.Accepts(ev) {
			continue
		}
		targeted++
		go func(e Endpoint) {
			if _, err := s.Deliverer.Deliver(bg, e, ev); err != nil {
				s.Log.Error().
					Str("endpoint_id", e.ID).
					Str("event_type", ev.Type).
					Err(err).
					Msg("delivery bookkeeping failed")
			}
		}(e)
	}
	return targeted, nil
}

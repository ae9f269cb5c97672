package webhook

import (
	"context"
	"time"
)

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// EndpointReader provides read operations for webhook endpoints
type EndpointReader interface {
	GetEndpoint(ctx context.Context, id string) (Endpoint, error)
	ListEndpointsByUser(ctx context.Context, userID int64) ([]Endpoint, error)
	// ListActiveEndpoints returns every active endpoint for a user,
	// the candidate set for an event fan-out.
	ListActiveEndpoints(ctx context.Context, userID int64) ([]Endpoint, error)
}

// EndpointWriter provides write operations for webhook endpoints
type EndpointWriter interface {
	StoreEndpoint(ctx context.Context, e Endpoint) error
	UpdateEndpoint(ctx context.Context, e Endpoint) error
	DeleteEndpoint(ctx context.Context, id string) error
}

// DeliveryReader provides read access to delivery log rows, the consumer
// interface for dashboards and external retry tooling
type DeliveryReader interface {
	GetDelivery(ctx context.Context, id string) (DeliveryLog, error)
	ListDeliveriesByEndpoint(ctx context.Context, endpointID string, limit int) ([]DeliveryLog, error)
	/* DueRetries returns non-terminal failed deliveries whose NextRetryAt
	 * is at or before now, oldest first, capped at limit
	 */
	DueRetries(ctx context.Context, now time.Time, limit int) ([]DeliveryLog, error)
	CountDeliveriesByStatus(ctx context.Context) (map[string]int64, error)
}

// DeliveryWriter provides write operations for delivery log rows
type DeliveryWriter interface {
	/* StoreDelivery persists a log entry and maintains the retry index:
	 * entries with NextRetryAt set are scheduled, terminal entries are
	 * removed from the index
	 */
	StoreDelivery(ctx context.Context, l DeliveryLog) error
	UpdateDelivery(ctx context.Context, l DeliveryLog) error
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Repository interface {
	EndpointReader
	EndpointWriter
	DeliveryReader
	DeliveryWriter
	Close(ctx context.Context) error
}

package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the streaming and delivery system.
type Metrics struct {
	// RoomCounts maps stream room ID to the number of live connections
	RoomCounts map[string]int64 `json:"room_counts"`

	// StatusCounts maps delivery status name to count of delivery logs
	StatusCounts map[string]int64 `json:"status_counts"`

	// DueRetries is the number of deliveries waiting for a scheduled retry
	DueRetries int64 `json:"due_retries"`

	// Viewers maps stream ID to the viewers present according to Redis
	Viewers map[string][]ViewerInfo `json:"viewers"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// ViewerInfo represents a viewer present in a live stream.
type ViewerInfo struct {
	// UserID identifies the viewer
	UserID int64 `json:"user_id"`

	// StreamID is the stream the viewer is watching
	StreamID string `json:"stream_id"`

	// JoinedAt is when the viewer connected
	JoinedAt time.Time `json:"joined_at"`

	// LastSeen is the timestamp of the last presence refresh
	LastSeen time.Time `json:"last_seen"`
}

// Collector defines the interface for collecting metrics from the system.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetRoomCounts returns the number of live connections per stream room
	GetRoomCounts(ctx context.Context) (map[string]int64, error)

	// GetStatusCounts returns the count of delivery logs by status
	GetStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetDueRetries returns the number of deliveries due for a retry
	GetDueRetries(ctx context.Context) (int64, error)

	// GetViewers returns the viewers present per stream
	GetViewers(ctx context.Context) (map[string][]ViewerInfo, error)
}

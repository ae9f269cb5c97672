package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/Juzanki/smartbiz-hub/webhook/redis"
)

// RoomCounter is the view of the connection hub the collector needs.
type RoomCounter interface {
	Rooms() []string
	Count(roomID string) int
}

// Store is the view of the Redis repository the collector needs.
type Store interface {
	CountDeliveriesByStatus(ctx context.Context) (map[string]int64, error)
	CountDueRetries(ctx context.Context, now time.Time) (int64, error)
	ListViewersByStream(ctx context.Context) (map[string][]redis.ViewerPresence, error)
}

// SystemCollector implements the Collector interface over the in-process
// connection hub and the Redis-backed delivery store
type SystemCollector struct {
	rooms RoomCounter
	store Store
}

// NewSystemCollector creates a new system metrics collector
func NewSystemCollector(rooms RoomCounter, store Store) *SystemCollector {
	return &SystemCollector{
		rooms: rooms,
		store: store,
	}
}

// Collect gathers all metrics
func (c *SystemCollector) Collect(ctx context.Context) (Metrics, error) {
	roomCounts, err := c.GetRoomCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting room counts: %w", err)
	}

	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting status counts: %w", err)
	}

	dueRetries, err := c.GetDueRetries(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting due retries: %w", err)
	}

	viewers, err := c.GetViewers(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting viewers: %w", err)
	}

	return Metrics{
		RoomCounts:   roomCounts,
		StatusCounts: statusCounts,
		DueRetries:   dueRetries,
		Viewers:      viewers,
		Timestamp:    time.Now(),
	}, nil
}

// GetRoomCounts returns the number of live connections in each stream room
func (c *SystemCollector) GetRoomCounts(ctx context.Context) (map[string]int64, error) {
	roomCounts := make(map[string]int64)
	for _, room := range c.rooms.Rooms() {
		roomCounts[room] = int64(c.rooms.Count(room))
	}
	return roomCounts, nil
}

// GetStatusCounts returns counts of delivery logs grouped by status
func (c *SystemCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := c.store.CountDeliveriesByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting deliveries: %w", err)
	}
	return counts, nil
}

// GetDueRetries returns how many deliveries currently wait for a retry
func (c *SystemCollector) GetDueRetries(ctx context.Context) (int64, error) {
	n, err := c.store.CountDueRetries(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("counting due retries: %w", err)
	}
	return n, nil
}

// GetViewers returns the viewers present per stream according to Redis
func (c *SystemCollector) GetViewers(ctx context.Context) (map[string][]ViewerInfo, error) {
	byStream, err := c.store.ListViewersByStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing viewers: %w", err)
	}

	viewers := make(map[string][]ViewerInfo, len(byStream))
	for streamID, list := range byStream {
		for _, p := range list {
			viewers[streamID] = append(viewers[streamID], ViewerInfo{
				UserID:   p.UserID,
				StreamID: p.StreamID,
				JoinedAt: p.JoinedAt,
				LastSeen: p.LastSeen,
			})
		}
	}
	return viewers, nil
}

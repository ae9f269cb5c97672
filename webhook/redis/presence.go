package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewerPresence represents a viewer's presence record for a live stream
type ViewerPresence struct {
	UserID   int64     `json:"user_id"`
	StreamID string    `json:"stream_id"`
	JoinedAt time.Time `json:"joined_at"`
	LastSeen time.Time `json:"last_seen"`
}

const presenceTTL = 60 * time.Second

// SetViewerPresence stores or refreshes a viewer's presence record.
// The key has a 60 second TTL; a viewer whose connection stops answering
// pings falls out of the presence set on its own.
func (r *Repository) SetViewerPresence(ctx context.Context, streamID string, userID int64, joinedAt time.Time) error {
	key := fmt.Sprintf("presence:%s:%d", streamID, userID)

	presence := ViewerPresence{
		UserID:   userID,
		StreamID: streamID,
		JoinedAt: joinedAt,
		LastSeen: time.Now(),
	}

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("marshaling presence: %w", err)
	}

	if err := r.client.Set(ctx, key, data, presenceTTL).Err(); err != nil {
		return fmt.Errorf("setting presence: %w", err)
	}

	return nil
}

// ClearViewerPresence removes a viewer's presence record on a clean disconnect
func (r *Repository) ClearViewerPresence(ctx context.Context, streamID string, userID int64) error {
	key := fmt.Sprintf("presence:%s:%d", streamID, userID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clearing presence: %w", err)
	}
	return nil
}

// ListViewers retrieves the presence records of all live viewers of a stream
func (r *Repository) ListViewers(ctx context.Context, streamID string) ([]ViewerPresence, error) {
	pattern := fmt.Sprintf("presence:%s:*", streamID)
	var viewers []ViewerPresence

	var cursor uint64
	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning presence keys: %w", err)
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Result()
			if err == redis.Nil {
				// Key expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting presence: %w", err)
			}

			var presence ViewerPresence
			if err := json.Unmarshal([]byte(data), &presence); err != nil {
				continue
			}

			viewers = append(viewers, presence)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return viewers, nil
}

// ListViewersByStream retrieves live viewers across all streams, grouped by stream
func (r *Repository) ListViewersByStream(ctx context.Context) (map[string][]ViewerPresence, error) {
	viewersByStream := make(map[string][]ViewerPresence)

	var cursor uint64
	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, "presence:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning presence keys: %w", err)
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting presence: %w", err)
			}

			var presence ViewerPresence
			if err := json.Unmarshal([]byte(data), &presence); err != nil {
				continue
			}

			viewersByStream[presence.StreamID] = append(viewersByStream[presence.StreamID], presence)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return viewersByStream, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Juzanki/smartbiz-hub/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.Repository
 * Uses Redis Hashes for endpoint and delivery log storage,
 * Sets for secondary indexes, and a Sorted Set as the due-retry index
 */

const (
	endpointPrefix  = "endpoint"           // Hash: endpoint:{id}
	userSetPrefix   = "endpoints:user"     // Set of endpoint IDs per user: endpoints:user:{user_id}
	deliveryPrefix  = "delivery"           // Hash: delivery:{id}
	deliveriesList  = "deliveries"         // List per endpoint: endpoint:{id}:deliveries (most recent first)
	retryIndexKey   = "deliveries:retry"   // Sorted set of delivery IDs scored by next_retry_at
	statusSetPrefix = "deliveries:status"  // Set of delivery IDs per status: deliveries:status:{status}
	maxLogsPerList  = 1000                 // Delivery history cap per endpoint
)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Repository{
		client: client,
	}, nil
}

// StoreEndpoint persists an endpoint hash and indexes it under its user
func (r *Repository) StoreEndpoint(ctx context.Context, e webhook.Endpoint) error {
	subsJSON, err := json.Marshal(e.SubscribedEvents)
	if err != nil {
		return fmt.Errorf("marshaling subscriptions: %w", err)
	}

	key := fmt.Sprintf("%s:%s", endpointPrefix, e.ID)
	err = r.client.HSet(ctx, key, map[string]interface{}{
		"id":                    e.ID,
		"user_id":               e.UserID,
		"url":                   e.URL,
		"secret":                e.Secret,
		"description":           e.Description,
		"subscribed_events":     string(subsJSON),
		"active":                boolField(e.Active),
		"max_retries":           e.MaxRetries,
		"backoff_seconds":       e.BackoffSeconds,
		"rate_limit_per_minute": e.RateLimitPerMinute,
		"created_at":            e.CreatedAt.Unix(),
		"updated_at":            e.UpdatedAt.Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing endpoint: %w", err)
	}

	userKey := fmt.Sprintf("%s:%d", userSetPrefix, e.UserID)
	if err := r.client.SAdd(ctx, userKey, e.ID).Err(); err != nil {
		return fmt.Errorf("indexing endpoint by user: %w", err)
	}

	return nil
}

// UpdateEndpoint rewrites the endpoint hash; same shape as StoreEndpoint
func (r *Repository) UpdateEndpoint(ctx context.Context, e webhook.Endpoint) error {
	key := fmt.Sprintf("%s:%s", endpointPrefix, e.ID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("checking endpoint: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("endpoint not found: %s", e.ID)
	}
	return r.StoreEndpoint(ctx, e)
}

// GetEndpoint retrieves an endpoint by ID from its Redis hash
func (r *Repository) GetEndpoint(ctx context.Context, id string) (webhook.Endpoint, error) {
	key := fmt.Sprintf("%s:%s", endpointPrefix, id)

	data, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return webhook.Endpoint{}, fmt.Errorf("getting endpoint: %w", err)
	}
	if len(data) == 0 {
		return webhook.Endpoint{}, fmt.Errorf("endpoint not found: %s", id)
	}

	return endpointFromHash(data)
}

// ListEndpointsByUser returns every endpoint registered by a user
func (r *Repository) ListEndpointsByUser(ctx context.Context, userID int64) ([]webhook.Endpoint, error) {
	userKey := fmt.Sprintf("%s:%d", userSetPrefix, userID)
	ids, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing endpoint ids: %w", err)
	}

	endpoints := make([]webhook.Endpoint, 0, len(ids))
	for _, id := range ids {
		e, err := r.GetEndpoint(ctx, id)
		if err != nil {
			// Index entry without a hash; skip rather than fail the listing.
			continue
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, nil
}

// ListActiveEndpoints returns the active endpoints of a user, the fan-out
// candidate set for an event
func (r *Repository) ListActiveEndpoints(ctx context.Context, userID int64) ([]webhook.Endpoint, error) {
	all, err := r.ListEndpointsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]webhook.Endpoint, 0, len(all))
	for _, e := range all {
		if e.Active {
			active = append(active, e)
		}
	}
	return active, nil
}

// DeleteEndpoint removes the endpoint hash and its user index entry.
// Delivery logs are kept for auditing.
func (r *Repository) DeleteEndpoint(ctx context.Context, id string) error {
	e, err := r.GetEndpoint(ctx, id)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:%s", endpointPrefix, id)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting endpoint: %w", err)
	}

	userKey := fmt.Sprintf("%s:%d", userSetPrefix, e.UserID)
	if err := r.client.SRem(ctx, userKey, id).Err(); err != nil {
		return fmt.Errorf("removing endpoint from user index: %w", err)
	}
	return nil
}

// StoreDelivery persists a delivery log entry and maintains the secondary
// indexes: per-endpoint history list, status set, and the due-retry index
func (r *Repository) StoreDelivery(ctx context.Context, l webhook.DeliveryLog) error {
	if err := r.writeDelivery(ctx, l); err != nil {
		return err
	}

	listKey := fmt.Sprintf("%s:%s:%s", endpointPrefix, l.EndpointID, deliveriesList)
	if err := r.client.LPush(ctx, listKey, l.ID).Err(); err != nil {
		return fmt.Errorf("indexing delivery: %w", err)
	}
	if err := r.client.LTrim(ctx, listKey, 0, maxLogsPerList-1).Err(); err != nil {
		return fmt.Errorf("trimming delivery history: %w", err)
	}

	return nil
}

// UpdateDelivery overwrites a delivery log entry and refreshes the indexes
func (r *Repository) UpdateDelivery(ctx context.Context, l webhook.DeliveryLog) error {
	return r.writeDelivery(ctx, l)
}

// GetDelivery retrieves a delivery log entry by ID
func (r *Repository) GetDelivery(ctx context.Context, id string) (webhook.DeliveryLog, error) {
	key := fmt.Sprintf("%s:%s", deliveryPrefix, id)

	data, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return webhook.DeliveryLog{}, fmt.Errorf("getting delivery: %w", err)
	}
	if len(data) == 0 {
		return webhook.DeliveryLog{}, fmt.Errorf("delivery not found: %s", id)
	}

	return deliveryFromHash(data), nil
}

// ListDeliveriesByEndpoint returns the most recent delivery log rows for an
// endpoint, newest first
func (r *Repository) ListDeliveriesByEndpoint(ctx context.Context, endpointID string, limit int) ([]webhook.DeliveryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	listKey := fmt.Sprintf("%s:%s:%s", endpointPrefix, endpointID, deliveriesList)
	ids, err := r.client.LRange(ctx, listKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing delivery ids: %w", err)
	}

	logs := make([]webhook.DeliveryLog, 0, len(ids))
	for _, id := range ids {
		l, err := r.GetDelivery(ctx, id)
		if err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// DueRetries pops nothing: it reads delivery IDs from the retry index whose
// score (next_retry_at) is at or before now, oldest first
func (r *Repository) DueRetries(ctx context.Context, now time.Time, limit int) ([]webhook.DeliveryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := r.client.ZRangeByScore(ctx, retryIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading retry index: %w", err)
	}

	logs := make([]webhook.DeliveryLog, 0, len(ids))
	for _, id := range ids {
		l, err := r.GetDelivery(ctx, id)
		if err != nil {
			// Stale index entry; drop it so it stops coming back.
			r.client.ZRem(ctx, retryIndexKey, id)
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// CountDueRetries returns how many deliveries have a retry due at or before now
func (r *Repository) CountDueRetries(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.client.ZCount(ctx, retryIndexKey, "-inf", fmt.Sprintf("%d", now.Unix())).Result()
	if err != nil {
		return 0, fmt.Errorf("counting due retries: %w", err)
	}
	return n, nil
}

// CountDeliveriesByStatus returns delivery counts keyed by status name
func (r *Repository) CountDeliveriesByStatus(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 4)
	for _, s := range []webhook.Status{webhook.Pending, webhook.Retrying, webhook.Delivered, webhook.Failed} {
		key := fmt.Sprintf("%s:%s", statusSetPrefix, s.String())
		n, err := r.client.SCard(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("counting %s deliveries: %w", s, err)
		}
		counts[s.String()] = n
	}
	return counts, nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (r *Repository) GetClient() *redis.Client {
	return r.client
}

// writeDelivery stores the delivery hash and synchronizes the status and
// retry indexes with the entry's current state
func (r *Repository) writeDelivery(ctx context.Context, l webhook.DeliveryLog) error {
	key := fmt.Sprintf("%s:%s", deliveryPrefix, l.ID)

	var nextRetry int64
	if l.NextRetryAt != nil {
		nextRetry = l.NextRetryAt.Unix()
	}

	err := r.client.HSet(ctx, key, map[string]interface{}{
		"id":              l.ID,
		"endpoint_id":     l.EndpointID,
		"user_id":         l.UserID,
		"target_url":      l.TargetURL,
		"event_type":      l.EventType,
		"payload":         l.Payload,
		"request_id":      l.RequestID,
		"signature":       l.Signature,
		"response_code":   l.ResponseCode,
		"response_body":   l.ResponseBody,
		"error_message":   l.ErrorMessage,
		"success":         boolField(l.Success),
		"attempt":         l.Attempt,
		"max_retries":     l.MaxRetries,
		"backoff_seconds": l.BackoffSeconds,
		"next_retry_at":   nextRetry,
		"duration_ms":     l.DurationMS,
		"sent_at":         l.SentAt.Unix(),
		"created_at":      l.CreatedAt.Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing delivery: %w", err)
	}

	// Status sets: membership in exactly one.
	current := l.Status().String()
	for _, s := range []webhook.Status{webhook.Pending, webhook.Retrying, webhook.Delivered, webhook.Failed} {
		setKey := fmt.Sprintf("%s:%s", statusSetPrefix, s.String())
		if s.String() == current {
			if err := r.client.SAdd(ctx, setKey, l.ID).Err(); err != nil {
				return fmt.Errorf("indexing delivery status: %w", err)
			}
		} else if err := r.client.SRem(ctx, setKey, l.ID).Err(); err != nil {
			return fmt.Errorf("clearing delivery status: %w", err)
		}
	}

	// Retry index mirrors NextRetryAt.
	if l.NextRetryAt != nil {
		err = r.client.ZAdd(ctx, retryIndexKey, redis.Z{
			Score:  float64(nextRetry),
			Member: l.ID,
		}).Err()
		if err != nil {
			return fmt.Errorf("scheduling retry: %w", err)
		}
	} else if err := r.client.ZRem(ctx, retryIndexKey, l.ID).Err(); err != nil {
		return fmt.Errorf("clearing retry schedule: %w", err)
	}

	return nil
}

// Helper functions

func endpointFromHash(data map[string]string) (webhook.Endpoint, error) {
	var subs []string
	if s, ok := data["subscribed_events"]; ok && s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &subs); err != nil {
			return webhook.Endpoint{}, fmt.Errorf("unmarshaling subscriptions: %w", err)
		}
	}

	return webhook.Endpoint{
		ID:                 data["id"],
		UserID:             parseInt64(data["user_id"]),
		URL:                data["url"],
		Secret:             data["secret"],
		Description:        data["description"],
		SubscribedEvents:   subs,
		Active:             data["active"] == "1",
		MaxRetries:         int(parseInt64(data["max_retries"])),
		BackoffSeconds:     int(parseInt64(data["backoff_seconds"])),
		RateLimitPerMinute: int(parseInt64(data["rate_limit_per_minute"])),
		CreatedAt:          time.Unix(parseInt64(data["created_at"]), 0),
		UpdatedAt:          time.Unix(parseInt64(data["updated_at"]), 0),
	}, nil
}

func deliveryFromHash(data map[string]string) webhook.DeliveryLog {
	l := webhook.DeliveryLog{
		ID:             data["id"],
		EndpointID:     data["endpoint_id"],
		UserID:         parseInt64(data["user_id"]),
		TargetURL:      data["target_url"],
		EventType:      data["event_type"],
		Payload:        []byte(data["payload"]),
		RequestID:      data["request_id"],
		Signature:      data["signature"],
		ResponseCode:   int(parseInt64(data["response_code"])),
		ResponseBody:   data["response_body"],
		ErrorMessage:   data["error_message"],
		Success:        data["success"] == "1",
		Attempt:        int(parseInt64(data["attempt"])),
		MaxRetries:     int(parseInt64(data["max_retries"])),
		BackoffSeconds: int(parseInt64(data["backoff_seconds"])),
		DurationMS:     parseInt64(data["duration_ms"]),
		SentAt:         time.Unix(parseInt64(data["sent_at"]), 0),
		CreatedAt:      time.Unix(parseInt64(data["created_at"]), 0),
	}

	if ts := parseInt64(data["next_retry_at"]); ts > 0 {
		next := time.Unix(ts, 0)
		l.NextRetryAt = &next
	}
	return l
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseInt64(s string) int64 {
	var result int64
	fmt.Sscanf(s, "%d", &result)
	return result
}

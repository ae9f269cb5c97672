package chi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Juzanki/smartbiz-hub/event"
	"github.com/Juzanki/smartbiz-hub/webhook"
	"github.com/go-chi/chi/v5"
)

/* HTTP layer DTOs for the webhook endpoint API */

// endpointRequest represents an endpoint in the web layer
type endpointRequest struct {
	UserID             int64    `json:"user_id"`
	URL                string   `json:"url"`
	Secret             string   `json:"secret"`
	Description        string   `json:"description"`
	SubscribedEvents   []string `json:"subscribed_events"`
	Active             *bool    `json:"active"`
	MaxRetries         int      `json:"max_retries"`
	BackoffSeconds     int      `json:"backoff_seconds"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute"`
}

// endpointResponse represents an endpoint in the web layer. The secret is
// included: the API is owner-facing and the secret is what the receiver
// needs to verify signatures.
type endpointResponse struct {
	ID                 string    `json:"id"`
	UserID             int64     `json:"user_id"`
	URL                string    `json:"url"`
	Secret             string    `json:"secret"`
	Description        string    `json:"description"`
	SubscribedEvents   []string  `json:"subscribed_events"`
	Active             bool      `json:"active"`
	MaxRetries         int       `json:"max_retries"`
	BackoffSeconds     int       `json:"backoff_seconds"`
	RateLimitPerMinute int       `json:"rate_limit_per_minute"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// deliveryResponse represents one delivery log row in the web layer
type deliveryResponse struct {
	ID           string     `json:"id"`
	EndpointID   string     `json:"endpoint_id"`
	EventType    string     `json:"event_type"`
	RequestID    string     `json:"request_id"`
	Status       string     `json:"status"`
	Success      bool       `json:"success"`
	Attempt      int        `json:"attempt"`
	MaxRetries   int        `json:"max_retries"`
	ResponseCode int        `json:"response_code"`
	ErrorMessage string     `json:"error_message,omitempty"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	DurationMS   int64      `json:"duration_ms"`
	SentAt       time.Time  `json:"sent_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// eventRequest represents an event emission in the web layer
type eventRequest struct {
	UserID int64           `json:"user_id"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// eventResponse reports how many endpoints an event was dispatched to
type eventResponse struct {
	Type     string `json:"type"`
	Targeted int    `json:"targeted"`
}

func toEndpointResponse(e webhook.Endpoint) endpointResponse {
	return endpointResponse{
		ID:                 e.ID,
		UserID:             e.UserID,
		URL:                e.URL,
		Secret:             e.Secret,
		Description:        e.Description,
		SubscribedEvents:   e.SubscribedEvents,
		Active:             e.Active,
		MaxRetries:         e.MaxRetries,
		BackoffSeconds:     e.BackoffSeconds,
		RateLimitPerMinute: e.RateLimitPerMinute,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func toDeliveryResponse(l webhook.DeliveryLog) deliveryResponse {
	return deliveryResponse{
		ID:           l.ID,
		EndpointID:   l.EndpointID,
		EventType:    l.EventType,
		RequestID:    l.RequestID,
		Status:       l.Status().String(),
		Success:      l.Success,
		Attempt:      l.Attempt,
		MaxRetries:   l.MaxRetries,
		ResponseCode: l.ResponseCode,
		ErrorMessage: l.ErrorMessage,
		NextRetryAt:  l.NextRetryAt,
		DurationMS:   l.DurationMS,
		SentAt:       l.SentAt,
		CreatedAt:    l.CreatedAt,
	}
}

// postEndpoint handles POST /v1/endpoints
func postEndpoint(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req endpointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		active := true
		if req.Active != nil {
			active = *req.Active
		}

		e, err := webhookService.RegisterEndpoint(r.Context(), webhook.Endpoint{
			UserID:             req.UserID,
			URL:                req.URL,
			Secret:             req.Secret,
			Description:        req.Description,
			SubscribedEvents:   req.SubscribedEvents,
			Active:             active,
			MaxRetries:         req.MaxRetries,
			BackoffSeconds:     req.BackoffSeconds,
			RateLimitPerMinute: req.RateLimitPerMinute,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(toEndpointResponse(e)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getEndpoints handles GET /v1/endpoints?user_id=
func getEndpoints(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
			return
		}

		all, err := webhookService.ListEndpoints(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result := make([]endpointResponse, 0, len(all))
		for _, e := range all {
			result = append(result, toEndpointResponse(e))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getEndpoint handles GET /v1/endpoints/{id}
func getEndpoint(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, err := webhookService.GetEndpoint(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toEndpointResponse(e)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// putEndpoint handles PUT /v1/endpoints/{id}
func putEndpoint(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		current, err := webhookService.GetEndpoint(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		var req endpointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.URL != "" {
			current.URL = req.URL
		}
		if req.Secret != "" {
			current.Secret = req.Secret
		}
		if req.Description != "" {
			current.Description = req.Description
		}
		if req.SubscribedEvents != nil {
			current.SubscribedEvents = req.SubscribedEvents
		}
		if req.Active != nil {
			current.Active = *req.Active
		}
		if req.MaxRetries != 0 {
			current.MaxRetries = req.MaxRetries
		}
		if req.BackoffSeconds != 0 {
			current.BackoffSeconds = req.BackoffSeconds
		}
		if req.RateLimitPerMinute != 0 {
			current.RateLimitPerMinute = req.RateLimitPerMinute
		}

		e, err := webhookService.UpdateEndpoint(r.Context(), current)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toEndpointResponse(e)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// deleteEndpoint handles DELETE /v1/endpoints/{id}
func deleteEndpoint(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := webhookService.DeleteEndpoint(r.Context(), chi.URLParam(r, "id")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// rotateSecret handles POST /v1/endpoints/{id}/rotate-secret
func rotateSecret(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, err := webhookService.RotateSecret(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toEndpointResponse(e)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getDeliveries handles GET /v1/endpoints/{id}/deliveries?limit=
func getDeliveries(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		logs, err := webhookService.Deliveries(r.Context(), chi.URLParam(r, "id"), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result := make([]deliveryResponse, 0, len(logs))
		for _, l := range logs {
			result = append(result, toDeliveryResponse(l))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// postEvent handles POST /v1/events
func postEvent(webhookService webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ev, err := event.New(req.Type, req.Data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		targeted, err := webhookService.Emit(r.Context(), req.UserID, ev)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// 202: deliveries run asynchronously, the log is the source of truth.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(eventResponse{
			Type:     ev.Type,
			Targeted: targeted,
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

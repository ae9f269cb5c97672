package chi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Juzanki/smartbiz-hub/hub"
	"github.com/go-chi/chi/v5"
)

/* HTTP layer DTOs for the live stream API
 * Separate from domain entities to avoid leaking internal structure
 */

// streamResponse represents one live room in the API
type streamResponse struct {
	StreamID    string `json:"stream_id"`
	Connections int    `json:"connections"`
}

// streamDetailResponse adds viewer presence to the room summary
type streamDetailResponse struct {
	StreamID    string           `json:"stream_id"`
	Connections int              `json:"connections"`
	Viewers     []viewerResponse `json:"viewers,omitempty"`
}

// viewerResponse represents one present viewer
type viewerResponse struct {
	UserID   int64     `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	LastSeen time.Time `json:"last_seen"`
}

// broadcastResponse reports how many connections received a message
type broadcastResponse struct {
	StreamID  string `json:"stream_id"`
	Delivered int    `json:"delivered"`
}

// getStreams handles GET /v1/streams
func getStreams(rooms *hub.Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := rooms.Rooms()
		result := make([]streamResponse, 0, len(ids))
		for _, id := range ids {
			result = append(result, streamResponse{
				StreamID:    id,
				Connections: rooms.Count(id),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// getStream handles GET /v1/streams/{stream_id}
func getStream(rooms *hub.Hub, presence Presence) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamID := chi.URLParam(r, "stream_id")

		result := streamDetailResponse{
			StreamID:    streamID,
			Connections: rooms.Count(streamID),
		}

		if presence != nil {
			viewers, err := presence.ListViewers(r.Context(), streamID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			for _, v := range viewers {
				result.Viewers = append(result.Viewers, viewerResponse{
					UserID:   v.UserID,
					JoinedAt: v.JoinedAt,
					LastSeen: v.LastSeen,
				})
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// postStreamEvent handles POST /v1/streams/{stream_id}/events
func postStreamEvent(rooms *hub.Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamID := chi.URLParam(r, "stream_id")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if len(body) == 0 || !json.Valid(body) {
			http.Error(w, "body must be a JSON message", http.StatusBadRequest)
			return
		}

		delivered := rooms.Broadcast(streamID, body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(broadcastResponse{
			StreamID:  streamID,
			Delivered: delivered,
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// deleteStream handles DELETE /v1/streams/{stream_id}
func deleteStream(rooms *hub.Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamID := chi.URLParam(r, "stream_id")
		closed := rooms.CloseRoom(streamID)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"stream_id": streamID,
			"closed":    closed,
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

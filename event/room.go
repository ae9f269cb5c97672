package event

import "encoding/json"

/* Room messages are the small fixed-shape payloads pushed to live viewers.
 * They keep the wire format used by existing clients: {"event": ..., "user_id": ...}
 */

// RoomMessage is a presence notification broadcast inside a live room.
type RoomMessage struct {
	Event  string `json:"event"`
	UserID int64  `json:"user_id"`
}

// UserJoined builds the "user_joined" room notification.
func UserJoined(userID int64) []byte {
	b, _ := json.Marshal(RoomMessage{Event: "user_joined", UserID: userID})
	return b
}

// UserLeft builds the "user_left" room notification.
func UserLeft(userID int64) []byte {
	b, _ := json.Marshal(RoomMessage{Event: "user_left", UserID: userID})
	return b
}

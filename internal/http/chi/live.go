package chi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Juzanki/smartbiz-hub/event"
	"github.com/Juzanki/smartbiz-hub/hub"
	"github.com/Juzanki/smartbiz-hub/webhook/redis"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin checks belong to the reverse proxy in front of this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Presence tracks which viewers are watching which stream. Backed by Redis so
// counts survive across instances; nil disables tracking.
type Presence interface {
	SetViewerPresence(ctx context.Context, streamID string, userID int64, joinedAt time.Time) error
	ClearViewerPresence(ctx context.Context, streamID string, userID int64) error
	ListViewers(ctx context.Context, streamID string) ([]redis.ViewerPresence, error)
}

var (
	errClientGone = errors.New("client connection closed")
	errBufferFull = errors.New("client send buffer full")
)

// wsClient adapts one WebSocket connection to the hub's Conn interface. The
// hub pushes into the buffered send channel; writePump owns all writes to the
// underlying connection.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	once sync.Once
	done chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
}

// Send queues a message for delivery. A full buffer means the client has
// stopped reading and is reported as an error so the hub prunes it.
func (c *wsClient) Send(message []byte) error {
	select {
	case <-c.done:
		return errClientGone
	default:
	}

	select {
	case c.send <- message:
		return nil
	default:
		return errBufferFull
	}
}

// Close signals the pumps to stop. Safe to call more than once.
func (c *wsClient) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// writePump drains the send channel and forwards messages to the WebSocket
// connection. It also sends periodic ping frames. Runs in its own goroutine
// per client.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Inbound data frames are keepalive chatter and
// are discarded. Blocks until the connection closes.
func (c *wsClient) readPump(onPong func()) {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if onPong != nil {
			onPong()
		}
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		// Any inbound frame proves liveness.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// serveLive handles GET /ws/live/{stream_id}/{user_id}: upgrades to WebSocket,
// registers the connection in the stream's room and announces the viewer to
// the room until the connection goes away.
func serveLive(rooms *hub.Hub, presence Presence, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamID := chi.URLParam(r, "stream_id")
		userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
		if err != nil {
			http.Error(w, "user_id must be an integer", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// upgrader has already written the error response.
			return
		}

		c := newWSClient(conn)
		joined := time.Now()

		rooms.Join(streamID, c)
		if presence != nil {
			if err := presence.SetViewerPresence(r.Context(), streamID, userID, joined); err != nil {
				log.Warn().Str("stream_id", streamID).Int64("user_id", userID).Err(err).Msg("presence update failed")
			}
		}
		rooms.Broadcast(streamID, event.UserJoined(userID))
		log.Info().Str("stream_id", streamID).Int64("user_id", userID).Msg("viewer joined")

		go c.writePump()
		c.readPump(func() {
			if presence != nil {
				presence.SetViewerPresence(context.Background(), streamID, userID, joined) //nolint:errcheck
			}
		})

		rooms.Leave(streamID, c)
		c.Close()
		if presence != nil {
			if err := presence.ClearViewerPresence(context.Background(), streamID, userID); err != nil {
				log.Warn().Str("stream_id", streamID).Int64("user_id", userID).Err(err).Msg("presence clear failed")
			}
		}
		rooms.Broadcast(streamID, event.UserLeft(userID))
		log.Info().Str("stream_id", streamID).Int64("user_id", userID).Msg("viewer left")
	})
}

package hub

import (
	"sync"

	"github.com/rs/zerolog"
)

/* Hub is the in-memory fan-out registry for live rooms.
 * It owns membership only: the transport layer keeps doing the actual I/O
 * through the Conn it registered. All state dies with the process; clients
 * reconnect after a restart.
 */

// Conn is one registered client connection. Send must be safe to call from
// the broadcasting goroutine and should return an error once the underlying
// transport is closed or broken.
type Conn interface {
	Send(message []byte) error
	Close() error
}

// Hub maintains, per room, the set of currently active connections and
// delivers messages to all of them. A room entry exists if and only if it has
// at least one live connection.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[Conn]struct{}
	log   zerolog.Logger
}

// New creates an empty Hub. The instance is meant to be constructed once at
// startup and injected into the transport layer.
func New(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[Conn]struct{}),
		log:   log,
	}
}

// Join registers conn under roomID.
func (h *Hub) Join(roomID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[Conn]struct{})
		h.rooms[roomID] = set
	}
	set[conn] = struct{}{}
}

// Leave removes conn from roomID. The room entry is deleted when its set
// becomes empty so no orphan rooms linger.
func (h *Hub) Leave(roomID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(roomID, conn)
}

// Broadcast sends message to every connection currently in roomID and returns
// the number of successful deliveries. The member snapshot is taken under the
// lock, but sends happen outside it: a connection joining mid-broadcast simply
// misses this message. Connections whose send fails are treated as
// disconnected and pruned in a single follow-up locked step. Broadcasting to
// an unknown room returns 0.
func (h *Hub) Broadcast(roomID string, message []byte) int {
	h.mu.Lock()
	set, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return 0
	}
	conns := make([]Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	delivered := 0
	var dead []Conn
	for _, c := range conns {
		if err := c.Send(message); err != nil {
			h.log.Debug().Str("room", roomID).Err(err).Msg("send failed, pruning connection")
			dead = append(dead, c)
			continue
		}
		delivered++
	}

	if len(dead) > 0 {
		h.mu.Lock()
		for _, c := range dead {
			h.removeLocked(roomID, c)
		}
		h.mu.Unlock()
		for _, c := range dead {
			c.Close()
		}
	}

	return delivered
}

// BroadcastMany sends message to every room in roomIDs; returns total deliveries.
func (h *Hub) BroadcastMany(roomIDs []string, message []byte) int {
	seen := make(map[string]struct{}, len(roomIDs))
	total := 0
	for _, id := range roomIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		total += h.Broadcast(id, message)
	}
	return total
}

// BroadcastAll sends message to every known room; returns total deliveries.
func (h *Hub) BroadcastAll(message []byte) int {
	total := 0
	for _, id := range h.Rooms() {
		total += h.Broadcast(id, message)
	}
	return total
}

// Count returns the number of live connections in roomID. Zero for unknown rooms.
func (h *Hub) Count(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

// CountAll returns the number of live connections across all rooms.
func (h *Hub) CountAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, set := range h.rooms {
		total += len(set)
	}
	return total
}

// Rooms returns a snapshot of the currently known room IDs.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// CloseRoom forcibly closes every connection in roomID and removes the room
// entry. Returns the number of connections closed. Used for explicit teardown
// when a stream ends.
func (h *Hub) CloseRoom(roomID string) int {
	h.mu.Lock()
	set, ok := h.rooms[roomID]
	if ok {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	closed := 0
	for c := range set {
		c.Close() // a close error means the peer beat us to it
		closed++
	}
	if ok {
		h.log.Info().Str("room", roomID).Int("closed", closed).Msg("room closed")
	}
	return closed
}

// Ping broadcasts a small heartbeat to roomID. It doubles as dead-connection
// pruning since failed sends drop the connection.
func (h *Hub) Ping(roomID string) int {
	return h.Broadcast(roomID, pingMessage)
}

// PingAll heartbeats every room.
func (h *Hub) PingAll() int {
	return h.BroadcastAll(pingMessage)
}

var pingMessage = []byte(`{"type":"ping"}`)

// removeLocked removes conn from roomID and prunes the empty room entry.
// Caller must hold h.mu.
func (h *Hub) removeLocked(roomID string, conn Conn) {
	set, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.rooms, roomID)
	}
}

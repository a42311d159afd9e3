package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/docstore"
)

// =============================================================================
// RELAY CONFIGURATION
// =============================================================================

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	maxNotices     = 16
)

// Relay bridges room documents to websocket clients. Each connection gets a
// snapshot on connect and after every change, and may send field patches.
type Relay struct {
	store    docstore.Store
	upgrader websocket.Upgrader
}

// NewRelay accepts connections from allowedOrigin, or from anywhere when it
// is empty or "*".
func NewRelay(store docstore.Store, allowedOrigin string) *Relay {
	return &Relay{
		store: store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

type client struct {
	conn   *websocket.Conn
	roomId string

	mu       sync.Mutex
	snapshot []byte
	notices  [][]byte
	wake     chan struct{}
	once     sync.Once
	closed   chan struct{}
}

func newClient(conn *websocket.Conn, roomId string) *client {
	return &client{
		conn:   conn,
		roomId: roomId,
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *client) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// offerSnapshot replaces any snapshot not yet written; a slow client only
// ever receives the latest document.
func (c *client) offerSnapshot(frame []byte) {
	c.mu.Lock()
	c.snapshot = frame
	c.mu.Unlock()
	c.signal()
}

func (c *client) offerNotice(frame []byte) {
	c.mu.Lock()
	if len(c.notices) < maxNotices {
		c.notices = append(c.notices, frame)
	}
	c.mu.Unlock()
	c.signal()
}

// pending drains queued frames, notices first.
func (c *client) pending() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	if c.snapshot != nil {
		out = append(out, c.snapshot)
		c.snapshot = nil
	}
	return out
}

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// HandleWebSocket serves /ws/{roomId}.
func (rl *Relay) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomId := mux.Vars(r)["roomId"]
	if _, err := rl.store.Get(r.Context(), roomId); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("room", roomId).Msg("[HandleWebSocket] lookup failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", roomId).Msg("[HandleWebSocket] upgrade failed")
		return
	}
	c := newClient(conn, roomId)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := rl.store.Subscribe(ctx, roomId, func(doc docstore.Document) {
		frame, err := json.Marshal(internal.Message[internal.SnapshotData]{
			Type: internal.MessageSnapshot,
			Data: internal.SnapshotData{RoomId: roomId, Document: doc},
		})
		if err != nil {
			log.Error().Err(err).Str("room", roomId).Msg("[HandleWebSocket] encode snapshot failed")
			return
		}
		c.offerSnapshot(frame)
		if doc == nil {
			c.close()
		}
	})
	if err != nil {
		log.Error().Err(err).Str("room", roomId).Msg("[HandleWebSocket] subscribe failed")
		_ = conn.Close()
		return
	}
	defer stop()

	log.Info().Str("room", roomId).Str("remote", r.RemoteAddr).Msg("[HandleWebSocket] client connected")
	go rl.readPump(ctx, c)
	rl.writePump(c)
	log.Info().Str("room", roomId).Str("remote", r.RemoteAddr).Msg("[HandleWebSocket] client disconnected")
}

// readPump applies patches sent by the client until the socket fails.
func (rl *Relay) readPump(ctx context.Context, c *client) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("room", c.roomId).Msg("[readPump] read ended")
			}
			return
		}

		var msg internal.Message[json.RawMessage]
		if err := json.Unmarshal(raw, &msg); err != nil {
			rl.sendError(c, "malformed message")
			continue
		}
		switch msg.Type {
		case internal.MessagePatch:
			var patch internal.PatchData
			if err := json.Unmarshal(msg.Data, &patch); err != nil {
				rl.sendError(c, "malformed patch")
				continue
			}
			if err := rl.store.Patch(ctx, c.roomId, patch.Path, patch.Fields); err != nil {
				log.Warn().Err(err).Str("room", c.roomId).Str("path", patch.Path).Msg("[readPump] patch rejected")
				rl.sendError(c, err.Error())
			}
		default:
			log.Debug().Str("room", c.roomId).Str("type", msg.Type).Msg("[readPump] ignoring message")
		}
	}
}

// writePump owns every write to the connection.
func (rl *Relay) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	flush := func() bool {
		for _, frame := range c.pending() {
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-c.wake:
			if !flush() {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			// flush what is queued, then say goodbye
			if flush() {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			}
			return
		}
	}
}

func (rl *Relay) sendError(c *client, message string) {
	frame, err := json.Marshal(internal.Message[internal.ErrorData]{
		Type: internal.MessageError,
		Data: internal.ErrorData{Message: message},
	})
	if err != nil {
		return
	}
	c.offerNotice(frame)
}

package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/domain"
	"github.com/filmgrain/groupwatch/internal/protocol"
	"github.com/filmgrain/groupwatch/internal/token"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades client connections and relays their frames.
type WSHandler struct {
	manager   *Manager
	secret    string
	sendBuf   int
	readLimit int64
	wTimeout  time.Duration
}

func NewWSHandler(manager *Manager, secret string, sendBuf int, readLimit int64, writeTimeout time.Duration) *WSHandler {
	if sendBuf <= 0 {
		sendBuf = 32
	}
	if readLimit <= 0 {
		readLimit = 32768
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &WSHandler{manager: manager, secret: secret, sendBuf: sendBuf, readLimit: readLimit, wTimeout: writeTimeout}
}

// Handle serves GET /ws/rooms/:room. Identity comes from the signed
// token; the relay does not police who may watch, it only needs to know
// who is connected.
func (h *WSHandler) Handle(ctx context.Context, c *gin.Context) {
	key := domain.RoomKey(c.Param("room"))
	id, err := token.Parse(h.secret, c.Query("token"))
	if err != nil {
		log.Warn().Err(err).Str("module", "relay.ws").Str("room", string(key)).Msg("rejected connection")
		c.String(http.StatusUnauthorized, "invalid token")
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "relay.ws").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(h.readLimit)

	ref := uuid.NewString()
	room := h.manager.GetOrCreate(key)
	member := room.Attach(ref, id, h.sendBuf)
	queue, _ := room.Queue(ref)

	// Presence: discrete diff first, then the authoritative snapshot.
	h.broadcastPresence(room, protocol.EventMemberJoined, member)
	h.broadcastSnapshot(room)

	connCtx, cancel := context.WithCancel(ctx)
	go h.writePump(connCtx, ws, queue)
	h.readPump(ws, room, ref)
	cancel()

	if left, ok := room.Detach(ref); ok {
		h.broadcastPresence(room, protocol.EventMemberLeft, left)
		h.broadcastSnapshot(room)
	}
	h.manager.Cleanup(room)
}

func (h *WSHandler) readPump(ws *websocket.Conn, room *Room, ref string) {
	defer ws.Close()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "relay.ws").Str("ref", ref).Msg("readPump closing")
			return
		}
		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Warn().Err(err).Str("module", "relay.ws").Msg("bad frame")
			continue
		}
		switch frame.Event {
		case protocol.EventShout:
			room.Broadcast(ref, frame)
		case protocol.EventWhisper:
			if !room.Whisper(frame.Ref, frame) {
				log.Debug().Str("module", "relay.ws").Str("target", frame.Ref).Msg("whisper target gone")
			}
		default:
			log.Warn().Str("module", "relay.ws").Str("event", frame.Event).Msg("unknown client frame")
		}
	}
}

func (h *WSHandler) writePump(ctx context.Context, ws *websocket.Conn, queue <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-queue:
			if !ok {
				return
			}
			if err := ws.SetWriteDeadline(time.Now().Add(h.wTimeout)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "relay.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (h *WSHandler) broadcastPresence(room *Room, event string, member domain.Member) {
	frame, err := protocol.NewFrame(event, "", member)
	if err != nil {
		return
	}
	room.Broadcast("", frame)
}

func (h *WSHandler) broadcastSnapshot(room *Room) {
	frame, err := protocol.NewFrame(protocol.EventPresenceState, "", room.Snapshot())
	if err != nil {
		return
	}
	room.Broadcast("", frame)
}

// RunSnapshots periodically rebroadcasts every room's presence snapshot
// so clients that missed a diff reconcile anyway.
func (h *WSHandler) RunSnapshots(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, info := range h.manager.List() {
				if room, ok := h.manager.Get(info.Key); ok {
					h.broadcastSnapshot(room)
				}
			}
		}
	}
}

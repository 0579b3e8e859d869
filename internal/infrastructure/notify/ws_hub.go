// Package notify implements C5's delivery side: the outbox worker drains
// OutboxRepository.PullDue and hands each entry to Broker (client-facing
// rooms/:room_id and audiences/:audience topics) or Bus (cross-service
// event bus), per the entry's Sink (spec §4.4, §6).
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub is a local, in-process fan-out of outbox events to subscribed
// websocket clients, keyed by topic (a room or audience events channel).
// It is a fallback path alongside Broker's Redis pub/sub: a client that
// connects straight to this node's `/events` endpoint gets pushes without
// a Redis round trip, grounded on the teacher's
// internal/infrastructure/signal/websocket_server.go connection registry,
// generalized from per-peer connections to per-topic subscriber sets.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]struct{}

	writeTimeout time.Duration
	logger       *zap.SugaredLogger

	// onSubscribe, if set, fires once per successful Subscribe call, after
	// registration, with the request that established it — used to drive
	// room.enter's in_progress -> ready transition on "broker subscription
	// confirmation" (spec §4.1) without the hub depending on RoomService.
	onSubscribe func(topic string, r *http.Request)
}

func NewHub(writeTimeout time.Duration, log *zap.SugaredLogger) *Hub {
	return &Hub{
		subscribers:  make(map[string]map[*websocket.Conn]struct{}),
		writeTimeout: writeTimeout,
		logger:       log,
	}
}

// OnSubscribe registers the callback Subscribe fires after a successful
// upgrade+registration.
func (h *Hub) OnSubscribe(fn func(topic string, r *http.Request)) {
	h.onSubscribe = fn
}

// Subscribe upgrades the HTTP connection and registers it under topic
// until the client disconnects. It blocks until the connection closes.
func (h *Hub) Subscribe(topic string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("websocket upgrade failed", "topic", topic, "error", err)
		return
	}
	defer conn.Close()

	h.register(topic, conn)
	defer h.unregister(topic, conn)

	if h.onSubscribe != nil {
		h.onSubscribe(topic, r)
	}

	// This hub only pushes; it does not expect client-originated messages,
	// so the read loop exists solely to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[topic]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.subscribers[topic] = set
	}
	set[conn] = struct{}{}
}

func (h *Hub) unregister(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[topic]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.subscribers, topic)
	}
}

// Broadcast pushes payload to every subscriber currently registered on
// topic. Dead connections are dropped silently; Subscribe's read loop will
// notice the close on its own.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subscribers[topic]))
	for c := range h.subscribers[topic] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debugw("websocket push failed", "topic", topic, "error", err)
		}
	}
}

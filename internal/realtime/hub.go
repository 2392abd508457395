// Package realtime fans freshly recorded notifications out to
// connected dashboard sockets. Publishing goes through Redis pub/sub
// (one channel per agency) so every server instance sees every event,
// regardless of which instance recorded it.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func channelName(agencyID uuid.UUID) string {
	return "notifications:" + agencyID.String()
}

// feed is one agency's local fan-out state: its sockets on this
// instance plus the cancel for the Redis subscription feeding them.
type feed struct {
	conns  map[*websocket.Conn]struct{}
	cancel context.CancelFunc
}

// Hub tracks websocket clients per agency and bridges the Redis
// subscription onto them. All methods are safe for concurrent use.
type Hub struct {
	redis  *redis.Client
	logger *zap.Logger

	mu    sync.Mutex
	feeds map[uuid.UUID]*feed
}

func NewHub(client *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		redis:  client,
		logger: logger,
		feeds:  make(map[uuid.UUID]*feed),
	}
}

// Publish pushes a recorded notification onto the agency's channel.
// Best-effort: the audit row is already durable, so a pub/sub failure
// is logged and dropped rather than surfaced to the recorder.
func (h *Hub) Publish(ctx context.Context, n *models.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		h.logger.Warn("marshal notification for publish", zap.Error(err))
		return
	}
	if err := h.redis.Publish(ctx, channelName(n.AgencyID), payload).Err(); err != nil {
		h.logger.Warn("publish notification", zap.Error(err))
	}
}

// Register attaches a socket to an agency feed. The first socket of an
// agency on this instance starts the Redis subscription; its lifetime
// belongs to the hub, not to the registering request.
func (h *Hub) Register(agencyID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[agencyID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &feed{
			conns:  make(map[*websocket.Conn]struct{}),
			cancel: cancel,
		}
		h.feeds[agencyID] = f
		go h.subscribe(ctx, agencyID)
	}
	f.conns[conn] = struct{}{}
}

// Unregister detaches a socket and closes it. The last socket of an
// agency tears the Redis subscription down with it.
func (h *Hub) Unregister(agencyID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	if f, ok := h.feeds[agencyID]; ok {
		delete(f.conns, conn)
		if len(f.conns) == 0 {
			f.cancel()
			delete(h.feeds, agencyID)
		}
	}
	h.mu.Unlock()
	conn.Close()
}

// subscribe pumps the agency's Redis channel into its local sockets
// until cancelled. Runs once per agency per instance.
func (h *Hub) subscribe(ctx context.Context, agencyID uuid.UUID) {
	sub := h.redis.Subscribe(ctx, channelName(agencyID))
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			h.broadcast(agencyID, []byte(msg.Payload))
		}
	}
}

// broadcast writes a payload to every socket on the agency. A write
// failure means the client is gone; it gets unregistered inline.
func (h *Hub) broadcast(agencyID uuid.UUID, payload []byte) {
	h.mu.Lock()
	var conns []*websocket.Conn
	if f, ok := h.feeds[agencyID]; ok {
		conns = make([]*websocket.Conn, 0, len(f.conns))
		for conn := range f.conns {
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("dropping dead notification socket",
				zap.String("agency_id", agencyID.String()),
				zap.Error(err),
			)
			h.Unregister(agencyID, conn)
		}
	}
}

// ClientCount reports connected sockets for an agency on this instance.
func (h *Hub) ClientCount(agencyID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.feeds[agencyID]; ok {
		return len(f.conns)
	}
	return 0
}

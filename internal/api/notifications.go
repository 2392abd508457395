package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/plurahq/agencyhub/internal/realtime"
	"github.com/plurahq/agencyhub/internal/service"
	"go.uber.org/zap"
)

// NotificationHandler serves the agency audit feed, both as a list and
// as a live websocket stream.
type NotificationHandler struct {
	agencies *service.AgencyService
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewNotificationHandler(agencies *service.AgencyService, hub *realtime.Hub, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		agencies: agencies,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a different origin than the
			// API; auth happens via the Bearer token, not the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// List handles GET /v1/agencies/:agencyId/notifications — newest
// first, each entry with its author.
func (h *NotificationHandler) List(c *gin.Context) {
	agencyID, err := uuid.Parse(c.Param("agencyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency id"})
		return
	}

	items, err := h.agencies.Notifications(c.Request.Context(), agencyID)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// Stream handles GET /v1/agencies/:agencyId/notifications/stream.
// Upgrades to a websocket that receives each notification recorded for
// the agency, on any server instance, as it happens.
func (h *NotificationHandler) Stream(c *gin.Context) {
	agencyID, err := uuid.Parse(c.Param("agencyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency id"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Register(agencyID, conn)

	// The feed is write-only; the read loop exists to notice the
	// client going away.
	go func() {
		defer h.hub.Unregister(agencyID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

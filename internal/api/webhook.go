package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plurahq/agencyhub/internal/identity"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler ingests identity-provider events. This is the one
// write path with no ambient principal: attribution, where needed,
// falls back to the sub-account-owner lookup inside the recorder.
type WebhookHandler struct {
	users  *service.UserService
	secret string
	logger *zap.Logger
}

func NewWebhookHandler(users *service.UserService, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{users: users, secret: secret, logger: logger}
}

// Identity handles POST /v1/webhooks/identity. The HMAC signature is
// checked over the raw body before any parsing.
func (h *WebhookHandler) Identity(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if h.secret == "" {
		h.logger.Warn("identity webhook received but no webhook secret configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhooks not configured"})
		return
	}
	if !identity.VerifyWebhookSignature(h.secret, body, c.GetHeader("X-Signature")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event identity.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	switch event.Type {
	case "user.created", "user.updated":
		email := event.Data.PrimaryEmail()
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event has no email address"})
			return
		}
		_, err := h.users.SyncFromProvider(c.Request.Context(), models.Principal{
			ID:        event.Data.ID,
			Email:     email,
			FirstName: event.Data.FirstName,
			LastName:  event.Data.LastName,
			ImageURL:  event.Data.ImageURL,
		})
		if err != nil {
			h.logger.Error("failed to sync user from webhook", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
			return
		}
	default:
		// Unhandled event types are acknowledged so the provider stops
		// retrying them.
		h.logger.Debug("ignoring identity event", zap.String("type", event.Type))
	}

	c.Status(http.StatusNoContent)
}

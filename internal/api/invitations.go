package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/middleware"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/service"
	"go.uber.org/zap"
)

// InvitationHandler serves invitation issuing and acceptance.
type InvitationHandler struct {
	invitations *service.InvitationService
	logger      *zap.Logger
}

func NewInvitationHandler(invitations *service.InvitationService, logger *zap.Logger) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, logger: logger}
}

type sendInvitationRequest struct {
	AgencyID uuid.UUID   `json:"agency_id" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Role     models.Role `json:"role"`
}

// Send handles POST /v1/invitations. The response carries the
// plaintext link token exactly once; only its hash is stored.
func (h *InvitationHandler) Send(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req sendInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != "" && !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	inv, token, err := h.invitations.Send(c.Request.Context(), &principal, service.SendInvitationInput{
		AgencyID: req.AgencyID,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvitationExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to send invitation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send invitation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invitation": inv, "token": token})
}

type acceptInvitationRequest struct {
	// Token from the invite link. Optional: a signed-in invitee can
	// accept without it, same as the original flow.
	Token string `json:"token"`
}

// Accept handles POST /v1/invitations/accept. Idempotent: a repeat
// call after a successful acceptance returns the same agency id and
// finds no pending invitation left to consume.
func (h *InvitationHandler) Accept(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req acceptInvitationRequest
	_ = c.ShouldBindJSON(&req)

	if req.Token != "" {
		valid, pending, err := h.invitations.ValidateLinkToken(c.Request.Context(), principal.Email, req.Token)
		if err != nil {
			h.logger.Error("failed to validate invite token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate token"})
			return
		}
		// Only reject when there is a live invitation the token fails
		// to match; a consumed invitation falls through to the
		// already-a-member path.
		if pending && !valid {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid invitation token"})
			return
		}
	}

	agencyID, err := h.invitations.VerifyAndAccept(c.Request.Context(), &principal)
	if err != nil {
		if errors.Is(err, service.ErrMetadataUpdateFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable, retry"})
			return
		}
		h.logger.Error("failed to accept invitation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept invitation"})
		return
	}

	// agency_id is null for a fresh signup with no invitation — the
	// client routes to onboarding on that.
	c.JSON(http.StatusOK, gin.H{"agency_id": agencyID})
}

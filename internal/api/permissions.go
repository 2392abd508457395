package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/middleware"
	"github.com/plurahq/agencyhub/internal/service"
	"go.uber.org/zap"
)

// PermissionHandler serves the access-grant toggle and check.
type PermissionHandler struct {
	permissions *service.PermissionService
	logger      *zap.Logger
}

func NewPermissionHandler(permissions *service.PermissionService, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{permissions: permissions, logger: logger}
}

type setPermissionRequest struct {
	// PermissionID is the handle from a prior read; omitted on first
	// grant, in which case the server mints one.
	PermissionID *uuid.UUID `json:"permission_id"`
	Email        string     `json:"email" binding:"required,email"`
	SubAccountID uuid.UUID  `json:"sub_account_id" binding:"required"`
	Access       bool       `json:"access"`
	// AgencyScoped marks calls from the agency-level team surface,
	// which audit the change against the sub-account's agency.
	AgencyScoped bool `json:"agency_scoped"`
}

// Set handles PUT /v1/permissions. Safe to call twice with the same
// pair: both calls land on the same row.
func (h *PermissionHandler) Set(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req setPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	perm, err := h.permissions.Set(c.Request.Context(), &principal, service.SetPermissionInput{
		PermissionID: req.PermissionID,
		Email:        req.Email,
		SubAccountID: req.SubAccountID,
		Access:       req.Access,
		AgencyScoped: req.AgencyScoped,
	})
	if err != nil {
		h.logger.Error("failed to set permission", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update permissions"})
		return
	}

	c.JSON(http.StatusOK, perm)
}

// Access handles GET /v1/subaccounts/:subAccountId/access — the cached
// hot-path check for the principal's own access.
func (h *PermissionHandler) Access(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	subAccountID, err := uuid.Parse(c.Param("subAccountId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sub-account id"})
		return
	}

	access, err := h.permissions.HasAccess(c.Request.Context(), principal.Email, subAccountID)
	if err != nil {
		h.logger.Error("failed to check access", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check access"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plurahq/agencyhub/internal/middleware"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/scope"
	"github.com/plurahq/agencyhub/internal/service"
	"go.uber.org/zap"
)

// UserHandler serves the authenticated principal's own user resource.
type UserHandler struct {
	users    *service.UserService
	activity *service.ActivityService
	logger   *zap.Logger
}

func NewUserHandler(users *service.UserService, activity *service.ActivityService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, activity: activity, logger: logger}
}

type initUserRequest struct {
	Role models.Role `json:"role"`
}

// Init handles POST /v1/users/init — first-sign-in provisioning.
// Idempotent: a repeat call updates the profile fields in place.
func (h *UserHandler) Init(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	// Body is optional; an absent role defaults downstream.
	var req initUserRequest
	_ = c.ShouldBindJSON(&req)
	if req.Role != "" && !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	user, err := h.users.Init(c.Request.Context(), &principal, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrMetadataUpdateFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable, retry"})
			return
		}
		h.logger.Error("failed to init user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to init user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Me handles GET /v1/users/me — the principal's user, agency, and
// sub-account grants in one payload.
func (h *UserHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	details, err := h.users.AuthDetails(c.Request.Context(), &principal)
	if err != nil {
		h.logger.Error("failed to load user details", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user details"})
		return
	}
	if details == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not provisioned"})
		return
	}

	c.JSON(http.StatusOK, details)
}

type updateUserRequest struct {
	Email     string      `json:"email"`
	Name      string      `json:"name" binding:"required"`
	AvatarURL string      `json:"avatar_url"`
	Role      models.Role `json:"role"`
}

// Update handles PUT /v1/users/me. Team admins may pass another
// member's email; otherwise the principal updates themselves. The
// change is audited against the updated user's agency.
func (h *UserHandler) Update(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != "" && !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	if req.Email == "" {
		req.Email = principal.Email
	}

	user, err := h.users.Update(c.Request.Context(), service.UpdateUserInput{
		Email:     req.Email,
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Role:      req.Role,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotResolvable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if errors.Is(err, service.ErrMetadataUpdateFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable, retry"})
			return
		}
		h.logger.Error("failed to update user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}

	if user.AgencyID != nil {
		if _, err := h.activity.Record(c.Request.Context(), &principal,
			scope.Agency(*user.AgencyID), "Updated "+user.Name+" information"); err != nil {
			h.logger.Warn("failed to record user update", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, user)
}

// Permissions handles GET /v1/users/:userId/permissions.
func (h *UserHandler) Permissions(c *gin.Context) {
	perms, err := h.users.Permissions(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.logger.Error("failed to list permissions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list permissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

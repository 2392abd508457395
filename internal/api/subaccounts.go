package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/middleware"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/scope"
	"github.com/plurahq/agencyhub/internal/service"
	"go.uber.org/zap"
)

// SubAccountHandler serves client-account provisioning.
type SubAccountHandler struct {
	subAccounts *service.SubAccountService
	activity    *service.ActivityService
	logger      *zap.Logger
}

func NewSubAccountHandler(subAccounts *service.SubAccountService, activity *service.ActivityService, logger *zap.Logger) *SubAccountHandler {
	return &SubAccountHandler{subAccounts: subAccounts, activity: activity, logger: logger}
}

type subAccountRequest struct {
	ID             uuid.UUID `json:"id"`
	AgencyID       uuid.UUID `json:"agency_id" binding:"required"`
	Name           string    `json:"name" binding:"required"`
	CompanyEmail   string    `json:"company_email" binding:"required,email"`
	CompanyPhone   string    `json:"company_phone"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	ZipCode        string    `json:"zip_code"`
	State          string    `json:"state"`
	Country        string    `json:"country"`
	SubAccountLogo string    `json:"sub_account_logo"`
}

// Upsert handles POST /v1/subaccounts. A create grants the agency
// owner access; either way the change is audited against the
// sub-account.
func (h *SubAccountHandler) Upsert(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req subAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sa, err := h.subAccounts.Upsert(c.Request.Context(), &models.SubAccount{
		ID:             req.ID,
		AgencyID:       req.AgencyID,
		Name:           req.Name,
		CompanyEmail:   req.CompanyEmail,
		CompanyPhone:   req.CompanyPhone,
		Address:        req.Address,
		City:           req.City,
		ZipCode:        req.ZipCode,
		State:          req.State,
		Country:        req.Country,
		SubAccountLogo: req.SubAccountLogo,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoAgencyOwner) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to upsert sub-account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save sub-account"})
		return
	}
	if sa == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company email is required"})
		return
	}

	if _, err := h.activity.Record(c.Request.Context(), &principal,
		scope.SubAccount(sa.ID), "updated sub account | "+sa.Name); err != nil {
		h.logger.Warn("failed to record sub-account update", zap.Error(err))
	}

	c.JSON(http.StatusOK, sa)
}

// Get handles GET /v1/subaccounts/:subAccountId.
func (h *SubAccountHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("subAccountId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sub-account id"})
		return
	}

	sa, err := h.subAccounts.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get sub-account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get sub-account"})
		return
	}
	if sa == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sub-account not found"})
		return
	}

	c.JSON(http.StatusOK, sa)
}

// Delete handles DELETE /v1/subaccounts/:subAccountId. The audit entry
// is written before the row disappears, attributed to the owning
// agency directly since the sub-account scope is about to vanish.
func (h *SubAccountHandler) Delete(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("subAccountId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sub-account id"})
		return
	}

	sa, err := h.subAccounts.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get sub-account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete sub-account"})
		return
	}
	if sa == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sub-account not found"})
		return
	}

	if _, err := h.activity.Record(c.Request.Context(), &principal,
		scope.Agency(sa.AgencyID), "Deleted a subaccount | "+sa.Name); err != nil {
		h.logger.Warn("failed to record sub-account deletion", zap.Error(err))
	}

	if err := h.subAccounts.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("failed to delete sub-account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete sub-account"})
		return
	}

	c.Status(http.StatusNoContent)
}

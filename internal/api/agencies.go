package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/middleware"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/scope"
	"github.com/plurahq/agencyhub/internal/service"
	"go.uber.org/zap"
)

// AgencyHandler serves the tenant root.
type AgencyHandler struct {
	agencies *service.AgencyService
	activity *service.ActivityService
	logger   *zap.Logger
}

func NewAgencyHandler(agencies *service.AgencyService, activity *service.ActivityService, logger *zap.Logger) *AgencyHandler {
	return &AgencyHandler{agencies: agencies, activity: activity, logger: logger}
}

type agencyRequest struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name" binding:"required"`
	CompanyEmail string    `json:"company_email" binding:"required,email"`
	CompanyPhone string    `json:"company_phone"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	ZipCode      string    `json:"zip_code"`
	State        string    `json:"state"`
	Country      string    `json:"country"`
	AgencyLogo   string    `json:"agency_logo"`
	Goal         int       `json:"goal"`
	WhiteLabel   bool      `json:"white_label"`
}

func (r agencyRequest) model() *models.Agency {
	return &models.Agency{
		ID:           r.ID,
		Name:         r.Name,
		CompanyEmail: r.CompanyEmail,
		CompanyPhone: r.CompanyPhone,
		Address:      r.Address,
		City:         r.City,
		ZipCode:      r.ZipCode,
		State:        r.State,
		Country:      r.Country,
		AgencyLogo:   r.AgencyLogo,
		Goal:         r.Goal,
		WhiteLabel:   r.WhiteLabel,
	}
}

// Upsert handles POST /v1/agencies — the bootstrap and settings path.
func (h *AgencyHandler) Upsert(c *gin.Context) {
	var req agencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agency, err := h.agencies.Upsert(c.Request.Context(), req.model())
	if err != nil {
		h.logger.Error("failed to upsert agency", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save agency"})
		return
	}
	if agency == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company email is required"})
		return
	}

	c.JSON(http.StatusOK, agency)
}

// Get handles GET /v1/agencies/:agencyId.
func (h *AgencyHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("agencyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency id"})
		return
	}

	agency, err := h.agencies.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get agency", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get agency"})
		return
	}
	if agency == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "agency not found"})
		return
	}

	c.JSON(http.StatusOK, agency)
}

// Update handles PUT /v1/agencies/:agencyId and audits the change.
func (h *AgencyHandler) Update(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("agencyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency id"})
		return
	}

	var req agencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := req.model()
	m.ID = id

	agency, err := h.agencies.UpdateDetails(c.Request.Context(), m)
	if err != nil {
		h.logger.Error("failed to update agency", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update agency"})
		return
	}
	if agency == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "agency not found"})
		return
	}

	if _, err := h.activity.Record(c.Request.Context(), &principal,
		scope.Agency(agency.ID), "Updated Agency Information"); err != nil {
		h.logger.Warn("failed to record agency update", zap.Error(err))
	}

	c.JSON(http.StatusOK, agency)
}

type updateGoalRequest struct {
	Goal int `json:"goal" binding:"required,min=1"`
}

// UpdateGoal handles PUT /v1/agencies/:agencyId/goal.
func (h *AgencyHandler) UpdateGoal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("agencyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency id"})
		return
	}

	var req updateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.agencies.UpdateGoal(c.Request.Context(), id, req.Goal); err != nil {
		h.logger.Error("failed to update agency goal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update goal"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /v1/agencies/:agencyId. Everything under the
// agency cascades away with it.
func (h *AgencyHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("agencyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agency id"})
		return
	}

	if err := h.agencies.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("failed to delete agency", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete agency"})
		return
	}

	c.Status(http.StatusNoContent)
}

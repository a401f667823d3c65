package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drivekit/billing/internal/domain/override"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/logger"
	"github.com/drivekit/billing/internal/service"
	"github.com/drivekit/billing/internal/types"
	"github.com/drivekit/billing/internal/validator"
)

type OverrideHandler struct {
	logger    *logger.Logger
	overrides service.OverrideService
}

func NewOverrideHandler(log *logger.Logger, overrides service.OverrideService) *OverrideHandler {
	return &OverrideHandler{logger: log, overrides: overrides}
}

type applyOverrideRequest struct {
	Features map[types.ServiceKind]override.Flag `json:"features_per_service" validate:"dive,keys,oneof=drive backups antivirus meet mail vpn cleaner darkMonitor cli rclone,endkeys"`
}

// @Summary Apply manual feature overrides for a user
// @Description Merges the partial mapping into the stored overrides; absent services keep their value
// @Tags Overrides
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} override.FeatureOverride
func (h *OverrideHandler) Apply(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.Error(ierr.NewError("user id is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation))
		return
	}

	var req applyOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Request body is not a valid override payload").
			Mark(ierr.ErrValidation))
		return
	}
	if err := validator.ValidateRequest(&req); err != nil {
		c.Error(err)
		return
	}

	stored, err := h.overrides.Apply(c.Request.Context(), userID, req.Features)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stored)
}

// @Summary Get a user's stored feature overrides
// @Tags Overrides
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} override.FeatureOverride
func (h *OverrideHandler) Get(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.Error(ierr.NewError("user id is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation))
		return
	}

	stored, err := h.overrides.Get(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stored)
}

package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/logger"
	"github.com/drivekit/billing/internal/service"
)

type EntitlementHandler struct {
	logger        *logger.Logger
	entitlements  service.EntitlementService
	coupons       service.CouponService
	subscriptions service.SubscriptionViewService
}

func NewEntitlementHandler(
	log *logger.Logger,
	entitlements service.EntitlementService,
	coupons service.CouponService,
	subscriptions service.SubscriptionViewService,
) *EntitlementHandler {
	return &EntitlementHandler{
		logger:        log,
		entitlements:  entitlements,
		coupons:       coupons,
		subscriptions: subscriptions,
	}
}

// @Summary Resolve a user's effective entitlement
// @Description Merges the user's linked tiers and manual overrides into one feature set
// @Tags Entitlements
// @Produce json
// @Param id path string true "User ID"
// @Param owner_id query []string false "Additional owner ids to merge (workspace owners)"
// @Success 200 {object} service.EffectiveEntitlement
func (h *EntitlementHandler) Get(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.Error(ierr.NewError("user id is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation))
		return
	}

	owners := append([]string{userID}, c.QueryArray("owner_id")...)
	ent, err := h.entitlements.Resolve(c.Request.Context(), owners...)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ent)
}

// @Summary Get a user's live billing status
// @Description Answers free/subscriber/lifetime from the cached processor view
// @Tags Entitlements
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string
func (h *EntitlementHandler) BillingStatus(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.Error(ierr.NewError("user id is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation))
		return
	}

	status, err := h.subscriptions.StatusForUser(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// @Summary List a user's redeemed tracked coupons
// @Tags Entitlements
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string][]string
func (h *EntitlementHandler) UsedCoupons(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.Error(ierr.NewError("user id is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation))
		return
	}

	codes, err := h.coupons.UsedCodes(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"codes": codes})
}

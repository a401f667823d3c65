package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/drivekit/billing/internal/config"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/logger"
	"github.com/drivekit/billing/internal/service"
	"github.com/drivekit/billing/internal/types"
)

type WebhookHandler struct {
	cfg       *config.Configuration
	logger    *logger.Logger
	lifecycle service.LifecycleService
}

func NewWebhookHandler(cfg *config.Configuration, log *logger.Logger, lifecycle service.LifecycleService) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, logger: log, lifecycle: lifecycle}
}

type invoicePayload struct {
	ID string `json:"id"`
}

type subscriptionPayload struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
}

type disputePayload struct {
	Charge string `json:"charge"`
	Status string `json:"status"`
}

type chargePayload struct {
	ID       string `json:"id"`
	Refunded bool   `json:"refunded"`
}

type paymentIntentPayload struct {
	ID string `json:"id"`
}

// @Summary Billing processor webhook
// @Description Receives signed billing events and drives the lifecycle engine
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Could not read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	event, err := h.parseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.dispatch(c, event); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": "true"})
}

// parseEvent verifies the webhook signature, ignoring API version mismatch.
func (h *WebhookHandler) parseEvent(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.cfg.Stripe.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		h.logger.Errorw("webhook signature verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

func (h *WebhookHandler) dispatch(c *gin.Context, event *stripe.Event) error {
	ctx := c.Request.Context()
	eventType := types.WebhookEventType(event.Type)

	h.logger.Infow("webhook event received",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	switch eventType {
	case types.WebhookEventTypeInvoicePaymentSucceeded:
		var p invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
			return malformedPayload(err, event)
		}
		return h.lifecycle.HandleInvoicePaid(ctx, p.ID)

	case types.WebhookEventTypeInvoicePaymentFailed:
		var p invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
			return malformedPayload(err, event)
		}
		return h.lifecycle.HandleInvoicePaymentFailed(ctx, p.ID)

	case types.WebhookEventTypeSubscriptionUpdated:
		var p subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
			return malformedPayload(err, event)
		}
		active := p.Status == string(stripe.SubscriptionStatusActive) ||
			p.Status == string(stripe.SubscriptionStatusTrialing)
		return h.lifecycle.HandleSubscriptionUpdated(ctx, p.Customer, active)

	case types.WebhookEventTypeSubscriptionDeleted:
		var p subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
			return malformedPayload(err, event)
		}
		return h.lifecycle.HandleSubscriptionCanceled(ctx, p.Customer)

	case types.WebhookEventTypeDisputeClosed:
		var p disputePayload
		if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
			return malformedPayload(err, event)
		}
		if p.Status != string(stripe.DisputeStatusLost) {
			h.logger.Infow("dispute closed without loss, ignoring",
				"event_id", event.ID,
				"status", p.Status,
			)
			return nil
		}
		return h.lifecycle.HandleDisputeLost(ctx, p.Charge)

	case types.WebhookEventTypeChargeRefunded:
		var p chargePayload
		if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
			return malformedPayload(err, event)
		}
		if !p.Refunded {
			// Partial refunds keep the entitlement.
			h.logger.Infow("charge not fully refunded, ignoring", "event_id", event.ID)
			return nil
		}
		return h.lifecycle.HandleChargeRefunded(ctx, p.ID)

	case types.WebhookEventTypePaymentIntentCapturable:
		var p paymentIntentPayload
		if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
			return malformedPayload(err, event)
		}
		return h.lifecycle.HandleFundsCaptured(ctx, p.ID)

	default:
		h.logger.Debugw("unhandled webhook event type acknowledged",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}
}

func malformedPayload(err error, event *stripe.Event) error {
	return ierr.WithError(err).
		WithHint("Webhook payload does not match the expected shape").
		WithReportableDetails(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).
		Mark(ierr.ErrValidation)
}

package service

import (
	"context"

	"github.com/drivekit/billing/internal/domain/tier"
	"github.com/drivekit/billing/internal/domain/user"
	"github.com/drivekit/billing/internal/domain/usertier"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/gateway"
	"github.com/drivekit/billing/internal/payments"
)

// LifecycleService is the webhook-driven state machine. States are
// implicit in the User and UserTierLink data; every transition is an
// idempotent upsert keyed by processor identifiers, because deliveries are
// at-least-once and unordered.
type LifecycleService interface {
	HandleInvoicePaid(ctx context.Context, invoiceID string) error
	HandleInvoicePaymentFailed(ctx context.Context, invoiceID string) error
	HandleSubscriptionUpdated(ctx context.Context, customerID string, active bool) error
	HandleSubscriptionCanceled(ctx context.Context, customerID string) error
	HandleChargeRefunded(ctx context.Context, chargeID string) error
	HandleDisputeLost(ctx context.Context, chargeID string) error
	HandleFundsCaptured(ctx context.Context, paymentIntentID string) error
}

type lifecycleService struct {
	ServiceParams
	entitlements  EntitlementService
	stacking      StackingService
	subscriptions SubscriptionViewService
	coupons       CouponService
}

func NewLifecycleService(
	params ServiceParams,
	entitlements EntitlementService,
	stacking StackingService,
	subscriptions SubscriptionViewService,
	coupons CouponService,
) LifecycleService {
	return &lifecycleService{
		ServiceParams: params,
		entitlements:  entitlements,
		stacking:      stacking,
		subscriptions: subscriptions,
		coupons:       coupons,
	}
}

func (s *lifecycleService) HandleInvoicePaid(ctx context.Context, invoiceID string) error {
	inv, err := s.Processor.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !inv.Paid {
		s.Logger.Infow("invoice is not paid, ignoring event", "invoice_id", invoiceID)
		return nil
	}

	ic, err := payments.BuildInvoiceContext(ctx, s.Processor, inv)
	if err != nil {
		if ierr.IsValidation(err) {
			// The processor's own catalog is malformed; there is no safe
			// action, so the event is dropped rather than retried forever.
			s.Logger.Errorw("invoice carries invalid catalog metadata, dropping event",
				"invoice_id", invoiceID,
				"error", err,
			)
			return nil
		}
		return err
	}

	if ic.IsObjectStorage() {
		return s.ObjectStorage.Reactivate(ctx, ic.CustomerID)
	}

	usr, err := s.resolveUser(ctx, ic.CustomerEmail, ic.CustomerID)
	if err != nil {
		return err
	}

	if ic.IsLifetime() {
		// Lifetime supersedes subscription. Cancellation failure must not
		// abort the provisioning.
		s.cancelActiveSubscription(ctx, ic.CustomerID)
	}

	purchased, err := s.TierRepo.FindByProductID(ctx, ic.ProductID, &ic.BillingType)
	if err != nil && !ierr.IsNotFound(err) {
		return err
	}

	var applied *tier.Tier
	if purchased != nil {
		var stacked *StackResult
		if ic.IsLifetime() && usr.Lifetime {
			stacked, err = s.stacking.Stack(ctx, usr, purchased)
			if err != nil {
				return err
			}
		}
		applied, err = s.applyTier(ctx, usr, purchased, ic, stacked)
		if err != nil {
			return err
		}
	} else {
		// Products that predate the tier catalog go through the legacy
		// direct-storage-update path.
		if err := s.applyLegacy(ctx, usr, ic); err != nil {
			return err
		}
	}

	if err := s.upsertUser(ctx, usr, ic); err != nil {
		return err
	}

	if applied != nil {
		s.upsertLink(ctx, usr, applied)
	}

	if err := s.coupons.TrackUsage(ctx, usr.ID, ic.CouponCode); err != nil {
		s.Logger.Warnw("coupon tracking failed",
			"user_id", usr.ID,
			"code", ic.CouponCode,
			"error", err,
		)
	}

	s.invalidateCaches(ctx, usr)
	s.Logger.Infow("invoice paid processed",
		"invoice_id", invoiceID,
		"user_id", usr.ID,
		"billing_type", ic.BillingType,
		"plan_kind", ic.PlanKind,
	)
	return nil
}

// resolveUser finds the local identity behind an invoice, by email first
// and by processor customer id second. An unknown identity is fatal: the
// engine cannot provision storage for a user it has no record of.
func (s *lifecycleService) resolveUser(ctx context.Context, email, customerID string) (*user.User, error) {
	if email != "" {
		usr, err := s.UserRepo.GetByEmail(ctx, email)
		if err == nil {
			return usr, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}
	if customerID != "" {
		usr, err := s.UserRepo.GetByCustomerID(ctx, customerID)
		if err == nil {
			return usr, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ierr.NewError("no local user for billing identity").
		WithHint("The invoice belongs to an identity this system has no user for").
		WithReportableDetails(map[string]interface{}{
			"email":       email,
			"customer_id": customerID,
		}).
		Mark(ierr.ErrNotFound)
}

func (s *lifecycleService) cancelActiveSubscription(ctx context.Context, customerID string) {
	subID, err := s.subscriptions.ActiveSubscription(ctx, customerID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			s.Logger.Warnw("could not check active subscription",
				"customer_id", customerID,
				"error", err,
			)
		}
		return
	}
	if err := s.Processor.CancelSubscription(ctx, subID); err != nil {
		s.Logger.Warnw("could not cancel superseded subscription",
			"customer_id", customerID,
			"subscription_id", subID,
			"error", err,
		)
	}
}

// applyTier provisions the drive and VPN features of a resolved tier,
// substituting the stacked storage total when present. It returns the tier
// actually recorded, which for stacked purchases is the stack winner.
func (s *lifecycleService) applyTier(ctx context.Context, usr *user.User, purchased *tier.Tier, ic *payments.InvoiceContext, stacked *StackResult) (*tier.Tier, error) {
	applied := purchased

	if purchased.IsBusiness() {
		ws := purchased.Features.Drive.Workspaces
		seats := clampSeats(ic.Seats, ws.MinimumSeats, ws.MaximumSeats)
		err := s.Drive.UpdateWorkspaceStorage(ctx, usr.UUID, ws.MaxSpaceBytesPerSeat, seats)
		if err != nil {
			if !ierr.IsNotFound(err) {
				return nil, err
			}
			err = s.Drive.InitializeWorkspace(ctx, usr.UUID, gateway.WorkspaceInit{
				SpaceBytes: ws.MaxSpaceBytesPerSeat,
				Seats:      seats,
			})
			if err != nil {
				return nil, err
			}
		}
	} else {
		bytes := purchased.DriveBytes()
		if stacked != nil {
			bytes = stacked.TotalBytes
			applied = stacked.Tier
		}
		if err := s.Drive.ChangeStorage(ctx, usr.UUID, bytes); err != nil {
			return nil, err
		}
	}

	if applied.Features.VPN.Enabled {
		if err := s.VPN.EnableFeature(ctx, usr.UUID, applied.Features.VPN.FeatureID); err != nil {
			s.Logger.Warnw("vpn feature enable failed",
				"user_id", usr.ID,
				"feature_id", applied.Features.VPN.FeatureID,
				"error", err,
			)
		}
	}

	if err := s.Drive.UpdateUserTier(ctx, usr.UUID, applied.Label); err != nil {
		s.Logger.Warnw("tier label update failed",
			"user_id", usr.ID,
			"tier_id", applied.ID,
			"error", err,
		)
	}
	return applied, nil
}

// applyLegacy provisions a product the catalog does not know, using the
// invoice's own metadata as the source of truth.
func (s *lifecycleService) applyLegacy(ctx context.Context, usr *user.User, ic *payments.InvoiceContext) error {
	if ic.IsBusiness() {
		err := s.Drive.UpdateWorkspaceStorage(ctx, usr.UUID, ic.SpaceBytes, ic.Seats)
		if err != nil {
			if !ierr.IsNotFound(err) {
				return err
			}
			return s.Drive.InitializeWorkspace(ctx, usr.UUID, gateway.WorkspaceInit{
				SpaceBytes: ic.SpaceBytes,
				Seats:      ic.Seats,
			})
		}
		return nil
	}
	return s.Drive.CreateOrUpdateUser(ctx, usr.Email, ic.SpaceBytes)
}

// upsertUser refreshes the identity projection. A business purchase at the
// account level does not itself define individual lifetime status, so it
// preserves a pre-existing lifetime flag instead of overwriting it.
func (s *lifecycleService) upsertUser(ctx context.Context, usr *user.User, ic *payments.InvoiceContext) error {
	lifetime := ic.IsLifetime()
	if ic.IsBusiness() {
		lifetime = usr.Lifetime || ic.IsLifetime()
	}
	usr.Lifetime = lifetime
	if ic.CustomerID != "" {
		usr.CustomerID = ic.CustomerID
	}
	return s.UserRepo.Update(ctx, usr)
}

// upsertLink records the applied tier. Business purchases look for an
// existing workspace-enabled link, individual purchases for a
// non-workspace one; a missing link is repaired by insertion, a stale one
// is rewritten in place. Failures beyond storage errors are logged, not
// propagated: a missing link must not abort a successful provisioning.
func (s *lifecycleService) upsertLink(ctx context.Context, usr *user.User, applied *tier.Tier) {
	links, err := s.UserTierRepo.FindByUserID(ctx, usr.ID)
	if err != nil {
		s.Logger.Errorw("could not list user-tier links",
			"user_id", usr.ID,
			"error", err,
		)
		return
	}

	var current *usertier.UserTierLink
	for _, link := range links {
		t, err := s.TierRepo.FindByTierID(ctx, link.TierID)
		if err != nil {
			continue
		}
		if t.IsBusiness() == applied.IsBusiness() {
			current = link
			break
		}
	}

	switch {
	case current == nil:
		if err := s.UserTierRepo.Insert(ctx, usertier.New(usr.ID, applied.ID)); err != nil {
			s.Logger.Errorw("could not insert user-tier link",
				"user_id", usr.ID,
				"tier_id", applied.ID,
				"error", err,
			)
		}
	case current.TierID != applied.ID:
		matched, err := s.UserTierRepo.Update(ctx, usr.ID, current.TierID, applied.ID)
		if err != nil {
			s.Logger.Errorw("could not update user-tier link",
				"user_id", usr.ID,
				"tier_id", applied.ID,
				"error", err,
			)
			return
		}
		if !matched {
			// The link vanished between read and write; repair by insert.
			if err := s.UserTierRepo.Insert(ctx, usertier.New(usr.ID, applied.ID)); err != nil {
				s.Logger.Errorw("could not repair user-tier link",
					"user_id", usr.ID,
					"tier_id", applied.ID,
					"error", err,
				)
			}
		}
	}
}

func (s *lifecycleService) invalidateCaches(ctx context.Context, usr *user.User) {
	if usr.CustomerID != "" {
		s.subscriptions.Invalidate(ctx, usr.CustomerID)
	}
	s.coupons.Invalidate(ctx, usr.ID)
	s.entitlements.InvalidateCache(ctx, usr.ID)
}

func clampSeats(seats, min, max int) int {
	if min > 0 && seats < min {
		seats = min
	}
	if max > 0 && seats > max {
		seats = max
	}
	return seats
}

package service

import (
	"context"

	"github.com/drivekit/billing/internal/domain/tier"
	"github.com/drivekit/billing/internal/domain/user"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/payments"
	"github.com/drivekit/billing/internal/types"
)

func (s *lifecycleService) HandleInvoicePaymentFailed(ctx context.Context, invoiceID string) error {
	inv, err := s.Processor.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	ic, err := payments.BuildInvoiceContext(ctx, s.Processor, inv)
	if err != nil {
		if ierr.IsValidation(err) || ierr.IsNotFound(err) {
			s.Logger.Warnw("failed invoice carries no usable catalog data, ignoring",
				"invoice_id", invoiceID,
				"error", err,
			)
			return nil
		}
		return err
	}

	if ic.IsObjectStorage() {
		return s.ObjectStorage.Suspend(ctx, ic.CustomerID)
	}

	usr, err := s.resolveUser(ctx, ic.CustomerEmail, ic.CustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("payment failed for unknown identity, ignoring",
				"invoice_id", invoiceID,
			)
			return nil
		}
		return err
	}

	// Best effort: a broken notification channel must never escalate a
	// payment failure into a processing failure.
	if err := s.Drive.SendPaymentFailedNotice(ctx, usr.UUID); err != nil {
		s.Logger.Warnw("payment failed notice could not be delivered",
			"user_id", usr.ID,
			"error", err,
		)
	}
	return nil
}

func (s *lifecycleService) HandleSubscriptionUpdated(ctx context.Context, customerID string, active bool) error {
	if !active {
		return s.HandleSubscriptionCanceled(ctx, customerID)
	}

	usr, err := s.UserRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("subscription update for unknown customer, ignoring",
				"customer_id", customerID,
			)
			return nil
		}
		return err
	}

	s.invalidateCaches(ctx, usr)

	ent, err := s.entitlements.Resolve(ctx, usr.ID)
	if err != nil {
		return err
	}
	if ent.Drive.Workspace {
		// Workspace storage follows seat counts, which only invoice events
		// carry; re-applying here could shrink a workspace.
		s.Logger.Debugw("subscription update on workspace plan, storage unchanged",
			"user_id", usr.ID,
		)
		return nil
	}
	return s.Drive.ChangeStorage(ctx, usr.UUID, ent.Drive.MaxSpaceBytes)
}

func (s *lifecycleService) HandleSubscriptionCanceled(ctx context.Context, customerID string) error {
	usr, err := s.UserRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("subscription cancel for unknown customer, ignoring",
				"customer_id", customerID,
			)
			return nil
		}
		return err
	}

	if usr.Lifetime {
		// A lifetime holder keeps their allocation when a leftover
		// subscription winds down.
		s.Logger.Infow("subscription canceled for lifetime user, allocation kept",
			"user_id", usr.ID,
		)
		s.invalidateCaches(ctx, usr)
		return nil
	}

	free, err := s.entitlements.FreeTier(ctx)
	if err != nil {
		return err
	}

	s.removeLinksByBillingType(ctx, usr, types.BillingTypeSubscription)

	if err := s.Drive.ChangeStorage(ctx, usr.UUID, s.freeBytes(free)); err != nil {
		return err
	}
	if err := s.Drive.UpdateUserTier(ctx, usr.UUID, free.Label); err != nil {
		s.Logger.Warnw("tier label downgrade failed",
			"user_id", usr.ID,
			"error", err,
		)
	}

	s.invalidateCaches(ctx, usr)
	s.Logger.Infow("subscription canceled, user downgraded to free",
		"user_id", usr.ID,
	)
	return nil
}

func (s *lifecycleService) HandleChargeRefunded(ctx context.Context, chargeID string) error {
	return s.downgradeForCharge(ctx, chargeID, "charge refunded")
}

func (s *lifecycleService) HandleDisputeLost(ctx context.Context, chargeID string) error {
	return s.downgradeForCharge(ctx, chargeID, "dispute lost")
}

// downgradeForCharge reverts the purchase behind a lost dispute or a full
// refund. Subscribers get their subscription canceled (the cancellation
// webhook performs the downgrade); lifetime users lose the tier bought by
// the charge and fall back to the free-plan size.
func (s *lifecycleService) downgradeForCharge(ctx context.Context, chargeID, reason string) error {
	charge, err := s.Processor.GetCharge(ctx, chargeID)
	if err != nil {
		return err
	}
	if charge.CustomerID == "" {
		s.Logger.Warnw("charge carries no customer, ignoring", "charge_id", chargeID)
		return nil
	}

	usr, err := s.resolveChargeUser(ctx, charge)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("charge belongs to unknown identity, ignoring",
				"charge_id", chargeID,
				"reason", reason,
			)
			return nil
		}
		return err
	}

	if !usr.Lifetime {
		subID, err := s.subscriptions.ActiveSubscription(ctx, charge.CustomerID)
		if err != nil {
			if !ierr.IsNotFound(err) {
				s.Logger.Warnw("could not check subscription during downgrade",
					"user_id", usr.ID,
					"error", err,
				)
			}
			return nil
		}
		if err := s.Processor.CancelSubscription(ctx, subID); err != nil {
			// Swallowed: the processor retries the dispute webhook and the
			// cancellation is re-attempted then.
			s.Logger.Warnw("subscription cancellation during downgrade failed",
				"user_id", usr.ID,
				"subscription_id", subID,
				"error", err,
			)
		}
		s.invalidateCaches(ctx, usr)
		return nil
	}

	affected := s.tierForCharge(ctx, charge)
	free, err := s.entitlements.FreeTier(ctx)
	if err != nil {
		return err
	}

	if affected == nil {
		// Legacy product: no tier to remove. Terminal action, never
		// propagated.
		usr.Lifetime = false
		if err := s.UserRepo.Update(ctx, usr); err != nil {
			s.Logger.Errorw("could not clear lifetime flag during legacy downgrade",
				"user_id", usr.ID,
				"error", err,
			)
		}
		if err := s.Drive.ChangeStorage(ctx, usr.UUID, s.freeBytes(free)); err != nil {
			s.Logger.Errorw("could not revert storage during legacy downgrade",
				"user_id", usr.ID,
				"error", err,
			)
		}
		if err := s.Drive.UpdateUserTier(ctx, usr.UUID, free.Label); err != nil {
			s.Logger.Warnw("tier label downgrade failed",
				"user_id", usr.ID,
				"error", err,
			)
		}
		s.invalidateCaches(ctx, usr)
		s.Logger.Infow("legacy lifetime purchase reverted",
			"user_id", usr.ID,
			"reason", reason,
		)
		return nil
	}

	if _, err := s.UserTierRepo.Delete(ctx, usr.ID, affected.ID); err != nil {
		return err
	}

	if !s.hasLifetimeLinks(ctx, usr) {
		usr.Lifetime = false
		if err := s.UserRepo.Update(ctx, usr); err != nil {
			return err
		}
	}

	if err := s.Drive.ChangeStorage(ctx, usr.UUID, s.freeBytes(free)); err != nil {
		return err
	}
	if affected.Features.VPN.Enabled {
		if err := s.VPN.DisableFeature(ctx, usr.UUID, affected.Features.VPN.FeatureID); err != nil {
			s.Logger.Warnw("vpn feature disable failed",
				"user_id", usr.ID,
				"feature_id", affected.Features.VPN.FeatureID,
				"error", err,
			)
		}
	}
	if err := s.Drive.UpdateUserTier(ctx, usr.UUID, free.Label); err != nil {
		s.Logger.Warnw("tier label downgrade failed",
			"user_id", usr.ID,
			"error", err,
		)
	}

	s.invalidateCaches(ctx, usr)
	s.Logger.Infow("lifetime purchase reverted",
		"user_id", usr.ID,
		"tier_id", affected.ID,
		"reason", reason,
	)
	return nil
}

func (s *lifecycleService) HandleFundsCaptured(ctx context.Context, paymentIntentID string) error {
	pi, err := s.Processor.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return err
	}

	if pi.Metadata[payments.MetadataProduct] != string(types.PlanKindObjectStorage) {
		s.Logger.Debugw("captured funds name no downstream product, ignoring",
			"payment_intent_id", paymentIntentID,
		)
		return nil
	}

	priceID := pi.Metadata[payments.MetadataPriceID]
	if priceID == "" {
		return ierr.NewError("verification intent carries no price").
			WithHint("The payment intent metadata does not name the price to subscribe").
			WithReportableDetails(map[string]interface{}{
				"payment_intent_id": paymentIntentID,
			}).
			Mark(ierr.ErrValidation)
	}

	customer, err := s.Processor.GetCustomer(ctx, pi.CustomerID)
	if err != nil {
		return err
	}

	// The verification hold is released before the real subscription is
	// created; charging the hold and the subscription would double-bill.
	if err := s.Processor.CancelPaymentIntent(ctx, pi.ID); err != nil {
		return err
	}
	if _, err := s.Processor.CreateSubscription(ctx, pi.CustomerID, priceID); err != nil {
		return err
	}

	// A conflict here means the customer is already provisioned; the error
	// carries ErrAlreadyExists so the transport reports it as a 409 rather
	// than a failure.
	if err := s.ObjectStorage.CreateAccount(ctx, pi.CustomerID, customer.Email); err != nil {
		return err
	}

	s.Logger.Infow("object storage account provisioned",
		"customer_id", pi.CustomerID,
	)
	return nil
}

func (s *lifecycleService) resolveChargeUser(ctx context.Context, charge *payments.Charge) (*user.User, error) {
	usr, err := s.UserRepo.GetByCustomerID(ctx, charge.CustomerID)
	if err == nil {
		return usr, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	customer, err := s.Processor.GetCustomer(ctx, charge.CustomerID)
	if err != nil {
		return nil, err
	}
	return s.UserRepo.GetByEmail(ctx, customer.Email)
}

// tierForCharge finds the lifetime tier bought by a charge by matching the
// charge's payment intent against the customer's invoices. A nil result
// means a legacy product.
func (s *lifecycleService) tierForCharge(ctx context.Context, charge *payments.Charge) *tier.Tier {
	if charge.PaymentIntentID == "" {
		return nil
	}

	invoices, err := s.Processor.ListInvoices(ctx, charge.CustomerID)
	if err != nil {
		s.Logger.Warnw("could not list invoices for charge",
			"charge_id", charge.ID,
			"error", err,
		)
		return nil
	}

	for _, inv := range invoices {
		if inv.PaymentIntentID != charge.PaymentIntentID || len(inv.Lines) == 0 {
			continue
		}
		lifetime := types.BillingTypeLifetime
		t, err := s.TierRepo.FindByProductID(ctx, inv.Lines[0].ProductID, &lifetime)
		if err != nil {
			if !ierr.IsNotFound(err) {
				s.Logger.Warnw("tier lookup failed for charged product",
					"charge_id", charge.ID,
					"product_id", inv.Lines[0].ProductID,
					"error", err,
				)
			}
			return nil
		}
		return t
	}
	return nil
}

func (s *lifecycleService) removeLinksByBillingType(ctx context.Context, usr *user.User, billingType types.BillingType) {
	links, err := s.UserTierRepo.FindByUserID(ctx, usr.ID)
	if err != nil {
		s.Logger.Errorw("could not list user-tier links",
			"user_id", usr.ID,
			"error", err,
		)
		return
	}
	for _, link := range links {
		t, err := s.TierRepo.FindByTierID(ctx, link.TierID)
		if err != nil {
			continue
		}
		if t.BillingType != billingType {
			continue
		}
		if _, err := s.UserTierRepo.Delete(ctx, usr.ID, link.TierID); err != nil {
			s.Logger.Errorw("could not delete user-tier link",
				"user_id", usr.ID,
				"tier_id", link.TierID,
				"error", err,
			)
			continue
		}
		if t.Features.VPN.Enabled {
			if err := s.VPN.DisableFeature(ctx, usr.UUID, t.Features.VPN.FeatureID); err != nil {
				s.Logger.Warnw("vpn feature disable failed",
					"user_id", usr.ID,
					"feature_id", t.Features.VPN.FeatureID,
					"error", err,
				)
			}
		}
	}
}

func (s *lifecycleService) hasLifetimeLinks(ctx context.Context, usr *user.User) bool {
	links, err := s.UserTierRepo.FindByUserID(ctx, usr.ID)
	if err != nil {
		return false
	}
	for _, link := range links {
		t, err := s.TierRepo.FindByTierID(ctx, link.TierID)
		if err != nil {
			continue
		}
		if t.BillingType == types.BillingTypeLifetime {
			return true
		}
	}
	return false
}

func (s *lifecycleService) freeBytes(free *tier.Tier) int64 {
	if free.DriveBytes() > 0 {
		return free.DriveBytes()
	}
	return s.Config.Tiers.DefaultFreeBytes
}

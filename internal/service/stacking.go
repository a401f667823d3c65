package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"

	"github.com/drivekit/billing/internal/domain/tier"
	"github.com/drivekit/billing/internal/domain/user"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/payments"
	"github.com/drivekit/billing/internal/types"
)

// StackResult is the combined outcome of stacking a user's lifetime
// purchases: the total storage to grant and the tier to record.
type StackResult struct {
	TotalBytes int64
	Tier       *tier.Tier
}

// StackingService computes the combined storage allocation for a user who
// accumulates lifetime purchases, possibly spread across several processor
// customer records sharing one email.
type StackingService interface {
	// Stack aggregates every admitted invoice across all customer records
	// sharing the user's email and picks the highest-capacity lifetime
	// tier among the purchased one, the currently recorded one and every
	// tier resolvable from the admitted invoices.
	Stack(ctx context.Context, usr *user.User, purchased *tier.Tier) (*StackResult, error)
}

type stackingService struct {
	ServiceParams
}

func NewStackingService(params ServiceParams) StackingService {
	return &stackingService{ServiceParams: params}
}

type admittedInvoice struct {
	InvoiceID  string
	ProductID  string
	SpaceBytes int64
}

func (s *stackingService) Stack(ctx context.Context, usr *user.User, purchased *tier.Tier) (*StackResult, error) {
	customers, err := s.Processor.ListCustomersByEmail(ctx, usr.Email)
	if err != nil {
		return nil, err
	}
	// The same customer record can surface more than once across lookups;
	// counting it twice would double the storage grant.
	customers = lo.UniqBy(customers, func(c *payments.Customer) string { return c.ID })

	var invoices []*payments.Invoice
	for _, customer := range customers {
		customerInvoices, err := s.Processor.ListInvoices(ctx, customer.ID)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, customerInvoices...)
	}

	// Admission checks fan out per invoice and are joined before summing.
	// A failed member is excluded explicitly, never left half-resolved.
	p := pool.NewWithResults[*admittedInvoice]()
	for _, inv := range invoices {
		inv := inv
		p.Go(func() *admittedInvoice {
			return s.admit(ctx, inv)
		})
	}
	admitted := lo.Filter(p.Wait(), func(a *admittedInvoice, _ int) bool {
		return a != nil
	})

	totalBytes := lo.SumBy(admitted, func(a *admittedInvoice) int64 {
		return a.SpaceBytes
	})
	if totalBytes == 0 {
		// No admitted invoice usually means transient processor lag right
		// after purchase. Granting zero bytes would lock the user out, so
		// fall back to the free-plan size.
		s.Logger.Warnw("lifetime stack resolved to zero bytes, applying free-plan size",
			"user_id", usr.ID,
			"email", usr.Email,
		)
		totalBytes = s.Config.Tiers.DefaultFreeBytes
	}

	winner, err := s.pickTier(ctx, usr, purchased, admitted)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("lifetime stack resolved",
		"user_id", usr.ID,
		"admitted_invoices", len(admitted),
		"total_bytes", totalBytes,
		"tier_id", winner.ID,
	)
	return &StackResult{TotalBytes: totalBytes, Tier: winner}, nil
}

// admit applies the paid-invoice admission test: the invoice counts only
// if it is paid and either settled out-of-band with no processor-recorded
// payment, or backed by a charge that is neither refunded nor disputed.
func (s *stackingService) admit(ctx context.Context, inv *payments.Invoice) *admittedInvoice {
	if !inv.Paid || len(inv.Lines) == 0 {
		return nil
	}

	if inv.HasPayment {
		if inv.PaymentIntentID == "" {
			return nil
		}
		charge, err := s.Processor.GetChargeByPaymentIntent(ctx, inv.PaymentIntentID)
		if err != nil {
			// Invoices with no resolvable charge are excluded entirely.
			s.Logger.Warnw("could not resolve charge for invoice, excluding from stack",
				"invoice_id", inv.ID,
				"error", err,
			)
			return nil
		}
		if charge.Refunded || charge.Disputed {
			return nil
		}
	}

	line := inv.Lines[0]
	price, err := s.Processor.GetPrice(ctx, line.PriceID)
	if err != nil {
		s.Logger.Warnw("could not resolve price for invoice, excluding from stack",
			"invoice_id", inv.ID,
			"price_id", line.PriceID,
			"error", err,
		)
		return nil
	}
	spaceBytes, _, err := payments.ParsePriceMetadata(price)
	if err != nil {
		s.Logger.Warnw("invoice price carries no storage size, excluding from stack",
			"invoice_id", inv.ID,
			"price_id", price.ID,
		)
		return nil
	}

	return &admittedInvoice{
		InvoiceID:  inv.ID,
		ProductID:  line.ProductID,
		SpaceBytes: spaceBytes,
	}
}

// pickTier selects the highest-capacity lifetime tier among the purchased
// tier, the user's currently recorded lifetime tier and every tier
// resolvable from the admitted invoices. Unresolvable tiers are skipped;
// having no candidate at all is fatal.
func (s *stackingService) pickTier(ctx context.Context, usr *user.User, purchased *tier.Tier, admitted []*admittedInvoice) (*tier.Tier, error) {
	var candidates []*tier.Tier
	if purchased != nil {
		candidates = append(candidates, purchased)
	}

	links, err := s.UserTierRepo.FindByUserID(ctx, usr.ID)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		t, err := s.TierRepo.FindByTierID(ctx, link.TierID)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if t.BillingType == types.BillingTypeLifetime {
			candidates = append(candidates, t)
		}
	}

	lifetime := types.BillingTypeLifetime
	for _, a := range admitted {
		t, err := s.TierRepo.FindByProductID(ctx, a.ProductID, &lifetime)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		candidates = append(candidates, t)
	}

	if len(candidates) == 0 {
		return nil, ierr.NewError("no lifetime tier could be determined").
			WithHint("The purchase cannot be provisioned without a resolvable tier").
			WithReportableDetails(map[string]interface{}{
				"user_id": usr.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	winner := lo.MaxBy(candidates, func(a, b *tier.Tier) bool {
		return a.DriveBytes() > b.DriveBytes()
	})
	return winner, nil
}

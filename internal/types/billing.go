package types

import ierr "github.com/drivekit/billing/internal/errors"

// BillingType distinguishes recurring subscriptions from one-time
// perpetual (lifetime) purchases.
type BillingType string

const (
	BillingTypeSubscription BillingType = "subscription"
	BillingTypeLifetime     BillingType = "lifetime"
)

func (b BillingType) Validate() error {
	switch b {
	case BillingTypeSubscription, BillingTypeLifetime:
		return nil
	default:
		return ierr.NewError("invalid billing type").
			WithHintf("Billing type must be one of: %s, %s", BillingTypeSubscription, BillingTypeLifetime).
			Mark(ierr.ErrValidation)
	}
}

// PlanKind is the allocation model carried on the processor price metadata.
type PlanKind string

const (
	PlanKindIndividual    PlanKind = "individual"
	PlanKindBusiness      PlanKind = "business"
	PlanKindObjectStorage PlanKind = "object-storage"
)

func (p PlanKind) Validate() error {
	switch p {
	case PlanKindIndividual, PlanKindBusiness, PlanKindObjectStorage:
		return nil
	default:
		return ierr.NewError("invalid plan kind").
			WithHint("Plan kind must be individual, business or object-storage").
			Mark(ierr.ErrValidation)
	}
}

// UserBillingStatus is the live status derived from the processor's
// subscription view, not persisted locally.
type UserBillingStatus string

const (
	UserBillingStatusFree       UserBillingStatus = "free"
	UserBillingStatusSubscriber UserBillingStatus = "subscriber"
	UserBillingStatusLifetime   UserBillingStatus = "lifetime"
)

// FreeTierProductID is the reserved product identifier for the catalog's
// free tier. Every user must always resolve to some entitlement, so the
// catalog must carry a tier under this id.
const FreeTierProductID = "free"

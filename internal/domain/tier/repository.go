package tier

import (
	"context"

	"github.com/drivekit/billing/internal/types"
)

// Repository is the read interface over the tier catalog. Lookups are pure
// reads; absence is recoverable (ErrNotFound) because callers routinely
// probe for tiers that may not exist ("old product" fallback path).
type Repository interface {
	// FindByProductID resolves a tier by processor product id. When
	// billingType is nil and the product exists under both billing types,
	// the subscription tier is returned; the choice is deterministic.
	FindByProductID(ctx context.Context, productID string, billingType *types.BillingType) (*Tier, error)

	// FindByTierID resolves a tier by its store-assigned id.
	FindByTierID(ctx context.Context, tierID string) (*Tier, error)
}

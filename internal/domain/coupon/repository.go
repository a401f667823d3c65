package coupon

import "context"

// Repository stores the tracked-coupon registry and per-user redemptions.
type Repository interface {
	// GetTracked resolves a registry entry by coupon code. Unregistered
	// codes return ErrNotFound, which callers treat as steady state.
	GetTracked(ctx context.Context, code string) (*TrackedCoupon, error)

	// RecordUsage is idempotent per (userID, code).
	RecordUsage(ctx context.Context, usage *Usage) error

	ListUsageByUser(ctx context.Context, userID string) ([]*Usage, error)
}

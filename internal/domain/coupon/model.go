package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/drivekit/billing/internal/types"
)

// TrackedCoupon is a registry entry for a coupon the system cares to
// attribute to users. Coupons outside this registry are expected and
// silently ignored by the lifecycle engine.
type TrackedCoupon struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	PercentOff decimal.Decimal `json:"percent_off"`
	AmountOff  decimal.Decimal `json:"amount_off"`
	types.BaseModel
}

// Usage records that a user redeemed a tracked coupon.
type Usage struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Code   string `json:"code"`
	types.BaseModel
}

func NewUsage(userID, code string) *Usage {
	return &Usage{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COUPON_USAGE),
		UserID:    userID,
		Code:      code,
		BaseModel: types.GetDefaultBaseModel(),
	}
}

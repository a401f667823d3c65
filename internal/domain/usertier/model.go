package usertier

import (
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// UserTierLink joins a user to a tier currently applied to them. The store
// does not guarantee (user_id, tier_id) uniqueness; callers select among
// duplicates explicitly instead of assuming one row.
type UserTierLink struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	TierID string `json:"tier_id"`
	types.BaseModel
}

func New(userID, tierID string) *UserTierLink {
	return &UserTierLink{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER_TIER),
		UserID:    userID,
		TierID:    tierID,
		BaseModel: types.GetDefaultBaseModel(),
	}
}

func (l *UserTierLink) Validate() error {
	if l.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation)
	}
	if l.TierID == "" {
		return ierr.NewError("tier_id is required").
			WithHint("Please provide a valid tier ID").
			Mark(ierr.ErrValidation)
	}
	return nil
}

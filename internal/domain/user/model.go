package user

import (
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// User is the local projection of an external identity.
type User struct {
	ID string `json:"id"`
	// UUID is the processor-independent identity used by the storage and
	// VPN gateways.
	UUID string `json:"uuid"`
	// CustomerID is the payments-processor customer id.
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	// Lifetime is sticky: true once any lifetime billing type has ever
	// been successfully applied and not yet fully reverted.
	Lifetime bool `json:"lifetime"`
	types.BaseModel
}

func (u *User) Validate() error {
	if u.UUID == "" {
		return ierr.NewError("uuid is required").
			WithHint("Please provide a valid user UUID").
			Mark(ierr.ErrValidation)
	}
	return nil
}

package user

import "context"

// Repository stores local user projections. The lifecycle engine resolves
// identities by email first, then by processor customer id.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUUID(ctx context.Context, uuid string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByCustomerID(ctx context.Context, customerID string) (*User, error)
}

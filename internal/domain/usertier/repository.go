package usertier

import "context"

// Repository stores the user-tier relation. Update and Delete report
// whether a row matched; false is not an error, callers branch on it to
// decide insert-vs-update.
type Repository interface {
	Insert(ctx context.Context, link *UserTierLink) error

	// Update rewrites the first link matching (userID, oldTierID) to point
	// at newTierID. Returns false when no row matched.
	Update(ctx context.Context, userID, oldTierID, newTierID string) (bool, error)

	// Delete removes the first link matching (userID, tierID). Returns
	// false when no row matched.
	Delete(ctx context.Context, userID, tierID string) (bool, error)

	DeleteAll(ctx context.Context, userID string) error

	// FindByUserID returns the user's links ordered by id so that
	// first-match tie-breaks are stable across reads.
	FindByUserID(ctx context.Context, userID string) ([]*UserTierLink, error)
}

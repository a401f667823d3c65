package override

import "context"

// Repository stores manual feature overrides. Absence of a record for a
// user is not an error at the call sites; GetByUserID still reports it as
// ErrNotFound so callers can distinguish empty from missing.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*FeatureOverride, error)

	// Save persists the full record, replacing the stored mapping. Merge
	// semantics are applied by the caller before saving.
	Save(ctx context.Context, o *FeatureOverride) error
}

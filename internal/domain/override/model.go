package override

import (
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// Flag is a manual per-service grant. Only the enabled bit is overridable
// out-of-band; capacities always come from tiers.
type Flag struct {
	Enabled bool `json:"enabled"`
}

// FeatureOverride holds a user's manual per-service overrides. It is
// written by support actions independently of billing events and must
// survive tier changes.
type FeatureOverride struct {
	ID       string                     `json:"id"`
	UserID   string                     `json:"user_id"`
	Features map[types.ServiceKind]Flag `json:"features_per_service"`
	types.BaseModel
}

func New(userID string) *FeatureOverride {
	return &FeatureOverride{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_OVERRIDE),
		UserID:    userID,
		Features:  make(map[types.ServiceKind]Flag),
		BaseModel: types.GetDefaultBaseModel(),
	}
}

// Merge folds the incoming partial mapping into the stored one. Services
// absent from the payload keep their previous value; an empty payload is
// a no-op.
func (o *FeatureOverride) Merge(incoming map[types.ServiceKind]Flag) {
	if o.Features == nil {
		o.Features = make(map[types.ServiceKind]Flag)
	}
	for svc, flag := range incoming {
		o.Features[svc] = flag
	}
}

func (o *FeatureOverride) Validate() error {
	if o.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation)
	}
	for svc := range o.Features {
		if !svc.Valid() {
			return ierr.NewError("unknown service in override").
				WithHintf("Service %q is not a known service", svc).
				WithReportableDetails(map[string]interface{}{
					"service": svc,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

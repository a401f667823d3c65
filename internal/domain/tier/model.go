package tier

import (
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// Tier is an immutable catalog entry bundling per-service feature limits
// for one product under one billing type. Rows are seeded out-of-band and
// never mutated by the lifecycle engine.
type Tier struct {
	ID          string            `json:"id"`
	ProductID   string            `json:"product_id"`
	Label       string            `json:"label"`
	BillingType types.BillingType `json:"billing_type"`
	Features    Features          `json:"features_per_service"`
	types.BaseModel
}

// Features holds one record per service.
type Features struct {
	Drive       DriveFeatures `json:"drive"`
	Backups     BoolFeature   `json:"backups"`
	Antivirus   BoolFeature   `json:"antivirus"`
	Meet        MeetFeatures  `json:"meet"`
	Mail        MailFeatures  `json:"mail"`
	VPN         VPNFeatures   `json:"vpn"`
	Cleaner     BoolFeature   `json:"cleaner"`
	DarkMonitor BoolFeature   `json:"darkMonitor"`
	CLI         BoolFeature   `json:"cli"`
	Rclone      BoolFeature   `json:"rclone"`
}

// BoolFeature is a plain on/off grant.
type BoolFeature struct {
	Enabled bool `json:"enabled"`
}

// DriveFeatures carries the storage allocation and the workspace block.
type DriveFeatures struct {
	Enabled       bool              `json:"enabled"`
	MaxSpaceBytes int64             `json:"maxSpaceBytes"`
	Workspaces    WorkspaceFeatures `json:"workspaces"`
}

// WorkspaceFeatures is the business/team allocation mode with per-seat
// storage and seat-count bounds.
type WorkspaceFeatures struct {
	Enabled              bool  `json:"enabled"`
	MinimumSeats         int   `json:"minimumSeats"`
	MaximumSeats         int   `json:"maximumSeats"`
	MaxSpaceBytesPerSeat int64 `json:"maxSpaceBytesPerSeat"`
}

type MailFeatures struct {
	Enabled          bool `json:"enabled"`
	AddressesPerUser int  `json:"addressesPerUser"`
}

type MeetFeatures struct {
	Enabled    bool `json:"enabled"`
	PaxPerCall int  `json:"paxPerCall"`
}

type VPNFeatures struct {
	Enabled bool `json:"enabled"`
	// FeatureID identifies the VPN plan on the VPN gateway. Feature
	// identity, not capacity, is what varies between tiers.
	FeatureID string `json:"featureId"`
}

// IsBusiness reports whether the tier uses the workspace allocation model.
func (t *Tier) IsBusiness() bool {
	return t.Features.Drive.Workspaces.Enabled
}

// DriveBytes is the individual storage allocation of the tier.
func (t *Tier) DriveBytes() int64 {
	return t.Features.Drive.MaxSpaceBytes
}

func (t *Tier) Validate() error {
	if t.ProductID == "" {
		return ierr.NewError("product_id is required").
			WithHint("Please provide a valid product ID").
			Mark(ierr.ErrValidation)
	}
	if err := t.BillingType.Validate(); err != nil {
		return err
	}
	if t.Features.Drive.Enabled && t.Features.Drive.MaxSpaceBytes <= 0 && !t.IsBusiness() {
		return ierr.NewError("drive tier requires a positive space allocation").
			WithHint("maxSpaceBytes must be set on drive-enabled individual tiers").
			WithReportableDetails(map[string]interface{}{
				"product_id": t.ProductID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

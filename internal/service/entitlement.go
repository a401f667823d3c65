package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/drivekit/billing/internal/cache"
	"github.com/drivekit/billing/internal/domain/override"
	"github.com/drivekit/billing/internal/domain/tier"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// OverrideSourceID marks entitlements granted by a manual override rather
// than a catalog tier.
const OverrideSourceID = "override"

// BoolEntitlement is the merged result for a plain on/off service.
type BoolEntitlement struct {
	Enabled      bool   `json:"enabled"`
	SourceTierID string `json:"source_tier_id,omitempty"`
}

// MailEntitlement selects the tier with the most addresses per user.
type MailEntitlement struct {
	Enabled          bool   `json:"enabled"`
	AddressesPerUser int    `json:"addressesPerUser"`
	SourceTierID     string `json:"source_tier_id,omitempty"`
}

// MeetEntitlement selects the tier with the highest pax per call.
type MeetEntitlement struct {
	Enabled      bool   `json:"enabled"`
	PaxPerCall   int    `json:"paxPerCall"`
	SourceTierID string `json:"source_tier_id,omitempty"`
}

// VPNEntitlement takes the first enabling tier: feature identity, not
// capacity, is what varies between VPN tiers.
type VPNEntitlement struct {
	Enabled      bool   `json:"enabled"`
	FeatureID    string `json:"featureId,omitempty"`
	SourceTierID string `json:"source_tier_id,omitempty"`
}

// DriveEntitlement is the winning storage allocation. Workspace mode
// carries per-seat storage and seat bounds instead of a flat size.
type DriveEntitlement struct {
	Enabled              bool   `json:"enabled"`
	MaxSpaceBytes        int64  `json:"maxSpaceBytes"`
	Workspace            bool   `json:"workspace"`
	MinimumSeats         int    `json:"minimumSeats,omitempty"`
	MaximumSeats         int    `json:"maximumSeats,omitempty"`
	MaxSpaceBytesPerSeat int64  `json:"maxSpaceBytesPerSeat,omitempty"`
	SourceTierID         string `json:"source_tier_id,omitempty"`
}

// EffectiveEntitlement is the single merged feature set granted to a user
// at a point in time. It is computed on demand and never persisted.
type EffectiveEntitlement struct {
	Drive       DriveEntitlement `json:"drive"`
	Backups     BoolEntitlement  `json:"backups"`
	Antivirus   BoolEntitlement  `json:"antivirus"`
	Meet        MeetEntitlement  `json:"meet"`
	Mail        MailEntitlement  `json:"mail"`
	VPN         VPNEntitlement   `json:"vpn"`
	Cleaner     BoolEntitlement  `json:"cleaner"`
	DarkMonitor BoolEntitlement  `json:"darkMonitor"`
	CLI         BoolEntitlement  `json:"cli"`
	Rclone      BoolEntitlement  `json:"rclone"`
}

// EntitlementService computes the effective feature set for a user from
// their linked tiers and manual overrides.
type EntitlementService interface {
	// Resolve merges the tiers linked to every supplied owner id plus the
	// first owner's manual overrides. Owners beyond the first cover
	// workspace members resolving through their workspace owner.
	Resolve(ctx context.Context, ownerIDs ...string) (*EffectiveEntitlement, error)

	// TiersFor returns the tiers currently linked to a user in stable link
	// order. Links referencing unknown tiers are skipped.
	TiersFor(ctx context.Context, userID string) ([]*tier.Tier, error)

	// FreeTier fetches the catalog's designated free tier. Absence is
	// fatal: every user must always resolve to some entitlement.
	FreeTier(ctx context.Context) (*tier.Tier, error)

	// InvalidateCache drops the cached entitlement for a user.
	InvalidateCache(ctx context.Context, userID string)
}

type entitlementService struct {
	ServiceParams
}

func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{ServiceParams: params}
}

func (s *entitlementService) Resolve(ctx context.Context, ownerIDs ...string) (*EffectiveEntitlement, error) {
	if len(ownerIDs) == 0 {
		return nil, ierr.NewError("no owner ids supplied").
			WithHint("At least one user id is required to resolve entitlements").
			Mark(ierr.ErrValidation)
	}

	// Owners expand into individual key segments so the per-user
	// invalidation prefix matches single- and multi-owner keys alike.
	cacheKey := cache.GenerateKey(cache.PrefixEntitlement, lo.ToAnySlice(ownerIDs)...)
	if cached, found := s.Cache.Get(ctx, cacheKey); found {
		if ent, ok := cache.UnmarshalValue[EffectiveEntitlement](cached); ok {
			return &ent, nil
		}
	}

	var tiers []*tier.Tier
	for _, ownerID := range ownerIDs {
		ownerTiers, err := s.TiersFor(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, ownerTiers...)
	}

	if len(tiers) == 0 {
		free, err := s.FreeTier(ctx)
		if err != nil {
			return nil, err
		}
		tiers = []*tier.Tier{free}
	}

	ovr, err := s.OverrideRepo.GetByUserID(ctx, ownerIDs[0])
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		ovr = nil
	}

	ent := MergeFeatures(tiers, ovr)
	s.Cache.Set(ctx, cacheKey, *ent, s.Config.Cache.SubscriptionTTL)
	return ent, nil
}

func (s *entitlementService) TiersFor(ctx context.Context, userID string) ([]*tier.Tier, error) {
	links, err := s.UserTierRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tiers := make([]*tier.Tier, 0, len(links))
	for _, link := range links {
		t, err := s.TierRepo.FindByTierID(ctx, link.TierID)
		if err != nil {
			if ierr.IsNotFound(err) {
				s.Logger.Warnw("user-tier link references unknown tier, skipping",
					"user_id", userID,
					"tier_id", link.TierID,
				)
				continue
			}
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}

func (s *entitlementService) FreeTier(ctx context.Context) (*tier.Tier, error) {
	productID := s.Config.Tiers.FreeTierProductID
	if productID == "" {
		productID = types.FreeTierProductID
	}
	free, err := s.TierRepo.FindByProductID(ctx, productID, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("The catalog is missing its free tier").
			WithReportableDetails(map[string]interface{}{
				"product_id": productID,
			}).
			Mark(ierr.ErrSystem)
	}
	return free, nil
}

func (s *entitlementService) InvalidateCache(ctx context.Context, userID string) {
	s.Cache.DeleteByPrefix(ctx, cache.GenerateKey(cache.PrefixEntitlement, userID))
}

// MergeFeatures folds a set of tiers plus an optional override record into
// one effective entitlement. The merge is order-independent for the
// enabled bits and numeric winners; only the source tier id of a tied
// winner depends on iteration order, which callers keep stable by passing
// tiers in link order.
func MergeFeatures(tiers []*tier.Tier, ovr *override.FeatureOverride) *EffectiveEntitlement {
	ent := &EffectiveEntitlement{}

	for _, t := range tiers {
		mergeBool(&ent.Backups, t.Features.Backups, t.ID)
		mergeBool(&ent.Antivirus, t.Features.Antivirus, t.ID)
		mergeBool(&ent.Cleaner, t.Features.Cleaner, t.ID)
		mergeBool(&ent.DarkMonitor, t.Features.DarkMonitor, t.ID)
		mergeBool(&ent.CLI, t.Features.CLI, t.ID)
		mergeBool(&ent.Rclone, t.Features.Rclone, t.ID)

		if t.Features.Mail.Enabled {
			if !ent.Mail.Enabled || t.Features.Mail.AddressesPerUser > ent.Mail.AddressesPerUser {
				ent.Mail = MailEntitlement{
					Enabled:          true,
					AddressesPerUser: t.Features.Mail.AddressesPerUser,
					SourceTierID:     t.ID,
				}
			}
		}

		if t.Features.Meet.Enabled {
			if !ent.Meet.Enabled || t.Features.Meet.PaxPerCall > ent.Meet.PaxPerCall {
				ent.Meet = MeetEntitlement{
					Enabled:      true,
					PaxPerCall:   t.Features.Meet.PaxPerCall,
					SourceTierID: t.ID,
				}
			}
		}

		// First enabling tier wins for VPN.
		if t.Features.VPN.Enabled && !ent.VPN.Enabled {
			ent.VPN = VPNEntitlement{
				Enabled:      true,
				FeatureID:    t.Features.VPN.FeatureID,
				SourceTierID: t.ID,
			}
		}
	}

	ent.Drive = mergeDrive(tiers)

	if ovr != nil {
		applyOverrides(ent, ovr)
	}
	return ent
}

func mergeBool(dst *BoolEntitlement, src tier.BoolFeature, tierID string) {
	if src.Enabled && !dst.Enabled {
		dst.Enabled = true
		dst.SourceTierID = tierID
	}
}

// mergeDrive runs the two-phase selection: a business (workspace-enabled)
// tier always beats an individual one regardless of raw storage size; only
// within a partition does capacity decide.
func mergeDrive(tiers []*tier.Tier) DriveEntitlement {
	var business, individual *tier.Tier
	for _, t := range tiers {
		if !t.Features.Drive.Enabled {
			continue
		}
		if t.IsBusiness() {
			if business == nil || t.Features.Drive.Workspaces.MaxSpaceBytesPerSeat > business.Features.Drive.Workspaces.MaxSpaceBytesPerSeat {
				business = t
			}
		} else {
			if individual == nil || t.DriveBytes() > individual.DriveBytes() {
				individual = t
			}
		}
	}

	if business != nil {
		ws := business.Features.Drive.Workspaces
		return DriveEntitlement{
			Enabled:              true,
			Workspace:            true,
			MinimumSeats:         ws.MinimumSeats,
			MaximumSeats:         ws.MaximumSeats,
			MaxSpaceBytesPerSeat: ws.MaxSpaceBytesPerSeat,
			MaxSpaceBytes:        business.DriveBytes(),
			SourceTierID:         business.ID,
		}
	}
	if individual != nil {
		return DriveEntitlement{
			Enabled:       true,
			MaxSpaceBytes: individual.DriveBytes(),
			SourceTierID:  individual.ID,
		}
	}
	return DriveEntitlement{}
}

// applyOverrides grants manually enabled services that no tier supplies.
// Overrides carry only the enabled bit, so capacities stay untouched.
func applyOverrides(ent *EffectiveEntitlement, ovr *override.FeatureOverride) {
	for _, svc := range types.AllServices {
		flag, ok := ovr.Features[svc]
		if !ok || !flag.Enabled {
			continue
		}
		switch svc {
		case types.ServiceBackups:
			enableByOverride(&ent.Backups)
		case types.ServiceAntivirus:
			enableByOverride(&ent.Antivirus)
		case types.ServiceCleaner:
			enableByOverride(&ent.Cleaner)
		case types.ServiceDarkMonitor:
			enableByOverride(&ent.DarkMonitor)
		case types.ServiceCLI:
			enableByOverride(&ent.CLI)
		case types.ServiceRclone:
			enableByOverride(&ent.Rclone)
		case types.ServiceMail:
			if !ent.Mail.Enabled {
				ent.Mail.Enabled = true
				ent.Mail.SourceTierID = OverrideSourceID
			}
		case types.ServiceMeet:
			if !ent.Meet.Enabled {
				ent.Meet.Enabled = true
				ent.Meet.SourceTierID = OverrideSourceID
			}
		case types.ServiceVPN:
			if !ent.VPN.Enabled {
				ent.VPN.Enabled = true
				ent.VPN.SourceTierID = OverrideSourceID
			}
		case types.ServiceDrive:
			if !ent.Drive.Enabled {
				ent.Drive.Enabled = true
				ent.Drive.SourceTierID = OverrideSourceID
			}
		}
	}
}

func enableByOverride(dst *BoolEntitlement) {
	if !dst.Enabled {
		dst.Enabled = true
		dst.SourceTierID = OverrideSourceID
	}
}

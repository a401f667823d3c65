package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/drivekit/billing/internal/domain/override"
	"github.com/drivekit/billing/internal/domain/tier"
	"github.com/drivekit/billing/internal/domain/usertier"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

type EntitlementServiceSuite struct {
	suite.Suite
	ctx context.Context
	f   *testFixture
}

func TestEntitlementServiceSuite(t *testing.T) {
	suite.Run(t, new(EntitlementServiceSuite))
}

func (s *EntitlementServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.f = newFixture()
}

func (s *EntitlementServiceSuite) TestMergeIsOrderIndependent() {
	a := individualTier("tier_a", "prod_a", types.BillingTypeSubscription, 5_000_000_000)
	a.Features.Backups = tier.BoolFeature{Enabled: true}
	a.Features.Mail = tier.MailFeatures{Enabled: true, AddressesPerUser: 3}
	b := individualTier("tier_b", "prod_b", types.BillingTypeSubscription, 10_000_000_000)
	b.Features.Mail = tier.MailFeatures{Enabled: true, AddressesPerUser: 10}
	b.Features.Meet = tier.MeetFeatures{Enabled: true, PaxPerCall: 50}

	forward := MergeFeatures([]*tier.Tier{a, b}, nil)
	reversed := MergeFeatures([]*tier.Tier{b, a}, nil)

	s.Equal(forward.Drive.MaxSpaceBytes, reversed.Drive.MaxSpaceBytes)
	s.Equal(int64(10_000_000_000), forward.Drive.MaxSpaceBytes)
	s.Equal(forward.Backups.Enabled, reversed.Backups.Enabled)
	s.Equal(forward.Mail.AddressesPerUser, reversed.Mail.AddressesPerUser)
	s.Equal(10, forward.Mail.AddressesPerUser)
	s.Equal(forward.Meet.PaxPerCall, reversed.Meet.PaxPerCall)
}

func (s *EntitlementServiceSuite) TestBusinessTierBeatsLargerIndividualTier() {
	individual := individualTier("tier_ind", "prod_ind", types.BillingTypeSubscription, 10*1024*1024*1024)
	business := businessTier("tier_biz", "prod_biz", 1*1024*1024*1024, 3, 100)

	ent := MergeFeatures([]*tier.Tier{individual, business}, nil)

	s.True(ent.Drive.Workspace)
	s.Equal("tier_biz", ent.Drive.SourceTierID)
	s.Equal(int64(1*1024*1024*1024), ent.Drive.MaxSpaceBytesPerSeat)
}

func (s *EntitlementServiceSuite) TestVPNFirstEnablerWins() {
	a := individualTier("tier_a", "prod_a", types.BillingTypeSubscription, 1)
	a.Features.VPN = tier.VPNFeatures{Enabled: true, FeatureID: "vpn_basic"}
	b := individualTier("tier_b", "prod_b", types.BillingTypeSubscription, 2)
	b.Features.VPN = tier.VPNFeatures{Enabled: true, FeatureID: "vpn_premium"}

	ent := MergeFeatures([]*tier.Tier{a, b}, nil)

	s.True(ent.VPN.Enabled)
	s.Equal("vpn_basic", ent.VPN.FeatureID)
	s.Equal("tier_a", ent.VPN.SourceTierID)
}

func (s *EntitlementServiceSuite) TestOverrideGrantsOnlyWhenNoTierSupplies() {
	t := individualTier("tier_a", "prod_a", types.BillingTypeSubscription, 1)
	t.Features.Antivirus = tier.BoolFeature{Enabled: true}

	ovr := override.New("user_1")
	ovr.Features[types.ServiceAntivirus] = override.Flag{Enabled: true}
	ovr.Features[types.ServiceCleaner] = override.Flag{Enabled: true}

	ent := MergeFeatures([]*tier.Tier{t}, ovr)

	s.Equal("tier_a", ent.Antivirus.SourceTierID)
	s.True(ent.Cleaner.Enabled)
	s.Equal(OverrideSourceID, ent.Cleaner.SourceTierID)
}

func (s *EntitlementServiceSuite) TestEmptyTierSetFallsBackToFreeTier() {
	free := s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	ent, err := s.f.entitlements.Resolve(s.ctx, "user_1")

	s.NoError(err)
	s.True(ent.Drive.Enabled)
	s.Equal(free.DriveBytes(), ent.Drive.MaxSpaceBytes)
	s.Equal(free.ID, ent.Drive.SourceTierID)
}

func (s *EntitlementServiceSuite) TestMissingFreeTierIsFatal() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	_, err := s.f.entitlements.Resolve(s.ctx, "user_1")

	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrSystem))
}

func (s *EntitlementServiceSuite) TestResolveMergesAcrossOwners() {
	owned := individualTier("tier_own", "prod_own", types.BillingTypeSubscription, 3_000_000_000)
	shared := businessTier("tier_shared", "prod_shared", 5_000_000_000, 3, 10)
	s.f.tiers.Add(owned)
	s.f.tiers.Add(shared)
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New("user_1", "tier_own")))
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New("owner_2", "tier_shared")))

	ent, err := s.f.entitlements.Resolve(s.ctx, "user_1", "owner_2")

	s.NoError(err)
	s.True(ent.Drive.Workspace)
	s.Equal("tier_shared", ent.Drive.SourceTierID)
}

func (s *EntitlementServiceSuite) TestLinksToUnknownTiersAreSkipped() {
	known := individualTier("tier_a", "prod_a", types.BillingTypeSubscription, 1_000_000_000)
	s.f.tiers.Add(known)
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New("user_1", "tier_gone")))
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New("user_1", "tier_a")))

	tiers, err := s.f.entitlements.TiersFor(s.ctx, "user_1")

	s.NoError(err)
	s.Len(tiers, 1)
	s.Equal("tier_a", tiers[0].ID)
}

func (s *EntitlementServiceSuite) TestInvalidateCacheDropsCachedResolution() {
	free := s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	ent, err := s.f.entitlements.Resolve(s.ctx, "user_1")
	s.Require().NoError(err)
	s.Equal(free.DriveBytes(), ent.Drive.MaxSpaceBytes)

	bigger := individualTier("tier_big", "prod_big", types.BillingTypeSubscription, 8_000_000_000)
	s.f.tiers.Add(bigger)
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New("user_1", "tier_big")))

	// Still the cached free allocation until someone invalidates.
	ent, err = s.f.entitlements.Resolve(s.ctx, "user_1")
	s.Require().NoError(err)
	s.Equal(free.DriveBytes(), ent.Drive.MaxSpaceBytes)

	s.f.entitlements.InvalidateCache(s.ctx, "user_1")

	ent, err = s.f.entitlements.Resolve(s.ctx, "user_1")
	s.Require().NoError(err)
	s.Equal(int64(8_000_000_000), ent.Drive.MaxSpaceBytes)
	s.Equal("tier_big", ent.Drive.SourceTierID)
}

func (s *EntitlementServiceSuite) TestInvalidateCacheCoversMultiOwnerResolutions() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	_, err := s.f.entitlements.Resolve(s.ctx, "user_1", "owner_2")
	s.Require().NoError(err)

	shared := businessTier("tier_shared", "prod_shared", 5_000_000_000, 3, 10)
	s.f.tiers.Add(shared)
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New("owner_2", "tier_shared")))

	s.f.entitlements.InvalidateCache(s.ctx, "user_1")

	ent, err := s.f.entitlements.Resolve(s.ctx, "user_1", "owner_2")
	s.Require().NoError(err)
	s.True(ent.Drive.Workspace)
	s.Equal("tier_shared", ent.Drive.SourceTierID)
}

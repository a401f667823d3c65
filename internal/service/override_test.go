package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/drivekit/billing/internal/domain/override"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

type OverrideServiceSuite struct {
	suite.Suite
	ctx context.Context
	f   *testFixture
	svc OverrideService
}

func TestOverrideServiceSuite(t *testing.T) {
	suite.Run(t, new(OverrideServiceSuite))
}

func (s *OverrideServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.f = newFixture()
	s.svc = NewOverrideService(s.f.params, s.f.entitlements)
}

func (s *OverrideServiceSuite) TestApplyCreatesRecordForNewUser() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	stored, err := s.svc.Apply(s.ctx, "user_1", map[types.ServiceKind]override.Flag{
		types.ServiceAntivirus: {Enabled: true},
	})

	s.NoError(err)
	s.True(stored.Features[types.ServiceAntivirus].Enabled)
}

func (s *OverrideServiceSuite) TestApplyMergesWithoutDroppingOtherServices() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	_, err := s.svc.Apply(s.ctx, "user_1", map[types.ServiceKind]override.Flag{
		types.ServiceAntivirus: {Enabled: true},
		types.ServiceBackups:   {Enabled: true},
	})
	s.Require().NoError(err)

	stored, err := s.svc.Apply(s.ctx, "user_1", map[types.ServiceKind]override.Flag{
		types.ServiceBackups: {Enabled: false},
	})

	s.NoError(err)
	s.True(stored.Features[types.ServiceAntivirus].Enabled)
	s.False(stored.Features[types.ServiceBackups].Enabled)
}

func (s *OverrideServiceSuite) TestApplyEmptyPayloadIsNoOp() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	_, err := s.svc.Apply(s.ctx, "user_1", map[types.ServiceKind]override.Flag{
		types.ServiceCleaner: {Enabled: true},
	})
	s.Require().NoError(err)

	stored, err := s.svc.Apply(s.ctx, "user_1", map[types.ServiceKind]override.Flag{})

	s.NoError(err)
	s.True(stored.Features[types.ServiceCleaner].Enabled)
	s.Len(stored.Features, 1)
}

func (s *OverrideServiceSuite) TestApplyRejectsUnknownService() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	_, err := s.svc.Apply(s.ctx, "user_1", map[types.ServiceKind]override.Flag{
		"teleport": {Enabled: true},
	})

	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *OverrideServiceSuite) TestApplyRejectsUnknownUser() {
	_, err := s.svc.Apply(s.ctx, "user_ghost", map[types.ServiceKind]override.Flag{
		types.ServiceAntivirus: {Enabled: true},
	})

	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *OverrideServiceSuite) TestOverridesSurviveTierChanges() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)

	_, err := s.svc.Apply(s.ctx, "user_1", map[types.ServiceKind]override.Flag{
		types.ServiceVPN: {Enabled: true},
	})
	s.Require().NoError(err)

	ent, err := s.f.entitlements.Resolve(s.ctx, "user_1")

	s.NoError(err)
	s.True(ent.VPN.Enabled)
	s.Equal(OverrideSourceID, ent.VPN.SourceTierID)
}

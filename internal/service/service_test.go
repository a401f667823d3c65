package service

import (
	"context"

	"github.com/drivekit/billing/internal/cache"
	"github.com/drivekit/billing/internal/config"
	"github.com/drivekit/billing/internal/domain/tier"
	"github.com/drivekit/billing/internal/domain/user"
	"github.com/drivekit/billing/internal/testutil"
	"github.com/drivekit/billing/internal/types"
)

// testFixture wires every service against in-memory stores and fakes.
type testFixture struct {
	params    ServiceParams
	tiers     *testutil.InMemoryTierStore
	users     *testutil.InMemoryUserStore
	links     *testutil.InMemoryUserTierStore
	overrides *testutil.InMemoryOverrideStore
	coupons   *testutil.InMemoryCouponStore
	processor *testutil.FakeProcessor
	drive     *testutil.FakeDriveClient
	vpn       *testutil.FakeVPNClient
	objects   *testutil.FakeObjectStorageClient

	entitlements  EntitlementService
	stacking      StackingService
	subscriptions SubscriptionViewService
	couponSvc     CouponService
	lifecycle     LifecycleService
}

func newFixture() *testFixture {
	f := &testFixture{
		tiers:     testutil.NewInMemoryTierStore(),
		users:     testutil.NewInMemoryUserStore(),
		links:     testutil.NewInMemoryUserTierStore(),
		overrides: testutil.NewInMemoryOverrideStore(),
		coupons:   testutil.NewInMemoryCouponStore(),
		processor: testutil.NewFakeProcessor(),
		drive:     testutil.NewFakeDriveClient(),
		vpn:       testutil.NewFakeVPNClient(),
		objects:   testutil.NewFakeObjectStorageClient(),
	}

	cfg := config.GetDefaultConfig()
	f.params = ServiceParams{
		Logger:        testutil.GetLogger(),
		Config:        cfg,
		Cache:         cache.NewInMemoryCache(cfg),
		Processor:     f.processor,
		Drive:         f.drive,
		VPN:           f.vpn,
		ObjectStorage: f.objects,
		TierRepo:      f.tiers,
		UserRepo:      f.users,
		UserTierRepo:  f.links,
		OverrideRepo:  f.overrides,
		CouponRepo:    f.coupons,
	}

	f.entitlements = NewEntitlementService(f.params)
	f.stacking = NewStackingService(f.params)
	f.subscriptions = NewSubscriptionViewService(f.params)
	f.couponSvc = NewCouponService(f.params)
	f.lifecycle = NewLifecycleService(f.params, f.entitlements, f.stacking, f.subscriptions, f.couponSvc)
	return f
}

func (f *testFixture) seedFreeTier() *tier.Tier {
	free := &tier.Tier{
		ID:          "tier_free",
		ProductID:   types.FreeTierProductID,
		Label:       "Free",
		BillingType: types.BillingTypeSubscription,
		Features: tier.Features{
			Drive: tier.DriveFeatures{Enabled: true, MaxSpaceBytes: 2_000_000_000},
		},
	}
	f.tiers.Add(free)
	return free
}

func (f *testFixture) seedUser(id, email, customerID string, lifetime bool) *user.User {
	usr := &user.User{
		ID:         id,
		UUID:       "uuid-" + id,
		CustomerID: customerID,
		Email:      email,
		Lifetime:   lifetime,
	}
	_ = f.users.Create(context.Background(), usr)
	return usr
}

func individualTier(id, productID string, billingType types.BillingType, bytes int64) *tier.Tier {
	return &tier.Tier{
		ID:          id,
		ProductID:   productID,
		Label:       id,
		BillingType: billingType,
		Features: tier.Features{
			Drive: tier.DriveFeatures{Enabled: true, MaxSpaceBytes: bytes},
		},
	}
}

func businessTier(id, productID string, perSeat int64, minSeats, maxSeats int) *tier.Tier {
	return &tier.Tier{
		ID:          id,
		ProductID:   productID,
		Label:       id,
		BillingType: types.BillingTypeSubscription,
		Features: tier.Features{
			Drive: tier.DriveFeatures{
				Enabled: true,
				Workspaces: tier.WorkspaceFeatures{
					Enabled:              true,
					MinimumSeats:         minSeats,
					MaximumSeats:         maxSeats,
					MaxSpaceBytesPerSeat: perSeat,
				},
			},
		},
	}
}

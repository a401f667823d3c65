package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/drivekit/billing/internal/domain/coupon"
	"github.com/drivekit/billing/internal/domain/usertier"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/payments"
	"github.com/drivekit/billing/internal/types"
)

type LifecycleServiceSuite struct {
	suite.Suite
	ctx context.Context
	f   *testFixture
}

func TestLifecycleServiceSuite(t *testing.T) {
	suite.Run(t, new(LifecycleServiceSuite))
}

func (s *LifecycleServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.f = newFixture()
}

func (s *LifecycleServiceSuite) seedPrice(priceID, productID string, recurring bool, bytes int64, kind types.PlanKind) {
	s.f.processor.Prices[priceID] = &payments.Price{
		ID:        priceID,
		ProductID: productID,
		Recurring: recurring,
		Metadata: map[string]string{
			payments.MetadataSpaceBytes: strconv.FormatInt(bytes, 10),
			payments.MetadataPlanKind:   string(kind),
		},
	}
}

func (s *LifecycleServiceSuite) seedInvoice(invoiceID, customerID, email, priceID, productID, paymentIntentID string, seats int64) {
	s.f.processor.Invoices[invoiceID] = &payments.Invoice{
		ID:              invoiceID,
		CustomerID:      customerID,
		CustomerEmail:   email,
		Paid:            true,
		HasPayment:      paymentIntentID != "",
		PaymentIntentID: paymentIntentID,
		Lines: []payments.LineItem{
			{PriceID: priceID, ProductID: productID, Quantity: seats},
		},
	}
}

func (s *LifecycleServiceSuite) TestSubscriptionPurchaseProvisionsTwoGigabytes() {
	s.f.seedFreeTier()
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.f.tiers.Add(individualTier("tier_p", "prod_p", types.BillingTypeSubscription, 2_000_000_000))
	s.seedPrice("price_p", "prod_p", true, 2_000_000_000, types.PlanKindIndividual)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_p", "prod_p", "pi_1", 1)

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.NoError(err)
	s.Equal(int64(2_000_000_000), s.f.drive.LastStorageBytes())

	links, _ := s.f.links.FindByUserID(s.ctx, "user_1")
	s.Len(links, 1)
	s.Equal("tier_p", links[0].TierID)

	stored, _ := s.f.users.GetByID(s.ctx, usr.ID)
	s.False(stored.Lifetime)
}

func (s *LifecycleServiceSuite) TestInvoicePaidIsIdempotent() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.f.tiers.Add(individualTier("tier_p", "prod_p", types.BillingTypeSubscription, 2_000_000_000))
	s.seedPrice("price_p", "prod_p", true, 2_000_000_000, types.PlanKindIndividual)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_p", "prod_p", "pi_1", 1)

	s.Require().NoError(s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1"))
	s.Require().NoError(s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1"))

	links, _ := s.f.links.FindByUserID(s.ctx, "user_1")
	s.Len(links, 1)
	s.Equal("tier_p", links[0].TierID)
}

func (s *LifecycleServiceSuite) TestUnpaidInvoiceIsIgnored() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_p", "prod_p", "pi_1", 1)
	s.f.processor.Invoices["in_1"].Paid = false

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.NoError(err)
	s.Empty(s.f.drive.StorageCalls)
}

func (s *LifecycleServiceSuite) TestMalformedCatalogMetadataDropsEvent() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.f.processor.Prices["price_p"] = &payments.Price{ID: "price_p", ProductID: "prod_p", Recurring: true}
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_p", "prod_p", "pi_1", 1)

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.NoError(err)
	s.Empty(s.f.drive.StorageCalls)
}

func (s *LifecycleServiceSuite) TestUnknownIdentityIsFatal() {
	s.seedPrice("price_p", "prod_p", true, 1_000_000_000, types.PlanKindIndividual)
	s.seedInvoice("in_1", "cus_ghost", "ghost@example.com", "price_p", "prod_p", "pi_1", 1)

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *LifecycleServiceSuite) TestObjectStoragePurchaseDelegatesToReactivation() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.seedPrice("price_os", "prod_os", true, 0, types.PlanKindObjectStorage)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_os", "prod_os", "pi_1", 1)

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.NoError(err)
	s.Equal([]string{"cus_1"}, s.f.objects.Reactivated)
	s.Empty(s.f.drive.StorageCalls)
}

func (s *LifecycleServiceSuite) TestLifetimePurchaseCancelsActiveSubscription() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.f.processor.Subscriptions["sub_1"] = &payments.Subscription{ID: "sub_1", CustomerID: "cus_1", Status: "active"}
	s.f.tiers.Add(individualTier("tier_lt", "prod_lt", types.BillingTypeLifetime, 1_000_000_000))
	s.seedPrice("price_lt", "prod_lt", false, 1_000_000_000, types.PlanKindIndividual)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_lt", "prod_lt", "pi_1", 1)

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.NoError(err)
	s.Equal([]string{"sub_1"}, s.f.processor.CanceledSubscriptions)

	stored, _ := s.f.users.GetByID(s.ctx, "user_1")
	s.True(stored.Lifetime)
}

func (s *LifecycleServiceSuite) TestSecondLifetimePurchaseGrantsStackedTotal() {
	s.f.seedFreeTier()
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}

	big := individualTier("tier_big", "prod_big", types.BillingTypeLifetime, 1_000_000_000)
	small := individualTier("tier_small", "prod_small", types.BillingTypeLifetime, 500_000_000)
	s.f.tiers.Add(big)
	s.f.tiers.Add(small)
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New(usr.ID, "tier_big")))

	s.seedPrice("price_big", "prod_big", false, 1_000_000_000, types.PlanKindIndividual)
	s.seedPrice("price_small", "prod_small", false, 500_000_000, types.PlanKindIndividual)
	s.seedInvoice("in_big", "cus_1", "a@example.com", "price_big", "prod_big", "pi_big", 1)
	s.seedInvoice("in_small", "cus_1", "a@example.com", "price_small", "prod_small", "pi_small", 1)
	s.f.processor.Charges["ch_big"] = &payments.Charge{ID: "ch_big", CustomerID: "cus_1", PaymentIntentID: "pi_big"}
	s.f.processor.Charges["ch_small"] = &payments.Charge{ID: "ch_small", CustomerID: "cus_1", PaymentIntentID: "pi_small"}

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_small")

	s.NoError(err)
	s.Equal(int64(1_500_000_000), s.f.drive.LastStorageBytes())

	// The recorded tier is the highest-capacity one, not the newest.
	links, _ := s.f.links.FindByUserID(s.ctx, usr.ID)
	s.Len(links, 1)
	s.Equal("tier_big", links[0].TierID)
}

func (s *LifecycleServiceSuite) TestBusinessPurchaseUpdatesWorkspaceAndPreservesLifetime() {
	s.f.seedFreeTier()
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	biz := businessTier("tier_biz", "prod_biz", 1_000_000_000, 3, 50)
	s.f.tiers.Add(biz)
	s.seedPrice("price_biz", "prod_biz", true, 1_000_000_000, types.PlanKindBusiness)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_biz", "prod_biz", "pi_1", 5)

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.NoError(err)
	s.Len(s.f.drive.WorkspaceUpdates, 1)
	s.Equal(int64(1_000_000_000), s.f.drive.WorkspaceUpdates[0].Bytes)
	s.Equal(5, s.f.drive.WorkspaceUpdates[0].Seats)

	// A business purchase at the account level does not clear the
	// individual lifetime flag.
	stored, _ := s.f.users.GetByID(s.ctx, usr.ID)
	s.True(stored.Lifetime)
}

func (s *LifecycleServiceSuite) TestBusinessPurchaseInitializesMissingWorkspace() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.f.drive.WorkspaceExists = false
	biz := businessTier("tier_biz", "prod_biz", 1_000_000_000, 3, 50)
	s.f.tiers.Add(biz)
	s.seedPrice("price_biz", "prod_biz", true, 1_000_000_000, types.PlanKindBusiness)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_biz", "prod_biz", "pi_1", 2)

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.NoError(err)
	s.Len(s.f.drive.WorkspaceInits, 1)
	// Seats below the tier minimum are raised to it.
	s.Equal(3, s.f.drive.WorkspaceInits[0].Seats)
}

func (s *LifecycleServiceSuite) TestLegacyProductUsesDirectStorageUpdate() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	// No tier registered for prod_old.
	s.seedPrice("price_old", "prod_old", true, 3_000_000_000, types.PlanKindIndividual)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_old", "prod_old", "pi_1", 1)

	err := s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1")

	s.NoError(err)
	s.Len(s.f.drive.LegacyUserUpserts, 1)
	s.Equal(int64(3_000_000_000), s.f.drive.LegacyUserUpserts[0].Bytes)

	links, _ := s.f.links.FindByUserID(s.ctx, "user_1")
	s.Empty(links)
}

func (s *LifecycleServiceSuite) TestTrackedCouponIsRecordedAndUntrackedIgnored() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.f.tiers.Add(individualTier("tier_p", "prod_p", types.BillingTypeSubscription, 2_000_000_000))
	s.seedPrice("price_p", "prod_p", true, 2_000_000_000, types.PlanKindIndividual)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_p", "prod_p", "pi_1", 1)
	s.f.processor.Invoices["in_1"].Lines[0].CouponCode = "PARTNER10"
	s.f.coupons.Track(&coupon.TrackedCoupon{ID: "cpn_1", Code: "PARTNER10", Name: "Partner"})

	s.Require().NoError(s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1"))
	// Replay must not duplicate the redemption.
	s.Require().NoError(s.f.lifecycle.HandleInvoicePaid(s.ctx, "in_1"))

	usages, _ := s.f.coupons.ListUsageByUser(s.ctx, "user_1")
	s.Len(usages, 1)
	s.Equal("PARTNER10", usages[0].Code)
}

func (s *LifecycleServiceSuite) TestSubscriptionCanceledDowngradesToFree() {
	free := s.f.seedFreeTier()
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	sub := individualTier("tier_sub", "prod_sub", types.BillingTypeSubscription, 5_000_000_000)
	s.f.tiers.Add(sub)
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New(usr.ID, "tier_sub")))

	err := s.f.lifecycle.HandleSubscriptionCanceled(s.ctx, "cus_1")

	s.NoError(err)
	s.Equal(free.DriveBytes(), s.f.drive.LastStorageBytes())

	links, _ := s.f.links.FindByUserID(s.ctx, usr.ID)
	s.Empty(links)
}

func (s *LifecycleServiceSuite) TestSubscriptionCanceledKeepsLifetimeAllocation() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", true)

	err := s.f.lifecycle.HandleSubscriptionCanceled(s.ctx, "cus_1")

	s.NoError(err)
	s.Empty(s.f.drive.StorageCalls)
}

func (s *LifecycleServiceSuite) TestRefundOnSubscriberCancelsSubscription() {
	s.f.seedFreeTier()
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.f.processor.Subscriptions["sub_1"] = &payments.Subscription{ID: "sub_1", CustomerID: "cus_1", Status: "active"}
	s.f.processor.Charges["ch_1"] = &payments.Charge{ID: "ch_1", CustomerID: "cus_1", PaymentIntentID: "pi_1", Refunded: true}

	err := s.f.lifecycle.HandleChargeRefunded(s.ctx, "ch_1")

	s.NoError(err)
	s.Equal([]string{"sub_1"}, s.f.processor.CanceledSubscriptions)
}

func (s *LifecycleServiceSuite) TestRefundOnLifetimeRemovesTierAndRevertsStorage() {
	free := s.f.seedFreeTier()
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	lt := individualTier("tier_lt", "prod_lt", types.BillingTypeLifetime, 1_000_000_000)
	s.f.tiers.Add(lt)
	s.Require().NoError(s.f.links.Insert(s.ctx, usertier.New(usr.ID, "tier_lt")))

	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_lt", "prod_lt", "pi_1", 1)
	s.f.processor.Charges["ch_1"] = &payments.Charge{ID: "ch_1", CustomerID: "cus_1", PaymentIntentID: "pi_1", Refunded: true}

	err := s.f.lifecycle.HandleChargeRefunded(s.ctx, "ch_1")

	s.NoError(err)
	s.Equal(free.DriveBytes(), s.f.drive.LastStorageBytes())

	links, _ := s.f.links.FindByUserID(s.ctx, usr.ID)
	s.Empty(links)

	stored, _ := s.f.users.GetByID(s.ctx, usr.ID)
	s.False(stored.Lifetime)
}

func (s *LifecycleServiceSuite) TestRefundOnLegacyLifetimeProductIsTerminal() {
	free := s.f.seedFreeTier()
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	// No tier registered for the refunded product and no invoice match.
	s.f.processor.Charges["ch_1"] = &payments.Charge{ID: "ch_1", CustomerID: "cus_1", PaymentIntentID: "pi_1", Refunded: true}

	err := s.f.lifecycle.HandleChargeRefunded(s.ctx, "ch_1")

	s.NoError(err)
	s.Equal(free.DriveBytes(), s.f.drive.LastStorageBytes())

	stored, _ := s.f.users.GetByID(s.ctx, usr.ID)
	s.False(stored.Lifetime)
}

func (s *LifecycleServiceSuite) TestPaymentFailedSendsBestEffortNotice() {
	s.f.seedUser("user_1", "a@example.com", "cus_1", false)
	s.seedPrice("price_p", "prod_p", true, 1_000_000_000, types.PlanKindIndividual)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_p", "prod_p", "pi_1", 1)

	err := s.f.lifecycle.HandleInvoicePaymentFailed(s.ctx, "in_1")

	s.NoError(err)
	s.Equal([]string{"uuid-user_1"}, s.f.drive.PaymentFailedUsers)
}

func (s *LifecycleServiceSuite) TestPaymentFailedSuspendsObjectStorage() {
	s.seedPrice("price_os", "prod_os", true, 0, types.PlanKindObjectStorage)
	s.seedInvoice("in_1", "cus_1", "a@example.com", "price_os", "prod_os", "pi_1", 1)

	err := s.f.lifecycle.HandleInvoicePaymentFailed(s.ctx, "in_1")

	s.NoError(err)
	s.Equal([]string{"cus_1"}, s.f.objects.Suspended)
}

func (s *LifecycleServiceSuite) TestFundsCapturedProvisionsObjectStorage() {
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}
	s.f.processor.PaymentIntents["pi_1"] = &payments.PaymentIntent{
		ID:         "pi_1",
		CustomerID: "cus_1",
		Metadata: map[string]string{
			payments.MetadataProduct: string(types.PlanKindObjectStorage),
			payments.MetadataPriceID: "price_os",
		},
	}

	err := s.f.lifecycle.HandleFundsCaptured(s.ctx, "pi_1")

	s.NoError(err)
	s.Equal([]string{"pi_1"}, s.f.processor.CanceledPaymentIntents)
	s.Len(s.f.processor.CreatedSubscriptions, 1)
	s.Equal([]string{"cus_1"}, s.f.objects.Created)
}

func (s *LifecycleServiceSuite) TestFundsCapturedConflictIsReported() {
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}
	s.f.objects.Existing["cus_1"] = true
	s.f.processor.PaymentIntents["pi_1"] = &payments.PaymentIntent{
		ID:         "pi_1",
		CustomerID: "cus_1",
		Metadata: map[string]string{
			payments.MetadataProduct: string(types.PlanKindObjectStorage),
			payments.MetadataPriceID: "price_os",
		},
	}

	err := s.f.lifecycle.HandleFundsCaptured(s.ctx, "pi_1")

	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *LifecycleServiceSuite) TestFundsCapturedIgnoresUnrelatedIntents() {
	s.f.processor.PaymentIntents["pi_1"] = &payments.PaymentIntent{ID: "pi_1", CustomerID: "cus_1"}

	err := s.f.lifecycle.HandleFundsCaptured(s.ctx, "pi_1")

	s.NoError(err)
	s.Empty(s.f.processor.CanceledPaymentIntents)
}

package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/suite"

	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/payments"
	"github.com/drivekit/billing/internal/types"
)

type StackingServiceSuite struct {
	suite.Suite
	ctx context.Context
	f   *testFixture
}

func TestStackingServiceSuite(t *testing.T) {
	suite.Run(t, new(StackingServiceSuite))
}

func (s *StackingServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.f = newFixture()
}

func (s *StackingServiceSuite) seedLifetimePrice(priceID, productID string, bytes int64) {
	s.f.processor.Prices[priceID] = &payments.Price{
		ID:        priceID,
		ProductID: productID,
		Recurring: false,
		Metadata: map[string]string{
			payments.MetadataSpaceBytes: strconv.FormatInt(bytes, 10),
			payments.MetadataPlanKind:   string(types.PlanKindIndividual),
		},
	}
}

func (s *StackingServiceSuite) seedPaidInvoice(invoiceID, customerID, priceID, productID, paymentIntentID string) {
	s.f.processor.Invoices[invoiceID] = &payments.Invoice{
		ID:              invoiceID,
		CustomerID:      customerID,
		Paid:            true,
		HasPayment:      paymentIntentID != "",
		PaymentIntentID: paymentIntentID,
		Lines: []payments.LineItem{
			{PriceID: priceID, ProductID: productID, Quantity: 1},
		},
	}
}

func (s *StackingServiceSuite) TestSumsAcrossCustomerRecordsSharingEmail() {
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}
	s.f.processor.Customers["cus_2"] = &payments.Customer{ID: "cus_2", Email: "a@example.com"}

	s.seedLifetimePrice("price_1", "prod_1", 1_000_000_000)
	s.seedLifetimePrice("price_2", "prod_2", 2_000_000_000)
	s.seedPaidInvoice("in_1", "cus_1", "price_1", "prod_1", "pi_1")
	s.seedPaidInvoice("in_2", "cus_2", "price_2", "prod_2", "pi_2")
	s.f.processor.Charges["ch_1"] = &payments.Charge{ID: "ch_1", CustomerID: "cus_1", PaymentIntentID: "pi_1"}
	s.f.processor.Charges["ch_2"] = &payments.Charge{ID: "ch_2", CustomerID: "cus_2", PaymentIntentID: "pi_2"}

	t1 := individualTier("tier_1", "prod_1", types.BillingTypeLifetime, 1_000_000_000)
	t2 := individualTier("tier_2", "prod_2", types.BillingTypeLifetime, 2_000_000_000)
	s.f.tiers.Add(t1)
	s.f.tiers.Add(t2)

	result, err := s.f.stacking.Stack(s.ctx, usr, t1)

	s.NoError(err)
	s.Equal(int64(3_000_000_000), result.TotalBytes)
	s.Equal("tier_2", result.Tier.ID)
}

func (s *StackingServiceSuite) TestRefundedAndDisputedInvoicesAreExcluded() {
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}

	s.seedLifetimePrice("price_1", "prod_1", 1_000_000_000)
	s.seedLifetimePrice("price_2", "prod_2", 2_000_000_000)
	s.seedLifetimePrice("price_3", "prod_3", 4_000_000_000)
	s.seedPaidInvoice("in_ok", "cus_1", "price_1", "prod_1", "pi_ok")
	s.seedPaidInvoice("in_refunded", "cus_1", "price_2", "prod_2", "pi_refunded")
	s.seedPaidInvoice("in_disputed", "cus_1", "price_3", "prod_3", "pi_disputed")
	s.f.processor.Charges["ch_ok"] = &payments.Charge{ID: "ch_ok", CustomerID: "cus_1", PaymentIntentID: "pi_ok"}
	s.f.processor.Charges["ch_r"] = &payments.Charge{ID: "ch_r", CustomerID: "cus_1", PaymentIntentID: "pi_refunded", Refunded: true}
	s.f.processor.Charges["ch_d"] = &payments.Charge{ID: "ch_d", CustomerID: "cus_1", PaymentIntentID: "pi_disputed", Disputed: true}

	t1 := individualTier("tier_1", "prod_1", types.BillingTypeLifetime, 1_000_000_000)
	s.f.tiers.Add(t1)

	result, err := s.f.stacking.Stack(s.ctx, usr, t1)

	s.NoError(err)
	s.Equal(int64(1_000_000_000), result.TotalBytes)
}

func (s *StackingServiceSuite) TestOutOfBandInvoiceIsTrusted() {
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}

	s.seedLifetimePrice("price_1", "prod_1", 1_000_000_000)
	// No payment intent: settled out-of-band, no charge to verify.
	s.seedPaidInvoice("in_oob", "cus_1", "price_1", "prod_1", "")

	t1 := individualTier("tier_1", "prod_1", types.BillingTypeLifetime, 1_000_000_000)
	s.f.tiers.Add(t1)

	result, err := s.f.stacking.Stack(s.ctx, usr, t1)

	s.NoError(err)
	s.Equal(int64(1_000_000_000), result.TotalBytes)
}

func (s *StackingServiceSuite) TestInvoiceWithUnresolvableChargeIsExcluded() {
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}

	s.seedLifetimePrice("price_1", "prod_1", 1_000_000_000)
	// Payment recorded but no charge resolvable behind the intent.
	s.seedPaidInvoice("in_1", "cus_1", "price_1", "prod_1", "pi_missing")

	t1 := individualTier("tier_1", "prod_1", types.BillingTypeLifetime, 1_000_000_000)
	s.f.tiers.Add(t1)

	result, err := s.f.stacking.Stack(s.ctx, usr, t1)

	s.NoError(err)
	// Zero admitted invoices falls back to the free-plan size.
	s.Equal(s.f.params.Config.Tiers.DefaultFreeBytes, result.TotalBytes)
}

func (s *StackingServiceSuite) TestSecondPurchaseStacksOnExisting() {
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}

	s.seedLifetimePrice("price_big", "prod_big", 1_000_000_000)
	s.seedLifetimePrice("price_small", "prod_small", 500_000_000)
	s.seedPaidInvoice("in_big", "cus_1", "price_big", "prod_big", "pi_big")
	s.seedPaidInvoice("in_small", "cus_1", "price_small", "prod_small", "pi_small")
	s.f.processor.Charges["ch_big"] = &payments.Charge{ID: "ch_big", CustomerID: "cus_1", PaymentIntentID: "pi_big"}
	s.f.processor.Charges["ch_small"] = &payments.Charge{ID: "ch_small", CustomerID: "cus_1", PaymentIntentID: "pi_small"}

	big := individualTier("tier_big", "prod_big", types.BillingTypeLifetime, 1_000_000_000)
	small := individualTier("tier_small", "prod_small", types.BillingTypeLifetime, 500_000_000)
	s.f.tiers.Add(big)
	s.f.tiers.Add(small)

	result, err := s.f.stacking.Stack(s.ctx, usr, small)

	s.NoError(err)
	s.Equal(int64(1_500_000_000), result.TotalBytes)
	s.Equal("tier_big", result.Tier.ID)
}

func (s *StackingServiceSuite) TestNoResolvableTierIsFatal() {
	usr := s.f.seedUser("user_1", "a@example.com", "cus_1", true)
	s.f.processor.Customers["cus_1"] = &payments.Customer{ID: "cus_1", Email: "a@example.com"}

	_, err := s.f.stacking.Stack(s.ctx, usr, nil)

	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

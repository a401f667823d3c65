package payments

import (
	"context"

	"github.com/stripe/stripe-go/v82"

	"github.com/drivekit/billing/internal/config"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/logger"
)

// StripeProcessor implements Processor on the Stripe API. All SDK type
// mapping stays inside this file.
type StripeProcessor struct {
	client *stripe.Client
	logger *logger.Logger
}

func NewStripeProcessor(cfg *config.Configuration, log *logger.Logger) *StripeProcessor {
	return &StripeProcessor{
		client: stripe.NewClient(cfg.Stripe.SecretKey, nil),
		logger: log,
	}
}

func (s *StripeProcessor) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	cust, err := s.client.V1Customers.Retrieve(ctx, customerID, &stripe.CustomerRetrieveParams{})
	if err != nil {
		return nil, s.mapError(err, "customer", customerID)
	}
	return mapCustomer(cust), nil
}

func (s *StripeProcessor) ListCustomersByEmail(ctx context.Context, email string) ([]*Customer, error) {
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}

	customers := make([]*Customer, 0)
	for cust, err := range s.client.V1Customers.List(ctx, params) {
		if err != nil {
			return nil, s.mapError(err, "customer_list", email)
		}
		customers = append(customers, mapCustomer(cust))
	}
	return customers, nil
}

func (s *StripeProcessor) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	params := &stripe.InvoiceRetrieveParams{
		Expand: []*string{
			stripe.String("lines.data"),
			stripe.String("payments"),
			stripe.String("customer"),
		},
	}
	inv, err := s.client.V1Invoices.Retrieve(ctx, invoiceID, params)
	if err != nil {
		return nil, s.mapError(err, "invoice", invoiceID)
	}
	return mapInvoice(inv), nil
}

func (s *StripeProcessor) ListInvoices(ctx context.Context, customerID string) ([]*Invoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Expand = []*string{
		stripe.String("data.payments"),
		stripe.String("data.customer"),
	}

	invoices := make([]*Invoice, 0)
	for inv, err := range s.client.V1Invoices.List(ctx, params) {
		if err != nil {
			return nil, s.mapError(err, "invoice_list", customerID)
		}
		invoices = append(invoices, mapInvoice(inv))
	}
	return invoices, nil
}

func (s *StripeProcessor) MarkInvoicePaidOutOfBand(ctx context.Context, invoiceID string) error {
	params := &stripe.InvoicePayParams{
		PaidOutOfBand: stripe.Bool(true),
	}
	if _, err := s.client.V1Invoices.Pay(ctx, invoiceID, params); err != nil {
		return s.mapError(err, "invoice_pay", invoiceID)
	}
	return nil
}

func (s *StripeProcessor) GetPrice(ctx context.Context, priceID string) (*Price, error) {
	params := &stripe.PriceRetrieveParams{
		Expand: []*string{stripe.String("product")},
	}
	price, err := s.client.V1Prices.Retrieve(ctx, priceID, params)
	if err != nil {
		return nil, s.mapError(err, "price", priceID)
	}

	productID := ""
	if price.Product != nil {
		productID = price.Product.ID
	}
	return &Price{
		ID:        price.ID,
		ProductID: productID,
		Recurring: price.Recurring != nil,
		Metadata:  price.Metadata,
	}, nil
}

func (s *StripeProcessor) GetProduct(ctx context.Context, productID string) (*Product, error) {
	prod, err := s.client.V1Products.Retrieve(ctx, productID, &stripe.ProductRetrieveParams{})
	if err != nil {
		return nil, s.mapError(err, "product", productID)
	}
	return &Product{
		ID:       prod.ID,
		Name:     prod.Name,
		Metadata: prod.Metadata,
	}, nil
}

func (s *StripeProcessor) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	params := &stripe.ChargeRetrieveParams{
		Expand: []*string{stripe.String("customer")},
	}
	ch, err := s.client.V1Charges.Retrieve(ctx, chargeID, params)
	if err != nil {
		return nil, s.mapError(err, "charge", chargeID)
	}
	return mapCharge(ch), nil
}

func (s *StripeProcessor) GetChargeByPaymentIntent(ctx context.Context, paymentIntentID string) (*Charge, error) {
	params := &stripe.PaymentIntentRetrieveParams{
		Expand: []*string{
			stripe.String("latest_charge"),
			stripe.String("customer"),
		},
	}
	pi, err := s.client.V1PaymentIntents.Retrieve(ctx, paymentIntentID, params)
	if err != nil {
		return nil, s.mapError(err, "payment_intent", paymentIntentID)
	}
	if pi.LatestCharge == nil {
		return nil, ierr.NewError("payment intent has no charge").
			WithHint("No charge is recorded behind this payment").
			WithReportableDetails(map[string]interface{}{
				"payment_intent_id": paymentIntentID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return mapCharge(pi.LatestCharge), nil
}

func (s *StripeProcessor) GetActiveSubscription(ctx context.Context, customerID string) (*Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Limit = stripe.Int64(1)

	for sub, err := range s.client.V1Subscriptions.List(ctx, params) {
		if err != nil {
			return nil, s.mapError(err, "subscription_list", customerID)
		}
		return mapSubscription(sub), nil
	}

	return nil, ierr.NewError("no active subscription").
		WithHint("The customer has no active recurring subscription").
		WithReportableDetails(map[string]interface{}{
			"customer_id": customerID,
		}).
		Mark(ierr.ErrNotFound)
}

func (s *StripeProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if _, err := s.client.V1Subscriptions.Cancel(ctx, subscriptionID, &stripe.SubscriptionCancelParams{}); err != nil {
		return s.mapError(err, "subscription_cancel", subscriptionID)
	}
	return nil
}

func (s *StripeProcessor) CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error) {
	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(priceID)},
		},
	}
	sub, err := s.client.V1Subscriptions.Create(ctx, params)
	if err != nil {
		return nil, s.mapError(err, "subscription_create", customerID)
	}
	return mapSubscription(sub), nil
}

func (s *StripeProcessor) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentRetrieveParams{
		Expand: []*string{stripe.String("customer")},
	}
	pi, err := s.client.V1PaymentIntents.Retrieve(ctx, paymentIntentID, params)
	if err != nil {
		return nil, s.mapError(err, "payment_intent", paymentIntentID)
	}

	customerID := ""
	if pi.Customer != nil {
		customerID = pi.Customer.ID
	}
	return &PaymentIntent{
		ID:         pi.ID,
		CustomerID: customerID,
		Status:     string(pi.Status),
		Metadata:   pi.Metadata,
	}, nil
}

func (s *StripeProcessor) CancelPaymentIntent(ctx context.Context, paymentIntentID string) error {
	if _, err := s.client.V1PaymentIntents.Cancel(ctx, paymentIntentID, &stripe.PaymentIntentCancelParams{}); err != nil {
		return s.mapError(err, "payment_intent_cancel", paymentIntentID)
	}
	return nil
}

func mapCustomer(cust *stripe.Customer) *Customer {
	return &Customer{
		ID:    cust.ID,
		Email: cust.Email,
	}
}

func mapInvoice(inv *stripe.Invoice) *Invoice {
	out := &Invoice{
		ID:       inv.ID,
		Paid:     inv.Status == stripe.InvoiceStatusPaid,
		Metadata: inv.Metadata,
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
		out.CustomerEmail = inv.Customer.Email
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = inv.CustomerEmail
	}

	if inv.Payments != nil && len(inv.Payments.Data) > 0 {
		out.HasPayment = true
		payment := inv.Payments.Data[0]
		if payment.Payment != nil && payment.Payment.PaymentIntent != nil {
			out.PaymentIntentID = payment.Payment.PaymentIntent.ID
		}
	}

	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			item := LineItem{Quantity: line.Quantity}
			if line.Pricing != nil && line.Pricing.PriceDetails != nil {
				item.PriceID = line.Pricing.PriceDetails.Price
				item.ProductID = line.Pricing.PriceDetails.Product
			}
			if len(line.Discounts) > 0 && line.Discounts[0].Coupon != nil {
				item.CouponCode = line.Discounts[0].Coupon.ID
			}
			out.Lines = append(out.Lines, item)
		}
	}
	return out
}

func mapCharge(ch *stripe.Charge) *Charge {
	out := &Charge{
		ID:       ch.ID,
		Refunded: ch.Refunded,
		Disputed: ch.Disputed,
		Metadata: ch.Metadata,
	}
	if ch.Customer != nil {
		out.CustomerID = ch.Customer.ID
	}
	if ch.PaymentIntent != nil {
		out.PaymentIntentID = ch.PaymentIntent.ID
	}
	return out
}

func mapSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		out.PriceID = price.ID
		if price.Product != nil {
			out.ProductID = price.Product.ID
		}
	}
	return out
}

// mapError converts Stripe SDK errors into the engine's error kinds.
func (s *StripeProcessor) mapError(err error, resource, id string) error {
	var stripeErr *stripe.Error
	if ierr.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == 404 || stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return ierr.WithError(err).
				WithHintf("The processor has no such %s", resource).
				WithReportableDetails(map[string]interface{}{
					"resource": resource,
					"id":       id,
				}).
				Mark(ierr.ErrNotFound)
		}
	}
	return ierr.WithError(err).
		WithHint("The payments processor request failed").
		WithReportableDetails(map[string]interface{}{
			"resource": resource,
			"id":       id,
		}).
		Mark(ierr.ErrHTTPClient)
}

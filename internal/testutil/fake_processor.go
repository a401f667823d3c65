package testutil

import (
	"context"
	"sync"

	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/payments"
)

// FakeProcessor is an in-memory payments.Processor seeded by tests. It
// records mutating calls so tests can assert on them.
type FakeProcessor struct {
	mu sync.RWMutex

	Customers      map[string]*payments.Customer
	Invoices       map[string]*payments.Invoice
	Prices         map[string]*payments.Price
	Products       map[string]*payments.Product
	Charges        map[string]*payments.Charge
	Subscriptions  map[string]*payments.Subscription
	PaymentIntents map[string]*payments.PaymentIntent

	CanceledSubscriptions  []string
	CanceledPaymentIntents []string
	CreatedSubscriptions   []string
	PaidOutOfBand          []string
}

func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{
		Customers:      make(map[string]*payments.Customer),
		Invoices:       make(map[string]*payments.Invoice),
		Prices:         make(map[string]*payments.Price),
		Products:       make(map[string]*payments.Product),
		Charges:        make(map[string]*payments.Charge),
		Subscriptions:  make(map[string]*payments.Subscription),
		PaymentIntents: make(map[string]*payments.PaymentIntent),
	}
}

func notFound(what string) error {
	return ierr.NewError(what + " not found").
		WithHint("The processor has no such record").
		Mark(ierr.ErrNotFound)
}

func (f *FakeProcessor) GetCustomer(_ context.Context, customerID string) (*payments.Customer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.Customers[customerID]
	if !ok {
		return nil, notFound("customer")
	}
	return c, nil
}

func (f *FakeProcessor) ListCustomersByEmail(_ context.Context, email string) ([]*payments.Customer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []*payments.Customer
	for _, c := range f.Customers {
		if c.Email == email {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *FakeProcessor) GetInvoice(_ context.Context, invoiceID string) (*payments.Invoice, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	inv, ok := f.Invoices[invoiceID]
	if !ok {
		return nil, notFound("invoice")
	}
	return inv, nil
}

func (f *FakeProcessor) ListInvoices(_ context.Context, customerID string) ([]*payments.Invoice, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []*payments.Invoice
	for _, inv := range f.Invoices {
		if inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *FakeProcessor) MarkInvoicePaidOutOfBand(_ context.Context, invoiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.Invoices[invoiceID]
	if !ok {
		return notFound("invoice")
	}
	inv.Paid = true
	inv.HasPayment = false
	f.PaidOutOfBand = append(f.PaidOutOfBand, invoiceID)
	return nil
}

func (f *FakeProcessor) GetPrice(_ context.Context, priceID string) (*payments.Price, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.Prices[priceID]
	if !ok {
		return nil, notFound("price")
	}
	return p, nil
}

func (f *FakeProcessor) GetProduct(_ context.Context, productID string) (*payments.Product, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.Products[productID]
	if !ok {
		return nil, notFound("product")
	}
	return p, nil
}

func (f *FakeProcessor) GetCharge(_ context.Context, chargeID string) (*payments.Charge, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.Charges[chargeID]
	if !ok {
		return nil, notFound("charge")
	}
	return c, nil
}

func (f *FakeProcessor) GetChargeByPaymentIntent(_ context.Context, paymentIntentID string) (*payments.Charge, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.Charges {
		if c.PaymentIntentID == paymentIntentID {
			return c, nil
		}
	}
	return nil, notFound("charge")
}

func (f *FakeProcessor) GetActiveSubscription(_ context.Context, customerID string) (*payments.Subscription, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.Subscriptions {
		if sub.CustomerID == customerID && sub.Status == "active" {
			return sub, nil
		}
	}
	return nil, notFound("subscription")
}

func (f *FakeProcessor) CancelSubscription(_ context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.Subscriptions[subscriptionID]
	if !ok {
		return notFound("subscription")
	}
	sub.Status = "canceled"
	f.CanceledSubscriptions = append(f.CanceledSubscriptions, subscriptionID)
	return nil
}

func (f *FakeProcessor) CreateSubscription(_ context.Context, customerID, priceID string) (*payments.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &payments.Subscription{
		ID:         "sub_" + customerID + "_" + priceID,
		CustomerID: customerID,
		Status:     "active",
		PriceID:    priceID,
	}
	f.Subscriptions[sub.ID] = sub
	f.CreatedSubscriptions = append(f.CreatedSubscriptions, sub.ID)
	return sub, nil
}

func (f *FakeProcessor) GetPaymentIntent(_ context.Context, paymentIntentID string) (*payments.PaymentIntent, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pi, ok := f.PaymentIntents[paymentIntentID]
	if !ok {
		return nil, notFound("payment intent")
	}
	return pi, nil
}

func (f *FakeProcessor) CancelPaymentIntent(_ context.Context, paymentIntentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.PaymentIntents[paymentIntentID]; !ok {
		return notFound("payment intent")
	}
	f.CanceledPaymentIntents = append(f.CanceledPaymentIntents, paymentIntentID)
	return nil
}

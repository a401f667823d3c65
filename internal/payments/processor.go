package payments

import "context"

// Customer is the processor's customer projection.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Subscription is the processor's recurring subscription projection.
type Subscription struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	PriceID    string `json:"price_id"`
	ProductID  string `json:"product_id"`
}

// LineItem is one invoice line with its pricing references resolved to ids.
type LineItem struct {
	PriceID    string `json:"price_id"`
	ProductID  string `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	CouponCode string `json:"coupon_code"`
}

// Invoice is the processor invoice projection. HasPayment is false for
// invoices settled out-of-band with no processor-recorded payment.
type Invoice struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customer_id"`
	CustomerEmail   string            `json:"customer_email"`
	Paid            bool              `json:"paid"`
	HasPayment      bool              `json:"has_payment"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Lines           []LineItem        `json:"lines"`
	Metadata        map[string]string `json:"metadata"`
}

// Charge is the processor charge projection carrying the dispute/refund
// state the admission test inspects.
type Charge struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customer_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Refunded        bool              `json:"refunded"`
	Disputed        bool              `json:"disputed"`
	Metadata        map[string]string `json:"metadata"`
}

// Price is the processor price projection. Recurring is false for
// one-time (lifetime) prices.
type Price struct {
	ID        string            `json:"id"`
	ProductID string            `json:"product_id"`
	Recurring bool              `json:"recurring"`
	Metadata  map[string]string `json:"metadata"`
}

// Product is the processor product projection.
type Product struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// PaymentIntent is the processor payment-intent projection used by the
// manual-capture verification flow.
type PaymentIntent struct {
	ID         string            `json:"id"`
	CustomerID string            `json:"customer_id"`
	Status     string            `json:"status"`
	Metadata   map[string]string `json:"metadata"`
}

// Processor is the read-and-cancel surface of the payments processor the
// engine consumes. Implementations map provider types into the
// projections above; services never see provider SDK types.
type Processor interface {
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	ListCustomersByEmail(ctx context.Context, email string) ([]*Customer, error)

	GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
	ListInvoices(ctx context.Context, customerID string) ([]*Invoice, error)
	MarkInvoicePaidOutOfBand(ctx context.Context, invoiceID string) error

	GetPrice(ctx context.Context, priceID string) (*Price, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)

	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
	// GetChargeByPaymentIntent resolves the latest charge behind a payment
	// intent; ErrNotFound when the intent has no charge.
	GetChargeByPaymentIntent(ctx context.Context, paymentIntentID string) (*Charge, error)

	// GetActiveSubscription returns the customer's active recurring
	// subscription; ErrNotFound when there is none.
	GetActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error)

	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID string) error
}

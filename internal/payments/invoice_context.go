package payments

import (
	"context"
	"strconv"

	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// Price metadata keys the processor catalog must carry.
const (
	MetadataSpaceBytes = "maxSpaceBytes"
	MetadataPlanKind   = "planType"
	// MetadataProduct names the downstream product on verification
	// payment intents (e.g. object storage).
	MetadataProduct = "product"
	// MetadataPriceID carries the real recurring price to subscribe the
	// customer to once a verification hold is captured.
	MetadataPriceID = "priceId"
)

// InvoiceContext is the fully validated view of an invoice's first line
// item. It is built exactly once at the collaborator boundary; handlers
// never re-derive price or product data ad hoc.
type InvoiceContext struct {
	InvoiceID     string
	CustomerID    string
	CustomerEmail string
	Paid          bool
	PriceID       string
	ProductID     string
	BillingType   types.BillingType
	PlanKind      types.PlanKind
	SpaceBytes    int64
	Seats         int
	CouponCode    string
}

// IsLifetime reports whether the invoice purchased a one-time perpetual
// product.
func (c *InvoiceContext) IsLifetime() bool {
	return c.BillingType == types.BillingTypeLifetime
}

// IsBusiness reports whether the purchased plan uses the workspace model.
func (c *InvoiceContext) IsBusiness() bool {
	return c.PlanKind == types.PlanKindBusiness
}

// IsObjectStorage reports whether the purchase belongs to the
// object-storage product family.
func (c *InvoiceContext) IsObjectStorage() bool {
	return c.PlanKind == types.PlanKindObjectStorage
}

// BuildInvoiceContext resolves the invoice's price and validates the
// catalog metadata the engine depends on. Missing space size or plan kind
// means the processor's own catalog is malformed: the event is dropped by
// the caller because no safe action exists.
func BuildInvoiceContext(ctx context.Context, p Processor, inv *Invoice) (*InvoiceContext, error) {
	if len(inv.Lines) == 0 {
		return nil, ierr.NewError("invoice has no line items").
			WithHint("The invoice carries no purchasable line").
			WithReportableDetails(map[string]interface{}{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	line := inv.Lines[0]
	if line.PriceID == "" || line.ProductID == "" {
		return nil, ierr.NewError("invoice line is missing price or product").
			WithHint("The invoice line does not reference a catalog price").
			WithReportableDetails(map[string]interface{}{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrNotFound)
	}

	price, err := p.GetPrice(ctx, line.PriceID)
	if err != nil {
		return nil, err
	}

	spaceBytes, planKind, err := ParsePriceMetadata(price)
	if err != nil {
		return nil, err
	}

	billingType := types.BillingTypeLifetime
	if price.Recurring {
		billingType = types.BillingTypeSubscription
	}

	seats := int(line.Quantity)
	if seats <= 0 {
		seats = 1
	}

	return &InvoiceContext{
		InvoiceID:     inv.ID,
		CustomerID:    inv.CustomerID,
		CustomerEmail: inv.CustomerEmail,
		Paid:          inv.Paid,
		PriceID:       price.ID,
		ProductID:     line.ProductID,
		BillingType:   billingType,
		PlanKind:      planKind,
		SpaceBytes:    spaceBytes,
		Seats:         seats,
		CouponCode:    line.CouponCode,
	}, nil
}

// ParsePriceMetadata validates the space size and plan kind carried on a
// catalog price.
func ParsePriceMetadata(price *Price) (int64, types.PlanKind, error) {
	rawBytes, ok := price.Metadata[MetadataSpaceBytes]
	if !ok || rawBytes == "" {
		return 0, "", ierr.NewError("price metadata missing space size").
			WithHint("The processor catalog price carries no storage size").
			WithReportableDetails(map[string]interface{}{
				"price_id":     price.ID,
				"metadata_key": MetadataSpaceBytes,
			}).
			Mark(ierr.ErrValidation)
	}
	spaceBytes, err := strconv.ParseInt(rawBytes, 10, 64)
	if err != nil || spaceBytes < 0 {
		return 0, "", ierr.NewError("price metadata space size is not a valid integer").
			WithHint("The processor catalog price carries a malformed storage size").
			WithReportableDetails(map[string]interface{}{
				"price_id":        price.ID,
				"max_space_bytes": rawBytes,
			}).
			Mark(ierr.ErrValidation)
	}

	planKind := types.PlanKind(price.Metadata[MetadataPlanKind])
	if err := planKind.Validate(); err != nil {
		return 0, "", ierr.WithError(err).
			WithHint("The processor catalog price carries no plan kind").
			WithReportableDetails(map[string]interface{}{
				"price_id":     price.ID,
				"metadata_key": MetadataPlanKind,
			}).
			Mark(ierr.ErrValidation)
	}

	return spaceBytes, planKind, nil
}

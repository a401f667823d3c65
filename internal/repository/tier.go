package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/drivekit/billing/internal/domain/tier"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

type tierRow struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)"`
	ProductID   string    `gorm:"type:varchar(128);index:idx_product_billing,unique,priority:1"`
	BillingType string    `gorm:"type:varchar(32);index:idx_product_billing,unique,priority:2"`
	Label       string    `gorm:"type:varchar(128)"`
	Features    string    `gorm:"type:json"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (tierRow) TableName() string { return "tiers" }

type tierRepository struct {
	db *gorm.DB
}

func NewTierRepository(db *gorm.DB) tier.Repository {
	return &tierRepository{db: db}
}

func (r *tierRepository) FindByProductID(ctx context.Context, productID string, billingType *types.BillingType) (*tier.Tier, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if billingType != nil {
		query = query.Where("billing_type = ?", string(*billingType))
	} else {
		// Deterministic pick when the product exists under both billing
		// types: subscription sorts before lifetime alphabetically is not
		// what we want, so order explicitly.
		query = query.Order("billing_type = 'subscription' DESC")
	}

	var row tierRow
	if err := query.Order("id").First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewError("tier not found").
				WithHint("No tier is registered for this product").
				WithReportableDetails(map[string]interface{}{
					"product_id": productID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to query tier catalog").
			Mark(ierr.ErrDatabase)
	}
	return rowToTier(&row)
}

func (r *tierRepository) FindByTierID(ctx context.Context, tierID string) (*tier.Tier, error) {
	var row tierRow
	if err := r.db.WithContext(ctx).Where("id = ?", tierID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewError("tier not found").
				WithHint("No tier exists with this id").
				WithReportableDetails(map[string]interface{}{
					"tier_id": tierID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to query tier catalog").
			Mark(ierr.ErrDatabase)
	}
	return rowToTier(&row)
}

func rowToTier(row *tierRow) (*tier.Tier, error) {
	var features tier.Features
	if err := json.Unmarshal([]byte(row.Features), &features); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stored tier features are malformed").
			WithReportableDetails(map[string]interface{}{
				"tier_id": row.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return &tier.Tier{
		ID:          row.ID,
		ProductID:   row.ProductID,
		Label:       row.Label,
		BillingType: types.BillingType(row.BillingType),
		Features:    features,
		BaseModel: types.BaseModel{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}, nil
}

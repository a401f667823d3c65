package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/drivekit/billing/internal/domain/coupon"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

type trackedCouponRow struct {
	ID         string          `gorm:"primaryKey;type:varchar(64)"`
	Code       string          `gorm:"uniqueIndex;type:varchar(128)"`
	Name       string          `gorm:"type:varchar(255)"`
	PercentOff decimal.Decimal `gorm:"type:decimal(5,2)"`
	AmountOff  decimal.Decimal `gorm:"type:decimal(12,2)"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

func (trackedCouponRow) TableName() string { return "tracked_coupons" }

type couponUsageRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `gorm:"type:varchar(64);index:idx_user_code,unique,priority:1"`
	Code      string    `gorm:"type:varchar(128);index:idx_user_code,unique,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (couponUsageRow) TableName() string { return "coupon_usages" }

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) coupon.Repository {
	return &couponRepository{db: db}
}

func (r *couponRepository) GetTracked(ctx context.Context, code string) (*coupon.TrackedCoupon, error) {
	var row trackedCouponRow
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewError("coupon not tracked").
				WithHint("This coupon code is not in the tracked registry").
				WithReportableDetails(map[string]interface{}{
					"code": code,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to query tracked coupons").
			Mark(ierr.ErrDatabase)
	}
	return &coupon.TrackedCoupon{
		ID:         row.ID,
		Code:       row.Code,
		Name:       row.Name,
		PercentOff: row.PercentOff,
		AmountOff:  row.AmountOff,
		BaseModel: types.BaseModel{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}, nil
}

func (r *couponRepository) RecordUsage(ctx context.Context, usage *coupon.Usage) error {
	row := &couponUsageRow{
		ID:     usage.ID,
		UserID: usage.UserID,
		Code:   usage.Code,
	}
	// Replays of the same invoice must not duplicate the redemption.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record coupon usage").
			WithReportableDetails(map[string]interface{}{
				"user_id": usage.UserID,
				"code":    usage.Code,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *couponRepository) ListUsageByUser(ctx context.Context, userID string) ([]*coupon.Usage, error) {
	var rows []couponUsageRow
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list coupon usage").
			Mark(ierr.ErrDatabase)
	}

	usages := make([]*coupon.Usage, len(rows))
	for i, row := range rows {
		usages[i] = &coupon.Usage{
			ID:     row.ID,
			UserID: row.UserID,
			Code:   row.Code,
			BaseModel: types.BaseModel{
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
			},
		}
	}
	return usages, nil
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/drivekit/billing/internal/domain/usertier"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

type userTierRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `gorm:"index;type:varchar(64)"`
	TierID    string    `gorm:"index;type:varchar(64)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (userTierRow) TableName() string { return "user_tiers" }

type userTierRepository struct {
	db *gorm.DB
}

func NewUserTierRepository(db *gorm.DB) usertier.Repository {
	return &userTierRepository{db: db}
}

func (r *userTierRepository) Insert(ctx context.Context, link *usertier.UserTierLink) error {
	row := &userTierRow{
		ID:     link.ID,
		UserID: link.UserID,
		TierID: link.TierID,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to insert user-tier link").
			WithReportableDetails(map[string]interface{}{
				"user_id": link.UserID,
				"tier_id": link.TierID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *userTierRepository) Update(ctx context.Context, userID, oldTierID, newTierID string) (bool, error) {
	// Rewrite only the first matching row; duplicates are tolerated and
	// picked deterministically by id order.
	var row userTierRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tier_id = ?", userID, oldTierID).
		Order("id").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, ierr.WithError(err).
			WithHint("Failed to query user-tier links").
			Mark(ierr.ErrDatabase)
	}

	result := r.db.WithContext(ctx).
		Model(&userTierRow{}).
		Where("id = ?", row.ID).
		Update("tier_id", newTierID)
	if result.Error != nil {
		return false, ierr.WithError(result.Error).
			WithHint("Failed to update user-tier link").
			Mark(ierr.ErrDatabase)
	}
	return result.RowsAffected > 0, nil
}

func (r *userTierRepository) Delete(ctx context.Context, userID, tierID string) (bool, error) {
	var row userTierRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tier_id = ?", userID, tierID).
		Order("id").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, ierr.WithError(err).
			WithHint("Failed to query user-tier links").
			Mark(ierr.ErrDatabase)
	}

	result := r.db.WithContext(ctx).Delete(&userTierRow{}, "id = ?", row.ID)
	if result.Error != nil {
		return false, ierr.WithError(result.Error).
			WithHint("Failed to delete user-tier link").
			Mark(ierr.ErrDatabase)
	}
	return result.RowsAffected > 0, nil
}

func (r *userTierRepository) DeleteAll(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Delete(&userTierRow{}, "user_id = ?", userID).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete user-tier links").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *userTierRepository) FindByUserID(ctx context.Context, userID string) ([]*usertier.UserTierLink, error) {
	var rows []userTierRow
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list user-tier links").
			Mark(ierr.ErrDatabase)
	}

	links := make([]*usertier.UserTierLink, len(rows))
	for i, row := range rows {
		links[i] = &usertier.UserTierLink{
			ID:     row.ID,
			UserID: row.UserID,
			TierID: row.TierID,
			BaseModel: types.BaseModel{
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
			},
		}
	}
	return links, nil
}

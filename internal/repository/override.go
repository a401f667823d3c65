package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/drivekit/billing/internal/domain/override"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

type overrideRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `gorm:"uniqueIndex;type:varchar(64)"`
	Features  string    `gorm:"type:json"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (overrideRow) TableName() string { return "feature_overrides" }

type overrideRepository struct {
	db *gorm.DB
}

func NewOverrideRepository(db *gorm.DB) override.Repository {
	return &overrideRepository{db: db}
}

func (r *overrideRepository) GetByUserID(ctx context.Context, userID string) (*override.FeatureOverride, error) {
	var row overrideRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewError("no overrides for user").
				WithHint("The user has no manual feature overrides").
				WithReportableDetails(map[string]interface{}{
					"user_id": userID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to query feature overrides").
			Mark(ierr.ErrDatabase)
	}

	features := make(map[types.ServiceKind]override.Flag)
	if err := json.Unmarshal([]byte(row.Features), &features); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stored feature overrides are malformed").
			WithReportableDetails(map[string]interface{}{
				"user_id": userID,
			}).
			Mark(ierr.ErrDatabase)
	}

	return &override.FeatureOverride{
		ID:       row.ID,
		UserID:   row.UserID,
		Features: features,
		BaseModel: types.BaseModel{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}, nil
}

func (r *overrideRepository) Save(ctx context.Context, o *override.FeatureOverride) error {
	features, err := json.Marshal(o.Features)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode feature overrides").
			Mark(ierr.ErrSystem)
	}

	row := &overrideRow{
		ID:       o.ID,
		UserID:   o.UserID,
		Features: string(features),
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"features", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save feature overrides").
			WithReportableDetails(map[string]interface{}{
				"user_id": o.UserID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/drivekit/billing/internal/domain/user"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

type userRow struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	UUID       string    `gorm:"uniqueIndex;type:varchar(64)"`
	CustomerID string    `gorm:"index;type:varchar(128)"`
	Email      string    `gorm:"index;type:varchar(255)"`
	Lifetime   bool      `gorm:"default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (userRow) TableName() string { return "users" }

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	if err := r.db.WithContext(ctx).Create(userToRow(u)).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create user").
			WithReportableDetails(map[string]interface{}{
				"uuid": u.UUID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, u *user.User) error {
	result := r.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"uuid":        u.UUID,
			"customer_id": u.CustomerID,
			"email":       u.Email,
			"lifetime":    u.Lifetime,
		})
	if result.Error != nil {
		return ierr.WithError(result.Error).
			WithHint("Failed to update user").
			Mark(ierr.ErrDatabase)
	}
	if result.RowsAffected == 0 {
		return ierr.NewError("user not found").
			WithHint("No user exists with this id").
			WithReportableDetails(map[string]interface{}{
				"user_id": u.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *userRepository) GetByUUID(ctx context.Context, uuid string) (*user.User, error) {
	return r.getOne(ctx, "uuid = ?", uuid)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *userRepository) GetByCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	return r.getOne(ctx, "customer_id = ?", customerID)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where(query, arg).Order("id").First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewError("user not found").
				WithHint("No user matches this identity").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to query users").
			Mark(ierr.ErrDatabase)
	}
	return rowToUser(&row), nil
}

func userToRow(u *user.User) *userRow {
	return &userRow{
		ID:         u.ID,
		UUID:       u.UUID,
		CustomerID: u.CustomerID,
		Email:      u.Email,
		Lifetime:   u.Lifetime,
	}
}

func rowToUser(row *userRow) *user.User {
	return &user.User{
		ID:         row.ID,
		UUID:       row.UUID,
		CustomerID: row.CustomerID,
		Email:      row.Email,
		Lifetime:   row.Lifetime,
		BaseModel: types.BaseModel{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}
}

package repository

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/drivekit/billing/internal/config"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/logger"
)

// NewDB opens the MySQL connection and migrates the schema.
func NewDB(cfg *config.Configuration, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to MySQL").
			Mark(ierr.ErrDatabase)
	}

	if err := db.AutoMigrate(
		&tierRow{},
		&userRow{},
		&userTierRow{},
		&overrideRow{},
		&trackedCouponRow{},
		&couponUsageRow{},
	); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to migrate database schema").
			Mark(ierr.ErrDatabase)
	}

	log.Infow("database ready", "db", cfg.MySQL.DBName)
	return db, nil
}

// Package db opens the postgres database behind the roster store.
package db

import (
	"fmt"

	"github.com/libertypfc/Hockeybot-sub000/internals/store/gormstore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the teams, players, contracts, trade_proposals,
// trade_assets, waivers and status_changes tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(gormstore.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

package db

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/jason-czar/freedomains/internal/model"
)

// Migrate runs database migrations for all models
func Migrate(db *gorm.DB) error {
	log.Println("Starting database migration...")

	models := []interface{}{
		&model.Owner{},
		&model.DomainRegistration{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("✓ Database migration completed successfully (%d tables)", len(models))
	return nil
}

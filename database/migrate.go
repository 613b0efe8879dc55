package database

import (
	"fmt"

	"github.com/yeremiapane/dinein-app/models"
	"github.com/yeremiapane/dinein-app/utils"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema and the indexes AutoMigrate cannot
// express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Table{},
		&models.TableSession{},
		&models.Customer{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Bill{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	return EnsureIndexes(db)
}

package database

import (
	"fmt"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/config"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the relational database named by cfg.StoreDriver. Mongo deployments
// still use it for the user directory and notifications.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	logger.Info().Str("driver", db.Dialector.Name()).Msg("Connected to database with connection pooling (max: 25, idle: 10)")
	return db, nil
}

// TableModels lists every table owned by this service, in dependency order.
func TableModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserLink{},
		&models.Message{},
		&models.Notification{},
	}
}

// AutoMigrate creates the service tables.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range TableModels() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate table for %T: %w", m, err)
		}
	}
	return nil
}

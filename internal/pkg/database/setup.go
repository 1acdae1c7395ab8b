package database

import (
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/BenKrueger/DealerDesk/app/models"
	"github.com/BenKrueger/DealerDesk/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Connect opens the MySQL connection and migrates the payment core tables.
// The handle is returned to the caller for explicit injection; no package
// level connection state is kept.
func Connect() (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	var db *gorm.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                      dsn,
			DefaultStringSize:        256,
			DisableDatetimePrecision: false, // datetime(6) carries event-timestamp precision
			DontSupportRenameIndex:   true,
			DontSupportRenameColumn:  true,
		}), &gorm.Config{})
		if err == nil {
			if merr := db.AutoMigrate(
				&models.User{},
				&models.UserSettings{},
				&models.Subscription{},
				&models.MerchantAccount{},
				&models.RetailerListing{},
				&models.IdempotencyRecord{},
				&models.AuditLogEntry{},
			); merr != nil {
				return nil, merr
			}
			return db, nil
		}

		fiberlog.Errorf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return nil, err
}

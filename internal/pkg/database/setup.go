package database

import (
	"fmt"
	"log"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the shared connection opened by SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

// Models lists every table the ledger owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Flat{},
		&models.User{},
		&models.MaintenanceMonth{},
		&models.Payment{},
		&models.Receipt{},
		&models.Setting{},
	}
}

// Config returns the gorm options every connection uses. Duplicate-key errors
// are translated to gorm.ErrDuplicatedKey so callers can report conflicts.
func Config() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

func dialector() gorm.Dialector {
	switch env.GetEnv("DB_DRIVER", "mysql") {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			env.GetEnv("DB_HOST", "127.0.0.1"),
			env.GetEnv("DB_USER", ""),
			env.GetEnv("DB_PASSWORD", ""),
			env.GetEnv("DB_NAME", ""),
			env.GetEnv("DB_PORT", "5432"),
			env.GetEnv("DB_SSLMODE", "disable"),
		)
		return postgres.Open(dsn)
	default:
		// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=UTC"
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			env.GetEnv("DB_USER", ""),
			env.GetEnv("DB_PASSWORD", ""),
			env.GetEnv("DB_HOST", "127.0.0.1"),
			env.GetEnv("DB_PORT", "3306"),
			env.GetEnv("DB_NAME", ""),
		)
		return mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		})
	}
}

func SetupDatabase() {
	var err error

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(dialector(), Config())
		if err == nil {
			// Schema changes ship as SQL migrations (cmd/migrate); AutoMigrate keeps dev databases in step.
			if env.IsDev() || env.GetEnvBool("DB_AUTO_MIGRATE", false) {
				if merr := DB.AutoMigrate(Models()...); merr != nil {
					log.Printf("AutoMigrate failed: %v", merr)
				}
			}
			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

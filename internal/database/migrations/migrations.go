package migrations

import (
	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/models"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrationsList holds all migrations in order
var migrationsList = []*gormigrate.Migration{
	createUsersTable(),
	createAffiliateTables(),
	createBillingTables(),
	createWellnessTables(),
}

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)

	if err := m.Migrate(); err != nil {
		return err
	}
	logger.Log.Info("migrations ran successfully")
	return nil
}

func createUsersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_users_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.User{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("users")
		},
	}
}

func createAffiliateTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_affiliate_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.Affiliate{},
				&models.AffiliateClick{},
				&models.Commission{},
				&models.Withdrawal{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				"withdrawals", "commissions", "affiliate_clicks", "affiliates",
			)
		},
	}
}

func createBillingTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_billing_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.SubscriptionPlan{},
				&models.Subscription{},
				&models.SubscriptionPayment{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				"subscription_payments", "subscriptions", "subscription_plans",
			)
		},
	}
}

func createWellnessTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_wellness_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.DiaryEntry{},
				&models.FinanceEntry{},
				&models.RoutineTask{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				"routine_tasks", "finance_entries", "diary_entries",
			)
		},
	}
}

package migrations

import (
	"github.com/clinicpay/terminal-bridge/internal/models"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createAccountingTablesMigration creates the accounting documents the
// bridge owns. The unique index on payment_entries.reference_no comes
// from the model tags; it must exist before the service takes traffic
// because the duplicate-delivery guarantee depends on it.
func createAccountingTablesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_accounting_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.Company{},
				&models.Customer{},
				&models.ModeOfPayment{},
				&models.ModeOfPaymentAccount{},
				&models.SalesInvoice{},
				&models.PaymentEntry{},
				&models.PaymentComment{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				"payment_comments",
				"payment_entries",
				"sales_invoices",
				"mode_of_payment_accounts",
				"mode_of_payments",
				"customers",
				"companies",
			)
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createAccountingTablesMigration())
}

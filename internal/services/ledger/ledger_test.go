package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/clinicpay/terminal-bridge/internal/config"
	"github.com/clinicpay/terminal-bridge/internal/models"
	"github.com/clinicpay/terminal-bridge/internal/services/paystack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Single connection keeps the shared in-memory database alive and
	// serializes concurrent writers the way the production pool would.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Company{},
		&models.Customer{},
		&models.SalesInvoice{},
		&models.PaymentEntry{},
		&models.ModeOfPayment{},
		&models.ModeOfPaymentAccount{},
		&models.PaymentComment{},
	))

	return db
}

func seedCompany(t *testing.T, db *gorm.DB) models.Company {
	t.Helper()

	company := models.Company{
		Name:                     "Test Clinic",
		DefaultCurrency:          "NGN",
		DefaultBankAccount:       "Bank Account - TC",
		DefaultReceivableAccount: "Debtors - TC",
	}
	require.NoError(t, db.Create(&company).Error)
	return company
}

func newTestService(db *gorm.DB) *Service {
	return NewService(db, config.PaystackConfig{
		Enabled:        true,
		DefaultCompany: "Test Clinic",
	})
}

func countEntries(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.PaymentEntry{}).Count(&count).Error)
	return count
}

func TestRecordPaymentConvertsMinorUnits(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	entry, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_500k",
		AmountMinor: 500000,
	})
	require.NoError(t, err)

	assert.Equal(t, 5000.00, entry.PaidAmount)
	assert.Equal(t, 5000.00, entry.ReceivedAmount)
	assert.Equal(t, "NGN", entry.Currency)
	assert.Equal(t, "Receive", entry.PaymentType)
	assert.Equal(t, models.DocstatusSubmitted, entry.Docstatus)
	assert.Equal(t, models.WalkInCustomer, entry.Party)
	assert.Equal(t, "Bank Account - TC", entry.PaidTo)

	var mode models.ModeOfPayment
	require.NoError(t, db.Where("name = ?", ModeOfPaymentName).First(&mode).Error)
	assert.True(t, mode.Enabled)
}

func TestRecordPaymentIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	first, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_dup",
		AmountMinor: 150000,
	})
	require.NoError(t, err)

	second, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_dup",
		AmountMinor: 150000,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, countEntries(t, db))
}

func TestRecordPaymentAlternateReferenceIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	// Recorded first under the terminal offline reference.
	first, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "OFF-123",
		AmountMinor: 200000,
	})
	require.NoError(t, err)

	// The same payment arrives again under its transaction reference,
	// with the offline reference as the alternate.
	second, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:          "txn_abc",
		AlternateReference: "OFF-123",
		AmountMinor:        200000,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, countEntries(t, db))
}

func TestRecordPaymentMetadataReferenceIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "OFF-777",
		AmountMinor: 100000,
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_777",
		AmountMinor: 100000,
		Metadata:    &paystack.Metadata{OfflineReference: "OFF-777"},
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, countEntries(t, db))
}

func TestRecordPaymentConcurrentDeliveries(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordPayment(context.Background(), RecordPaymentParams{
				Reference:   "txn_race",
				AmountMinor: 300000,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}
	assert.EqualValues(t, 1, countEntries(t, db))
}

func TestRecordPaymentMissingReference(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentParams{AmountMinor: 1000})
	assert.ErrorIs(t, err, ErrMissingReference)
	assert.EqualValues(t, 0, countEntries(t, db))
}

func TestRecordPaymentCompanyNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.PaystackConfig{DefaultCompany: "Nowhere Ltd"})

	_, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_nocompany",
		AmountMinor: 1000,
	})
	assert.ErrorIs(t, err, ErrCompanyNotFound)
	assert.EqualValues(t, 0, countEntries(t, db))
}

func TestRecordPaymentNoDestinationAccountIsFatal(t *testing.T) {
	db := setupTestDB(t)
	company := models.Company{Name: "Test Clinic", DefaultCurrency: "NGN"}
	require.NoError(t, db.Create(&company).Error)
	svc := newTestService(db)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_noaccount",
		AmountMinor: 1000,
	})
	assert.ErrorIs(t, err, ErrNoDestinationAccount)
	assert.EqualValues(t, 0, countEntries(t, db))
}

func TestRecordPaymentPrefersModeOfPaymentAccount(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	require.NoError(t, db.Create(&models.ModeOfPaymentAccount{
		ModeOfPayment:  ModeOfPaymentName,
		Company:        "Test Clinic",
		DefaultAccount: "Paystack Settlement - TC",
	}).Error)

	entry, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_mopaccount",
		AmountMinor: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "Paystack Settlement - TC", entry.PaidTo)
}

func TestRecordPaymentAllocatesToInvoice(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	invoice := models.SalesInvoice{
		Name:       "SINV-0001",
		Customer:   "John Doe",
		Company:    "Test Clinic",
		GrandTotal: 2500.00,
		Status:     models.InvoiceStatusUnpaid,
	}
	require.NoError(t, db.Create(&invoice).Error)

	entry, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_invoice",
		AmountMinor: 250000,
		InvoiceNo:   "SINV-0001",
	})
	require.NoError(t, err)

	assert.Equal(t, "John Doe", entry.Party)
	assert.Equal(t, "SINV-0001", entry.InvoiceNo)
	assert.Equal(t, 2500.00, entry.AllocatedAmount)

	var updated models.SalesInvoice
	require.NoError(t, db.Where("name = ?", "SINV-0001").First(&updated).Error)
	assert.Equal(t, models.InvoiceStatusPaid, updated.Status)
	assert.Equal(t, models.PaystackStatusPaid, updated.PaystackStatus)
	assert.Equal(t, "txn_invoice", updated.TerminalReference)

	var comments int64
	require.NoError(t, db.Model(&models.PaymentComment{}).
		Where("invoice_name = ?", "SINV-0001").Count(&comments).Error)
	assert.EqualValues(t, 1, comments)
}

func TestRecordPaymentUnknownInvoiceBooksWalkIn(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	entry, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_ghost",
		AmountMinor: 100000,
		InvoiceNo:   "SINV-MISSING",
	})
	require.NoError(t, err)

	assert.Equal(t, models.WalkInCustomer, entry.Party)
	assert.Empty(t, entry.InvoiceNo)
	assert.Zero(t, entry.AllocatedAmount)
}

func TestRecordPaymentMetadataCompanyOverridesDefault(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	other := models.Company{
		Name:               "Branch Clinic",
		DefaultCurrency:    "GHS",
		DefaultBankAccount: "Bank Account - BC",
	}
	require.NoError(t, db.Create(&other).Error)
	svc := newTestService(db)

	entry, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_branch",
		AmountMinor: 100000,
		Metadata:    &paystack.Metadata{Company: "Branch Clinic"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Branch Clinic", entry.Company)
	assert.Equal(t, "GHS", entry.Currency)
	assert.Equal(t, "Bank Account - BC", entry.PaidTo)
}

func TestRecordPaymentPersistsMetadata(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	entry, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_meta",
		AmountMinor: 100000,
		Metadata: &paystack.Metadata{
			InvoiceNo: "SINV-0009",
			Company:   "Test Clinic",
			Patient:   "HLC-PAT-0001",
			Source:    "ERP Healthcare",
		},
	})
	require.NoError(t, err)

	var stored models.PaymentEntry
	require.NoError(t, db.Where("id = ?", entry.ID).First(&stored).Error)
	require.NotNil(t, stored.Metadata)
	assert.Equal(t, "SINV-0009", stored.Metadata["invoice_no"])
	assert.Equal(t, "Test Clinic", stored.Metadata["company"])
	assert.Equal(t, "HLC-PAT-0001", stored.Metadata["patient"])
	assert.Equal(t, "ERP Healthcare", stored.Metadata["source"])
	assert.Equal(t, "Patient: HLC-PAT-0001", stored.Remarks)
}

func TestRecordPaymentSurvivesStatusPropagationFailure(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	require.NoError(t, db.Create(&models.SalesInvoice{
		Name:       "SINV-0010",
		Customer:   "John Doe",
		Company:    "Test Clinic",
		GrandTotal: 1000.00,
		Status:     models.InvoiceStatusUnpaid,
	}).Error)

	// Break the audit-note write: the entry is already committed when
	// propagation runs, so a bookkeeping failure must stay log-only.
	require.NoError(t, db.Migrator().DropTable(&models.PaymentComment{}))

	entry, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_propfail",
		AmountMinor: 100000,
		InvoiceNo:   "SINV-0010",
	})
	require.NoError(t, err)
	require.NotNil(t, entry)

	var stored models.PaymentEntry
	require.NoError(t, db.Where("reference_no = ?", "txn_propfail").First(&stored).Error)
	assert.Equal(t, "SINV-0010", stored.InvoiceNo)
}

func TestPaymentExists(t *testing.T) {
	db := setupTestDB(t)
	seedCompany(t, db)
	svc := newTestService(db)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentParams{
		Reference:   "txn_exists",
		AmountMinor: 1000,
	})
	require.NoError(t, err)

	exists, err := svc.PaymentExists(context.Background(), "txn_exists")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.PaymentExists(context.Background(), "txn_other", "txn_exists")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.PaymentExists(context.Background(), "txn_other")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = svc.PaymentExists(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, exists)
}

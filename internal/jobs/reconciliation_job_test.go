package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicpay/terminal-bridge/internal/config"
	"github.com/clinicpay/terminal-bridge/internal/models"
	"github.com/clinicpay/terminal-bridge/internal/services/paystack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeVerifier struct {
	results map[string]*paystack.TransactionData
	errs    map[string]error
	calls   []string
}

func (f *fakeVerifier) VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionData, error) {
	f.calls = append(f.calls, reference)
	if err, ok := f.errs[reference]; ok {
		return nil, err
	}
	if data, ok := f.results[reference]; ok {
		return data, nil
	}
	return &paystack.TransactionData{Status: "abandoned", Reference: reference}, nil
}

func seedUnpaidInvoice(t *testing.T, db *gorm.DB, name, terminalRef string, total float64) {
	t.Helper()

	require.NoError(t, db.Create(&models.SalesInvoice{
		Name:              name,
		Customer:          "Jane Doe",
		Company:           "Test Clinic",
		GrandTotal:        total,
		Status:            models.InvoiceStatusUnpaid,
		TerminalReference: terminalRef,
		PaystackStatus:    models.PaystackStatusPending,
	}).Error)
}

func newReconciliationJob(db *gorm.DB, verifier TransactionVerifier) *ReconciliationJob {
	cfg := config.PaystackConfig{
		Enabled:           true,
		DefaultCompany:    "Test Clinic",
		ReconcileLookback: 24 * time.Hour,
	}
	return NewReconciliationJob(db, verifier, jobTestLedger(db), cfg)
}

func TestReconciliationRecordsSuccessfulCharges(t *testing.T) {
	db := setupJobTestDB(t)
	seedUnpaidInvoice(t, db, "SINV-A", "OFF-A", 1000.00)
	seedUnpaidInvoice(t, db, "SINV-B", "OFF-B", 2000.00)

	verifier := &fakeVerifier{results: map[string]*paystack.TransactionData{
		"OFF-A": {Status: "success", Reference: "OFF-A", Amount: 100000},
		"OFF-B": {Status: "success", Reference: "OFF-B", Amount: 200000},
	}}

	require.NoError(t, newReconciliationJob(db, verifier).Run(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.PaymentEntry{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	var entry models.PaymentEntry
	require.NoError(t, db.Where("reference_no = ?", "OFF-A").First(&entry).Error)
	assert.Equal(t, 1000.00, entry.PaidAmount)
	assert.Equal(t, "SINV-A", entry.InvoiceNo)

	var invoice models.SalesInvoice
	require.NoError(t, db.Where("name = ?", "SINV-A").First(&invoice).Error)
	assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
}

func TestReconciliationIsolatesFailures(t *testing.T) {
	db := setupJobTestDB(t)
	seedUnpaidInvoice(t, db, "SINV-A", "OFF-A", 1000.00)
	seedUnpaidInvoice(t, db, "SINV-B", "OFF-B", 2000.00)
	seedUnpaidInvoice(t, db, "SINV-C", "OFF-C", 3000.00)

	verifier := &fakeVerifier{
		results: map[string]*paystack.TransactionData{
			"OFF-A": {Status: "success", Reference: "OFF-A"},
			"OFF-C": {Status: "success", Reference: "OFF-C"},
		},
		errs: map[string]error{
			"OFF-B": errors.New("gateway timeout"),
		},
	}

	// One bad item never fails the sweep.
	require.NoError(t, newReconciliationJob(db, verifier).Run(context.Background()))

	assert.Len(t, verifier.calls, 3)

	var count int64
	require.NoError(t, db.Model(&models.PaymentEntry{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	var skipped models.SalesInvoice
	require.NoError(t, db.Where("name = ?", "SINV-B").First(&skipped).Error)
	assert.Equal(t, models.InvoiceStatusUnpaid, skipped.Status)
}

func TestReconciliationSkipsUnsuccessfulCharges(t *testing.T) {
	db := setupJobTestDB(t)
	seedUnpaidInvoice(t, db, "SINV-A", "OFF-A", 1000.00)

	verifier := &fakeVerifier{results: map[string]*paystack.TransactionData{
		"OFF-A": {Status: "abandoned", Reference: "OFF-A"},
	}}

	require.NoError(t, newReconciliationJob(db, verifier).Run(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.PaymentEntry{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestReconciliationIgnoresInvoicesOutsideWindow(t *testing.T) {
	db := setupJobTestDB(t)

	old := models.SalesInvoice{
		Name:              "SINV-OLD",
		Customer:          "Jane Doe",
		Company:           "Test Clinic",
		GrandTotal:        500.00,
		Status:            models.InvoiceStatusUnpaid,
		TerminalReference: "OFF-OLD",
	}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&models.SalesInvoice{}).
		Where("name = ?", "SINV-OLD").
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	verifier := &fakeVerifier{}
	require.NoError(t, newReconciliationJob(db, verifier).Run(context.Background()))

	assert.Empty(t, verifier.calls)
}

func TestReconciliationIgnoresInvoicesWithoutTerminalReference(t *testing.T) {
	db := setupJobTestDB(t)
	seedUnpaidInvoice(t, db, "SINV-NOREF", "", 500.00)

	verifier := &fakeVerifier{}
	require.NoError(t, newReconciliationJob(db, verifier).Run(context.Background()))

	assert.Empty(t, verifier.calls)
}

func TestReconciliationSkipsWhenDisabled(t *testing.T) {
	db := setupJobTestDB(t)
	seedUnpaidInvoice(t, db, "SINV-A", "OFF-A", 1000.00)

	verifier := &fakeVerifier{}
	job := NewReconciliationJob(db, verifier, jobTestLedger(db), config.PaystackConfig{Enabled: false})

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, verifier.calls)
}

package jobs

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/clinicpay/terminal-bridge/internal/config"
	"github.com/clinicpay/terminal-bridge/internal/models"
	"github.com/clinicpay/terminal-bridge/internal/services/ledger"
	"github.com/clinicpay/terminal-bridge/internal/services/paystack"
	"gorm.io/gorm"
)

// TransactionVerifier is the slice of the Paystack client the sweep needs
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionData, error)
}

// ReconciliationJob is the daily sweep for terminal charges whose webhook
// never arrived (or was lost): unpaid invoices that have a terminal
// reference are re-verified against Paystack and recorded if the charge
// went through. Each invoice is handled independently — one bad item
// never stops the rest of the batch.
type ReconciliationJob struct {
	db        *gorm.DB
	verifier  TransactionVerifier
	ledgerSvc *ledger.Service
	cfg       config.PaystackConfig
}

// NewReconciliationJob creates a new reconciliation job
func NewReconciliationJob(db *gorm.DB, verifier TransactionVerifier, ledgerSvc *ledger.Service, cfg config.PaystackConfig) *ReconciliationJob {
	return &ReconciliationJob{
		db:        db,
		verifier:  verifier,
		ledgerSvc: ledgerSvc,
		cfg:       cfg,
	}
}

// Run executes one reconciliation pass over the lookback window
func (j *ReconciliationJob) Run(ctx context.Context) error {
	if !j.cfg.Enabled {
		log.Printf("Paystack integration disabled, skipping reconciliation")
		return nil
	}

	lookback := j.cfg.ReconcileLookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	cutoff := time.Now().Add(-lookback)

	var invoices []models.SalesInvoice
	err := j.db.WithContext(ctx).
		Where("terminal_reference <> '' AND status = ? AND created_at >= ?", models.InvoiceStatusUnpaid, cutoff).
		Find(&invoices).Error
	if err != nil {
		return fmt.Errorf("failed to query pending invoices: %w", err)
	}

	log.Printf("Reconciling %d pending terminal invoices", len(invoices))

	for _, invoice := range invoices {
		if err := j.reconcileInvoice(ctx, invoice); err != nil {
			log.Printf("Error reconciling invoice %s: %v", invoice.Name, err)
			continue
		}
	}

	return nil
}

func (j *ReconciliationJob) reconcileInvoice(ctx context.Context, invoice models.SalesInvoice) error {
	// Bound each verification call so one slow item cannot stall the batch
	verifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	data, err := j.verifier.VerifyTransaction(verifyCtx, invoice.TerminalReference)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	if data.Status != "success" {
		return nil
	}

	_, err = j.ledgerSvc.RecordPayment(ctx, ledger.RecordPaymentParams{
		Reference:   invoice.TerminalReference,
		AmountMinor: int64(math.Round(invoice.GrandTotal * 100)),
		InvoiceNo:   invoice.Name,
	})
	if err != nil {
		return fmt.Errorf("record payment failed: %w", err)
	}

	log.Printf("Reconciled payment for invoice %s", invoice.Name)
	return nil
}

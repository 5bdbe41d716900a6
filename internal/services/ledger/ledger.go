package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/clinicpay/terminal-bridge/internal/config"
	"github.com/clinicpay/terminal-bridge/internal/models"
	"github.com/clinicpay/terminal-bridge/internal/services/paystack"
	"gorm.io/gorm"
)

// ModeOfPaymentName is the canonical payment mode all terminal entries
// are booked under. It is auto-created on first use.
const ModeOfPaymentName = "Paystack Terminal"

var (
	// ErrMissingReference is returned when no payment reference was supplied
	ErrMissingReference = errors.New("payment reference is required")

	// ErrCompanyNotFound is returned when neither the notification metadata
	// nor the configured default resolve to a known company
	ErrCompanyNotFound = errors.New("company not found")

	// ErrNoDestinationAccount is returned when no paid-to account can be
	// resolved. Fatal: a financial entry must never be created with an
	// undetermined destination account.
	ErrNoDestinationAccount = errors.New("no default bank account set in company or mode of payment")
)

// Service is the idempotent ledger writer. For any reference it creates
// at most one payment entry, across duplicate webhook deliveries and the
// reconciliation sweep. The dual-reference existence check handles the
// common case; the unique index on payment_entries.reference_no closes
// the check-then-insert race.
type Service struct {
	db  *gorm.DB
	cfg config.PaystackConfig
}

// NewService creates a new ledger writer
func NewService(db *gorm.DB, cfg config.PaystackConfig) *Service {
	return &Service{db: db, cfg: cfg}
}

// RecordPaymentParams describes one payment to record. AmountMinor is in
// the gateway's minor unit (kobo) and is normalized to the major unit
// before booking.
type RecordPaymentParams struct {
	Reference          string
	AlternateReference string
	AmountMinor        int64
	InvoiceNo          string
	Metadata           *paystack.Metadata
}

// RecordPayment creates and submits a payment entry for a reference,
// unless one already exists for it (or for its alternate reference), in
// which case the existing entry is returned with no error. Configuration
// problems (unknown company, unresolvable destination account) are fatal
// and leave no partial record.
func (s *Service) RecordPayment(ctx context.Context, p RecordPaymentParams) (*models.PaymentEntry, error) {
	if p.Reference == "" {
		return nil, ErrMissingReference
	}

	amount := float64(p.AmountMinor) / 100

	refs := s.candidateReferences(p)
	if existing, err := s.findExisting(ctx, refs); err != nil {
		return nil, err
	} else if existing != nil {
		log.Printf("Payment already processed for reference %s (entry %s)", existing.ReferenceNo, existing.ID)
		return existing, nil
	}

	if err := s.ensureModeOfPayment(ctx); err != nil {
		return nil, err
	}

	company, err := s.resolveCompany(ctx, p.Metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := &models.PaymentEntry{
		PaymentType:    "Receive",
		PostingDate:    now,
		Company:        company.Name,
		ModeOfPayment:  ModeOfPaymentName,
		PaidAmount:     amount,
		ReceivedAmount: amount,
		Currency:       company.DefaultCurrency,
		ReferenceNo:    p.Reference,
		ReferenceDate:  now,
		PartyType:      "Customer",
		PaidFrom:       company.DefaultReceivableAccount,
		Docstatus:      models.DocstatusSubmitted,
	}

	if p.Metadata != nil {
		entry.Metadata = metadataJSON(p.Metadata)
		if p.Metadata.Patient != "" {
			entry.Remarks = fmt.Sprintf("Patient: %s", p.Metadata.Patient)
		}
	}

	invoiceNo := p.InvoiceNo
	if invoiceNo == "" && p.Metadata != nil {
		invoiceNo = p.Metadata.InvoiceNo
	}

	if invoiceNo != "" {
		var invoice models.SalesInvoice
		if err := s.db.WithContext(ctx).Where("name = ?", invoiceNo).First(&invoice).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to load invoice %s: %w", invoiceNo, err)
			}
			// Unknown invoice: book against the generic payer rather
			// than dropping a real payment.
			log.Printf("Invoice %s not found for reference %s, booking as walk-in", invoiceNo, p.Reference)
			entry.Party = models.WalkInCustomer
		} else {
			entry.Party = invoice.Customer
			entry.InvoiceNo = invoice.Name
			entry.AllocatedAmount = amount
		}
	} else {
		entry.Party = models.WalkInCustomer
	}

	paidTo, err := s.resolveDestinationAccount(ctx, company)
	if err != nil {
		return nil, err
	}
	entry.PaidTo = paidTo

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent delivery won the insert race. Same outcome
			// as the existence check: success, no new entry.
			log.Printf("Payment already processed for reference %s (concurrent insert)", p.Reference)
			return s.mustFindExisting(ctx, p.Reference)
		}
		return nil, fmt.Errorf("failed to create payment entry: %w", err)
	}

	log.Printf("Created payment entry %s for reference %s (%.2f %s)", entry.ID, entry.ReferenceNo, entry.PaidAmount, entry.Currency)

	s.propagateStatus(ctx, entry)

	return entry, nil
}

// PaymentExists reports whether a payment entry already exists for any of
// the given references. Used by the webhook ingestor to drop duplicate
// deliveries before they reach the queue.
func (s *Service) PaymentExists(ctx context.Context, references ...string) (bool, error) {
	refs := make([]string, 0, len(references))
	for _, r := range references {
		if r != "" {
			refs = append(refs, r)
		}
	}
	if len(refs) == 0 {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.PaymentEntry{}).
		Where("reference_no IN ?", refs).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing payment entries: %w", err)
	}

	return count > 0, nil
}

// metadataJSON stores the notification metadata on the entry as audit
// context, keyed by the wire field names
func metadataJSON(md *paystack.Metadata) models.JSON {
	raw, err := json.Marshal(md)
	if err != nil {
		return nil
	}

	var m models.JSON
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// candidateReferences collects the primary reference plus any alternate
// identifiers of the same logical payment. A terminal payment has both a
// gateway transaction reference and a terminal-issued offline reference,
// and either may have been recorded first.
func (s *Service) candidateReferences(p RecordPaymentParams) []string {
	refs := []string{p.Reference}
	seen := map[string]bool{p.Reference: true}

	add := func(r string) {
		if r != "" && !seen[r] {
			refs = append(refs, r)
			seen[r] = true
		}
	}

	add(p.AlternateReference)
	if p.Metadata != nil {
		add(p.Metadata.Reference)
		add(p.Metadata.OfflineReference)
	}

	return refs
}

func (s *Service) findExisting(ctx context.Context, refs []string) (*models.PaymentEntry, error) {
	var entry models.PaymentEntry
	err := s.db.WithContext(ctx).Where("reference_no IN ?", refs).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payment entries: %w", err)
	}
	return &entry, nil
}

func (s *Service) mustFindExisting(ctx context.Context, reference string) (*models.PaymentEntry, error) {
	var entry models.PaymentEntry
	if err := s.db.WithContext(ctx).Where("reference_no = ?", reference).First(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to load existing payment entry for %s: %w", reference, err)
	}
	return &entry, nil
}

// ensureModeOfPayment creates the canonical payment mode if it does not
// exist yet
func (s *Service) ensureModeOfPayment(ctx context.Context) error {
	var mode models.ModeOfPayment
	err := s.db.WithContext(ctx).Where("name = ?", ModeOfPaymentName).First(&mode).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up mode of payment: %w", err)
	}

	mode = models.ModeOfPayment{
		Name:    ModeOfPaymentName,
		Type:    "Bank",
		Enabled: true,
	}
	if err := s.db.WithContext(ctx).Create(&mode).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("failed to create mode of payment: %w", err)
	}

	log.Printf("Created mode of payment %q", ModeOfPaymentName)
	return nil
}

// resolveCompany picks the owning company from notification metadata,
// falling back to the configured default
func (s *Service) resolveCompany(ctx context.Context, md *paystack.Metadata) (*models.Company, error) {
	name := s.cfg.DefaultCompany
	if md != nil && md.Company != "" {
		name = md.Company
	}
	if name == "" {
		return nil, ErrCompanyNotFound
	}

	var company models.Company
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, name)
		}
		return nil, fmt.Errorf("failed to load company %s: %w", name, err)
	}

	return &company, nil
}

// resolveDestinationAccount prefers the mode-of-payment account for the
// company, then the company default bank account. No resolution is fatal.
func (s *Service) resolveDestinationAccount(ctx context.Context, company *models.Company) (string, error) {
	var mopAccount models.ModeOfPaymentAccount
	err := s.db.WithContext(ctx).
		Where("mode_of_payment = ? AND company = ?", ModeOfPaymentName, company.Name).
		First(&mopAccount).Error
	if err == nil && mopAccount.DefaultAccount != "" {
		return mopAccount.DefaultAccount, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to look up mode of payment account: %w", err)
	}

	if company.DefaultBankAccount != "" {
		return company.DefaultBankAccount, nil
	}

	return "", ErrNoDestinationAccount
}

// propagateStatus pushes the submitted entry's outcome onto the linked
// invoice: mark it paid, store the reference, append an audit note.
// Failures here are logged and never surfaced; the payment entry is
// already committed and must not be rolled back by bookkeeping on the
// invoice side.
func (s *Service) propagateStatus(ctx context.Context, entry *models.PaymentEntry) {
	if entry.InvoiceNo == "" {
		return
	}

	updates := map[string]interface{}{
		"status":             models.InvoiceStatusPaid,
		"paystack_status":    models.PaystackStatusPaid,
		"terminal_reference": entry.ReferenceNo,
		"updated_at":         time.Now(),
	}
	if err := s.db.WithContext(ctx).Model(&models.SalesInvoice{}).
		Where("name = ?", entry.InvoiceNo).
		Updates(updates).Error; err != nil {
		log.Printf("Failed to update invoice %s after payment %s: %v", entry.InvoiceNo, entry.ReferenceNo, err)
		return
	}

	comment := models.PaymentComment{
		InvoiceName: entry.InvoiceNo,
		CommentType: "Info",
		Content:     fmt.Sprintf("Payment processed via Paystack Terminal (Reference: %s)", entry.ReferenceNo),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		log.Printf("Failed to add payment comment to invoice %s: %v", entry.InvoiceNo, err)
	}
}

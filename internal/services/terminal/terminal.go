package terminal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/clinicpay/terminal-bridge/internal/cache"
	"github.com/clinicpay/terminal-bridge/internal/config"
	"github.com/clinicpay/terminal-bridge/internal/models"
	"github.com/clinicpay/terminal-bridge/internal/services/paystack"
	"github.com/clinicpay/terminal-bridge/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrIntegrationDisabled is returned when the Paystack Terminal
	// integration is switched off in settings
	ErrIntegrationDisabled = errors.New("paystack terminal integration is disabled")

	// ErrTerminalUnavailable is returned when the terminal is offline or
	// busy and cannot take a payment request
	ErrTerminalUnavailable = errors.New("terminal is not available for payment processing")

	// ErrInvoiceNotFound is returned when the invoice to charge does not exist
	ErrInvoiceNotFound = errors.New("sales invoice not found")
)

// Service drives the synchronous terminal payment initiation flow. Unlike
// the webhook path, errors here are surfaced to the calling UI.
type Service struct {
	db       *gorm.DB
	client   *paystack.Client
	cfg      config.PaystackConfig
	presence *cache.TerminalStatusCache
}

// NewService creates a new terminal payment service
func NewService(db *gorm.DB, client *paystack.Client, cfg config.PaystackConfig, presence *cache.TerminalStatusCache) *Service {
	return &Service{
		db:       db,
		client:   client,
		cfg:      cfg,
		presence: presence,
	}
}

// ProcessPaymentRequest asks for a charge of an invoice on the terminal
type ProcessPaymentRequest struct {
	Invoice string  `json:"invoice" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
}

// InitiationResult is returned once the payment request has been pushed
// to the terminal
type InitiationResult struct {
	Reference string `json:"reference"` // terminal offline reference
	RequestID int64  `json:"request_id"`
}

// ProcessTerminalPayment pushes a payment request for an invoice to the
// configured terminal: verifies the terminal is reachable, ensures the
// payer exists as a Paystack customer, creates the payment request, sends
// it to the device, and stores the offline reference on the invoice so
// the webhook and the reconciliation sweep can link the charge back.
func (s *Service) ProcessTerminalPayment(ctx context.Context, req ProcessPaymentRequest) (*InitiationResult, error) {
	if !s.cfg.Enabled {
		return nil, ErrIntegrationDisabled
	}

	if err := s.checkTerminalAvailable(ctx); err != nil {
		return nil, err
	}

	var invoice models.SalesInvoice
	if err := s.db.WithContext(ctx).Where("name = ?", req.Invoice).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, req.Invoice)
		}
		return nil, fmt.Errorf("failed to load invoice %s: %w", req.Invoice, err)
	}

	var customer models.Customer
	if err := s.db.WithContext(ctx).Where("name = ?", invoice.Customer).First(&customer).Error; err != nil {
		return nil, fmt.Errorf("failed to load customer %s: %w", invoice.Customer, err)
	}

	customerCode, err := s.ensurePaystackCustomer(ctx, &customer, &invoice)
	if err != nil {
		return nil, err
	}

	// The bridge reference rides along in metadata and comes back on both
	// webhook event types, giving the dedup check an identifier shared
	// across charge and payment-request notifications.
	metadata := &paystack.Metadata{
		InvoiceNo:     invoice.Name,
		CustomerName:  customer.CustomerName,
		CustomerEmail: customer.EmailID,
		Company:       invoice.Company,
		Reference:     utils.GenerateReference("TRM"),
		Source:        "ERP Healthcare",
	}
	if invoice.Patient != nil {
		metadata.Patient = *invoice.Patient
	}

	request, err := s.client.CreatePaymentRequest(ctx, paystack.PaymentRequestRequest{
		Customer: customerCode,
		Amount:   strconv.FormatInt(int64(req.Amount*100), 10),
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}

	_, err = s.client.PushTerminalEvent(ctx, s.cfg.TerminalID, paystack.TerminalEventRequest{
		Type:   "invoice",
		Action: "process",
		Data: paystack.TerminalEventData{
			ID:        request.ID,
			Reference: request.OfflineReference,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to push payment to terminal: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.SalesInvoice{}).
		Where("name = ?", invoice.Name).
		Updates(map[string]interface{}{
			"terminal_reference": request.OfflineReference,
			"paystack_status":    models.PaystackStatusPending,
			"updated_at":         time.Now(),
		}).Error; err != nil {
		return nil, fmt.Errorf("failed to store terminal reference on invoice: %w", err)
	}

	log.Printf("Payment request %s pushed to terminal %s for invoice %s", request.OfflineReference, s.cfg.TerminalID, invoice.Name)

	return &InitiationResult{
		Reference: request.OfflineReference,
		RequestID: request.ID,
	}, nil
}

// checkTerminalAvailable verifies the terminal is online and free,
// reusing a recent cached presence result when one exists
func (s *Service) checkTerminalAvailable(ctx context.Context) error {
	if status, ok := s.presence.Get(ctx, s.cfg.TerminalID); ok {
		if status.Online && status.Available {
			return nil
		}
		return ErrTerminalUnavailable
	}

	data, err := s.client.TerminalPresence(ctx, s.cfg.TerminalID)
	if err != nil {
		return fmt.Errorf("could not check terminal status: %w", err)
	}

	s.presence.Set(ctx, s.cfg.TerminalID, cache.TerminalStatus{
		Online:    data.Online,
		Available: data.Available,
		CheckedAt: time.Now(),
	})

	if !data.Online || !data.Available {
		return ErrTerminalUnavailable
	}

	return nil
}

// ensurePaystackCustomer returns the customer's Paystack code, creating
// the customer on Paystack first if no code is stored yet. Patient
// contact details take precedence over the customer record when present.
func (s *Service) ensurePaystackCustomer(ctx context.Context, customer *models.Customer, invoice *models.SalesInvoice) (string, error) {
	if customer.PaystackCustomerCode != "" {
		s.refreshCustomerContact(ctx, customer, invoice)
		return customer.PaystackCustomerCode, nil
	}

	req := paystack.CustomerRequest{
		Email:     customer.EmailID,
		FirstName: customer.CustomerName,
		Phone:     customer.MobileNo,
		Metadata:  map[string]string{"erp_customer_id": customer.Name},
	}
	if invoice.PatientEmail != nil && *invoice.PatientEmail != "" {
		req.Email = *invoice.PatientEmail
	}
	if invoice.PatientFirstName != nil {
		req.FirstName = *invoice.PatientFirstName
	}
	if invoice.PatientLastName != nil {
		req.LastName = *invoice.PatientLastName
	}
	if invoice.PatientMobile != nil && *invoice.PatientMobile != "" {
		req.Phone = *invoice.PatientMobile
	}
	if invoice.Patient != nil {
		req.Metadata["patient_id"] = *invoice.Patient
	}
	if req.Email == "" {
		// Paystack requires an email on customer create
		req.Email = fmt.Sprintf("customer_%s@example.com", customer.ID)
	}

	created, err := s.client.CreateCustomer(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create customer on paystack: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(customer).
		Update("paystack_customer_code", created.CustomerCode).Error; err != nil {
		// The code can be recovered on the next attempt; the charge
		// should not fail because of it.
		log.Printf("Failed to store paystack customer code for %s: %v", customer.Name, err)
	}
	customer.PaystackCustomerCode = created.CustomerCode

	return created.CustomerCode, nil
}

// refreshCustomerContact pushes current patient contact details onto an
// already-registered Paystack customer. Best-effort: a stale phone number
// must not block a charge.
func (s *Service) refreshCustomerContact(ctx context.Context, customer *models.Customer, invoice *models.SalesInvoice) {
	var req paystack.CustomerRequest
	changed := false

	req.Email = customer.EmailID
	if invoice.PatientEmail != nil && *invoice.PatientEmail != "" && *invoice.PatientEmail != customer.EmailID {
		req.Email = *invoice.PatientEmail
		changed = true
	}
	if invoice.PatientFirstName != nil && *invoice.PatientFirstName != "" {
		req.FirstName = *invoice.PatientFirstName
		changed = true
	}
	if invoice.PatientLastName != nil && *invoice.PatientLastName != "" {
		req.LastName = *invoice.PatientLastName
		changed = true
	}
	if invoice.PatientMobile != nil && *invoice.PatientMobile != "" && *invoice.PatientMobile != customer.MobileNo {
		req.Phone = *invoice.PatientMobile
		changed = true
	}

	if !changed {
		return
	}

	if _, err := s.client.UpdateCustomer(ctx, customer.PaystackCustomerCode, req); err != nil {
		log.Printf("Failed to refresh paystack customer %s: %v", customer.PaystackCustomerCode, err)
	}
}

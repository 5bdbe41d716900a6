package jobs

import (
	"context"
	"encoding/json"
	"log"

	"github.com/clinicpay/terminal-bridge/internal/queue"
	"github.com/clinicpay/terminal-bridge/internal/services/ledger"
	"github.com/clinicpay/terminal-bridge/internal/services/paystack"
	"gorm.io/gorm"
)

// WebhookJob processes Paystack webhook notifications off the queue, so
// the HTTP handler can acknowledge deliveries without waiting on the
// ledger writer.
type WebhookJob struct {
	db        *gorm.DB
	ledgerSvc *ledger.Service
}

// NewWebhookJob creates a new webhook job handler
func NewWebhookJob(db *gorm.DB, ledgerSvc *ledger.Service) *WebhookJob {
	return &WebhookJob{db: db, ledgerSvc: ledgerSvc}
}

// RegisterWebhookJobHandlers registers the webhook job handlers with the queue
func RegisterWebhookJobHandlers(q queue.QueueInterface, db *gorm.DB, ledgerSvc *ledger.Service) {
	handler := NewWebhookJob(db, ledgerSvc)

	q.RegisterHandler(queue.JobTypeProcessCharge, func(ctx context.Context, job queue.Job) (interface{}, error) {
		return handler.HandleChargeSuccess(ctx, job)
	})
	q.RegisterHandler(queue.JobTypeProcessPaymentRequest, func(ctx context.Context, job queue.Job) (interface{}, error) {
		return handler.HandlePaymentRequestSuccess(ctx, job)
	})
}

// HandleChargeSuccess records a payment for a charge.success event. The
// gateway transaction reference is authoritative; the terminal offline
// reference from metadata is checked as an alternate identifier of the
// same payment.
func (j *WebhookJob) HandleChargeSuccess(ctx context.Context, job queue.Job) (interface{}, error) {
	var data paystack.WebhookEventData
	if err := json.Unmarshal(job.Payload, &data); err != nil {
		// Malformed payloads (including non-numeric amounts) are dropped,
		// not retried: redelivery would fail the same way.
		log.Printf("Dropping malformed charge.success payload for job %s: %v", job.ID, err)
		return nil, nil
	}

	if data.Reference == "" {
		log.Printf("Dropping charge.success without a reference for job %s", job.ID)
		return nil, nil
	}

	entry, err := j.ledgerSvc.RecordPayment(ctx, ledger.RecordPaymentParams{
		Reference:          data.Reference,
		AlternateReference: data.OfflineReference,
		AmountMinor:        int64(data.Amount),
		Metadata:           data.Metadata,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"payment_entry": entry.ID.String()}, nil
}

// HandlePaymentRequestSuccess records a payment for a
// paymentrequest.success event. The terminal offline reference is the
// primary identifier here; the transaction reference, when present, is
// the alternate.
func (j *WebhookJob) HandlePaymentRequestSuccess(ctx context.Context, job queue.Job) (interface{}, error) {
	var data paystack.WebhookEventData
	if err := json.Unmarshal(job.Payload, &data); err != nil {
		log.Printf("Dropping malformed paymentrequest.success payload for job %s: %v", job.ID, err)
		return nil, nil
	}

	if data.OfflineReference == "" {
		log.Printf("Dropping paymentrequest.success without an offline reference for job %s", job.ID)
		return nil, nil
	}

	entry, err := j.ledgerSvc.RecordPayment(ctx, ledger.RecordPaymentParams{
		Reference:          data.OfflineReference,
		AlternateReference: data.Reference,
		AmountMinor:        int64(data.Amount),
		Metadata:           data.Metadata,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"payment_entry": entry.ID.String()}, nil
}

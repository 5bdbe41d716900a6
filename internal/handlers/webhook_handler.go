package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/clinicpay/terminal-bridge/internal/config"
	"github.com/clinicpay/terminal-bridge/internal/queue"
	"github.com/clinicpay/terminal-bridge/internal/services/ledger"
	"github.com/clinicpay/terminal-bridge/internal/services/paystack"
	"github.com/clinicpay/terminal-bridge/internal/utils"
	"github.com/gin-gonic/gin"
)

// PaystackWebhookHandler receives webhook notifications from Paystack.
//
// Paystack treats any non-2xx response (or a timeout) as a failed
// delivery and retries it, so this handler acknowledges every request
// with a success body no matter what went wrong internally. Deduplication
// is enforced downstream by the ledger writer's uniqueness check, not by
// rejecting deliveries here.
type PaystackWebhookHandler struct {
	ledgerSvc *ledger.Service
	jobQueue  queue.QueueInterface
	cfg       config.PaystackConfig
}

// NewPaystackWebhookHandler creates a new webhook handler
func NewPaystackWebhookHandler(ledgerSvc *ledger.Service, jobQueue queue.QueueInterface, cfg config.PaystackConfig) *PaystackWebhookHandler {
	return &PaystackWebhookHandler{
		ledgerSvc: ledgerSvc,
		jobQueue:  jobQueue,
		cfg:       cfg,
	}
}

// HandleWebhook processes a Paystack webhook delivery
func (h *PaystackWebhookHandler) HandleWebhook(c *gin.Context) {
	// Everything below falls through to this acknowledgement
	defer c.JSON(http.StatusOK, gin.H{"status": "success"})

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("Failed to read webhook body: %v", err)
		return
	}

	signature := c.GetHeader(paystack.SignatureHeader)
	if signature == "" {
		log.Printf("No Paystack signature in webhook, ignoring")
		return
	}

	if !utils.VerifyWebhookSignature(body, signature, h.cfg.SecretKey) {
		log.Printf("Invalid Paystack webhook signature, ignoring")
		return
	}

	var payload paystack.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("Invalid webhook data format: %v", err)
		return
	}

	switch payload.Event {
	case paystack.EventChargeSuccess:
		h.dispatch(c, queue.JobTypeProcessCharge, payload.Data)
	case paystack.EventPaymentRequestSuccess:
		h.dispatch(c, queue.JobTypeProcessPaymentRequest, payload.Data)
	default:
		// Unknown events are not an error; Paystack sends many event
		// types this integration does not care about.
		log.Printf("Ignoring Paystack event: %s", payload.Event)
	}
}

// dispatch runs the cheap duplicate pre-check and hands the event to the
// background queue. The pre-check is an optimization only: the ledger
// writer re-checks, and the unique index is the real guarantee.
func (h *PaystackWebhookHandler) dispatch(c *gin.Context, jobType queue.JobType, raw json.RawMessage) {
	var data paystack.WebhookEventData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Printf("Invalid %s event data: %v", jobType, err)
		return
	}

	refs := []string{data.Reference, data.OfflineReference}
	if data.Metadata != nil {
		refs = append(refs, data.Metadata.Reference, data.Metadata.OfflineReference)
	}

	exists, err := h.ledgerSvc.PaymentExists(c.Request.Context(), refs...)
	if err != nil {
		log.Printf("Duplicate pre-check failed, enqueueing anyway: %v", err)
	} else if exists {
		log.Printf("Payment already processed for reference %s / %s", data.Reference, data.OfflineReference)
		return
	}

	if _, err := h.jobQueue.EnqueueJob(jobType, json.RawMessage(raw)); err != nil {
		log.Printf("Failed to enqueue %s job: %v", jobType, err)
	}
}

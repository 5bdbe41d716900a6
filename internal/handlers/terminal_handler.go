package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/clinicpay/terminal-bridge/internal/services/terminal"
	"github.com/gin-gonic/gin"
)

// TerminalHandler exposes the synchronous terminal payment initiation
// flow. Unlike the webhook handler, failures here map to real HTTP error
// statuses — the caller is a cashier's UI that needs to know.
type TerminalHandler struct {
	terminalSvc *terminal.Service
}

// NewTerminalHandler creates a new terminal handler
func NewTerminalHandler(terminalSvc *terminal.Service) *TerminalHandler {
	return &TerminalHandler{terminalSvc: terminalSvc}
}

// ProcessPayment pushes a payment request for an invoice to the terminal
func (h *TerminalHandler) ProcessPayment(c *gin.Context) {
	var req terminal.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.terminalSvc.ProcessTerminalPayment(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, terminal.ErrIntegrationDisabled),
			errors.Is(err, terminal.ErrTerminalUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, terminal.ErrInvoiceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			log.Printf("Terminal payment failed for invoice %s: %v", req.Invoice, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process terminal payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "pending",
		"reference":  result.Reference,
		"request_id": result.RequestID,
	})
}

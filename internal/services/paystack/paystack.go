package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clinicpay/terminal-bridge/internal/config"
)

// DefaultBaseURL is the production Paystack API host
const DefaultBaseURL = "https://api.paystack.co"

// Client is a Paystack API client scoped to the terminal integration.
// All calls are authenticated with the secret key as a bearer token.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// NewClient creates a new Paystack client from the injected settings
func NewClient(cfg config.PaystackConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Metadata is the structured metadata attached to payment requests and
// echoed back on webhook payloads and transaction verification. All
// fields are optional on the wire.
type Metadata struct {
	InvoiceNo        string `json:"invoice_no,omitempty"`
	Company          string `json:"company,omitempty"`
	Patient          string `json:"patient,omitempty"`
	CustomerName     string `json:"customer_name,omitempty"`
	CustomerEmail    string `json:"customer_email,omitempty"`
	Reference        string `json:"reference,omitempty"`
	OfflineReference string `json:"offline_reference,omitempty"`
	Source           string `json:"source,omitempty"`
}

// envelope is the common Paystack response wrapper
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// TransactionData is the verification result for a transaction
type TransactionData struct {
	ID              int64     `json:"id"`
	Status          string    `json:"status"`
	Reference       string    `json:"reference"`
	Amount          int64     `json:"amount"` // minor units (kobo)
	Currency        string    `json:"currency"`
	GatewayResponse string    `json:"gateway_response"`
	Channel         string    `json:"channel"`
	PaidAt          string    `json:"paid_at"`
	Metadata        *Metadata `json:"metadata"`
}

// VerifyTransaction checks the status of a transaction by reference
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*TransactionData, error) {
	var data TransactionData
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// TerminalPresenceData reports whether a terminal is reachable and free
// to take a payment request
type TerminalPresenceData struct {
	Online    bool `json:"online"`
	Available bool `json:"available"`
}

// TerminalPresence checks whether the terminal is online and available
func (c *Client) TerminalPresence(ctx context.Context, terminalID string) (*TerminalPresenceData, error) {
	var data TerminalPresenceData
	if err := c.do(ctx, http.MethodGet, "/terminal/"+terminalID+"/presence", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// TerminalEventRequest pushes a payment request to a physical terminal
type TerminalEventRequest struct {
	Type   string            `json:"type"`   // invoice
	Action string            `json:"action"` // process
	Data   TerminalEventData `json:"data"`
}

// TerminalEventData identifies the payment request shown on the terminal
type TerminalEventData struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
}

// TerminalEventResponse is the acknowledgement for a pushed event
type TerminalEventResponse struct {
	ID string `json:"id"`
}

// PushTerminalEvent sends a payment request to the terminal for processing
func (c *Client) PushTerminalEvent(ctx context.Context, terminalID string, req TerminalEventRequest) (*TerminalEventResponse, error) {
	var data TerminalEventResponse
	if err := c.do(ctx, http.MethodPost, "/terminal/"+terminalID+"/event", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PaymentRequestRequest creates a payment request for a customer.
// Amount is in minor units, sent as the string Paystack expects.
type PaymentRequestRequest struct {
	Customer string    `json:"customer"`
	Amount   string    `json:"amount"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// PaymentRequestData is the created payment request
type PaymentRequestData struct {
	ID               int64  `json:"id"`
	RequestCode      string `json:"request_code"`
	OfflineReference string `json:"offline_reference"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

// CreatePaymentRequest creates a payment request to be pushed to the terminal
func (c *Client) CreatePaymentRequest(ctx context.Context, req PaymentRequestRequest) (*PaymentRequestData, error) {
	var data PaymentRequestData
	if err := c.do(ctx, http.MethodPost, "/paymentrequest", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CustomerRequest creates or updates a customer on Paystack
type CustomerRequest struct {
	Email     string            `json:"email"`
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CustomerData is the customer record returned by Paystack
type CustomerData struct {
	ID           int64  `json:"id"`
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
}

// CreateCustomer creates a customer on Paystack
func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (*CustomerData, error) {
	var data CustomerData
	if err := c.do(ctx, http.MethodPost, "/customer", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// UpdateCustomer updates an existing customer on Paystack
func (c *Client) UpdateCustomer(ctx context.Context, customerCode string, req CustomerRequest) (*CustomerData, error) {
	var data CustomerData
	if err := c.do(ctx, http.MethodPut, "/customer/"+customerCode, req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// do executes a request against the Paystack API and decodes the data
// portion of the response envelope into out
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		reqBody = bytes.NewBuffer(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paystack error (%d): %s", resp.StatusCode, env.Message)
	}

	if !env.Status {
		return fmt.Errorf("paystack error: %s", env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("error parsing response data: %w", err)
		}
	}

	return nil
}

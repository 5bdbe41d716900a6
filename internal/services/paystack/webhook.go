package paystack

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Webhook event types the bridge handles. Everything else is ignored.
const (
	EventChargeSuccess         = "charge.success"
	EventPaymentRequestSuccess = "paymentrequest.success"
)

// SignatureHeader carries the HMAC-SHA512 signature of the webhook body
const SignatureHeader = "x-paystack-signature"

// WebhookPayload is the outer shape of a Paystack webhook delivery. Data
// is kept raw so handlers can defer parsing to the background job.
type WebhookPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebhookEventData is the event body for the charge and payment-request
// notifications
type WebhookEventData struct {
	Reference        string     `json:"reference"`
	OfflineReference string     `json:"offline_reference"`
	Amount           MinorUnits `json:"amount"`
	Status           string     `json:"status"`
	Currency         string     `json:"currency"`
	Metadata         *Metadata  `json:"metadata"`
}

// MinorUnits is an amount in the gateway's minor unit (kobo). Paystack
// sends it as a JSON number on some surfaces and a numeric string on
// others; anything non-numeric is a decode error.
type MinorUnits int64

// UnmarshalJSON accepts numbers and quoted numeric strings
func (m *MinorUnits) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("non-numeric amount %q", s)
	}

	*m = MinorUnits(math.Round(f))
	return nil
}

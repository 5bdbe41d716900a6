package utils

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// SignWebhookPayload computes the hex HMAC-SHA512 of a webhook body using
// the Paystack secret key, the scheme Paystack uses for the
// x-paystack-signature header.
func SignWebhookPayload(body []byte, secret string) string {
	h := hmac.New(sha512.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyWebhookSignature verifies a webhook signature against the raw body.
// Uses constant-time comparison to prevent timing attacks.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	expectedMAC := SignWebhookPayload(body, secret)

	return subtle.ConstantTimeCompare([]byte(signature), []byte(expectedMAC)) == 1
}

package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// sign returns the hex HMAC-SHA256 of the message under the given secret.
func sign(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature computes the signature the gateway returns after a
// successful checkout: HMAC-SHA256 over "<gatewayOrderID>|<paymentID>" with
// the key secret.
func PaymentSignature(keySecret, gatewayOrderID, paymentID string) string {
	return sign([]byte(keySecret), []byte(gatewayOrderID+"|"+paymentID))
}

// VerifyPaymentSignature checks a checkout signature in constant time.
func VerifyPaymentSignature(keySecret, gatewayOrderID, paymentID, signature string) bool {
	expected := PaymentSignature(keySecret, gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookSignature computes the signature over a raw webhook body with the
// webhook secret. The signature covers the exact byte sequence, so callers
// must pass the unparsed body.
func WebhookSignature(webhookSecret string, body []byte) string {
	return sign([]byte(webhookSecret), body)
}

// VerifyWebhookSignature checks a webhook body signature in constant time.
func VerifyWebhookSignature(webhookSecret string, body []byte, signature string) bool {
	expected := WebhookSignature(webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

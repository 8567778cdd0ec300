package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature verifies the signature Razorpay posts to the
// browser callback. The expected value is HMAC-SHA256 over
// "<gateway_order_id>|<payment_id>" keyed with the API key secret, hex
// encoded. Comparison is constant time; a short-circuiting string compare
// would leak match length through timing.
func VerifyPaymentSignature(gatewayOrderID, paymentID, signature, keySecret string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature verifies the X-Razorpay-Signature header against
// the webhook shared secret. The HMAC is computed over the exact raw request
// bytes — never a re-serialized form, since re-serialization can change the
// byte layout and break the signature.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	const secret = "test_key_secret"
	valid := sign(secret, []byte("order_abc|pay_xyz"))

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid signature", "order_abc", "pay_xyz", valid, true},
		{"wrong payment id", "order_abc", "pay_other", valid, false},
		{"wrong order id", "order_other", "pay_xyz", valid, false},
		{"tampered signature", "order_abc", "pay_xyz", valid[:len(valid)-1] + "0", false},
		{"empty signature", "order_abc", "pay_xyz", "", false},
		{"empty order id", "", "pay_xyz", valid, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyPaymentSignature(tt.orderID, tt.paymentID, tt.signature, secret)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"entity":"event","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_test123","order_id":"order_test123"}}}}`)
	valid := sign(secret, body)

	assert.True(t, VerifyWebhookSignature(body, valid, secret))

	// One altered byte in the payload invalidates the signature.
	tampered := append([]byte(nil), body...)
	tampered[10] ^= 1
	assert.False(t, VerifyWebhookSignature(tampered, valid, secret))

	assert.False(t, VerifyWebhookSignature(body, valid, "other_secret"))
	assert.False(t, VerifyWebhookSignature(body, "", secret))

	// A signature with no configured secret is an ambiguous trust state and
	// never verifies.
	assert.False(t, VerifyWebhookSignature(body, valid, ""))
}

// The signature must be computed over the exact raw bytes: a semantically
// identical but differently spaced JSON body must not verify.
func TestVerifyWebhookSignature_RawBytesMatter(t *testing.T) {
	const secret = "whsec_test"
	compact := []byte(`{"a":1}`)
	spaced := []byte(`{"a": 1}`)
	sig := sign(secret, compact)

	assert.True(t, VerifyWebhookSignature(compact, sig, secret))
	assert.False(t, VerifyWebhookSignature(spaced, sig, secret))
}

// Package razorpay integrates with the Razorpay payment gateway: opening
// gateway orders and verifying callback/webhook signatures.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

const defaultBaseURL = "https://api.razorpay.com"

// ErrGatewayUnavailable wraps transport-level failures talking to the
// gateway. The shop order stays pending; callers may retry.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Client talks to the Razorpay REST API with key-pair basic auth. All calls
// carry bounded timeouts so no request blocks indefinitely.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

// NewClient creates a gateway client for the given key pair.
func NewClient(keyID, keySecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: timeout},
	}
}

// KeyID returns the public key identifier, needed by browser checkout forms.
func (c *Client) KeyID() string {
	return c.keyID
}

// Configured reports whether a key pair is present. Without one the shop
// runs in development test-pay mode.
func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a gateway transaction for the given amount in minor
// currency units (paise) and returns the gateway order reference. A failure
// here is non-fatal to the shop order, which remains pending for retry.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:         amountMinor,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return "", errors.Wrap(err, "encode order request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build order request")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(ErrGatewayUnavailable, "create order: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrapf(ErrGatewayUnavailable, "read order response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ge gatewayError
		if err := json.Unmarshal(respBody, &ge); err == nil && ge.Error.Description != "" {
			return "", errors.Errorf("gateway rejected order: %s (%s)",
				ge.Error.Description, ge.Error.Code)
		}
		return "", errors.Errorf("gateway rejected order: status %d", resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", errors.Wrap(err, "decode order response")
	}
	if out.ID == "" {
		return "", errors.New("gateway returned empty order id")
	}
	return out.ID, nil
}

// VerifyPaymentSignature checks the browser callback signature against the
// key secret. See signature.go for the scheme.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(gatewayOrderID, paymentID, signature, c.keySecret)
}

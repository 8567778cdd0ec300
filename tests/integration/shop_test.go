//go:build integration

package integration

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"
)

// The compose environment runs with LUVORA_RAZORPAY_WEBHOOK_SECRET set to
// this value.
const webhookSecret = "whsec_integration"

func TestHealthEndpoints(t *testing.T) {
	client := newSession(t)

	resp := doGet(t, client, "/livez")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("livez status = %d", resp.StatusCode)
	}
	live := decodeJSON[healthResponse](t, resp)
	if live.Status != "ok" {
		t.Errorf("livez status = %q, want ok", live.Status)
	}

	resp = doGet(t, client, "/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status = %d", resp.StatusCode)
	}
	ready := decodeJSON[healthResponse](t, resp)
	if ready.Status != "ok" {
		t.Errorf("readyz status = %q, checks = %v", ready.Status, ready.Checks)
	}
}

func TestProductCatalog(t *testing.T) {
	client := newSession(t)

	resp := doGet(t, client, "/api/products")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	products := decodeJSON[[]productResponse](t, resp)
	if len(products) < 6 {
		t.Fatalf("got %d products, want at least 6", len(products))
	}

	resp = doGet(t, client, "/api/products/prod-argan-oil-100")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	p := decodeJSON[productResponse](t, resp)
	if p.Price != "2499.00" {
		t.Errorf("price = %q, want 2499.00", p.Price)
	}

	resp = doGet(t, client, "/api/products?category=hair")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("category list status = %d", resp.StatusCode)
	}
	hair := decodeJSON[[]productResponse](t, resp)
	if len(hair) != 1 || hair[0].ID != "prod-hair-mask-200" {
		t.Errorf("category=hair returned %+v, want just prod-hair-mask-200", hair)
	}

	resp = doGet(t, client, "/api/products/no-such-product")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing product status = %d, want 404", resp.StatusCode)
	}
}

func TestCartAndCouponFlow(t *testing.T) {
	client := newSession(t)

	resp := doJSON(t, client, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": "prod-argan-oil-100",
		"quantity":   2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add item status = %d", resp.StatusCode)
	}
	view := decodeJSON[cartResponse](t, resp)
	if view.Subtotal != "4998.00" {
		t.Errorf("subtotal = %q, want 4998.00", view.Subtotal)
	}

	resp = doJSON(t, client, http.MethodPost, "/api/cart/coupon", map[string]string{
		"code": "welcome10",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply coupon status = %d", resp.StatusCode)
	}
	view = decodeJSON[cartResponse](t, resp)
	if view.Discount != "499.80" || view.Total != "4498.20" {
		t.Errorf("discount/total = %q/%q, want 499.80/4498.20", view.Discount, view.Total)
	}
	if view.Coupon == nil || view.Coupon.Code != "WELCOME10" {
		t.Errorf("coupon = %+v, want WELCOME10", view.Coupon)
	}

	// Session isolation: a different client sees an empty cart.
	other := newSession(t)
	otherView := decodeJSON[cartResponse](t, doGet(t, other, "/api/cart"))
	if len(otherView.Items) != 0 {
		t.Errorf("other session has %d items, want 0", len(otherView.Items))
	}
}

func TestCouponMinimumPurchase(t *testing.T) {
	client := newSession(t)

	doJSON(t, client, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": "prod-vitc-cream-75",
		"quantity":   1,
	}).Body.Close()

	resp := doJSON(t, client, http.MethodPost, "/api/cart/coupon", map[string]string{
		"code": "SAVE500",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("apply status = %d, want 422", resp.StatusCode)
	}
	e := decodeJSON[errorResponse](t, resp)
	if e.Error != "minimum purchase of ₹2000.00 required" {
		t.Errorf("error = %q", e.Error)
	}
}

func TestCheckoutFlow(t *testing.T) {
	client := newSession(t)

	doJSON(t, client, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": "prod-rosehip-serum-50",
		"quantity":   1,
	}).Body.Close()

	resp := doJSON(t, client, http.MethodPost, "/api/checkout", map[string]string{
		"customer_name":  "Asha Verma",
		"customer_email": "asha@example.com",
		"customer_phone": "+919800000000",
		"address_line1":  "12 MG Road",
		"city":           "Bengaluru",
		"state":          "Karnataka",
		"pincode":        "560001",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout status = %d", resp.StatusCode)
	}
	out := decodeJSON[checkoutResponse](t, resp)

	// No gateway keys in the test environment: dev test mode.
	if !out.TestMode {
		t.Error("expected test_mode checkout")
	}
	if out.Order.Status != "pending" {
		t.Errorf("order status = %q, want pending", out.Order.Status)
	}
	if out.AmountMinor != 189900 {
		t.Errorf("amount_minor = %d, want 189900", out.AmountMinor)
	}

	// The order is retrievable and the cart is cleared.
	got := decodeJSON[orderResponse](t, doGet(t, client, "/api/orders/"+out.Order.ID))
	if got.ID != out.Order.ID {
		t.Errorf("order id = %q, want %q", got.ID, out.Order.ID)
	}
	view := decodeJSON[cartResponse](t, doGet(t, client, "/api/cart"))
	if len(view.Items) != 0 {
		t.Errorf("cart has %d items after checkout, want 0", len(view.Items))
	}

	// Checking out the now-empty cart fails.
	resp = doJSON(t, client, http.MethodPost, "/api/checkout", map[string]string{
		"customer_name":  "Asha Verma",
		"customer_email": "asha@example.com",
		"customer_phone": "+919800000000",
		"address_line1":  "12 MG Road",
		"city":           "Bengaluru",
		"state":          "Karnataka",
		"pincode":        "560001",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty checkout status = %d, want 400", resp.StatusCode)
	}
}

func TestTestModePaymentCompletesOrder(t *testing.T) {
	client := newSession(t)

	doJSON(t, client, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": "prod-vitc-cream-75",
		"quantity":   2,
	}).Body.Close()

	resp := doJSON(t, client, http.MethodPost, "/api/checkout", map[string]string{
		"customer_name":  "Asha Verma",
		"customer_email": "asha@example.com",
		"customer_phone": "+919800000000",
		"address_line1":  "12 MG Road",
		"city":           "Bengaluru",
		"state":          "Karnataka",
		"pincode":        "560001",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout status = %d", resp.StatusCode)
	}
	out := decodeJSON[checkoutResponse](t, resp)
	if !out.TestMode {
		t.Fatal("expected test_mode checkout")
	}

	// The dev-only route drives the same pending → paid transition a real
	// capture would.
	resp = doJSON(t, client, http.MethodPost, "/api/payment/test/"+out.Order.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("test payment status = %d", resp.StatusCode)
	}
	paid := decodeJSON[orderResponse](t, resp)
	if paid.Status != "paid" {
		t.Errorf("order status = %q, want paid", paid.Status)
	}

	// Confirming again changes nothing.
	resp = doJSON(t, client, http.MethodPost, "/api/payment/test/"+out.Order.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repeat test payment status = %d", resp.StatusCode)
	}
	again := decodeJSON[orderResponse](t, resp)
	if again.Status != "paid" {
		t.Errorf("repeat status = %q, want paid", again.Status)
	}
}

func TestWebhookSignaturePolicy(t *testing.T) {
	client := newSession(t)
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_unknown"}}}}`)

	sign := func(b []byte) string {
		mac := hmac.New(sha256.New, []byte(webhookSecret))
		mac.Write(b)
		return hex.EncodeToString(mac.Sum(nil))
	}

	// Properly signed: acknowledged even for an unknown gateway order.
	resp := doRaw(t, client, http.MethodPost, "/api/payment/webhook", body,
		map[string]string{"X-Razorpay-Signature": sign(body)})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("signed webhook status = %d, want 200", resp.StatusCode)
	}

	// One flipped byte breaks verification.
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] ^= 0x01
	resp = doRaw(t, client, http.MethodPost, "/api/payment/webhook", tampered,
		map[string]string{"X-Razorpay-Signature": sign(body)})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("tampered webhook status = %d, want 403", resp.StatusCode)
	}

	// Unsigned is rejected because a secret is configured.
	resp = doRaw(t, client, http.MethodPost, "/api/payment/webhook", body, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("unsigned webhook status = %d, want 403", resp.StatusCode)
	}

	// Non-actionable events are acknowledged.
	other := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_unknown"}}}}`)
	resp = doRaw(t, client, http.MethodPost, "/api/payment/webhook", other,
		map[string]string{"X-Razorpay-Signature": sign(other)})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("other event status = %d, want 200", resp.StatusCode)
	}
}

func TestPaymentCallbackRejectsForgery(t *testing.T) {
	client := newSession(t)

	form := "razorpay_order_id=order_x&razorpay_payment_id=pay_x&razorpay_signature=" +
		hex.EncodeToString([]byte("not-a-real-signature"))
	resp := doRaw(t, client, http.MethodPost, "/api/payment/callback", []byte(form),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("callback status = %d, want 403", resp.StatusCode)
	}
	e := decodeJSON[errorResponse](t, resp)
	if e.Error != "payment verification failed" {
		t.Errorf("error = %q, want generic message", e.Error)
	}
}

func TestRateLimitHeadersPresent(t *testing.T) {
	client := newSession(t)

	resp := doGet(t, client, "/api/products")
	defer resp.Body.Close()
	for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if resp.Header.Get(h) == "" {
			t.Errorf("missing %s header", h)
		}
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

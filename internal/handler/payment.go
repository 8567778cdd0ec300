package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/himanshuaggarwal31/luvora/internal/domain/order"
	"github.com/himanshuaggarwal31/luvora/internal/razorpay"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

// paymentCallback handles the browser redirect after a gateway payment. The
// route carries no session state; trust comes entirely from the HMAC
// signature over "<order_id>|<payment_id>". Any mismatch gets the same
// generic 403 so the response leaks nothing about why.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid form body")
		return
	}
	var (
		paymentID      = r.PostFormValue("razorpay_payment_id")
		gatewayOrderID = r.PostFormValue("razorpay_order_id")
		signature      = r.PostFormValue("razorpay_signature")
	)
	if paymentID == "" || gatewayOrderID == "" || signature == "" {
		writeError(ctx, w, http.StatusBadRequest, "missing payment fields")
		return
	}

	if !h.gateway.VerifyPaymentSignature(gatewayOrderID, paymentID, signature) {
		zctx.From(ctx).Warn("payment callback signature mismatch",
			zap.String("gateway_order_id", gatewayOrderID))
		writeError(ctx, w, http.StatusForbidden, "payment verification failed")
		return
	}

	o, err := h.orders.ConfirmPayment(ctx, gatewayOrderID, paymentID, signature)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "order not found")
			return
		}
		serverError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toOrderResponse(o))
}

type webhookEvent struct {
	Event          string
	PaymentID      string
	GatewayOrderID string
}

// parseWebhookEvent pulls the event name and payment entity out of a gateway
// webhook payload without materializing the rest of it.
func parseWebhookEvent(body []byte) (webhookEvent, error) {
	var ev webhookEvent
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "event":
			v, err := d.Str()
			ev.Event = v
			return err
		case "payload":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "payment" {
					return d.Skip()
				}
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "entity" {
						return d.Skip()
					}
					return d.Obj(func(d *jx.Decoder, key string) error {
						switch key {
						case "id":
							v, err := d.Str()
							ev.PaymentID = v
							return err
						case "order_id":
							v, err := d.Str()
							ev.GatewayOrderID = v
							return err
						default:
							return d.Skip()
						}
					})
				})
			})
		default:
			return d.Skip()
		}
	})
	return ev, err
}

// paymentWebhook handles server-to-server gateway notifications. The raw body
// is read before any parsing because the signature covers the exact bytes on
// the wire. payment.captured drives the same idempotent confirmation as the
// browser callback; every other event is acknowledged and dropped.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "unreadable body")
		return
	}

	signature := r.Header.Get(webhookSignatureHeader)
	switch {
	case h.cfg.WebhookSecret != "":
		if !razorpay.VerifyWebhookSignature(body, signature, h.cfg.WebhookSecret) {
			lg.Warn("webhook signature rejected", zap.Bool("signed", signature != ""))
			writeError(ctx, w, http.StatusForbidden, "invalid webhook signature")
			return
		}
	case signature != "":
		// A signature with no secret to check it against can never verify.
		lg.Warn("webhook signature received but no secret configured")
		writeError(ctx, w, http.StatusForbidden, "invalid webhook signature")
		return
	case !h.cfg.DevMode:
		lg.Warn("unsigned webhook rejected")
		writeError(ctx, w, http.StatusForbidden, "webhook signature required")
		return
	default:
		lg.Warn("WEBHOOK SIGNATURE VERIFICATION SKIPPED: dev mode with no secret configured")
	}

	ev, err := parseWebhookEvent(body)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "malformed webhook payload")
		return
	}

	if ev.Event != "payment.captured" {
		lg.Debug("webhook event ignored", zap.String("event", ev.Event))
		writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if ev.GatewayOrderID == "" || ev.PaymentID == "" {
		writeError(ctx, w, http.StatusBadRequest, "payment entity missing id or order_id")
		return
	}

	if _, err := h.orders.ConfirmPayment(ctx, ev.GatewayOrderID, ev.PaymentID, signature); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			// Nothing to confirm here; retrying would not help, so ack.
			lg.Warn("webhook for unknown gateway order",
				zap.String("gateway_order_id", ev.GatewayOrderID))
			writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		serverError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// testPayment simulates a captured payment for a pending order without
// contacting the gateway. Only registered in dev mode. Test-mode checkouts
// skip CreateOrder and leave the order with no gateway reference, so one is
// synthesized here before driving the same idempotent confirmation as a
// real capture.
func (h *Handler) testPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	o, err := h.orders.Get(ctx, r.PathValue("orderID"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "order not found")
			return
		}
		serverError(ctx, w, err)
		return
	}

	gatewayOrderID := o.GatewayOrderID
	if gatewayOrderID == "" {
		gatewayOrderID = "order_test_" + strings.ToUpper(uuid.NewString()[:8])
		if err := h.orders.AttachGatewayOrder(ctx, o.ID, gatewayOrderID); err != nil {
			serverError(ctx, w, err)
			return
		}
	}

	zctx.From(ctx).Warn("TEST PAYMENT: confirming order without gateway verification",
		zap.String("order_id", o.ID))

	paymentID := "pay_test_" + strings.ToUpper(uuid.NewString()[:8])
	confirmed, err := h.orders.ConfirmPayment(ctx, gatewayOrderID, paymentID, "test")
	if err != nil {
		serverError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toOrderResponse(confirmed))
}

package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/himanshuaggarwal31/luvora/internal/domain/order"
	"github.com/himanshuaggarwal31/luvora/internal/razorpay"
)

type checkoutRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`

	CustomerNotes string `json:"customer_notes"`

	ShippingCost string `json:"shipping_cost"`
	TaxAmount    string `json:"tax_amount"`
}

func (req *checkoutRequest) validate() []string {
	var problems []string
	required := []struct{ name, value string }{
		{"customer_name", req.CustomerName},
		{"customer_email", req.CustomerEmail},
		{"customer_phone", req.CustomerPhone},
		{"address_line1", req.AddressLine1},
		{"city", req.City},
		{"state", req.State},
		{"pincode", req.Pincode},
	}
	for _, f := range required {
		if f.value == "" {
			problems = append(problems, f.name+" is required")
		}
	}
	return problems
}

func (req *checkoutRequest) toForm() (order.CheckoutForm, error) {
	form := order.CheckoutForm{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		AddressLine1:  req.AddressLine1,
		AddressLine2:  req.AddressLine2,
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
		Country:       req.Country,
		CustomerNotes: req.CustomerNotes,
	}
	if form.Country == "" {
		form.Country = "India"
	}
	var err error
	if req.ShippingCost != "" {
		if form.ShippingCost, err = decimal.NewFromString(req.ShippingCost); err != nil {
			return form, errors.New("shipping_cost is not a valid amount")
		}
	}
	if req.TaxAmount != "" {
		if form.TaxAmount, err = decimal.NewFromString(req.TaxAmount); err != nil {
			return form, errors.New("tax_amount is not a valid amount")
		}
	}
	return form, nil
}

type checkoutResponse struct {
	Order          orderResponse `json:"order"`
	GatewayOrderID string        `json:"gateway_order_id,omitempty"`
	GatewayKeyID   string        `json:"gateway_key_id,omitempty"`
	Currency       string        `json:"currency"`
	AmountMinor    int64         `json:"amount_minor"`
	TestMode       bool          `json:"test_mode,omitempty"`
}

// checkout freezes the session cart into a pending order and opens a gateway
// transaction for it. Gateway failure keeps the order pending and answers
// 502 so the shopper can retry payment without re-entering checkout.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Error:    "missing required fields",
			Problems: problems,
		})
		return
	}
	form, err := req.toForm()
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	sid, c, err := h.loadCart(w, r)
	if err != nil {
		serverError(ctx, w, err)
		return
	}

	o, err := h.orders.Checkout(ctx, c, form)
	if err != nil {
		var invalid *order.InvalidCartError
		switch {
		case errors.Is(err, order.ErrEmptyCart):
			writeError(ctx, w, http.StatusBadRequest, "cart is empty")
		case errors.As(err, &invalid):
			writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Error:    "cart validation failed",
				Problems: invalid.Problems,
			})
		default:
			serverError(ctx, w, err)
		}
		return
	}

	resp := checkoutResponse{
		Order:       toOrderResponse(o),
		Currency:    h.cfg.Currency,
		AmountMinor: o.Total.Shift(2).IntPart(),
	}

	if !h.gateway.Configured() {
		// No key pair: local test-pay mode. The order stays pending; the
		// dev-only test payment route completes it.
		resp.TestMode = true
		zctx.From(ctx).Warn("gateway not configured, checkout in test mode",
			zap.String("order_id", o.ID))
	} else {
		gatewayOrderID, err := h.gateway.CreateOrder(ctx, resp.AmountMinor, resp.Currency, o.ID)
		if err != nil {
			zctx.From(ctx).Error("gateway order failed",
				zap.String("order_id", o.ID), zap.Error(err))
			msg := "payment gateway unavailable, please retry"
			if !errors.Is(err, razorpay.ErrGatewayUnavailable) {
				msg = "payment gateway rejected the order, please retry"
			}
			writeJSON(ctx, w, http.StatusBadGateway, struct {
				errorResponse
				OrderID string `json:"order_id"`
			}{errorResponse{Error: msg}, o.ID})
			return
		}
		if err := h.orders.AttachGatewayOrder(ctx, o.ID, gatewayOrderID); err != nil {
			serverError(ctx, w, err)
			return
		}
		resp.GatewayOrderID = gatewayOrderID
		resp.GatewayKeyID = h.gateway.KeyID()
	}

	// The order is now the source of truth; the session cart is done.
	if err := h.store.Delete(ctx, sid); err != nil {
		zctx.From(ctx).Warn("clearing cart after checkout failed",
			zap.String("order_id", o.ID), zap.Error(err))
	}

	writeJSON(ctx, w, http.StatusCreated, resp)
}

// Package handler exposes the shop over HTTP: catalog, session cart,
// checkout, and the payment gateway callback/webhook endpoints.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/himanshuaggarwal31/luvora/internal/domain/cart"
	"github.com/himanshuaggarwal31/luvora/internal/domain/order"
	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

// sessionCookie identifies the shopper's cart across requests.
const sessionCookie = "luvora_session"

const sessionTTL = 7 * 24 * time.Hour

// Gateway is the payment gateway surface the handler needs.
type Gateway interface {
	Configured() bool
	KeyID() string
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool
}

// Config holds non-dependency handler settings.
type Config struct {
	// DevMode relaxes the webhook signature requirement for local runs.
	// Never enable in production.
	DevMode bool
	// WebhookSecret verifies gateway webhook payloads.
	WebhookSecret string
	// Currency is the ISO code sent to the gateway, INR by default.
	Currency string
	// SecureCookies marks the session cookie Secure; on behind TLS.
	SecureCookies bool
}

// Handler serves the storefront API, delegating business logic to the cart
// and order services.
type Handler struct {
	cfg      Config
	store    cart.Store
	carts    *cart.Service
	orders   *order.Service
	products product.Repository
	gateway  Gateway
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	store cart.Store,
	carts *cart.Service,
	orders *order.Service,
	products product.Repository,
	gateway Gateway,
) *Handler {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Handler{
		cfg:      cfg,
		store:    store,
		carts:    carts,
		orders:   orders,
		products: products,
		gateway:  gateway,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.removeCartItem)
	mux.HandleFunc("POST /api/cart/clear", h.clearCart)
	mux.HandleFunc("POST /api/cart/coupon", h.applyCoupon)
	mux.HandleFunc("DELETE /api/cart/coupon", h.removeCoupon)

	mux.HandleFunc("POST /api/checkout", h.checkout)
	mux.HandleFunc("GET /api/orders/{orderID}", h.getOrder)

	// Gateway-facing routes. These carry no session cookie; authenticity
	// comes from the HMAC signature alone.
	mux.HandleFunc("POST /api/payment/callback", h.paymentCallback)
	mux.HandleFunc("POST /api/payment/webhook", h.paymentWebhook)

	if h.cfg.DevMode {
		// Local stand-in for the gateway's capture flow; see testPayment.
		mux.HandleFunc("POST /api/payment/test/{orderID}", h.testPayment)
	}
}

// sessionID returns the shopper's session identifier, minting and setting a
// cookie when the request carries none.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) loadCart(w http.ResponseWriter, r *http.Request) (string, *cart.Cart, error) {
	sid := h.sessionID(w, r)
	c, err := h.store.Get(r.Context(), sid)
	return sid, c, err
}

type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(ctx).Error("encode response", zap.Error(err))
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}

// serverError logs the cause and answers with a generic message so internals
// never leak to clients.
func serverError(ctx context.Context, w http.ResponseWriter, err error) {
	zctx.From(ctx).Error("request failed", zap.Error(err))
	writeError(ctx, w, http.StatusInternalServerError, "internal error")
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

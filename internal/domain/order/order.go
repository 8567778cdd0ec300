// Package order converts validated carts into durable orders and drives the
// payment confirmation lifecycle.
package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Only pending → paid is driven by this
// core; the fulfillment states and the cancelled/refunded branches are
// operator policy.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

var (
	// ErrNotFound is returned when no order exists for a given identifier.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateID is returned when an order ID collides with an existing
	// row. Creation fails rather than overwriting.
	ErrDuplicateID = errors.New("duplicate order id")
	// ErrEmptyCart rejects checkout of a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
)

// InvalidCartError carries the per-line validation problems that block a
// checkout. All problems are reported together.
type InvalidCartError struct {
	Problems []string
}

func (e *InvalidCartError) Error() string {
	return "cart validation failed: " + strings.Join(e.Problems, "; ")
}

// Item is a frozen snapshot of one cart line at order-creation time. Later
// price or title changes to the product never alter historical orders.
type Item struct {
	ProductID    string
	ProductSKU   string
	ProductName  string
	ProductPrice decimal.Decimal
	Quantity     int
	LineTotal    decimal.Decimal
}

// Order is the durable record produced at checkout. Pricing fields are a
// snapshot; total = subtotal - discount + shipping + tax, clamped at zero.
// Payment fields stay blank until the gateway phase. PaidAt is set exactly
// once, by the pending → paid transition.
type Order struct {
	ID string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	ShippingAddressLine1 string
	ShippingAddressLine2 string
	ShippingCity         string
	ShippingState        string
	ShippingPincode      string
	ShippingCountry      string

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal

	CouponID   string
	CouponCode string

	PaymentMethod    string
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string

	Status        Status
	CustomerNotes string
	AdminNotes    string

	Items []Item

	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
}

// NewID generates an order identifier: fixed prefix, second-resolution
// timestamp, and an 8-character random suffix. The suffix makes collisions
// vanishingly rare; the unique index makes them impossible to persist.
func NewID(now time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return "LUV" + now.UTC().Format("20060102150405") + suffix
}

// Repository defines persistence for orders and their item snapshots.
type Repository interface {
	// Create persists the order and its items atomically. Returns
	// ErrDuplicateID when the generated ID already exists.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetByGatewayOrderID resolves an order from the payment gateway's
	// transaction reference. Returns ErrNotFound when unknown.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	// SetGatewayOrder records the gateway reference opened for the order.
	SetGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) error
	// MarkPaid performs the conditional pending → paid update, recording the
	// payment ID, signature, and paid_at timestamp. It reports whether this
	// call performed the transition; false means the order was not pending,
	// so the caller must not run paid side effects.
	MarkPaid(ctx context.Context, orderID, paymentID, signature string, paidAt time.Time) (bool, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
}

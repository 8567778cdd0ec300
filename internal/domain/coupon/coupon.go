package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercent applies a percentage of the cart total.
	DiscountPercent DiscountType = "percent"
	// DiscountFixed subtracts a fixed amount, capped at the cart total.
	DiscountFixed DiscountType = "fixed"
)

// ErrNotFound is returned when no coupon exists for a given code.
var ErrNotFound = errors.New("invalid coupon code")

// Coupon is a promotional discount rule. Codes are case-insensitive and
// stored uppercase. UsedCount only ever increases, exactly once per paid
// order that referenced the coupon.
type Coupon struct {
	ID              string
	Code            string
	Description     string
	DiscountType    DiscountType
	Value           decimal.Decimal
	ValidFrom       time.Time
	ValidTo         time.Time
	UsageLimit      int // 0 = unlimited
	UsedCount       int
	MinimumPurchase decimal.Decimal
	Active          bool
}

// NormalizeCode uppercases a user-supplied coupon code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DisplayDiscount renders the discount for user-facing messages.
func (c *Coupon) DisplayDiscount() string {
	if c.DiscountType == DiscountPercent {
		return c.Value.String() + "% OFF"
	}
	return "₹" + c.Value.StringFixed(2) + " OFF"
}

// Repository provides lookup and usage accounting for coupons.
type Repository interface {
	// GetByCode finds a coupon by its uppercase code. Returns ErrNotFound
	// when no coupon exists for the code, active or not.
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	// IncrementUsage atomically bumps used_count, refusing to pass the usage
	// limit. Concurrent confirmations referencing the same coupon must not
	// lose updates.
	IncrementUsage(ctx context.Context, id string) error
}

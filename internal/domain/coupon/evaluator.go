package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidationError explains why a coupon cannot be used. The message is safe
// to show to the shopper.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validate checks whether the coupon can be applied to a cart with the given
// total at the given time. Checks fail closed and short-circuit: the first
// failing check's reason is returned.
func Validate(c *Coupon, cartTotal decimal.Decimal, now time.Time) error {
	if !c.Active {
		return &ValidationError{Reason: "coupon is not active"}
	}
	// Validity window bounds are inclusive.
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return &ValidationError{Reason: "coupon has expired"}
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return &ValidationError{Reason: "coupon usage limit reached"}
	}
	if cartTotal.LessThan(c.MinimumPurchase) {
		return &ValidationError{
			Reason: "minimum purchase of ₹" + c.MinimumPurchase.StringFixed(2) + " required",
		}
	}
	return nil
}

// CalculateDiscount computes the discount amount for the given total.
// The result never exceeds the total, so a large fixed coupon cannot drive
// the post-discount amount negative.
func CalculateDiscount(c *Coupon, total decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercent:
		amount = total.Mul(c.Value).Div(hundred)
	case DiscountFixed:
		amount = c.Value
	default:
		return decimal.Zero
	}
	return decimal.Min(amount, total)
}

// ApplyToTotal returns the total after discount, floored at zero.
func ApplyToTotal(c *Coupon, total decimal.Decimal) decimal.Decimal {
	result := total.Sub(CalculateDiscount(c, total))
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}

// Package cart implements the session-scoped shopping cart: line snapshots,
// coupon attachment, and pricing.
package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

// Line is one product entry in a cart. Price, SKU, and Title are snapshots
// captured when the product is first added — cart prices do not drift with
// the live catalog while the shopper is undecided.
type Line struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	SKU       string          `json:"sku"`
	Title     string          `json:"title"`
}

// LineTotal returns the captured unit price times the quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds a single session's selected items plus an optional coupon
// reference. No two lines share a product ID.
type Cart struct {
	Lines    map[string]Line `json:"lines"`
	CouponID string          `json:"coupon_id,omitempty"`
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{Lines: make(map[string]Line)}
}

// Add puts a product in the cart. On first add the line captures the
// product's current price, SKU, and title. Repeated adds increment the
// quantity; override replaces it instead. Stock limits are not enforced
// here — that happens at validation/checkout time.
func (c *Cart) Add(p *product.Product, quantity int, override bool) {
	if c.Lines == nil {
		c.Lines = make(map[string]Line)
	}
	line, ok := c.Lines[p.ID]
	if !ok {
		line = Line{
			ProductID: p.ID,
			Quantity:  0,
			Price:     p.Price,
			SKU:       p.SKU,
			Title:     p.Title,
		}
	}
	if override {
		line.Quantity = quantity
	} else {
		line.Quantity += quantity
	}
	c.Lines[p.ID] = line
}

// Remove deletes the line for the given product ID. No-op when absent.
func (c *Cart) Remove(productID string) {
	delete(c.Lines, productID)
}

// Clear empties all lines and detaches any coupon.
func (c *Cart) Clear() {
	c.Lines = make(map[string]Line)
	c.CouponID = ""
}

// TotalPrice sums captured unit price times quantity over all lines.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// TotalQuantity sums the line quantities.
func (c *Cart) TotalQuantity() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ProductIDs returns the IDs of all lines in the cart.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	for id := range c.Lines {
		ids = append(ids, id)
	}
	return ids
}

// Store persists carts keyed by session ID. Each cart has a single owning
// session, so operations within one cart need no cross-request locking;
// concurrent requests for the same session resolve last-write-wins.
type Store interface {
	// Get returns the cart for the session, or an empty cart when none exists.
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

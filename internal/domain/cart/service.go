package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/himanshuaggarwal31/luvora/internal/domain/coupon"
	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

// ResolvedLine is a cart line enriched with the live product record and the
// computed line total, produced during iteration.
type ResolvedLine struct {
	Line
	Product   *product.Product
	LineTotal decimal.Decimal
}

// Service combines the cart aggregate with its collaborators: the product
// catalog for resolution/validation and the coupon repository plus evaluator
// for pricing.
type Service struct {
	products product.Repository
	coupons  coupon.Repository
	now      func() time.Time
}

// NewService creates a cart Service.
func NewService(products product.Repository, coupons coupon.Repository) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		now:      time.Now,
	}
}

// Coupon resolves the cart's attached coupon, if any. A coupon that was
// deleted after attachment resolves to nil.
func (s *Service) Coupon(ctx context.Context, c *Cart) (*coupon.Coupon, error) {
	if c.CouponID == "" {
		return nil, nil
	}
	cp, err := s.coupons.GetByID(ctx, c.CouponID)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "resolve cart coupon")
	}
	return cp, nil
}

// Discount returns the coupon discount for the cart's current total. The
// coupon is re-validated on every call, so one that expires or hits its
// usage cap while sitting in a cart becomes inert automatically.
func (s *Service) Discount(ctx context.Context, c *Cart) (decimal.Decimal, error) {
	cp, err := s.Coupon(ctx, c)
	if err != nil {
		return decimal.Zero, err
	}
	if cp == nil {
		return decimal.Zero, nil
	}
	total := c.TotalPrice()
	if err := coupon.Validate(cp, total, s.now()); err != nil {
		return decimal.Zero, nil
	}
	return coupon.CalculateDiscount(cp, total), nil
}

// TotalAfterDiscount returns the cart total minus the coupon discount,
// never negative.
func (s *Service) TotalAfterDiscount(ctx context.Context, c *Cart) (decimal.Decimal, error) {
	discount, err := s.Discount(ctx, c)
	if err != nil {
		return decimal.Zero, err
	}
	total := c.TotalPrice().Sub(discount)
	if total.IsNegative() {
		return decimal.Zero, nil
	}
	return total, nil
}

// ApplyCoupon looks up a coupon by code and attaches it to the cart when it
// validates against the current total. On failure the coupon is NOT attached
// and the validator's reason (or "invalid coupon code") is returned as a
// *coupon.ValidationError. On success the returned message states the
// savings.
func (s *Service) ApplyCoupon(ctx context.Context, c *Cart, code string) (string, error) {
	cp, err := s.coupons.GetByCode(ctx, coupon.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return "", &coupon.ValidationError{Reason: "invalid coupon code"}
		}
		return "", errors.Wrap(err, "lookup coupon")
	}

	total := c.TotalPrice()
	if err := coupon.Validate(cp, total, s.now()); err != nil {
		return "", err
	}

	c.CouponID = cp.ID
	savings := coupon.CalculateDiscount(cp, total)
	return fmt.Sprintf("Coupon applied! You saved ₹%s", savings.StringFixed(2)), nil
}

// RemoveCoupon detaches the coupon without other side effects.
func (s *Service) RemoveCoupon(c *Cart) {
	c.CouponID = ""
}

// Items resolves every line against the live catalog and computes per-line
// totals. Products are re-read on each call, so a product deleted
// mid-session disappears from the result.
func (s *Service) Items(ctx context.Context, c *Cart) ([]ResolvedLine, error) {
	if c.IsEmpty() {
		return nil, nil
	}
	fetched, err := s.products.GetByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, errors.Wrap(err, "get cart products")
	}

	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	items := make([]ResolvedLine, 0, len(c.Lines))
	for id, line := range c.Lines {
		p, ok := byID[id]
		if !ok {
			continue
		}
		items = append(items, ResolvedLine{
			Line:      line,
			Product:   p,
			LineTotal: line.LineTotal(),
		})
	}
	return items, nil
}

// Validate checks every line against the live catalog: the product must
// still resolve, be available, and the requested quantity must be
// purchasable given the stock, backorder, and inventory-tracking flags.
// All problems are collected so the shopper sees every error at once.
func (s *Service) Validate(ctx context.Context, c *Cart) (bool, []string, error) {
	if c.IsEmpty() {
		return true, nil, nil
	}
	fetched, err := s.products.GetByIDs(ctx, c.ProductIDs())
	if err != nil {
		return false, nil, errors.Wrap(err, "get cart products")
	}

	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	var problems []string
	for id, line := range c.Lines {
		p, ok := byID[id]
		if !ok {
			problems = append(problems, fmt.Sprintf("Product %s is no longer available", line.Title))
			continue
		}
		if !p.Available {
			problems = append(problems, fmt.Sprintf("%s is currently unavailable", p.Title))
		}
		if !p.CanPurchase(line.Quantity) {
			problems = append(problems, fmt.Sprintf(
				"%s: Only %d items available (you have %d in cart)",
				p.Title, p.StockQuantity, line.Quantity,
			))
		}
	}
	return len(problems) == 0, problems, nil
}

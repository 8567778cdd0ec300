package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshuaggarwal31/luvora/internal/domain/coupon"
	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

type mockProductRepo struct {
	products map[string]product.Product
}

func (m *mockProductRepo) List(context.Context, string) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) DecrementStock(context.Context, string, int) error { return nil }

type mockCouponRepo struct {
	byCode map[string]*coupon.Coupon
	byID   map[string]*coupon.Coupon
}

func (m *mockCouponRepo) GetByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	if c, ok := m.byCode[code]; ok {
		return c, nil
	}
	return nil, coupon.ErrNotFound
}

func (m *mockCouponRepo) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, coupon.ErrNotFound
}

func (m *mockCouponRepo) IncrementUsage(context.Context, string) error { return nil }

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(products map[string]product.Product, coupons ...*coupon.Coupon) *Service {
	cr := &mockCouponRepo{
		byCode: make(map[string]*coupon.Coupon),
		byID:   make(map[string]*coupon.Coupon),
	}
	for _, c := range coupons {
		cr.byCode[c.Code] = c
		cr.byID[c.ID] = c
	}
	s := NewService(&mockProductRepo{products: products}, cr)
	s.now = func() time.Time { return testNow }
	return s
}

func welcome10() *coupon.Coupon {
	return &coupon.Coupon{
		ID:           "coup-welcome",
		Code:         "WELCOME10",
		DiscountType: coupon.DiscountPercent,
		Value:        decimal.NewFromInt(10),
		ValidFrom:    testNow.Add(-24 * time.Hour),
		ValidTo:      testNow.Add(24 * time.Hour),
		Active:       true,
	}
}

func save500() *coupon.Coupon {
	return &coupon.Coupon{
		ID:              "coup-save500",
		Code:            "SAVE500",
		DiscountType:    coupon.DiscountFixed,
		Value:           decimal.NewFromInt(500),
		MinimumPurchase: decimal.RequireFromString("2000.00"),
		ValidFrom:       testNow.Add(-24 * time.Hour),
		ValidTo:         testNow.Add(24 * time.Hour),
		Active:          true,
	}
}

func arganOil() product.Product {
	return product.Product{
		ID: "p1", SKU: "OIL-001", Title: "Argan Oil",
		Price:          decimal.RequireFromString("2499.00"),
		StockQuantity:  10,
		TrackInventory: true,
		Available:      true,
	}
}

// Scenario from the pricing contract: one line at 2499.00 x2 with WELCOME10
// yields subtotal 4998.00, discount 499.80, total 4498.20.
func TestService_WelcomeScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(map[string]product.Product{"p1": arganOil()}, welcome10())

	p := arganOil()
	c := New()
	c.Add(&p, 2, false)

	msg, err := svc.ApplyCoupon(ctx, c, "welcome10")
	require.NoError(t, err)
	assert.Equal(t, "Coupon applied! You saved ₹499.80", msg)

	assert.True(t, c.TotalPrice().Equal(decimal.RequireFromString("4998.00")))

	discount, err := svc.Discount(ctx, c)
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.RequireFromString("499.80")), "got %s", discount)

	total, err := svc.TotalAfterDiscount(ctx, c)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("4498.20")), "got %s", total)
}

// Scenario: SAVE500 (min purchase 2000) on a 1500.00 cart fails with the
// minimum-purchase reason and the coupon stays detached.
func TestService_MinimumPurchaseRejected(t *testing.T) {
	ctx := context.Background()
	p := arganOil()
	p.Price = decimal.RequireFromString("1500.00")
	svc := newTestService(map[string]product.Product{"p1": p}, save500())

	c := New()
	c.Add(&p, 1, false)

	_, err := svc.ApplyCoupon(ctx, c, "SAVE500")
	var verr *coupon.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "minimum purchase of ₹2000.00 required", verr.Reason)
	assert.Empty(t, c.CouponID)

	total, err := svc.TotalAfterDiscount(ctx, c)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("1500.00")))
}

func TestService_ApplyCoupon_UnknownCode(t *testing.T) {
	svc := newTestService(map[string]product.Product{"p1": arganOil()})
	c := New()
	p := arganOil()
	c.Add(&p, 1, false)

	_, err := svc.ApplyCoupon(context.Background(), c, "BOGUS")
	var verr *coupon.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid coupon code", verr.Reason)
}

// A coupon that hits its usage cap while attached becomes inert without
// being removed from the cart.
func TestService_AttachedCouponGoesInert(t *testing.T) {
	ctx := context.Background()
	cp := welcome10()
	svc := newTestService(map[string]product.Product{"p1": arganOil()}, cp)

	p := arganOil()
	c := New()
	c.Add(&p, 2, false)

	_, err := svc.ApplyCoupon(ctx, c, "WELCOME10")
	require.NoError(t, err)

	cp.UsageLimit = 100
	cp.UsedCount = 100

	discount, err := svc.Discount(ctx, c)
	require.NoError(t, err)
	assert.True(t, discount.IsZero())

	total, err := svc.TotalAfterDiscount(ctx, c)
	require.NoError(t, err)
	assert.True(t, total.Equal(c.TotalPrice()))
}

func TestService_TotalAfterDiscountEqualsTotalMinusDiscount(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(map[string]product.Product{"p1": arganOil()}, welcome10())

	p := arganOil()
	c := New()
	c.Add(&p, 3, false)
	_, err := svc.ApplyCoupon(ctx, c, "WELCOME10")
	require.NoError(t, err)

	total := c.TotalPrice()
	discount, err := svc.Discount(ctx, c)
	require.NoError(t, err)
	after, err := svc.TotalAfterDiscount(ctx, c)
	require.NoError(t, err)

	assert.True(t, after.Equal(total.Sub(discount)))
	assert.False(t, after.IsNegative())
}

func TestService_Validate(t *testing.T) {
	ctx := context.Background()

	inStock := arganOil()
	unavailable := product.Product{
		ID: "p2", SKU: "SOAP-002", Title: "Rose Soap",
		Price: decimal.RequireFromString("199.00"),
		StockQuantity: 5, TrackInventory: true, Available: false,
	}
	lowStock := product.Product{
		ID: "p3", SKU: "CREAM-003", Title: "Night Cream",
		Price: decimal.RequireFromString("899.00"),
		StockQuantity: 1, TrackInventory: true, Available: true,
	}
	backorderable := product.Product{
		ID: "p4", SKU: "MIST-004", Title: "Face Mist",
		Price: decimal.RequireFromString("499.00"),
		StockQuantity: 0, TrackInventory: true, AllowBackorders: true, Available: true,
	}

	svc := newTestService(map[string]product.Product{
		"p1": inStock, "p2": unavailable, "p3": lowStock, "p4": backorderable,
	})

	c := New()
	for _, p := range []product.Product{inStock, unavailable, lowStock, backorderable} {
		pp := p
		c.Add(&pp, 2, false)
	}
	deleted := product.Product{ID: "p5", SKU: "GONE-005", Title: "Old Serum",
		Price: decimal.RequireFromString("100.00"), Available: true}
	c.Add(&deleted, 1, false)

	ok, problems, err := svc.Validate(ctx, c)
	require.NoError(t, err)
	assert.False(t, ok)

	// All problems reported at once: vanished product, unavailable (twice:
	// availability plus purchasability), and insufficient stock.
	assert.Contains(t, problems, "Product Old Serum is no longer available")
	assert.Contains(t, problems, "Rose Soap is currently unavailable")
	assert.Contains(t, problems, "Night Cream: Only 1 items available (you have 2 in cart)")
	for _, p := range problems {
		assert.NotContains(t, p, "Face Mist", "backorderable product must pass")
		assert.NotContains(t, p, "Argan Oil", "in-stock product must pass")
	}
}

func TestService_Items_ReflectsDeletedProduct(t *testing.T) {
	ctx := context.Background()
	p := arganOil()
	repo := &mockProductRepo{products: map[string]product.Product{"p1": p}}
	svc := NewService(repo, &mockCouponRepo{})

	c := New()
	c.Add(&p, 2, false)

	items, err := svc.Items(ctx, c)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].LineTotal.Equal(decimal.RequireFromString("4998.00")))

	// Product deleted mid-session disappears from iteration.
	delete(repo.products, "p1")
	items, err = svc.Items(ctx, c)
	require.NoError(t, err)
	assert.Empty(t, items)
}

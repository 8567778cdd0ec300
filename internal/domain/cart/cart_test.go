package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

func soapBar() *product.Product {
	return &product.Product{
		ID:             "p1",
		SKU:            "SOAP-001",
		Title:          "Lavender Soap",
		Price:          decimal.RequireFromString("249.00"),
		StockQuantity:  10,
		TrackInventory: true,
		Available:      true,
	}
}

func TestCart_Add(t *testing.T) {
	c := New()
	p := soapBar()

	c.Add(p, 2, false)
	assert.Equal(t, 2, c.Lines["p1"].Quantity)
	assert.Equal(t, "SOAP-001", c.Lines["p1"].SKU)

	// Repeated add increments.
	c.Add(p, 3, false)
	assert.Equal(t, 5, c.Lines["p1"].Quantity)

	// Override replaces.
	c.Add(p, 1, true)
	assert.Equal(t, 1, c.Lines["p1"].Quantity)

	// One line per product ID.
	assert.Len(t, c.Lines, 1)
}

func TestCart_PriceSnapshotAtAddTime(t *testing.T) {
	c := New()
	p := soapBar()
	c.Add(p, 1, false)

	// Catalog repricing after add must not change the captured price.
	p.Price = decimal.RequireFromString("999.00")
	c.Add(p, 1, false)

	assert.True(t, c.Lines["p1"].Price.Equal(decimal.RequireFromString("249.00")))
	assert.True(t, c.TotalPrice().Equal(decimal.RequireFromString("498.00")))
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := New()
	c.Add(soapBar(), 2, false)
	c.CouponID = "coup1"

	c.Remove("missing") // no-op
	assert.Len(t, c.Lines, 1)

	c.Remove("p1")
	assert.Empty(t, c.Lines)

	c.Add(soapBar(), 1, false)
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.CouponID, "clear detaches the coupon")
}

func TestCart_Totals(t *testing.T) {
	c := New()
	p1 := soapBar()
	p2 := &product.Product{
		ID: "p2", SKU: "OIL-002", Title: "Argan Oil",
		Price: decimal.RequireFromString("2499.00"), Available: true,
	}
	c.Add(p1, 3, false)
	c.Add(p2, 2, false)

	assert.Equal(t, 5, c.TotalQuantity())
	assert.True(t, c.TotalPrice().Equal(decimal.RequireFromString("5745.00")))
}

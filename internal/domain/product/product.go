package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
// Price is always positive; stock bookkeeping only applies when
// TrackInventory is set.
type Product struct {
	ID    string
	SKU   string
	Title string
	// Category is a pass-through browse label ("face-oils", "hair"); the
	// shop filters on it but attaches no other meaning.
	Category        string
	Price           decimal.Decimal
	StockQuantity   int
	TrackInventory  bool
	AllowBackorders bool
	Available       bool
}

// InStock reports whether the product can currently be sold at all.
func (p *Product) InStock() bool {
	if !p.TrackInventory {
		return true
	}
	return p.StockQuantity > 0 || p.AllowBackorders
}

// CanPurchase reports whether the given quantity is purchasable right now.
// Untracked inventory and backorderable products always accept the request.
func (p *Product) CanPurchase(quantity int) bool {
	if !p.Available {
		return false
	}
	if !p.TrackInventory {
		return true
	}
	if p.AllowBackorders {
		return true
	}
	return p.StockQuantity >= quantity
}

// Repository defines catalog access for the shop core.
type Repository interface {
	// List returns available products, optionally narrowed to one category.
	// An empty category means the whole catalog.
	List(ctx context.Context, category string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// DecrementStock reduces the stock quantity by the given amount, floored
	// at zero. Products with inventory tracking disabled are left untouched.
	DecrementStock(ctx context.Context, id string, quantity int) error
}

package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

const (
	productColumns = `id, sku, title, category, price, stock_quantity, track_inventory, allow_backorders, is_available`

	// An empty $1 lists the whole catalog.
	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE is_available = TRUE AND ($1 = '' OR category = $1) ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	// Floored at zero; untracked inventory is left untouched.
	decrementStockSQL = `UPDATE products
		SET stock_quantity = GREATEST(stock_quantity - $2, 0), updated_at = now()
		WHERE id = $1 AND track_inventory = TRUE`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns available products ordered by ID, filtered to one category
// when given.
func (r *ProductRepository) List(ctx context.Context, category string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// DecrementStock atomically reduces stock for a tracked product, never below
// zero. Calling it for an untracked or missing product is a no-op.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	_, err := r.pool.Exec(ctx, decrementStockSQL, id, quantity)
	if err != nil {
		return fmt.Errorf("decrementing stock for product %q: %w", id, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Title, &p.Category, &p.Price,
		&p.StockQuantity, &p.TrackInventory, &p.AllowBackorders, &p.Available,
	)
	return p, err
}

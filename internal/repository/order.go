package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/himanshuaggarwal31/luvora/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
		id, customer_name, customer_email, customer_phone,
		shipping_address_line1, shipping_address_line2, shipping_city,
		shipping_state, shipping_pincode, shipping_country,
		subtotal, discount_amount, shipping_cost, tax_amount, total,
		coupon_id, coupon_code, payment_method, status, customer_notes,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
	)`

	insertOrderItemSQL = `INSERT INTO order_items (
		order_id, product_id, product_sku, product_name, product_price, quantity, line_total
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	orderColumns = `id, customer_name, customer_email, customer_phone,
		shipping_address_line1, shipping_address_line2, shipping_city,
		shipping_state, shipping_pincode, shipping_country,
		subtotal, discount_amount, shipping_cost, tax_amount, total,
		COALESCE(coupon_id, ''), coupon_code, payment_method,
		gateway_order_id, gateway_payment_id, gateway_signature,
		status, customer_notes, admin_notes, created_at, updated_at, paid_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByGatewaySQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE gateway_order_id = $1 AND gateway_order_id <> ''`

	listOrdersByStatusSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE status = $1 ORDER BY created_at DESC`

	getOrderItemsSQL = `SELECT product_id, product_sku, product_name, product_price, quantity, line_total
		FROM order_items WHERE order_id = $1 ORDER BY id`

	setGatewayOrderSQL = `UPDATE orders SET gateway_order_id = $2, updated_at = now() WHERE id = $1`

	// The status predicate is the check-and-set that makes pending → paid
	// safe against a callback/webhook race: only one caller transitions.
	markPaidSQL = `UPDATE orders
		SET status = 'paid', gateway_payment_id = $2, gateway_signature = $3,
			paid_at = $4, updated_at = now()
		WHERE id = $1 AND status = 'pending'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and its item snapshots in one transaction.
// An ID collision maps to order.ErrDuplicateID and aborts the insert.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var couponID *string
	if o.CouponID != "" {
		couponID = &o.CouponID
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddressLine1, o.ShippingAddressLine2, o.ShippingCity,
		o.ShippingState, o.ShippingPincode, o.ShippingCountry,
		o.Subtotal, o.DiscountAmount, o.ShippingCost, o.TaxAmount, o.Total,
		couponID, o.CouponCode, o.PaymentMethod, string(o.Status), o.CustomerNotes,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return order.ErrDuplicateID
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			o.ID, item.ProductID, item.ProductSKU, item.ProductName,
			item.ProductPrice, item.Quantity, item.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("creating item for order %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

// GetByGatewayOrderID resolves an order from its gateway reference.
func (r *OrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByGatewaySQL, gatewayOrderID)
}

func (r *OrderRepository) getOne(ctx context.Context, sql, arg string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}

	if o.Items, err = r.getItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) getItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, getOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// SetGatewayOrder records the gateway transaction reference for an order.
func (r *OrderRepository) SetGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) error {
	tag, err := r.pool.Exec(ctx, setGatewayOrderSQL, orderID, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("setting gateway order for %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// MarkPaid performs the conditional pending → paid transition and reports
// whether this call won it.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID, paymentID, signature string, paidAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, markPaidSQL, orderID, paymentID, signature, paidAt)
	if err != nil {
		return false, fmt.Errorf("marking order %q paid: %w", orderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByStatus returns orders in the given state, newest first. Items are
// not loaded; this query serves operator sweeps and reporting.
func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByStatusSQL, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing %s orders: %w", status, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddressLine1, &o.ShippingAddressLine2, &o.ShippingCity,
		&o.ShippingState, &o.ShippingPincode, &o.ShippingCountry,
		&o.Subtotal, &o.DiscountAmount, &o.ShippingCost, &o.TaxAmount, &o.Total,
		&o.CouponID, &o.CouponCode, &o.PaymentMethod,
		&o.GatewayOrderID, &o.GatewayPaymentID, &o.GatewaySignature,
		&status, &o.CustomerNotes, &o.AdminNotes, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(
		&item.ProductID, &item.ProductSKU, &item.ProductName,
		&item.ProductPrice, &item.Quantity, &item.LineTotal,
	)
	return item, err
}

package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/himanshuaggarwal31/luvora/internal/domain/cart"
	"github.com/himanshuaggarwal31/luvora/internal/domain/coupon"
	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

// CheckoutForm carries the contact and shipping details collected at
// checkout. ShippingCost and TaxAmount are pass-through amounts supplied by
// external policy.
type CheckoutForm struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Pincode      string
	Country      string

	CustomerNotes string

	ShippingCost decimal.Decimal
	TaxAmount    decimal.Decimal
}

// ConfirmationSender delivers the order confirmation document. Failures must
// never block or revert a payment confirmation.
type ConfirmationSender interface {
	SendOrderConfirmation(ctx context.Context, o *Order) error
}

// Service owns checkout (cart → order snapshot) and the payment lifecycle.
type Service struct {
	orders   Repository
	products product.Repository
	coupons  coupon.Repository
	carts    *cart.Service
	email    ConfirmationSender
	now      func() time.Time
}

// NewService creates an order Service with its domain collaborators.
func NewService(
	orders Repository,
	products product.Repository,
	coupons coupon.Repository,
	carts *cart.Service,
	email ConfirmationSender,
) *Service {
	return &Service{
		orders:   orders,
		products: products,
		coupons:  coupons,
		carts:    carts,
		email:    email,
		now:      time.Now,
	}
}

// Checkout converts a validated, non-empty cart into a persisted Order with
// frozen item snapshots. This is the single point where volatile session
// state becomes a durable record; afterwards the cart is no longer the
// source of truth for pricing.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, form CheckoutForm) (*Order, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	ok, problems, err := s.carts.Validate(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "validate cart")
	}
	if !ok {
		return nil, &InvalidCartError{Problems: problems}
	}

	subtotal := c.TotalPrice()
	discount, err := s.carts.Discount(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "compute discount")
	}

	total := subtotal.Sub(discount).Add(form.ShippingCost).Add(form.TaxAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := s.now()
	o := &Order{
		ID: NewID(now),

		CustomerName:  form.CustomerName,
		CustomerEmail: form.CustomerEmail,
		CustomerPhone: form.CustomerPhone,

		ShippingAddressLine1: form.AddressLine1,
		ShippingAddressLine2: form.AddressLine2,
		ShippingCity:         form.City,
		ShippingState:        form.State,
		ShippingPincode:      form.Pincode,
		ShippingCountry:      form.Country,

		Subtotal:       subtotal.Round(2),
		DiscountAmount: discount.Round(2),
		ShippingCost:   form.ShippingCost.Round(2),
		TaxAmount:      form.TaxAmount.Round(2),
		Total:          total.Round(2),

		PaymentMethod: "razorpay",
		Status:        StatusPending,
		CustomerNotes: form.CustomerNotes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if cp, err := s.carts.Coupon(ctx, c); err != nil {
		return nil, errors.Wrap(err, "resolve coupon")
	} else if cp != nil {
		o.CouponID = cp.ID
		o.CouponCode = cp.Code
	}

	for _, line := range c.Lines {
		o.Items = append(o.Items, Item{
			ProductID:    line.ProductID,
			ProductSKU:   line.SKU,
			ProductName:  line.Title,
			ProductPrice: line.Price,
			Quantity:     line.Quantity,
			LineTotal:    line.LineTotal(),
		})
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// AttachGatewayOrder records the gateway transaction reference opened for a
// pending order. Later payment callbacks resolve the order through it.
func (s *Service) AttachGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) error {
	return s.orders.SetGatewayOrder(ctx, orderID, gatewayOrderID)
}

// ConfirmPayment performs the pending → paid transition for the order behind
// the given gateway reference. It is idempotent: when the callback and the
// webhook both fire, the conditional MarkPaid update lets exactly one caller
// run the side effects; the other observes the already-paid order and
// returns it unchanged.
//
// The caller must have verified the payment signature before calling this.
func (s *Service) ConfirmPayment(ctx context.Context, gatewayOrderID, paymentID, signature string) (*Order, error) {
	o, err := s.orders.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}

	paidAt := s.now()
	transitioned, err := s.orders.MarkPaid(ctx, o.ID, paymentID, signature, paidAt)
	if err != nil {
		return nil, errors.Wrap(err, "mark paid")
	}

	if !transitioned {
		current, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == StatusPaid {
			return current, nil
		}
		return nil, errors.Errorf("order %s is %s, cannot confirm payment", o.ID, current.Status)
	}

	o.Status = StatusPaid
	o.GatewayPaymentID = paymentID
	o.GatewaySignature = signature
	o.PaidAt = &paidAt

	// Payment confirmation is authoritative. Side-effect failures below are
	// logged for out-of-band retry and never revert the paid status.
	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))

	if o.CouponID != "" {
		if err := s.coupons.IncrementUsage(ctx, o.CouponID); err != nil {
			lg.Error("coupon usage increment failed",
				zap.String("coupon_id", o.CouponID), zap.Error(err))
		}
	}

	for _, item := range o.Items {
		if item.ProductID == "" {
			continue
		}
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			lg.Error("stock decrement failed",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}

	if err := s.email.SendOrderConfirmation(ctx, o); err != nil {
		lg.Error("order confirmation email failed", zap.Error(err))
	}

	lg.Info("order paid",
		zap.String("payment_id", paymentID),
		zap.String("total", o.Total.StringFixed(2)))
	return o, nil
}

// Get returns an order by its public identifier.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// Package email sends order confirmation mail. Delivery is best effort:
// a failed send is logged by the caller and never blocks a payment.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-faster/errors"

	"github.com/himanshuaggarwal31/luvora/internal/domain/order"
)

var _ order.ConfirmationSender = (*SMTPSender)(nil)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender delivers confirmation mail over authenticated SMTP.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender creates an SMTPSender. Host and Port must be set.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == "" {
		return nil, errors.New("smtp host and port are required")
	}
	if cfg.From == "" {
		cfg.From = "noreply@luvora.com"
	}
	return &SMTPSender{cfg: cfg}, nil
}

// SendOrderConfirmation mails the customer their order summary with item
// lines and totals.
func (s *SMTPSender) SendOrderConfirmation(_ context.Context, o *order.Order) error {
	addr := s.cfg.Host + ":" + s.cfg.Port

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	subject := fmt.Sprintf("Order Confirmation - %s | LUVORA", o.ID)
	msg := []byte(
		"From: " + s.cfg.From + "\r\n" +
			"To: " + o.CustomerEmail + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			confirmationBody(o),
	)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{o.CustomerEmail}, msg); err != nil {
		return errors.Wrapf(err, "send confirmation for order %s", o.ID)
	}
	return nil
}

func confirmationBody(o *order.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", o.CustomerName)
	fmt.Fprintf(&b, "Thank you for your order %s.\r\n\r\n", o.ID)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "  %s x %d — ₹%s\r\n",
			item.ProductName, item.Quantity, item.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\r\nSubtotal: ₹%s\r\n", o.Subtotal.StringFixed(2))
	if o.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, "Discount (%s): -₹%s\r\n", o.CouponCode, o.DiscountAmount.StringFixed(2))
	}
	if o.ShippingCost.IsPositive() {
		fmt.Fprintf(&b, "Shipping: ₹%s\r\n", o.ShippingCost.StringFixed(2))
	}
	if o.TaxAmount.IsPositive() {
		fmt.Fprintf(&b, "Tax: ₹%s\r\n", o.TaxAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: ₹%s\r\n\r\nLUVORA\r\n", o.Total.StringFixed(2))
	return b.String()
}

// NopSender discards confirmations. Used when SMTP is not configured.
type NopSender struct{}

// SendOrderConfirmation is a no-op.
func (NopSender) SendOrderConfirmation(context.Context, *order.Order) error {
	return nil
}

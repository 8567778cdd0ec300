package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/himanshuaggarwal31/luvora/internal/domain/order"
)

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	Subtotal      string              `json:"subtotal"`
	Discount      string              `json:"discount"`
	ShippingCost  string              `json:"shipping_cost"`
	TaxAmount     string              `json:"tax_amount"`
	Total         string              `json:"total"`
	CouponCode    string              `json:"coupon_code,omitempty"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		Status:        string(o.Status),
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Subtotal:      o.Subtotal.StringFixed(2),
		Discount:      o.DiscountAmount.StringFixed(2),
		ShippingCost:  o.ShippingCost.StringFixed(2),
		TaxAmount:     o.TaxAmount.StringFixed(2),
		Total:         o.Total.StringFixed(2),
		CouponCode:    o.CouponCode,
		Items:         make([]orderItemResponse, 0, len(o.Items)),
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			SKU:       item.ProductSKU,
			Name:      item.ProductName,
			UnitPrice: item.ProductPrice.StringFixed(2),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal.StringFixed(2),
		})
	}
	return resp
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	o, err := h.orders.Get(ctx, r.PathValue("orderID"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "order not found")
			return
		}
		serverError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toOrderResponse(o))
}

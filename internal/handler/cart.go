package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/himanshuaggarwal31/luvora/internal/domain/cart"
	"github.com/himanshuaggarwal31/luvora/internal/domain/coupon"
	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

type cartItemResponse struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type cartCouponResponse struct {
	Code     string `json:"code"`
	Discount string `json:"discount"`
}

type cartResponse struct {
	Items         []cartItemResponse  `json:"items"`
	TotalQuantity int                 `json:"total_quantity"`
	Subtotal      string              `json:"subtotal"`
	Discount      string              `json:"discount"`
	Total         string              `json:"total"`
	Coupon        *cartCouponResponse `json:"coupon,omitempty"`
	Message       string              `json:"message,omitempty"`
}

func (h *Handler) cartResponse(r *http.Request, c *cart.Cart, message string) (*cartResponse, error) {
	ctx := r.Context()

	lines, err := h.carts.Items(ctx, c)
	if err != nil {
		return nil, err
	}
	discount, err := h.carts.Discount(ctx, c)
	if err != nil {
		return nil, err
	}
	total, err := h.carts.TotalAfterDiscount(ctx, c)
	if err != nil {
		return nil, err
	}

	resp := &cartResponse{
		Items:         make([]cartItemResponse, 0, len(lines)),
		TotalQuantity: c.TotalQuantity(),
		Subtotal:      c.TotalPrice().StringFixed(2),
		Discount:      discount.StringFixed(2),
		Total:         total.StringFixed(2),
		Message:       message,
	}
	for _, line := range lines {
		resp.Items = append(resp.Items, cartItemResponse{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Title:     line.Title,
			UnitPrice: line.Price.StringFixed(2),
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal.StringFixed(2),
		})
	}

	if cp, err := h.carts.Coupon(ctx, c); err != nil {
		return nil, err
	} else if cp != nil {
		resp.Coupon = &cartCouponResponse{
			Code:     cp.Code,
			Discount: cp.DisplayDiscount(),
		}
	}
	return resp, nil
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, c *cart.Cart, message string) {
	ctx := r.Context()
	resp, err := h.cartResponse(r, c, message)
	if err != nil {
		serverError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	_, c, err := h.loadCart(w, r)
	if err != nil {
		serverError(r.Context(), w, err)
		return
	}
	h.respondCart(w, r, c, "")
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Override  bool   `json:"override"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" || req.Quantity < 1 {
		writeError(ctx, w, http.StatusBadRequest, "product_id and a positive quantity are required")
		return
	}

	p, err := h.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "product not found")
			return
		}
		serverError(ctx, w, err)
		return
	}

	sid, c, err := h.loadCart(w, r)
	if err != nil {
		serverError(ctx, w, err)
		return
	}
	c.Add(p, req.Quantity, req.Override)
	if err := h.store.Save(ctx, sid, c); err != nil {
		serverError(ctx, w, err)
		return
	}
	h.respondCart(w, r, c, "")
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sid, c, err := h.loadCart(w, r)
	if err != nil {
		serverError(ctx, w, err)
		return
	}
	c.Remove(r.PathValue("productID"))
	if err := h.store.Save(ctx, sid, c); err != nil {
		serverError(ctx, w, err)
		return
	}
	h.respondCart(w, r, c, "")
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sid, c, err := h.loadCart(w, r)
	if err != nil {
		serverError(ctx, w, err)
		return
	}
	c.Clear()
	if err := h.store.Save(ctx, sid, c); err != nil {
		serverError(ctx, w, err)
		return
	}
	h.respondCart(w, r, c, "")
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req applyCouponRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(ctx, w, http.StatusBadRequest, "code is required")
		return
	}

	sid, c, err := h.loadCart(w, r)
	if err != nil {
		serverError(ctx, w, err)
		return
	}

	msg, err := h.carts.ApplyCoupon(ctx, c, req.Code)
	if err != nil {
		var verr *coupon.ValidationError
		if errors.As(err, &verr) {
			writeError(ctx, w, http.StatusUnprocessableEntity, verr.Reason)
			return
		}
		serverError(ctx, w, err)
		return
	}

	if err := h.store.Save(ctx, sid, c); err != nil {
		serverError(ctx, w, err)
		return
	}
	h.respondCart(w, r, c, msg)
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sid, c, err := h.loadCart(w, r)
	if err != nil {
		serverError(ctx, w, err)
		return
	}
	h.carts.RemoveCoupon(c)
	if err := h.store.Save(ctx, sid, c); err != nil {
		serverError(ctx, w, err)
		return
	}
	h.respondCart(w, r, c, "Coupon removed")
}

package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/himanshuaggarwal31/luvora/internal/domain/product"
)

type productResponse struct {
	ID              string `json:"id"`
	SKU             string `json:"sku"`
	Title           string `json:"title"`
	Category        string `json:"category,omitempty"`
	Price           string `json:"price"`
	InStock         bool   `json:"in_stock"`
	StockQuantity   int    `json:"stock_quantity"`
	AllowBackorders bool   `json:"allow_backorders"`
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:              p.ID,
		SKU:             p.SKU,
		Title:           p.Title,
		Category:        p.Category,
		Price:           p.Price.StringFixed(2),
		InStock:         p.InStock(),
		StockQuantity:   p.StockQuantity,
		AllowBackorders: p.AllowBackorders,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.products.List(ctx, r.URL.Query().Get("category"))
	if err != nil {
		serverError(ctx, w, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.products.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "product not found")
			return
		}
		serverError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toProductResponse(p))
}

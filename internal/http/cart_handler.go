package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartReader interface {
	Get(ctx context.Context, scanID string) (*domain.CartEntry, error)
	List(ctx context.Context) ([]*domain.CartEntry, error)
}

// CartHandler exposes the cart read-only; membership only changes through scans.
type CartHandler struct {
	cart    CartReader
	timeout time.Duration
}

func NewCartHandler(cart CartReader, timeout time.Duration) *CartHandler {
	return &CartHandler{cart: cart, timeout: timeout}
}

type CartResponse struct {
	Entries    []*domain.CartEntry `json:"entries"`
	TotalItems int                 `json:"total_items"`
	TotalPrice float64             `json:"total_price"`
}

func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entries, err := h.cart.List(ctx)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	resp := CartResponse{Entries: entries, TotalItems: len(entries)}
	if resp.Entries == nil {
		resp.Entries = []*domain.CartEntry{}
	}
	for _, e := range entries {
		resp.TotalPrice += e.Price
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entry, err := h.cart.Get(ctx, chi.URLParam(r, "uid"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

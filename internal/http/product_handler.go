package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type ProductStore interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetItem(ctx context.Context, id string) (*domain.Product, error)
	UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type ProductHandler struct {
	products ProductStore
	validate *validator.Validate
	timeout  time.Duration
}

func NewProductHandler(products ProductStore, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		validate: validator.New(),
		timeout:  timeout,
	}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.ListProducts(ctx)
	if err != nil {
		handleDomainError(w, domain.StorageError("list products", err))
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, ProductsResponse{Products: products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.GetItem(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleDomainError(w, domain.StorageError("get product", err))
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Put creates or replaces a catalog product. Existing cart entries are not touched.
func (h *ProductHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	p := domain.Product{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	}
	if err := h.validate.Struct(p); err != nil {
		handleDomainError(w, productValidationError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	saved, err := h.products.UpsertProduct(ctx, p)
	if err != nil {
		handleDomainError(w, domain.StorageError("upsert product", err))
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// Delete removes a catalog product. Cart entries keep their snapshot.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.products.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		handleDomainError(w, domain.StorageError("delete product", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("product", "is invalid")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(fe.Field(), "is required")
	case "max":
		return domain.NewValidationError(fe.Field(), "must be at most "+fe.Param()+" characters")
	case "gte":
		return domain.NewValidationError(fe.Field(), "must not be negative")
	default:
		return domain.NewValidationError(fe.Field(), "is invalid")
	}
}

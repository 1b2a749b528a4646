package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/go-chi/chi/v5"
)

type TagService interface {
	Get(ctx context.Context, uid string) (*domain.ScanTag, error)
	List(ctx context.Context) ([]*domain.ScanTag, error)
	Link(ctx context.Context, uid, itemID string) (*domain.ScanTag, error)
	Unlink(ctx context.Context, uid string) (*domain.ScanTag, error)
	Delete(ctx context.Context, uid string) error
}

type TagHandler struct {
	tags    TagService
	timeout time.Duration
}

func NewTagHandler(tags TagService, timeout time.Duration) *TagHandler {
	return &TagHandler{tags: tags, timeout: timeout}
}

type LinkRequest struct {
	ItemID string `json:"itemId"`
}

type TagsResponse struct {
	Tags []*domain.ScanTag `json:"tags"`
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tags, err := h.tags.List(ctx)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if tags == nil {
		tags = []*domain.ScanTag{}
	}
	respondJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tag, err := h.tags.Get(ctx, chi.URLParam(r, "uid"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tag, err := h.tags.Link(ctx, chi.URLParam(r, "uid"), req.ItemID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tag, err := h.tags.Unlink(ctx, chi.URLParam(r, "uid"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.tags.Delete(ctx, chi.URLParam(r, "uid")); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

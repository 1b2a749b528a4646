package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/fjod/go_cart/scan-cart/internal/scan"
	"github.com/sirupsen/logrus"
)

const maxScanBodySize = 1 << 20 // 1MB

type ScanProcessor interface {
	Process(ctx context.Context, uid string) (scan.Result, error)
}

// ScanHandler is the reader-facing endpoint. Its response bodies are a fixed
// contract with the deployed readers.
type ScanHandler struct {
	scans ScanProcessor
	log   logrus.FieldLogger
}

func NewScanHandler(scans ScanProcessor, log logrus.FieldLogger) *ScanHandler {
	return &ScanHandler{scans: scans, log: log}
}

type ScanRequest struct {
	UIDresult string `json:"UIDresult"`
}

type ScanResponse struct {
	Message string          `json:"message"`
	Tag     *domain.ScanTag `json:"tag,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (h *ScanHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScanBodySize)).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ScanResponse{Message: "UIDresult is required"})
		return
	}

	res, err := h.scans.Process(r.Context(), req.UIDresult)
	if err != nil {
		h.log.WithError(err).WithField("uid", req.UIDresult).Error("scan failed")
		respondJSON(w, http.StatusInternalServerError, ScanResponse{Message: "Server Error", Error: err.Error()})
		return
	}

	switch res.Outcome {
	case scan.OutcomeAdded:
		respondJSON(w, http.StatusOK, ScanResponse{Message: "Product added to shopping cart", Tag: res.Tag})
	case scan.OutcomeRemoved:
		respondJSON(w, http.StatusOK, ScanResponse{Message: "Product removed from shopping cart", Tag: res.Tag})
	case scan.OutcomeNoLink:
		respondJSON(w, http.StatusNotFound, ScanResponse{Message: "No association found for tag", Tag: res.Tag})
	case scan.OutcomeNoTag:
		respondJSON(w, http.StatusNotFound, ScanResponse{Message: "Tag not found"})
	default:
		respondJSON(w, http.StatusBadRequest, ScanResponse{Message: "UIDresult is required"})
	}
}

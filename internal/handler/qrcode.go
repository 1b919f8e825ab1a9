package handler

import (
	"context"
	"net/http"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
)

// QRCodeManager is the collaborator behind the QR code and offer link
// endpoints.
type QRCodeManager interface {
	GetUserQRCode(ctx context.Context, userID string) (*domain.QRCodeResponse, error)
	ValidateQRCode(ctx context.Context, code string) (*domain.QRCodeResponse, error)
	GenerateOfferLink(ctx context.Context, req *domain.GenerateLinkRequest) (*domain.ShareableLinkResponse, error)
	ValidateOfferLink(ctx context.Context, code string) (*domain.OfferLinkRecord, error)
	RedeemOfferLink(ctx context.Context, code string) (*domain.OfferLinkRecord, error)
}

// QRCodeHandler handles QR codes and shareable offer links.
type QRCodeHandler struct {
	codes QRCodeManager
}

// NewQRCodeHandler creates a new QRCodeHandler.
func NewQRCodeHandler(codes QRCodeManager) *QRCodeHandler {
	return &QRCodeHandler{codes: codes}
}

// UserQRCode handles GET /api/v1/users/{id}/qr-code.
func (h *QRCodeHandler) UserQRCode(w http.ResponseWriter, r *http.Request) {
	qr, err := h.codes.GetUserQRCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, qr)
}

// ValidateQRCode handles GET /api/v1/qr/validate/{code}.
func (h *QRCodeHandler) ValidateQRCode(w http.ResponseWriter, r *http.Request) {
	qr, err := h.codes.ValidateQRCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, qr)
}

// GenerateOfferLink handles POST /api/v1/offers/generate-link.
func (h *QRCodeHandler) GenerateOfferLink(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateLinkRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	link, err := h.codes.GenerateOfferLink(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, link)
}

// ValidateOfferLink handles GET /api/v1/offers/link/{code}.
func (h *QRCodeHandler) ValidateOfferLink(w http.ResponseWriter, r *http.Request) {
	rec, err := h.codes.ValidateOfferLink(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, rec)
}

// RedeemOfferLink handles POST /api/v1/offers/link/{code}/redeem.
func (h *QRCodeHandler) RedeemOfferLink(w http.ResponseWriter, r *http.Request) {
	rec, err := h.codes.RedeemOfferLink(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, rec)
}

package handler

import (
	"context"
	"net/http"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CampCardManager is the collaborator behind the camp card admin endpoints.
type CampCardManager interface {
	ListCampCards(ctx context.Context, page domain.PageRequest) (domain.Page[domain.CampCardResponse], error)
	GetCampCard(ctx context.Context, id string) (*domain.CampCardResponse, error)
	RevokeCampCard(ctx context.Context, id string) error
}

// CampCardHandler is the admin view over subscription cards.
type CampCardHandler struct {
	cards CampCardManager
}

// NewCampCardHandler creates a new CampCardHandler.
func NewCampCardHandler(cards CampCardManager) *CampCardHandler {
	return &CampCardHandler{cards: cards}
}

// List handles GET /api/v1/camp-cards.
func (h *CampCardHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		Error(w, err)
		return
	}
	cards, err := h.cards.ListCampCards(r.Context(), page)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, cards)
}

// Get handles GET /api/v1/camp-cards/{uuid}.
func (h *CampCardHandler) Get(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.GetCampCard(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, card)
}

// Revoke handles DELETE /api/v1/camp-cards/{uuid}.
func (h *CampCardHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.cards.RevokeCampCard(r.Context(), chi.URLParam(r, "uuid")); err != nil {
		Error(w, err)
		return
	}
	NoContent(w)
}

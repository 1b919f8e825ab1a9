package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
)

const defaultTopPerformersLimit = 10

var troopSortFields = map[string]bool{
	"troopNumber": true,
	"troopName":   true,
	"totalSales":  true,
	"createdAt":   true,
}

// TroopManager is the collaborator behind the troop endpoints.
type TroopManager interface {
	Create(ctx context.Context, req *domain.TroopRequest) (*domain.Troop, error)
	Update(ctx context.Context, id int64, req *domain.TroopRequest) (*domain.Troop, error)
	Get(ctx context.Context, id int64) (*domain.Troop, error)
	GetByNumber(ctx context.Context, number string) (*domain.Troop, error)
	List(ctx context.Context, filter domain.TroopFilter, sort domain.TroopSort, page domain.PageRequest) (domain.Page[*domain.Troop], error)
	Search(ctx context.Context, q string, page domain.PageRequest) (domain.Page[*domain.Troop], error)
	ListByCouncil(ctx context.Context, councilID string, page domain.PageRequest) (domain.Page[*domain.Troop], error)
	TopPerformers(ctx context.Context, limit int) ([]*domain.Troop, error)
	TopPerformersByCouncil(ctx context.Context, councilID string, limit int) ([]*domain.Troop, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Troop, error)
	RefreshStats(ctx context.Context, id int64) (*domain.Troop, error)
	Delete(ctx context.Context, id int64) error
}

// TroopHandler handles troop management endpoints.
type TroopHandler struct {
	troops TroopManager
}

// NewTroopHandler creates a new TroopHandler.
func NewTroopHandler(troops TroopManager) *TroopHandler {
	return &TroopHandler{troops: troops}
}

// Create handles POST /api/v1/troops. It answers 200, not 201, for
// compatibility with existing clients.
func (h *TroopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.TroopRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	troop, err := h.troops.Create(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troop)
}

// Update handles PUT /api/v1/troops/{id}.
func (h *TroopHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(chi.URLParam(r, "id"), "id")
	if err != nil {
		Error(w, err)
		return
	}
	var req domain.TroopRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	troop, err := h.troops.Update(r.Context(), id, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troop)
}

// Get handles GET /api/v1/troops/{id}.
func (h *TroopHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(chi.URLParam(r, "id"), "id")
	if err != nil {
		Error(w, err)
		return
	}
	troop, err := h.troops.Get(r.Context(), id)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troop)
}

// GetByNumber handles GET /api/v1/troops/number/{troopNumber}.
func (h *TroopHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	troop, err := h.troops.GetByNumber(r.Context(), chi.URLParam(r, "troopNumber"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troop)
}

// List handles GET /api/v1/troops. topPerformers=true returns a ranked
// list instead of a page; search and councilId narrow the page.
func (h *TroopHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	councilID := strings.TrimSpace(q.Get("councilId"))

	if strings.EqualFold(q.Get("topPerformers"), "true") {
		limit, err := intQuery(r, "limit", defaultTopPerformersLimit)
		if err != nil {
			Error(w, err)
			return
		}
		h.writeTopPerformers(w, r, councilID, limit)
		return
	}

	page, err := pageRequest(r)
	if err != nil {
		Error(w, err)
		return
	}
	sort, err := troopSort(r)
	if err != nil {
		Error(w, err)
		return
	}
	filter := domain.TroopFilter{Search: strings.TrimSpace(q.Get("search")), CouncilID: councilID}

	troops, err := h.troops.List(r.Context(), filter, sort, page)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troops)
}

// Search handles GET /api/v1/troops/search.
func (h *TroopHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		Error(w, err)
		return
	}
	troops, err := h.troops.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troops)
}

// ListByCouncil handles GET /api/v1/troops/council/{councilId}.
func (h *TroopHandler) ListByCouncil(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		Error(w, err)
		return
	}
	troops, err := h.troops.ListByCouncil(r.Context(), chi.URLParam(r, "councilId"), page)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troops)
}

// TopPerformers handles GET /api/v1/troops/top-performers.
func (h *TroopHandler) TopPerformers(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", defaultTopPerformersLimit)
	if err != nil {
		Error(w, err)
		return
	}
	h.writeTopPerformers(w, r, strings.TrimSpace(r.URL.Query().Get("councilId")), limit)
}

func (h *TroopHandler) writeTopPerformers(w http.ResponseWriter, r *http.Request, councilID string, limit int) {
	var (
		troops []*domain.Troop
		err    error
	)
	if councilID != "" {
		troops, err = h.troops.TopPerformersByCouncil(r.Context(), councilID, limit)
	} else {
		troops, err = h.troops.TopPerformers(r.Context(), limit)
	}
	if err != nil {
		Error(w, err)
		return
	}
	if troops == nil {
		troops = []*domain.Troop{}
	}
	JSON(w, http.StatusOK, troops)
}

// UpdateStatus handles PATCH /api/v1/troops/{id}/status.
func (h *TroopHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(chi.URLParam(r, "id"), "id")
	if err != nil {
		Error(w, err)
		return
	}
	var req domain.TroopStatusRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	troop, err := h.troops.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troop)
}

// RefreshStats handles POST /api/v1/troops/{id}/stats.
func (h *TroopHandler) RefreshStats(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(chi.URLParam(r, "id"), "id")
	if err != nil {
		Error(w, err)
		return
	}
	troop, err := h.troops.RefreshStats(r.Context(), id)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, troop)
}

// Delete handles DELETE /api/v1/troops/{id}.
func (h *TroopHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(chi.URLParam(r, "id"), "id")
	if err != nil {
		Error(w, err)
		return
	}
	if err := h.troops.Delete(r.Context(), id); err != nil {
		Error(w, err)
		return
	}
	NoContent(w)
}

// troopSort reads sort=field[,direction] and direction=asc|desc.
func troopSort(r *http.Request) (domain.TroopSort, error) {
	q := r.URL.Query()
	field, dir := q.Get("sort"), q.Get("direction")
	if i := strings.Index(field, ","); i >= 0 {
		if dir == "" {
			dir = field[i+1:]
		}
		field = field[:i]
	}
	field = strings.TrimSpace(field)
	if field == "" {
		field = "troopNumber"
	}
	if !troopSortFields[field] {
		return domain.TroopSort{}, domain.ErrBadRequest("unsupported sort field " + field)
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return domain.TroopSort{Field: field}, nil
	case "desc":
		return domain.TroopSort{Field: field, Desc: true}, nil
	default:
		return domain.TroopSort{}, domain.ErrBadRequest("direction must be asc or desc")
	}
}

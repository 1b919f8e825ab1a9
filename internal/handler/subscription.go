package handler

import (
	"context"
	"net/http"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
)

// SubscriptionManager is the collaborator behind the subscription endpoints.
type SubscriptionManager interface {
	ListPlans(ctx context.Context, councilID *string) ([]domain.SubscriptionPlan, error)
	Create(ctx context.Context, userID string, req *domain.CreateSubscriptionRequest, idempotencyKey string) (*domain.SubscriptionResponse, error)
	GetMine(ctx context.Context, userID string) (*domain.SubscriptionResponse, error)
	UpdateMine(ctx context.Context, userID string, req *domain.UpdateSubscriptionRequest) (*domain.SubscriptionResponse, error)
	Reactivate(ctx context.Context, userID string) (*domain.SubscriptionResponse, error)
	Renew(ctx context.Context, userID string) (*domain.SubscriptionResponse, error)
	CancelMine(ctx context.Context, userID string) error
}

// SubscriptionHandler handles plan listing and the caller's subscription.
type SubscriptionHandler struct {
	subs SubscriptionManager
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subs SubscriptionManager) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

// ListPlans handles GET /api/v1/subscription-plans.
func (h *SubscriptionHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subs.ListPlans(r.Context(), optionalQuery(r, "councilId"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"data": plans})
}

// Create handles POST /api/v1/subscriptions.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	var req domain.CreateSubscriptionRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}

	sub, err := h.subs.Create(r.Context(), userID, &req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, sub)
}

// GetMine handles GET /api/v1/subscriptions/me.
func (h *SubscriptionHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.subs.GetMine)
}

// UpdateMine handles PATCH /api/v1/subscriptions/me.
func (h *SubscriptionHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	var req domain.UpdateSubscriptionRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	if req.CancelAtPeriodEnd == nil && req.PaymentMethodID == nil {
		Error(w, domain.ErrBadRequest("cancelAtPeriodEnd or paymentMethodId is required"))
		return
	}

	sub, err := h.subs.UpdateMine(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, sub)
}

// Reactivate handles POST /api/v1/subscriptions/me/reactivate.
func (h *SubscriptionHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.subs.Reactivate)
}

// Renew handles POST /api/v1/subscriptions/me/renew.
func (h *SubscriptionHandler) Renew(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.subs.Renew)
}

// CancelMine handles DELETE /api/v1/subscriptions/me.
func (h *SubscriptionHandler) CancelMine(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	if err := h.subs.CancelMine(r.Context(), userID); err != nil {
		Error(w, err)
		return
	}
	NoContent(w)
}

func (h *SubscriptionHandler) respond(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.SubscriptionResponse, error)) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	sub, err := op(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, sub)
}

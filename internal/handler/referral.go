package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ReferralManager is the collaborator behind the referral endpoints.
type ReferralManager interface {
	GetMyCode(ctx context.Context, userID string) (*domain.ReferralCodeResponse, error)
	ApplyCode(ctx context.Context, userID, code string) (*domain.Referral, error)
	GetMyReferrals(ctx context.Context, userID string) ([]*domain.Referral, error)
	ClaimReward(ctx context.Context, userID string, referralID int64) (*domain.Referral, error)
}

// ReferralHandler handles referral codes and reward claims.
type ReferralHandler struct {
	referrals ReferralManager
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(referrals ReferralManager) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

// MyCode handles GET /api/v1/referrals/my-code.
func (h *ReferralHandler) MyCode(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	code, err := h.referrals.GetMyCode(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, code)
}

// Apply handles POST /api/v1/referrals/apply.
func (h *ReferralHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	var req domain.ApplyReferralRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if req.ReferralCode == nil || strings.TrimSpace(*req.ReferralCode) == "" {
		Error(w, domain.ErrValidation("referralCode is required"))
		return
	}

	ref, err := h.referrals.ApplyCode(r.Context(), userID, strings.TrimSpace(*req.ReferralCode))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, ref)
}

// MyReferrals handles GET /api/v1/referrals/my-referrals.
func (h *ReferralHandler) MyReferrals(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	refs, err := h.referrals.GetMyReferrals(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	if refs == nil {
		refs = []*domain.Referral{}
	}
	JSON(w, http.StatusOK, refs)
}

// Claim handles POST /api/v1/referrals/{id}/claim.
func (h *ReferralHandler) Claim(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	id, err := int64Param(chi.URLParam(r, "id"), "id")
	if err != nil {
		Error(w, err)
		return
	}
	ref, err := h.referrals.ClaimReward(r.Context(), userID, id)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, ref)
}

package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeReferrals struct {
	ReferralManager
	applied   []string
	claimErr  error
	claimedID int64
	claims    int
}

func (f *fakeReferrals) ApplyCode(ctx context.Context, userID, code string) (*domain.Referral, error) {
	f.applied = append(f.applied, userID+":"+code)
	return &domain.Referral{ID: 1, ReferrerID: "ref", ReferredUserID: userID, Status: domain.ReferralPending}, nil
}

func (f *fakeReferrals) GetMyReferrals(ctx context.Context, userID string) ([]*domain.Referral, error) {
	return nil, nil
}

func (f *fakeReferrals) ClaimReward(ctx context.Context, userID string, id int64) (*domain.Referral, error) {
	f.claims++
	f.claimedID = id
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return &domain.Referral{ID: id, Status: domain.ReferralRewarded, RewardClaimed: true}, nil
}

func TestApplyReferral(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		caller     *domain.Principal
		wantStatus int
		wantCalls  int
	}{
		{"applies trimmed code", `{"referralCode":" ABC123 "}`, scout, http.StatusOK, 1},
		{"blank code", `{"referralCode":"   "}`, scout, http.StatusBadRequest, 0},
		{"missing code", `{}`, scout, http.StatusBadRequest, 0},
		{"malformed body", `{"referralCode":`, scout, http.StatusBadRequest, 0},
		{"anonymous", `{"referralCode":"ABC123"}`, nil, http.StatusUnauthorized, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeReferrals{}
			h := NewReferralHandler(fake)

			rec := serve(h.Apply, http.MethodPost, "/api/v1/referrals/apply", "/api/v1/referrals/apply", tt.body, tt.caller)

			require.Equal(t, tt.wantStatus, rec.Code)
			require.Len(t, fake.applied, tt.wantCalls)
			if tt.wantCalls > 0 {
				require.Equal(t, "user-1:ABC123", fake.applied[0])
			}
		})
	}
}

func TestClaimReferral(t *testing.T) {
	const pattern = "/api/v1/referrals/{id}/claim"

	t.Run("claims", func(t *testing.T) {
		fake := &fakeReferrals{}
		rec := serve(NewReferralHandler(fake).Claim, http.MethodPost, pattern, "/api/v1/referrals/42/claim", "", scout)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, int64(42), fake.claimedID)
		require.True(t, decodeBody[domain.Referral](t, rec).RewardClaimed)
	})

	t.Run("already claimed", func(t *testing.T) {
		fake := &fakeReferrals{claimErr: domain.ErrIllegalState("reward already claimed")}
		rec := serve(NewReferralHandler(fake).Claim, http.MethodPost, pattern, "/api/v1/referrals/42/claim", "", scout)

		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, domain.KindIllegalState, decodeError(t, rec).Code)
	})

	t.Run("unknown referral", func(t *testing.T) {
		fake := &fakeReferrals{claimErr: domain.ErrNotFound("referral not found")}
		rec := serve(NewReferralHandler(fake).Claim, http.MethodPost, pattern, "/api/v1/referrals/999/claim", "", scout)

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, 1, fake.claims)
	})

	t.Run("non numeric id", func(t *testing.T) {
		fake := &fakeReferrals{}
		rec := serve(NewReferralHandler(fake).Claim, http.MethodPost, pattern, "/api/v1/referrals/abc/claim", "", scout)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Zero(t, fake.claimedID)
	})
}

func TestMyReferrals_EmptyListIsArray(t *testing.T) {
	rec := serve(NewReferralHandler(&fakeReferrals{}).MyReferrals, http.MethodGet, "/r", "/r", "", scout)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

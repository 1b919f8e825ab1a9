package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
)

const (
	referralCodeLength   = 8
	referralCodeAttempts = 5
)

// ReferralService manages referral codes, referrals and reward claims.
type ReferralService struct {
	store       ReferralStore
	users       UserStore
	rewardCents int64
	baseURL     string
	now         func() time.Time
}

// NewReferralService creates a new ReferralService. baseURL prefixes the
// shareable link of every code.
func NewReferralService(store ReferralStore, users UserStore, rewardCents int64, baseURL string) *ReferralService {
	return &ReferralService{
		store:       store,
		users:       users,
		rewardCents: rewardCents,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		now:         time.Now,
	}
}

// GetMyCode returns the caller's code and counters, creating the code on
// first access.
func (s *ReferralService) GetMyCode(ctx context.Context, userID string) (*domain.ReferralCodeResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	code, err := s.ensureCode(ctx, userID)
	if err != nil {
		return nil, err
	}

	refs, err := s.store.ListByReferrer(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list referrals", err)
	}
	return domain.ReferralStats(code, s.baseURL+"/r/"+code, refs), nil
}

func (s *ReferralService) ensureCode(ctx context.Context, userID string) (string, error) {
	code, err := s.store.FindCodeByUser(ctx, userID)
	if err != nil {
		return "", domain.ErrInternal("failed to find referral code", err)
	}
	if code != "" {
		return code, nil
	}

	for i := 0; i < referralCodeAttempts; i++ {
		code = domain.NewUniqueCode(referralCodeLength)
		err = s.store.CreateCode(ctx, userID, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return "", domain.ErrInternal("failed to create referral code", err)
		}
		// Either the code collided or a concurrent request created one.
		if existing, ferr := s.store.FindCodeByUser(ctx, userID); ferr == nil && existing != "" {
			return existing, nil
		}
	}
	return "", domain.ErrInternal("failed to allocate a unique referral code", err)
}

// CheckCode reports whether userID may apply code, and returns the
// referrer. It writes nothing.
func (s *ReferralService) CheckCode(ctx context.Context, userID, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", domain.ErrBadRequest("referral code is required")
	}

	referrerID, err := s.store.FindUserByCode(ctx, code)
	if err != nil {
		return "", domain.ErrInternal("failed to look up referral code", err)
	}
	if referrerID == "" {
		return "", domain.ErrNotFound("referral code not found")
	}
	if referrerID == userID {
		return "", domain.ErrBadRequest("cannot apply your own referral code")
	}

	existing, err := s.store.FindByReferred(ctx, userID)
	if err != nil {
		return "", domain.ErrInternal("failed to check existing referral", err)
	}
	if existing != nil {
		return "", domain.ErrIllegalState("user has already been referred")
	}
	return referrerID, nil
}

// ApplyCode records that userID was referred by the owner of code.
func (s *ReferralService) ApplyCode(ctx context.Context, userID, code string) (*domain.Referral, error) {
	referrerID, err := s.CheckCode(ctx, userID, code)
	if err != nil {
		return nil, err
	}

	ref := &domain.Referral{
		ReferrerID:     referrerID,
		ReferredUserID: userID,
		Status:         domain.ReferralPending,
		RewardCents:    s.rewardCents,
		RewardAmount:   float64(s.rewardCents) / 100,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateReferral(ctx, ref); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.ErrIllegalState("user has already been referred")
		}
		return nil, domain.ErrInternal("failed to create referral", err)
	}

	if u, err := s.users.FindByID(ctx, userID); err == nil && u != nil {
		ref.ReferredUserName = strings.TrimSpace(u.FirstName + " " + u.LastName)
		ref.ReferredUserEmail = u.Email
	}

	slog.Info("referral applied", "referrer_id", referrerID, "referred_user_id", userID)
	return ref, nil
}

// GetMyReferrals returns the referrals made by the caller, newest first.
func (s *ReferralService) GetMyReferrals(ctx context.Context, userID string) ([]*domain.Referral, error) {
	refs, err := s.store.ListByReferrer(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list referrals", err)
	}
	return refs, nil
}

// ClaimReward credits the reward of a completed referral to its referrer.
func (s *ReferralService) ClaimReward(ctx context.Context, userID string, referralID int64) (*domain.Referral, error) {
	ref, err := s.store.FindByID(ctx, referralID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find referral", err)
	}
	if ref == nil {
		return nil, domain.ErrNotFound("referral not found")
	}
	if ref.ReferrerID != userID {
		return nil, domain.ErrBadRequest("referral does not belong to the caller")
	}
	if !ref.Claimable() {
		if ref.RewardClaimed || ref.Status == domain.ReferralRewarded {
			return nil, domain.ErrIllegalState("reward already claimed")
		}
		return nil, domain.ErrIllegalState("referral is not completed")
	}

	ok, err := s.store.MarkRewarded(ctx, referralID)
	if err != nil {
		return nil, domain.ErrInternal("failed to claim reward", err)
	}
	if !ok {
		return nil, domain.ErrIllegalState("reward already claimed")
	}

	ref.Status = domain.ReferralRewarded
	ref.RewardClaimed = true
	slog.Info("referral reward claimed", "referral_id", referralID, "referrer_id", userID)
	return ref, nil
}

// CompleteReferral moves the user's pending referral, if any, to COMPLETED.
func (s *ReferralService) CompleteReferral(ctx context.Context, userID string) error {
	ok, err := s.store.MarkCompleted(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if ok {
		slog.Info("referral completed", "referred_user_id", userID)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/SwipeSavdev/camp-card-sub001/pkg/payment"
	"github.com/google/uuid"
)

// ReferralTracker applies referral codes and completes pending referrals
// when a referred user subscribes.
type ReferralTracker interface {
	CheckCode(ctx context.Context, userID, code string) (string, error)
	ApplyCode(ctx context.Context, userID, code string) (*domain.Referral, error)
	CompleteReferral(ctx context.Context, userID string) error
}

// SubscriptionService handles the camp card subscription lifecycle.
type SubscriptionService struct {
	repo      SubscriptionStore
	plans     PlanStore
	payment   payment.Gateway
	sealer    Sealer
	referrals ReferralTracker
	now       func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(repo SubscriptionStore, plans PlanStore, gateway payment.Gateway, sealer Sealer, referrals ReferralTracker) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		plans:     plans,
		payment:   gateway,
		sealer:    sealer,
		referrals: referrals,
		now:       time.Now,
	}
}

// ListPlans returns the global plans plus the plans of councilID, if given.
func (s *SubscriptionService) ListPlans(ctx context.Context, councilID *string) ([]domain.SubscriptionPlan, error) {
	plans, err := s.plans.ListPlans(ctx, councilID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list plans", err)
	}
	return plans, nil
}

// Create purchases a camp card for the user. A repeated idempotency key
// returns the subscription created by the first request.
func (s *SubscriptionService) Create(ctx context.Context, userID string, req *domain.CreateSubscriptionRequest, idempotencyKey string) (*domain.SubscriptionResponse, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, userID, idempotencyKey)
		if err != nil {
			return nil, domain.ErrInternal("failed to check idempotency key", err)
		}
		if existing != nil {
			return s.toResponse(ctx, existing)
		}
	}

	plan, err := s.plans.FindPlanByUUID(ctx, req.PlanUUID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find plan", err)
	}
	if plan == nil {
		return nil, domain.ErrNotFound("subscription plan not found")
	}

	active, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to check active subscription", err)
	}
	if active != nil {
		return nil, domain.ErrIllegalState("user already has an active subscription")
	}

	var referralCode string
	if req.ReferralCode != nil && strings.TrimSpace(*req.ReferralCode) != "" {
		referralCode = *req.ReferralCode
		if _, err := s.referrals.CheckCode(ctx, userID, referralCode); err != nil {
			return nil, err
		}
	}

	var methodRef string
	if req.PaymentMethodID != nil {
		methodRef, err = s.attachPaymentMethod(ctx, userID, *req.PaymentMethodID)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	start := now
	if plan.TrialDays > 0 {
		start = now.AddDate(0, 0, plan.TrialDays)
	}
	sub := &domain.Subscription{
		UserID:             userID,
		PlanID:             plan.ID,
		ScoutID:            req.ScoutID,
		Status:             domain.SubscriptionActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   plan.NextPeriodEnd(start),
		PaymentMethodRef:   methodRef,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if idempotencyKey != "" {
		sub.IdempotencyKey = &idempotencyKey
	}

	if err := s.insert(ctx, sub); err != nil {
		if !errors.Is(err, domain.ErrIdempotencyKeyUsed) {
			return nil, err
		}
		// A concurrent request with the same key won the insert.
		existing, ferr := s.repo.FindByIdempotencyKey(ctx, userID, idempotencyKey)
		if ferr != nil || existing == nil {
			return nil, domain.ErrInternal("failed to load subscription for idempotency key", errors.Join(err, ferr))
		}
		return s.toResponse(ctx, existing)
	}

	// The row exists now, so referral writes happen only for a real purchase.
	if referralCode != "" {
		if _, err := s.referrals.ApplyCode(ctx, userID, referralCode); err != nil {
			slog.Warn("failed to apply referral code", "user_id", userID, "error", err)
		}
	}
	if err := s.referrals.CompleteReferral(ctx, userID); err != nil {
		slog.Warn("failed to complete referral", "user_id", userID, "error", err)
	}

	slog.Info("subscription created", "user_id", userID, "subscription", sub.UUID, "plan", plan.UUID)
	return s.responseWithPlan(sub, plan), nil
}

// GetMine returns the caller's most recent subscription.
func (s *SubscriptionService) GetMine(ctx context.Context, userID string) (*domain.SubscriptionResponse, error) {
	sub, err := s.findMine(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, sub)
}

// UpdateMine toggles cancel-at-period-end and/or replaces the payment method.
func (s *SubscriptionService) UpdateMine(ctx context.Context, userID string, req *domain.UpdateSubscriptionRequest) (*domain.SubscriptionResponse, error) {
	if req.CancelAtPeriodEnd == nil && req.PaymentMethodID == nil {
		return nil, domain.ErrBadRequest("nothing to update")
	}
	sub, err := s.findMine(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.CancelAtPeriodEnd != nil {
		if sub.Status != domain.SubscriptionActive {
			return nil, domain.ErrIllegalState("only active subscriptions can be scheduled for cancellation")
		}
		sub.CancelAtPeriodEnd = *req.CancelAtPeriodEnd
	}
	if req.PaymentMethodID != nil {
		ref, err := s.attachPaymentMethod(ctx, userID, *req.PaymentMethodID)
		if err != nil {
			return nil, err
		}
		sub.PaymentMethodRef = ref
	}

	return s.save(ctx, sub)
}

// Reactivate undoes a scheduled or immediate cancellation while the paid
// period has not ended.
func (s *SubscriptionService) Reactivate(ctx context.Context, userID string) (*domain.SubscriptionResponse, error) {
	sub, err := s.findMine(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case sub.Status == domain.SubscriptionActive && sub.CancelAtPeriodEnd:
		sub.CancelAtPeriodEnd = false
	case sub.Status == domain.SubscriptionCanceled && sub.CurrentPeriodEnd.After(now):
		sub.Status = domain.SubscriptionActive
		sub.CancelAtPeriodEnd = false
		sub.CanceledAt = nil
	default:
		return nil, domain.ErrIllegalState("subscription is not canceled or its period has ended")
	}

	resp, err := s.save(ctx, sub)
	if err != nil {
		return nil, err
	}
	slog.Info("subscription reactivated", "user_id", userID, "subscription", sub.UUID)
	return resp, nil
}

// Renew extends an active subscription by one billing interval.
func (s *SubscriptionService) Renew(ctx context.Context, userID string) (*domain.SubscriptionResponse, error) {
	sub, err := s.findMine(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubscriptionActive {
		return nil, domain.ErrIllegalState("only active subscriptions can be renewed")
	}

	plan, err := s.plans.FindPlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find plan", err)
	}
	if plan == nil {
		return nil, domain.ErrNotFound("subscription plan not found")
	}

	nextEnd := plan.NextPeriodEnd(sub.CurrentPeriodEnd)
	if err := s.chargeRenewal(ctx, sub, plan, nextEnd); err != nil {
		return nil, err
	}

	sub.CurrentPeriodStart = sub.CurrentPeriodEnd
	sub.CurrentPeriodEnd = nextEnd
	sub.CancelAtPeriodEnd = false
	sub.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, domain.ErrInternal("failed to renew subscription", err)
	}
	slog.Info("subscription renewed", "user_id", userID, "subscription", sub.UUID, "period_end", sub.CurrentPeriodEnd)
	return s.responseWithPlan(sub, plan), nil
}

// CancelMine cancels the caller's subscription immediately.
func (s *SubscriptionService) CancelMine(ctx context.Context, userID string) error {
	sub, err := s.findMine(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.cancel(ctx, sub); err != nil {
		return err
	}
	slog.Info("subscription canceled", "user_id", userID, "subscription", sub.UUID)
	return nil
}

// ListCampCards returns one page of every subscription, newest first.
func (s *SubscriptionService) ListCampCards(ctx context.Context, page domain.PageRequest) (domain.Page[domain.CampCardResponse], error) {
	page = page.Normalize()
	subs, total, err := s.repo.List(ctx, page)
	if err != nil {
		return domain.Page[domain.CampCardResponse]{}, domain.ErrInternal("failed to list camp cards", err)
	}
	cards := make([]domain.CampCardResponse, len(subs))
	for i, sub := range subs {
		cards[i] = domain.NewCampCardResponse(sub)
	}
	return domain.NewPage(cards, total, page), nil
}

// GetCampCard returns one card by its UUID.
func (s *SubscriptionService) GetCampCard(ctx context.Context, id string) (*domain.CampCardResponse, error) {
	sub, err := s.findByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	card := domain.NewCampCardResponse(sub)
	return &card, nil
}

// RevokeCampCard cancels a card. Revoking a canceled card is a no-op.
func (s *SubscriptionService) RevokeCampCard(ctx context.Context, id string) error {
	sub, err := s.findByUUID(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status == domain.SubscriptionCanceled && sub.CanceledAt != nil {
		return nil
	}
	if err := s.cancel(ctx, sub); err != nil {
		return err
	}
	slog.Info("camp card revoked", "subscription", sub.UUID)
	return nil
}

// ExpireEnded marks subscriptions whose scheduled cancellation has taken
// effect as EXPIRED.
func (s *SubscriptionService) ExpireEnded(ctx context.Context) (int64, error) {
	return s.repo.ExpireEnded(ctx, s.now())
}

func (s *SubscriptionService) cancel(ctx context.Context, sub *domain.Subscription) error {
	now := s.now()
	sub.Status = domain.SubscriptionCanceled
	sub.CancelAtPeriodEnd = false
	if sub.CanceledAt == nil {
		sub.CanceledAt = &now
	}
	sub.UpdatedAt = now
	if err := s.repo.Update(ctx, sub); err != nil {
		return domain.ErrInternal("failed to cancel subscription", err)
	}
	return nil
}

// insert stores a new subscription, drawing a fresh card number and uuid when
// either collides with an existing row.
func (s *SubscriptionService) insert(ctx context.Context, sub *domain.Subscription) error {
	var err error
	for i := 0; i < codeAttempts; i++ {
		sub.UUID = uuid.NewString()
		sub.CardNumber = newCardNumber()
		err = s.repo.Create(ctx, sub)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrActiveSubscriptionExists):
			return domain.ErrIllegalState("user already has an active subscription")
		case errors.Is(err, domain.ErrIdempotencyKeyUsed):
			return err
		case !errors.Is(err, domain.ErrDuplicateKey):
			return domain.ErrInternal("failed to create subscription", err)
		}
	}
	return domain.ErrInternal("failed to allocate a unique card number", err)
}

func (s *SubscriptionService) save(ctx context.Context, sub *domain.Subscription) (*domain.SubscriptionResponse, error) {
	sub.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, sub); err != nil {
		if errors.Is(err, domain.ErrActiveSubscriptionExists) {
			return nil, domain.ErrIllegalState("user already has an active subscription")
		}
		return nil, domain.ErrInternal("failed to update subscription", err)
	}
	return s.toResponse(ctx, sub)
}

func (s *SubscriptionService) attachPaymentMethod(ctx context.Context, userID, paymentMethodID string) (string, error) {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return "", domain.ErrBadRequest("paymentMethodId must not be blank")
	}
	ref, err := s.payment.AttachPaymentMethod(ctx, userID, paymentMethodID)
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return "", domain.ErrBadRequest("payment method declined")
		}
		return "", domain.ErrInternal("failed to attach payment method", err)
	}
	sealed, err := s.sealer.Seal(ref)
	if err != nil {
		return "", domain.ErrInternal("failed to encrypt payment method", err)
	}
	return sealed, nil
}

// chargeRenewal bills the stored payment method for the period ending at
// periodEnd. Subscriptions without one are renewed free of charge.
func (s *SubscriptionService) chargeRenewal(ctx context.Context, sub *domain.Subscription, plan *domain.SubscriptionPlan, periodEnd time.Time) error {
	if sub.PaymentMethodRef == "" {
		return nil
	}
	ref, err := s.sealer.Open(sub.PaymentMethodRef)
	if err != nil {
		return domain.ErrInternal("failed to decrypt payment method", err)
	}
	tx, err := s.payment.Charge(ctx, payment.ChargeRequest{
		CustomerID:       sub.UserID,
		PaymentMethodRef: ref,
		AmountCents:      plan.PriceCents,
		Currency:         plan.Currency,
		IdempotencyKey:   sub.UUID + ":" + periodEnd.UTC().Format(time.RFC3339),
		Description:      "Camp card renewal: " + plan.Name,
	})
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return domain.ErrBadRequest("payment method declined")
		}
		return domain.ErrInternal("failed to charge renewal", err)
	}
	slog.Info("renewal charged", "subscription", sub.UUID, "transaction", tx.ID, "amount_cents", tx.Amount)
	return nil
}

func (s *SubscriptionService) findMine(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := s.repo.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find subscription", err)
	}
	if sub == nil {
		return nil, domain.ErrNotFound("subscription not found")
	}
	return sub, nil
}

func (s *SubscriptionService) findByUUID(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, err := s.repo.FindByUUID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find camp card", err)
	}
	if sub == nil {
		return nil, domain.ErrNotFound("camp card not found")
	}
	return sub, nil
}

func (s *SubscriptionService) toResponse(ctx context.Context, sub *domain.Subscription) (*domain.SubscriptionResponse, error) {
	plan, err := s.plans.FindPlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find plan", err)
	}
	return s.responseWithPlan(sub, plan), nil
}

func (s *SubscriptionService) responseWithPlan(sub *domain.Subscription, plan *domain.SubscriptionPlan) *domain.SubscriptionResponse {
	return &domain.SubscriptionResponse{
		ID:                 sub.ID,
		UUID:               sub.UUID,
		UserID:             sub.UserID,
		CardNumber:         sub.CardNumber,
		Status:             sub.Status,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CanceledAt:         sub.CanceledAt,
		HasPaymentMethod:   sub.PaymentMethodRef != "",
		Plan:               plan,
		CreatedAt:          sub.CreatedAt,
	}
}

// newCardNumber returns "CC-" followed by 12 random digits.
func newCardNumber() string {
	id := uuid.New()
	digits := make([]byte, 12)
	for i := range digits {
		digits[i] = '0' + id[i]%10
	}
	return "CC-" + string(digits)
}

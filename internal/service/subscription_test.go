package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/SwipeSavdev/camp-card-sub001/pkg/payment"
	"github.com/stretchr/testify/require"
)

const (
	annualPlanUUID = "11111111-1111-4111-8111-111111111111"
	trialPlanUUID  = "22222222-2222-4222-8222-222222222222"
)

var subsNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type subsFixture struct {
	svc       *SubscriptionService
	subs      *memSubs
	referrals *memReferrals
}

func newSubsFixture(t *testing.T) *subsFixture {
	t.Helper()
	plans := &memPlans{plans: []domain.SubscriptionPlan{
		{ID: 1, UUID: annualPlanUUID, Name: "Annual", PriceCents: 2999, BillingInterval: domain.IntervalAnnual},
		{ID: 2, UUID: trialPlanUUID, Name: "Monthly", PriceCents: 399, BillingInterval: domain.IntervalMonthly, TrialDays: 7},
	}}
	users := newMemUsers(
		&domain.User{ID: "referrer", Email: "ref@example.com", Role: domain.RoleParent},
		&domain.User{ID: "buyer", Email: "buyer@example.com", Role: domain.RoleParent},
	)
	refs := newMemReferrals()
	refSvc := NewReferralService(refs, users, 1000, "https://campcard.app")
	refSvc.now = fixedClock(subsNow)

	subs := &memSubs{}
	svc := NewSubscriptionService(subs, plans, payment.NewMockGateway(), prefixSealer{}, refSvc)
	svc.now = fixedClock(subsNow)
	return &subsFixture{svc: svc, subs: subs, referrals: refs}
}

func TestCreateSubscription(t *testing.T) {
	f := newSubsFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Create(ctx, "buyer", &domain.CreateSubscriptionRequest{
		PlanUUID:        annualPlanUUID,
		PaymentMethodID: strPtr("pm_card_visa"),
	}, "")
	require.NoError(t, err)

	require.Regexp(t, `^CC-[0-9]{12}$`, resp.CardNumber)
	require.Equal(t, domain.SubscriptionActive, resp.Status)
	require.Equal(t, subsNow, resp.CurrentPeriodStart)
	require.Equal(t, subsNow.AddDate(1, 0, 0), resp.CurrentPeriodEnd)
	require.True(t, resp.HasPaymentMethod)
	require.Equal(t, annualPlanUUID, resp.Plan.UUID)

	require.Len(t, f.subs.subs, 1)
	require.Equal(t, "sealed:mock_buyer_pm_card_visa", f.subs.subs[0].PaymentMethodRef)
}

func TestCreateSubscription_TrialShiftsPaidPeriod(t *testing.T) {
	f := newSubsFixture(t)

	resp, err := f.svc.Create(context.Background(), "buyer", &domain.CreateSubscriptionRequest{PlanUUID: trialPlanUUID}, "")
	require.NoError(t, err)

	start := subsNow.AddDate(0, 0, 7)
	require.Equal(t, start, resp.CurrentPeriodStart)
	require.Equal(t, start.AddDate(0, 1, 0), resp.CurrentPeriodEnd)
	require.False(t, resp.HasPaymentMethod)
}

func TestCreateSubscription_Rejections(t *testing.T) {
	t.Run("unknown plan", func(t *testing.T) {
		f := newSubsFixture(t)
		_, err := f.svc.Create(context.Background(), "buyer", &domain.CreateSubscriptionRequest{PlanUUID: "33333333-3333-4333-8333-333333333333"}, "")
		require.True(t, domain.IsKind(err, domain.KindNotFound))
	})

	t.Run("already active", func(t *testing.T) {
		f := newSubsFixture(t)
		ctx := context.Background()
		_, err := f.svc.Create(ctx, "buyer", &domain.CreateSubscriptionRequest{PlanUUID: annualPlanUUID}, "")
		require.NoError(t, err)

		_, err = f.svc.Create(ctx, "buyer", &domain.CreateSubscriptionRequest{PlanUUID: annualPlanUUID}, "")
		require.True(t, domain.IsKind(err, domain.KindIllegalState))
		require.Len(t, f.subs.subs, 1)
	})

	t.Run("declined card", func(t *testing.T) {
		f := newSubsFixture(t)
		_, err := f.svc.Create(context.Background(), "buyer", &domain.CreateSubscriptionRequest{
			PlanUUID:        annualPlanUUID,
			PaymentMethodID: strPtr("pm_declined_card"),
		}, "")
		require.True(t, domain.IsKind(err, domain.KindInvalidInput))
		require.Empty(t, f.subs.subs)
	})

	t.Run("unknown referral code", func(t *testing.T) {
		f := newSubsFixture(t)
		_, err := f.svc.Create(context.Background(), "buyer", &domain.CreateSubscriptionRequest{
			PlanUUID:     annualPlanUUID,
			ReferralCode: strPtr("NOPE0000"),
		}, "")
		require.True(t, domain.IsKind(err, domain.KindNotFound))
		require.Empty(t, f.subs.subs)
	})
}

func TestCreateSubscription_IdempotencyKeyReturnsFirstResult(t *testing.T) {
	f := newSubsFixture(t)
	ctx := context.Background()
	req := &domain.CreateSubscriptionRequest{PlanUUID: annualPlanUUID}

	first, err := f.svc.Create(ctx, "buyer", req, "order-1")
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, "buyer", req, " order-1 ")
	require.NoError(t, err)

	require.Equal(t, first.UUID, second.UUID)
	require.Len(t, f.subs.subs, 1)
}

func TestCreateSubscription_CompletesReferral(t *testing.T) {
	f := newSubsFixture(t)
	ctx := context.Background()
	require.NoError(t, f.referrals.CreateCode(ctx, "referrer", "REFCODE1"))

	_, err := f.svc.Create(ctx, "buyer", &domain.CreateSubscriptionRequest{
		PlanUUID:     annualPlanUUID,
		ReferralCode: strPtr(" refcode1 "),
	}, "")
	require.NoError(t, err)

	ref, err := f.referrals.FindByReferred(ctx, "buyer")
	require.NoError(t, err)
	require.NotNil(t, ref)
	require.Equal(t, "referrer", ref.ReferrerID)
	require.Equal(t, domain.ReferralCompleted, ref.Status)
	require.NotNil(t, ref.CompletedAt)
}

func TestCreateSubscription_FailedInsertLeavesNoReferral(t *testing.T) {
	f := newSubsFixture(t)
	ctx := context.Background()
	require.NoError(t, f.referrals.CreateCode(ctx, "referrer", "REFCODE1"))
	f.subs.createErrs = []error{errors.New("connection reset")}

	_, err := f.svc.Create(ctx, "buyer", &domain.CreateSubscriptionRequest{
		PlanUUID:     annualPlanUUID,
		ReferralCode: strPtr("REFCODE1"),
	}, "")
	require.True(t, domain.IsKind(err, domain.KindInternal))
	require.Empty(t, f.subs.subs)

	ref, err := f.referrals.FindByReferred(ctx, "buyer")
	require.NoError(t, err)
	require.Nil(t, ref)
}

func TestCreateSubscription_InsertConflicts(t *testing.T) {
	req := &domain.CreateSubscriptionRequest{PlanUUID: annualPlanUUID}

	t.Run("card number collision draws a new number", func(t *testing.T) {
		f := newSubsFixture(t)
		f.subs.createErrs = []error{domain.ErrDuplicateKey, domain.ErrDuplicateKey}

		resp, err := f.svc.Create(context.Background(), "buyer", req, "")
		require.NoError(t, err)
		require.Equal(t, 3, f.subs.creates)
		require.Equal(t, resp.CardNumber, f.subs.subs[0].CardNumber)
	})

	t.Run("card numbers exhausted is not an active conflict", func(t *testing.T) {
		f := newSubsFixture(t)
		for i := 0; i < codeAttempts; i++ {
			f.subs.createErrs = append(f.subs.createErrs, domain.ErrDuplicateKey)
		}

		_, err := f.svc.Create(context.Background(), "buyer", req, "")
		require.True(t, domain.IsKind(err, domain.KindInternal), "got %v", err)
	})

	t.Run("concurrent active subscription", func(t *testing.T) {
		f := newSubsFixture(t)
		f.subs.createErrs = []error{domain.ErrActiveSubscriptionExists}

		_, err := f.svc.Create(context.Background(), "buyer", req, "")
		require.True(t, domain.IsKind(err, domain.KindIllegalState))
		require.Equal(t, 1, f.subs.creates)
	})
}

func seedSubscription(f *subsFixture, status string, periodEnd time.Time, cancelAtEnd bool) *domain.Subscription {
	sub := &domain.Subscription{
		UUID:               "sub-" + status,
		UserID:             "buyer",
		PlanID:             1,
		CardNumber:         "CC-000000000001",
		Status:             status,
		CancelAtPeriodEnd:  cancelAtEnd,
		CurrentPeriodStart: periodEnd.AddDate(-1, 0, 0),
		CurrentPeriodEnd:   periodEnd,
		CreatedAt:          subsNow.Add(-time.Hour),
	}
	if status == domain.SubscriptionCanceled {
		at := subsNow.Add(-time.Minute)
		sub.CanceledAt = &at
	}
	f.subs.nextID++
	sub.ID = f.subs.nextID
	f.subs.subs = append(f.subs.subs, sub)
	return sub
}

func TestUpdateMine(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a field", func(t *testing.T) {
		f := newSubsFixture(t)
		_, err := f.svc.UpdateMine(ctx, "buyer", &domain.UpdateSubscriptionRequest{})
		require.True(t, domain.IsKind(err, domain.KindInvalidInput))
	})

	t.Run("schedules cancellation", func(t *testing.T) {
		f := newSubsFixture(t)
		seedSubscription(f, domain.SubscriptionActive, subsNow.AddDate(0, 6, 0), false)
		yes := true
		resp, err := f.svc.UpdateMine(ctx, "buyer", &domain.UpdateSubscriptionRequest{CancelAtPeriodEnd: &yes})
		require.NoError(t, err)
		require.True(t, resp.CancelAtPeriodEnd)
		require.Equal(t, domain.SubscriptionActive, resp.Status)
	})

	t.Run("cancel flag on canceled subscription", func(t *testing.T) {
		f := newSubsFixture(t)
		seedSubscription(f, domain.SubscriptionCanceled, subsNow.AddDate(0, 6, 0), false)
		yes := true
		_, err := f.svc.UpdateMine(ctx, "buyer", &domain.UpdateSubscriptionRequest{CancelAtPeriodEnd: &yes})
		require.True(t, domain.IsKind(err, domain.KindIllegalState))
	})

	t.Run("replaces payment method", func(t *testing.T) {
		f := newSubsFixture(t)
		sub := seedSubscription(f, domain.SubscriptionActive, subsNow.AddDate(0, 6, 0), false)
		resp, err := f.svc.UpdateMine(ctx, "buyer", &domain.UpdateSubscriptionRequest{PaymentMethodID: strPtr("pm_new")})
		require.NoError(t, err)
		require.True(t, resp.HasPaymentMethod)
		require.Equal(t, "sealed:mock_buyer_pm_new", sub.PaymentMethodRef)
	})

	t.Run("no subscription", func(t *testing.T) {
		f := newSubsFixture(t)
		no := false
		_, err := f.svc.UpdateMine(ctx, "buyer", &domain.UpdateSubscriptionRequest{CancelAtPeriodEnd: &no})
		require.True(t, domain.IsKind(err, domain.KindNotFound))
	})
}

func TestReactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("clears scheduled cancellation", func(t *testing.T) {
		f := newSubsFixture(t)
		seedSubscription(f, domain.SubscriptionActive, subsNow.AddDate(0, 1, 0), true)
		resp, err := f.svc.Reactivate(ctx, "buyer")
		require.NoError(t, err)
		require.False(t, resp.CancelAtPeriodEnd)
	})

	t.Run("revives canceled subscription within period", func(t *testing.T) {
		f := newSubsFixture(t)
		seedSubscription(f, domain.SubscriptionCanceled, subsNow.AddDate(0, 1, 0), false)
		resp, err := f.svc.Reactivate(ctx, "buyer")
		require.NoError(t, err)
		require.Equal(t, domain.SubscriptionActive, resp.Status)
		require.Nil(t, resp.CanceledAt)
	})

	t.Run("period already ended", func(t *testing.T) {
		f := newSubsFixture(t)
		seedSubscription(f, domain.SubscriptionCanceled, subsNow.Add(-time.Hour), false)
		_, err := f.svc.Reactivate(ctx, "buyer")
		require.True(t, domain.IsKind(err, domain.KindIllegalState))
	})

	t.Run("active without scheduled cancellation", func(t *testing.T) {
		f := newSubsFixture(t)
		seedSubscription(f, domain.SubscriptionActive, subsNow.AddDate(0, 1, 0), false)
		_, err := f.svc.Reactivate(ctx, "buyer")
		require.True(t, domain.IsKind(err, domain.KindIllegalState))
	})
}

func TestRenew(t *testing.T) {
	ctx := context.Background()
	f := newSubsFixture(t)
	end := subsNow.AddDate(0, 2, 0)
	seedSubscription(f, domain.SubscriptionActive, end, true)

	resp, err := f.svc.Renew(ctx, "buyer")
	require.NoError(t, err)
	require.Equal(t, end, resp.CurrentPeriodStart)
	require.Equal(t, end.AddDate(1, 0, 0), resp.CurrentPeriodEnd)
	require.False(t, resp.CancelAtPeriodEnd)

	g := newSubsFixture(t)
	seedSubscription(g, domain.SubscriptionExpired, subsNow.Add(-time.Hour), false)
	_, err = g.svc.Renew(ctx, "buyer")
	require.True(t, domain.IsKind(err, domain.KindIllegalState))
}

func TestRenew_ChargesStoredPaymentMethod(t *testing.T) {
	ctx := context.Background()
	f := newSubsFixture(t)
	created, err := f.svc.Create(ctx, "buyer", &domain.CreateSubscriptionRequest{
		PlanUUID:        annualPlanUUID,
		PaymentMethodID: strPtr("pm_card_visa"),
	}, "")
	require.NoError(t, err)

	renewed, err := f.svc.Renew(ctx, "buyer")
	require.NoError(t, err)
	require.Equal(t, created.CurrentPeriodEnd.AddDate(1, 0, 0), renewed.CurrentPeriodEnd)

	sub := f.subs.subs[0]
	periodEnd := sub.CurrentPeriodEnd
	sub.PaymentMethodRef = "sealed:mock_buyer_pm_declined_card"
	_, err = f.svc.Renew(ctx, "buyer")
	require.True(t, domain.IsKind(err, domain.KindInvalidInput), "declined renewal")
	require.Equal(t, periodEnd, sub.CurrentPeriodEnd)

	sub.PaymentMethodRef = "tampered"
	_, err = f.svc.Renew(ctx, "buyer")
	require.True(t, domain.IsKind(err, domain.KindInternal))
	require.Equal(t, periodEnd, sub.CurrentPeriodEnd)
}

func TestCancelMine(t *testing.T) {
	ctx := context.Background()
	f := newSubsFixture(t)

	require.True(t, domain.IsKind(f.svc.CancelMine(ctx, "buyer"), domain.KindNotFound))

	seedSubscription(f, domain.SubscriptionActive, subsNow.AddDate(0, 6, 0), true)
	require.NoError(t, f.svc.CancelMine(ctx, "buyer"))

	resp, err := f.svc.GetMine(ctx, "buyer")
	require.NoError(t, err)
	require.Equal(t, domain.SubscriptionCanceled, resp.Status)
	require.NotNil(t, resp.CanceledAt)
	require.Equal(t, subsNow, *resp.CanceledAt)
	require.False(t, resp.CancelAtPeriodEnd)
}

func TestRevokeCampCardIsRepeatable(t *testing.T) {
	ctx := context.Background()
	f := newSubsFixture(t)
	sub := seedSubscription(f, domain.SubscriptionActive, subsNow.AddDate(0, 6, 0), false)

	require.NoError(t, f.svc.RevokeCampCard(ctx, sub.UUID))
	require.Equal(t, domain.SubscriptionCanceled, sub.Status)
	firstCanceledAt := *sub.CanceledAt

	f.svc.now = fixedClock(subsNow.Add(time.Hour))
	require.NoError(t, f.svc.RevokeCampCard(ctx, sub.UUID))
	require.Equal(t, firstCanceledAt, *sub.CanceledAt)

	require.True(t, domain.IsKind(f.svc.RevokeCampCard(ctx, "missing"), domain.KindNotFound))
}

func TestListCampCards_NewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newSubsFixture(t)
	for i := 0; i < 3; i++ {
		sub := seedSubscription(f, domain.SubscriptionActive, subsNow.AddDate(1, 0, 0), false)
		sub.UUID = string(rune('a' + i))
	}

	page, err := f.svc.ListCampCards(ctx, domain.PageRequest{Page: 0, Size: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.TotalElements)
	require.Equal(t, 2, page.TotalPages)
	require.True(t, page.First)
	require.False(t, page.Last)
	require.Len(t, page.Content, 2)
	require.Equal(t, "c", page.Content[0].UUID)
	require.Equal(t, "b", page.Content[1].UUID)
}

func TestExpireEnded(t *testing.T) {
	f := newSubsFixture(t)
	ended := seedSubscription(f, domain.SubscriptionActive, subsNow.Add(-time.Minute), true)
	running := seedSubscription(f, domain.SubscriptionActive, subsNow.Add(-time.Minute), false)

	n, err := f.svc.ExpireEnded(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, domain.SubscriptionExpired, ended.Status)
	require.Equal(t, domain.SubscriptionActive, running.Status)
}

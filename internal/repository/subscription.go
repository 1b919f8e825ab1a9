package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `
	id, uuid, user_id, plan_id, scout_id, card_number, status, cancel_at_period_end,
	current_period_start, current_period_end, canceled_at, payment_method_ref,
	idempotency_key, created_at, updated_at`

// SubscriptionRepository handles database operations for subscriptions.
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a subscription and sets its generated ID.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (uuid, user_id, plan_id, scout_id, card_number, status, cancel_at_period_end,
			current_period_start, current_period_end, canceled_at, payment_method_ref, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		sub.UUID, sub.UserID, sub.PlanID, sub.ScoutID, sub.CardNumber, sub.Status, sub.CancelAtPeriodEnd,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CanceledAt, sub.PaymentMethodRef, sub.IdempotencyKey,
		sub.CreatedAt, sub.UpdatedAt,
	).Scan(&sub.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return subscriptionConflict(constraint)
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// subscriptionConflict maps a violated constraint to its domain error. Card
// number and uuid collisions stay plain ErrDuplicateKey.
func subscriptionConflict(constraint string) error {
	switch constraint {
	case "uq_subscriptions_one_active":
		return domain.ErrActiveSubscriptionExists
	case "uq_subscriptions_idempotency":
		return domain.ErrIdempotencyKeyUsed
	default:
		return domain.ErrDuplicateKey
	}
}

// FindActiveByUser returns the user's ACTIVE subscription, or nil.
func (r *SubscriptionRepository) FindActiveByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 AND status = 'ACTIVE' ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(ctx, query, userID)
}

// FindLatestByUser returns the user's most recent subscription in any status, or nil.
func (r *SubscriptionRepository) FindLatestByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.scanOne(ctx, query, userID)
}

// FindByIdempotencyKey returns the subscription created with key by the user, or nil.
func (r *SubscriptionRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND idempotency_key = $2`
	return r.scanOne(ctx, query, userID, key)
}

// FindByUUID returns a subscription by its external identifier, or nil.
func (r *SubscriptionRepository) FindByUUID(ctx context.Context, id string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE uuid = $1`
	return r.scanOne(ctx, query, id)
}

// List returns one page of all subscriptions, newest first, and the total count.
func (r *SubscriptionRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.Subscription, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []*domain.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, s)
	}
	return subs, total, rows.Err()
}

// Update persists the mutable fields of a subscription.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $1, cancel_at_period_end = $2, current_period_start = $3, current_period_end = $4,
			canceled_at = $5, payment_method_ref = $6, updated_at = $7
		WHERE id = $8
	`
	tag, err := r.db.Exec(ctx, query,
		sub.Status, sub.CancelAtPeriodEnd, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.CanceledAt, sub.PaymentMethodRef, sub.UpdatedAt, sub.ID,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return subscriptionConflict(constraint)
		}
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update subscription %d: not found", sub.ID)
	}
	return nil
}

// ExpireEnded marks ACTIVE subscriptions flagged cancel-at-period-end whose
// period ended before now as EXPIRED and returns how many changed.
func (r *SubscriptionRepository) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE subscriptions SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'ACTIVE' AND cancel_at_period_end AND current_period_end < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SubscriptionRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*domain.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID, &s.UUID, &s.UserID, &s.PlanID, &s.ScoutID, &s.CardNumber, &s.Status, &s.CancelAtPeriodEnd,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CanceledAt, &s.PaymentMethodRef,
		&s.IdempotencyKey, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return &s, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const referralSelect = `
	SELECT r.id, r.referrer_id, r.referred_user_id,
		COALESCE(u.first_name || ' ' || u.last_name, ''), COALESCE(u.email, ''),
		r.status, r.reward_cents, r.reward_claimed, r.created_at, r.completed_at
	FROM referrals r
	LEFT JOIN users u ON u.id = r.referred_user_id`

// ReferralRepository handles referral codes and referrals.
type ReferralRepository struct {
	db *pgxpool.Pool
}

// NewReferralRepository creates a new ReferralRepository.
func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// FindCodeByUser returns the user's referral code, or "" if none exists yet.
func (r *ReferralRepository) FindCodeByUser(ctx context.Context, userID string) (string, error) {
	var code string
	err := r.db.QueryRow(ctx, `SELECT code FROM referral_codes WHERE user_id = $1`, userID).Scan(&code)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find referral code: %w", err)
	}
	return code, nil
}

// CreateCode stores code for the user.
func (r *ReferralRepository) CreateCode(ctx context.Context, userID, code string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO referral_codes (user_id, code) VALUES ($1, $2)`, userID, code)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create referral code: %w", err)
	}
	return nil
}

// FindUserByCode returns the owner of code, or "" if the code is unknown.
func (r *ReferralRepository) FindUserByCode(ctx context.Context, code string) (string, error) {
	var userID string
	err := r.db.QueryRow(ctx, `SELECT user_id FROM referral_codes WHERE code = $1`, code).Scan(&userID)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find referral code owner: %w", err)
	}
	return userID, nil
}

// CreateReferral inserts a referral and sets its generated ID.
func (r *ReferralRepository) CreateReferral(ctx context.Context, ref *domain.Referral) error {
	query := `
		INSERT INTO referrals (referrer_id, referred_user_id, status, reward_cents, reward_claimed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		ref.ReferrerID, ref.ReferredUserID, ref.Status, ref.RewardCents, ref.RewardClaimed, ref.CreatedAt,
	).Scan(&ref.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create referral: %w", err)
	}
	return nil
}

// FindByReferred returns the referral through which the user was referred, or nil.
func (r *ReferralRepository) FindByReferred(ctx context.Context, userID string) (*domain.Referral, error) {
	return r.findOne(ctx, referralSelect+` WHERE r.referred_user_id = $1`, userID)
}

// FindByID returns a referral or nil.
func (r *ReferralRepository) FindByID(ctx context.Context, id int64) (*domain.Referral, error) {
	return r.findOne(ctx, referralSelect+` WHERE r.id = $1`, id)
}

// ListByReferrer returns the referrals made by the user, newest first.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, userID string) ([]*domain.Referral, error) {
	rows, err := r.db.Query(ctx, referralSelect+` WHERE r.referrer_id = $1 ORDER BY r.created_at DESC, r.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrals: %w", err)
	}
	defer rows.Close()

	refs := []*domain.Referral{}
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// MarkCompleted moves the user's PENDING referral to COMPLETED. It reports
// whether a referral changed.
func (r *ReferralRepository) MarkCompleted(ctx context.Context, referredUserID string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE referrals SET status = 'COMPLETED', completed_at = $1
		WHERE referred_user_id = $2 AND status = 'PENDING'
	`, at, referredUserID)
	if err != nil {
		return false, fmt.Errorf("failed to complete referral: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRewarded claims the reward of a COMPLETED, unclaimed referral. It
// reports false when another request claimed it first.
func (r *ReferralRepository) MarkRewarded(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE referrals SET status = 'REWARDED', reward_claimed = TRUE
		WHERE id = $1 AND status = 'COMPLETED' AND NOT reward_claimed
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim referral reward: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ReferralRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Referral, error) {
	ref, err := scanReferral(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}

func scanReferral(row pgx.Row) (*domain.Referral, error) {
	var ref domain.Referral
	err := row.Scan(
		&ref.ID, &ref.ReferrerID, &ref.ReferredUserID, &ref.ReferredUserName, &ref.ReferredUserEmail,
		&ref.Status, &ref.RewardCents, &ref.RewardClaimed, &ref.CreatedAt, &ref.CompletedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan referral: %w", err)
	}
	ref.RewardAmount = float64(ref.RewardCents) / 100
	return &ref, nil
}

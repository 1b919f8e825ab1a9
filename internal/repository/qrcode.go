package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	qrColumns        = `id, user_id, unique_code, valid_until, created_at`
	offerLinkColumns = `id, offer_id, user_id, unique_code, expires_at, max_uses, current_uses, created_at`
)

// QRRepository handles user QR codes and shareable offer links.
type QRRepository struct {
	db *pgxpool.Pool
}

// NewQRRepository creates a new QRRepository.
func NewQRRepository(db *pgxpool.Pool) *QRRepository {
	return &QRRepository{db: db}
}

// FindValidUserCode returns the user's newest code still valid at now, or nil.
func (r *QRRepository) FindValidUserCode(ctx context.Context, userID string, now time.Time) (*domain.UserQRCode, error) {
	query := `SELECT ` + qrColumns + ` FROM user_qr_codes
		WHERE user_id = $1 AND valid_until > $2 ORDER BY created_at DESC LIMIT 1`
	return r.findUserCode(ctx, query, userID, now)
}

// FindUserCode returns the QR code with the given unique code, or nil.
func (r *QRRepository) FindUserCode(ctx context.Context, code string) (*domain.UserQRCode, error) {
	return r.findUserCode(ctx, `SELECT `+qrColumns+` FROM user_qr_codes WHERE unique_code = $1`, code)
}

// CreateUserCode inserts a QR code and sets its generated ID.
func (r *QRRepository) CreateUserCode(ctx context.Context, q *domain.UserQRCode) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO user_qr_codes (user_id, unique_code, valid_until, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, q.UserID, q.UniqueCode, q.ValidUntil, q.CreatedAt).Scan(&q.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create qr code: %w", err)
	}
	return nil
}

// CreateOfferLink inserts an offer link and sets its generated ID.
func (r *QRRepository) CreateOfferLink(ctx context.Context, l *domain.OfferLink) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO offer_links (offer_id, user_id, unique_code, expires_at, max_uses, current_uses, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id
	`, l.OfferID, l.UserID, l.UniqueCode, l.ExpiresAt, l.MaxUses, l.CurrentUses, l.CreatedAt).Scan(&l.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create offer link: %w", err)
	}
	return nil
}

// FindOfferLink returns the offer link with the given code, or nil.
func (r *QRRepository) FindOfferLink(ctx context.Context, code string) (*domain.OfferLink, error) {
	l, err := scanOfferLink(r.db.QueryRow(ctx, `SELECT `+offerLinkColumns+` FROM offer_links WHERE unique_code = $1`, code))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// IncrementOfferLinkUse records one use of an unexpired link below its cap
// and returns the updated link. It returns nil when the link is expired,
// exhausted, or unknown.
func (r *QRRepository) IncrementOfferLinkUse(ctx context.Context, code string, now time.Time) (*domain.OfferLink, error) {
	query := `
		UPDATE offer_links SET current_uses = current_uses + 1
		WHERE unique_code = $1 AND expires_at > $2 AND (max_uses IS NULL OR current_uses < max_uses)
		RETURNING ` + offerLinkColumns
	l, err := scanOfferLink(r.db.QueryRow(ctx, query, code, now))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

func (r *QRRepository) findUserCode(ctx context.Context, query string, args ...interface{}) (*domain.UserQRCode, error) {
	var q domain.UserQRCode
	err := r.db.QueryRow(ctx, query, args...).Scan(&q.ID, &q.UserID, &q.UniqueCode, &q.ValidUntil, &q.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan qr code: %w", err)
	}
	return &q, nil
}

func scanOfferLink(row pgx.Row) (*domain.OfferLink, error) {
	var l domain.OfferLink
	err := row.Scan(&l.ID, &l.OfferID, &l.UserID, &l.UniqueCode, &l.ExpiresAt, &l.MaxUses, &l.CurrentUses, &l.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan offer link: %w", err)
	}
	return &l, nil
}

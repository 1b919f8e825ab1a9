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
	qrCodeLength    = 16
	offerCodeLength = 12
	codeAttempts    = 5
)

// QRCodeService issues user QR codes and shareable offer links.
type QRCodeService struct {
	store    QRStore
	users    UserStore
	baseURL  string
	qrTTL    time.Duration
	offerTTL time.Duration
	now      func() time.Time
}

// NewQRCodeService creates a new QRCodeService.
func NewQRCodeService(store QRStore, users UserStore, baseURL string, qrTTL, offerTTL time.Duration) *QRCodeService {
	return &QRCodeService{
		store:    store,
		users:    users,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		qrTTL:    qrTTL,
		offerTTL: offerTTL,
		now:      time.Now,
	}
}

// GetUserQRCode returns the user's valid QR code, issuing a new one when
// none exists.
func (s *QRCodeService) GetUserQRCode(ctx context.Context, userID string) (*domain.QRCodeResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	now := s.now()
	qr, err := s.store.FindValidUserCode(ctx, userID, now)
	if err != nil {
		return nil, domain.ErrInternal("failed to find qr code", err)
	}
	if qr != nil {
		return s.qrResponse(qr), nil
	}

	for i := 0; i < codeAttempts; i++ {
		qr = &domain.UserQRCode{
			UserID:     userID,
			UniqueCode: domain.NewUniqueCode(qrCodeLength),
			ValidUntil: now.Add(s.qrTTL),
			CreatedAt:  now,
		}
		err = s.store.CreateUserCode(ctx, qr)
		if err == nil {
			slog.Info("qr code issued", "user_id", userID)
			return s.qrResponse(qr), nil
		}
		if !errors.Is(err, domain.ErrDuplicateKey) {
			break
		}
	}
	return nil, domain.ErrInternal("failed to create qr code", err)
}

// ValidateQRCode returns the QR code record for code if it is still valid.
func (s *QRCodeService) ValidateQRCode(ctx context.Context, code string) (*domain.QRCodeResponse, error) {
	qr, err := s.store.FindUserCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, domain.ErrInternal("failed to find qr code", err)
	}
	if qr == nil || !qr.Valid(s.now()) {
		return nil, domain.ErrNotFound("qr code not found or expired")
	}
	return s.qrResponse(qr), nil
}

// GenerateOfferLink creates a shareable link to an offer.
func (s *QRCodeService) GenerateOfferLink(ctx context.Context, req *domain.GenerateLinkRequest) (*domain.ShareableLinkResponse, error) {
	now := s.now()
	ttl := s.offerTTL
	if req.ExpiresInDays != nil {
		ttl = time.Duration(*req.ExpiresInDays) * 24 * time.Hour
	}

	var (
		link *domain.OfferLink
		err  error
	)
	for i := 0; i < codeAttempts; i++ {
		link = &domain.OfferLink{
			OfferID:    req.OfferID,
			UserID:     req.UserID,
			UniqueCode: domain.NewUniqueCode(offerCodeLength),
			ExpiresAt:  now.Add(ttl),
			MaxUses:    req.MaxUses,
			CreatedAt:  now,
		}
		err = s.store.CreateOfferLink(ctx, link)
		if err == nil || !errors.Is(err, domain.ErrDuplicateKey) {
			break
		}
	}
	if err != nil {
		return nil, domain.ErrInternal("failed to create offer link", err)
	}

	slog.Info("offer link generated", "offer_id", link.OfferID, "code", link.UniqueCode)
	return &domain.ShareableLinkResponse{
		OfferID:       link.OfferID,
		UserID:        link.UserID,
		UniqueCode:    link.UniqueCode,
		ShareableLink: s.baseURL + "/offers/" + link.UniqueCode,
		ExpiresAt:     link.ExpiresAt,
		MaxUses:       link.MaxUses,
		CurrentUses:   link.CurrentUses,
		CreatedAt:     link.CreatedAt,
	}, nil
}

// ValidateOfferLink returns the record of a live link without using it.
// Valid is false once the usage cap is reached.
func (s *QRCodeService) ValidateOfferLink(ctx context.Context, code string) (*domain.OfferLinkRecord, error) {
	link, err := s.store.FindOfferLink(ctx, normalizeCode(code))
	if err != nil {
		return nil, domain.ErrInternal("failed to find offer link", err)
	}
	if link == nil || !s.now().Before(link.ExpiresAt) {
		return nil, domain.ErrNotFound("offer link not found or expired")
	}
	return offerRecord(link, !link.Exhausted()), nil
}

// RedeemOfferLink records one use of a live link and returns its record.
func (s *QRCodeService) RedeemOfferLink(ctx context.Context, code string) (*domain.OfferLinkRecord, error) {
	code = normalizeCode(code)
	now := s.now()

	link, err := s.store.IncrementOfferLinkUse(ctx, code, now)
	if err != nil {
		return nil, domain.ErrInternal("failed to record offer link use", err)
	}
	if link == nil {
		existing, err := s.store.FindOfferLink(ctx, code)
		if err != nil {
			return nil, domain.ErrInternal("failed to find offer link", err)
		}
		if existing == nil || !now.Before(existing.ExpiresAt) {
			return nil, domain.ErrNotFound("offer link not found or expired")
		}
		return nil, domain.ErrIllegalState("offer link usage limit reached")
	}

	slog.Info("offer link redeemed", "offer_id", link.OfferID, "uses", link.CurrentUses)
	return offerRecord(link, true), nil
}

func offerRecord(link *domain.OfferLink, valid bool) *domain.OfferLinkRecord {
	return &domain.OfferLinkRecord{
		OfferID:     link.OfferID,
		UserID:      link.UserID,
		UniqueCode:  link.UniqueCode,
		CurrentUses: link.CurrentUses,
		MaxUses:     link.MaxUses,
		ExpiresAt:   link.ExpiresAt,
		Valid:       valid,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *QRCodeService) qrResponse(qr *domain.UserQRCode) *domain.QRCodeResponse {
	link := s.baseURL + "/u/" + qr.UniqueCode
	return &domain.QRCodeResponse{
		UserID:        qr.UserID,
		UniqueCode:    qr.UniqueCode,
		QRCodeData:    link,
		ShareableLink: link,
		ValidUntil:    qr.ValidUntil,
		CreatedAt:     qr.CreatedAt,
	}
}

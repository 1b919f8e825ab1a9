package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserQRCode binds a unique scannable code to a user.
type UserQRCode struct {
	ID         int64
	UserID     string
	UniqueCode string
	ValidUntil time.Time
	CreatedAt  time.Time
}

// Valid reports whether the code is still usable at now.
func (q *UserQRCode) Valid(now time.Time) bool {
	return now.Before(q.ValidUntil)
}

// QRCodeResponse is the generated artifact for a user's QR code. QRCodeData
// is the payload a client renders as an image.
type QRCodeResponse struct {
	UserID        string    `json:"userId"`
	UniqueCode    string    `json:"uniqueCode"`
	QRCodeData    string    `json:"qrCodeData"`
	ShareableLink string    `json:"shareableLink"`
	ValidUntil    time.Time `json:"validUntil"`
	CreatedAt     time.Time `json:"createdAt"`
}

// OfferLink is a shareable link to a merchant offer with an optional usage
// cap.
type OfferLink struct {
	ID          int64     `json:"-"`
	OfferID     int64     `json:"offerId"`
	UserID      *string   `json:"userId"`
	UniqueCode  string    `json:"uniqueCode"`
	ExpiresAt   time.Time `json:"expiresAt"`
	MaxUses     *int      `json:"maxUses"`
	CurrentUses int       `json:"currentUses"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Exhausted reports whether the usage cap has been reached.
func (l *OfferLink) Exhausted() bool {
	return l.MaxUses != nil && l.CurrentUses >= *l.MaxUses
}

// ShareableLinkResponse is returned when an offer link is generated.
type ShareableLinkResponse struct {
	OfferID       int64     `json:"offerId"`
	UserID        *string   `json:"userId"`
	UniqueCode    string    `json:"uniqueCode"`
	ShareableLink string    `json:"shareableLink"`
	ExpiresAt     time.Time `json:"expiresAt"`
	MaxUses       *int      `json:"maxUses"`
	CurrentUses   int       `json:"currentUses"`
	CreatedAt     time.Time `json:"createdAt"`
}

// OfferLinkRecord is the raw linkage and usage record returned when a link
// is validated.
type OfferLinkRecord struct {
	OfferID     int64     `json:"offerId"`
	UserID      *string   `json:"userId"`
	UniqueCode  string    `json:"uniqueCode"`
	CurrentUses int       `json:"currentUses"`
	MaxUses     *int      `json:"maxUses"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Valid       bool      `json:"valid"`
}

// GenerateLinkRequest is the input for generating an offer link.
type GenerateLinkRequest struct {
	OfferID       int64   `json:"offerId" validate:"required,gt=0"`
	UserID        *string `json:"userId" validate:"omitempty,uuid"`
	ExpiresInDays *int    `json:"expiresInDays" validate:"omitempty,gt=0,lte=365"`
	MaxUses       *int    `json:"maxUses" validate:"omitempty,gt=0"`
}

// NewUniqueCode returns a random uppercase token of n hex characters
// (n ≤ 32).
func NewUniqueCode(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > 0 && n < len(s) {
		return s[:n]
	}
	return s
}

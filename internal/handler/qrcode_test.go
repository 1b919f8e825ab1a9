package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeQRCodes struct {
	QRCodeManager
	calls    int
	lastCode string
	err      error
}

func (f *fakeQRCodes) record(code string) (*domain.OfferLinkRecord, error) {
	f.calls++
	f.lastCode = code
	if f.err != nil {
		return nil, f.err
	}
	return &domain.OfferLinkRecord{OfferID: 42, UniqueCode: code, CurrentUses: 1, Valid: true}, nil
}

func (f *fakeQRCodes) ValidateOfferLink(ctx context.Context, code string) (*domain.OfferLinkRecord, error) {
	return f.record(code)
}

func (f *fakeQRCodes) RedeemOfferLink(ctx context.Context, code string) (*domain.OfferLinkRecord, error) {
	return f.record(code)
}

func (f *fakeQRCodes) ValidateQRCode(ctx context.Context, code string) (*domain.QRCodeResponse, error) {
	f.calls++
	f.lastCode = code
	if f.err != nil {
		return nil, f.err
	}
	return &domain.QRCodeResponse{UniqueCode: code}, nil
}

func (f *fakeQRCodes) GetUserQRCode(ctx context.Context, userID string) (*domain.QRCodeResponse, error) {
	f.calls++
	f.lastCode = userID
	return &domain.QRCodeResponse{UserID: userID, UniqueCode: "ABCDEF0123456789"}, nil
}

func (f *fakeQRCodes) GenerateOfferLink(ctx context.Context, req *domain.GenerateLinkRequest) (*domain.ShareableLinkResponse, error) {
	f.calls++
	return &domain.ShareableLinkResponse{
		OfferID:    req.OfferID,
		UniqueCode: "ABCDEF012345",
		ExpiresAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		MaxUses:    req.MaxUses,
	}, nil
}

func TestGenerateOfferLink(t *testing.T) {
	const path = "/api/v1/offers/generate-link"

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalls  int
	}{
		{"generates", `{"offerId":42,"maxUses":3,"expiresInDays":7}`, http.StatusOK, 1},
		{"missing offer id", `{"maxUses":3}`, http.StatusBadRequest, 0},
		{"zero max uses", `{"offerId":42,"maxUses":0}`, http.StatusBadRequest, 0},
		{"expiry beyond a year", `{"offerId":42,"expiresInDays":400}`, http.StatusBadRequest, 0},
		{"user id not a uuid", `{"offerId":42,"userId":"bob"}`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeQRCodes{}
			rec := serve(NewQRCodeHandler(fake).GenerateOfferLink, http.MethodPost, path, path, tt.body, scout)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			require.Equal(t, tt.wantCalls, fake.calls)
		})
	}
}

func TestOfferLinkEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		pattern    string
		target     string
		err        error
		wantStatus int
	}{
		{"validate", http.MethodGet, "/api/v1/offers/link/{code}", "/api/v1/offers/link/ABC", nil, http.StatusOK},
		{"validate unknown", http.MethodGet, "/api/v1/offers/link/{code}", "/api/v1/offers/link/ABC",
			domain.ErrNotFound("offer link not found or expired"), http.StatusNotFound},
		{"redeem", http.MethodPost, "/api/v1/offers/link/{code}/redeem", "/api/v1/offers/link/ABC/redeem", nil, http.StatusOK},
		{"redeem unknown", http.MethodPost, "/api/v1/offers/link/{code}/redeem", "/api/v1/offers/link/ABC/redeem",
			domain.ErrNotFound("offer link not found or expired"), http.StatusNotFound},
		{"redeem exhausted", http.MethodPost, "/api/v1/offers/link/{code}/redeem", "/api/v1/offers/link/ABC/redeem",
			domain.ErrIllegalState("offer link usage limit reached"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeQRCodes{err: tt.err}
			h := NewQRCodeHandler(fake)
			op := h.ValidateOfferLink
			if tt.method == http.MethodPost {
				op = h.RedeemOfferLink
			}

			rec := serve(op, tt.method, tt.pattern, tt.target, "", scout)

			require.Equal(t, tt.wantStatus, rec.Code)
			require.Equal(t, 1, fake.calls)
			require.Equal(t, "ABC", fake.lastCode)
			if tt.err == nil {
				require.Equal(t, int64(42), decodeBody[domain.OfferLinkRecord](t, rec).OfferID)
			}
		})
	}
}

func TestValidateQRCode(t *testing.T) {
	const pattern = "/api/v1/qr/validate/{code}"

	fake := &fakeQRCodes{}
	rec := serve(NewQRCodeHandler(fake).ValidateQRCode, http.MethodGet, pattern, "/api/v1/qr/validate/ABCD", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ABCD", decodeBody[domain.QRCodeResponse](t, rec).UniqueCode)

	fake = &fakeQRCodes{err: domain.ErrNotFound("qr code not found or expired")}
	rec = serve(NewQRCodeHandler(fake).ValidateQRCode, http.MethodGet, pattern, "/api/v1/qr/validate/NOPE", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, domain.KindNotFound, decodeError(t, rec).Code)
	require.Equal(t, 1, fake.calls)
}

func TestUserQRCode_UsesPathID(t *testing.T) {
	fake := &fakeQRCodes{}
	rec := serve(NewQRCodeHandler(fake).UserQRCode, http.MethodGet, "/api/v1/users/{id}/qr-code", "/api/v1/users/u-7/qr-code", "", admin)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u-7", fake.lastCode)
	require.Equal(t, "u-7", decodeBody[domain.QRCodeResponse](t, rec).UserID)
}

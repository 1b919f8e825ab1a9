package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDeclined is returned when the processor refuses a payment method.
var ErrDeclined = errors.New("payment method declined")

// Gateway defines the interface for payment providers.
type Gateway interface {
	// AttachPaymentMethod binds a client-side payment method token to a
	// customer and returns the processor's reference for it.
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (string, error)
	// Charge collects an amount in minor units against an attached method.
	Charge(ctx context.Context, req ChargeRequest) (*Transaction, error)
}

// ChargeRequest describes a single charge.
type ChargeRequest struct {
	CustomerID       string
	PaymentMethodRef string
	AmountCents      int64
	Currency         string
	IdempotencyKey   string
	Description      string
}

// TransactionStatus constants
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Transaction represents a payment transaction.
type Transaction struct {
	ID        string
	OrderID   string
	Amount    int64
	Currency  string
	Status    string
	CreatedAt time.Time
}

// MockGateway accepts every payment method except tokens starting with
// "pm_declined". It stands in for a real processor.
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (string, error) {
	if strings.HasPrefix(paymentMethodID, "pm_declined") {
		return "", ErrDeclined
	}
	return "mock_" + customerID + "_" + paymentMethodID, nil
}

func (g *MockGateway) Charge(ctx context.Context, req ChargeRequest) (*Transaction, error) {
	if strings.Contains(req.PaymentMethodRef, "pm_declined") {
		return nil, ErrDeclined
	}
	orderID := req.IdempotencyKey
	if orderID == "" {
		orderID = uuid.NewString()
	}
	return &Transaction{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Amount:    req.AmountCents,
		Currency:  req.Currency,
		Status:    StatusSuccess,
		CreatedAt: time.Now(),
	}, nil
}

package domain

import "time"

// Subscription statuses.
const (
	SubscriptionActive   = "ACTIVE"
	SubscriptionCanceled = "CANCELED"
	SubscriptionExpired  = "EXPIRED"
)

// Subscription is a purchased camp card. It is never hard-deleted.
type Subscription struct {
	ID                 int64      `json:"id"`
	UUID               string     `json:"uuid"`
	UserID             string     `json:"userId"`
	PlanID             int64      `json:"planId"`
	ScoutID            *string    `json:"scoutId,omitempty"`
	CardNumber         string     `json:"cardNumber"`
	Status             string     `json:"status"`
	CancelAtPeriodEnd  bool       `json:"cancelAtPeriodEnd"`
	CurrentPeriodStart time.Time  `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `json:"currentPeriodEnd"`
	CanceledAt         *time.Time `json:"canceledAt,omitempty"`
	PaymentMethodRef   string     `json:"-"` // encrypted
	IdempotencyKey     *string    `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// SubscriptionResponse is the caller's view of their subscription.
type SubscriptionResponse struct {
	ID                 int64             `json:"id"`
	UUID               string            `json:"uuid"`
	UserID             string            `json:"userId"`
	CardNumber         string            `json:"cardNumber"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancelAtPeriodEnd"`
	CurrentPeriodStart time.Time         `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time         `json:"currentPeriodEnd"`
	CanceledAt         *time.Time        `json:"canceledAt,omitempty"`
	HasPaymentMethod   bool              `json:"hasPaymentMethod"`
	Plan               *SubscriptionPlan `json:"plan,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
}

// CampCardResponse is the admin view of a subscription card.
type CampCardResponse struct {
	ID                 int64     `json:"id"`
	UUID               string    `json:"uuid"`
	UserID             string    `json:"userId"`
	CardNumber         string    `json:"cardNumber"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	CurrentPeriodStart time.Time `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time `json:"currentPeriodEnd"`
}

// NewCampCardResponse projects a subscription into the admin card view.
func NewCampCardResponse(s *Subscription) CampCardResponse {
	return CampCardResponse{
		ID:                 s.ID,
		UUID:               s.UUID,
		UserID:             s.UserID,
		CardNumber:         s.CardNumber,
		Status:             s.Status,
		CreatedAt:          s.CreatedAt,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
	}
}

// CreateSubscriptionRequest is the input for purchasing a camp card.
type CreateSubscriptionRequest struct {
	PlanUUID        string  `json:"planUuid" validate:"required,uuid"`
	PaymentMethodID *string `json:"paymentMethodId" validate:"omitempty,min=1"`
	ScoutID         *string `json:"scoutId" validate:"omitempty,uuid"`
	ReferralCode    *string `json:"referralCode"`
}

// UpdateSubscriptionRequest toggles cancel-at-period-end and/or swaps the
// payment method. At least one field must be set.
type UpdateSubscriptionRequest struct {
	CancelAtPeriodEnd *bool   `json:"cancelAtPeriodEnd"`
	PaymentMethodID   *string `json:"paymentMethodId" validate:"omitempty,min=1"`
}

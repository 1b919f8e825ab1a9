package domain

import "time"

// Billing intervals.
const (
	IntervalMonthly = "MONTHLY"
	IntervalAnnual  = "ANNUAL"
)

// SubscriptionPlan is immutable reference data describing a card product.
type SubscriptionPlan struct {
	ID              int64    `json:"id"`
	UUID            string   `json:"uuid"`
	CouncilID       *string  `json:"councilId,omitempty"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	PriceCents      int64    `json:"priceCents"`
	Currency        string   `json:"currency"`
	BillingInterval string   `json:"billingInterval"`
	TrialDays       int      `json:"trialDays"`
	Features        []string `json:"features"`
}

// NextPeriodEnd returns the end of one billing interval starting at from.
func (p *SubscriptionPlan) NextPeriodEnd(from time.Time) time.Time {
	switch p.BillingInterval {
	case IntervalMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(1, 0, 0)
	}
}

// DefaultPlans are seeded on first startup.
func DefaultPlans() []SubscriptionPlan {
	return []SubscriptionPlan{
		{
			UUID:            "5f0c7a52-4f0e-4d7c-9f59-0a4b1b7e6a01",
			Name:            "Camp Card Annual",
			Description:     "Twelve months of local merchant offers",
			PriceCents:      2999,
			Currency:        "USD",
			BillingInterval: IntervalAnnual,
			TrialDays:       0,
			Features:        []string{"All local offers", "Digital card", "Supports your troop"},
		},
		{
			UUID:            "5f0c7a52-4f0e-4d7c-9f59-0a4b1b7e6a02",
			Name:            "Camp Card Monthly",
			Description:     "Month-to-month access to local merchant offers",
			PriceCents:      399,
			Currency:        "USD",
			BillingInterval: IntervalMonthly,
			TrialDays:       7,
			Features:        []string{"All local offers", "Digital card"},
		},
	}
}

package domain

import "time"

// Referral statuses. A referral moves PENDING → COMPLETED → REWARDED.
const (
	ReferralPending   = "PENDING"
	ReferralCompleted = "COMPLETED"
	ReferralRewarded  = "REWARDED"
)

// Referral links a referrer to a user who signed up with their code.
type Referral struct {
	ID                int64      `json:"id"`
	ReferrerID        string     `json:"referrerId"`
	ReferredUserID    string     `json:"referredUserId"`
	ReferredUserName  string     `json:"referredUserName"`
	ReferredUserEmail string     `json:"referredUserEmail"`
	Status            string     `json:"status"`
	RewardCents       int64      `json:"-"`
	RewardAmount      float64    `json:"rewardAmount"`
	RewardClaimed     bool       `json:"rewardClaimed"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt"`
}

// Claimable reports whether the reward may be claimed now.
func (r *Referral) Claimable() bool {
	return r.Status == ReferralCompleted && !r.RewardClaimed
}

// ReferralCodeResponse is the caller's code plus aggregate counters.
type ReferralCodeResponse struct {
	ReferralCode        string  `json:"referralCode"`
	ShareableLink       string  `json:"shareableLink"`
	TotalReferrals      int     `json:"totalReferrals"`
	SuccessfulReferrals int     `json:"successfulReferrals"`
	TotalRewardsEarned  float64 `json:"totalRewardsEarned"`
	PendingRewards      float64 `json:"pendingRewards"`
}

// ApplyReferralRequest is the input for applying someone's code.
type ApplyReferralRequest struct {
	ReferralCode *string `json:"referralCode"`
}

// ReferralStats aggregates a referrer's referrals.
func ReferralStats(code, link string, referrals []*Referral) *ReferralCodeResponse {
	resp := &ReferralCodeResponse{
		ReferralCode:   code,
		ShareableLink:  link,
		TotalReferrals: len(referrals),
	}
	var earned, pending int64
	for _, r := range referrals {
		switch r.Status {
		case ReferralRewarded:
			resp.SuccessfulReferrals++
			earned += r.RewardCents
		case ReferralCompleted:
			resp.SuccessfulReferrals++
			if !r.RewardClaimed {
				pending += r.RewardCents
			}
		}
	}
	resp.TotalRewardsEarned = float64(earned) / 100
	resp.PendingRewards = float64(pending) / 100
	return resp
}

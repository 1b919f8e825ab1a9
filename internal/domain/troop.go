package domain

import (
	"math"
	"time"
)

// Troop statuses.
const (
	TroopActive    = "ACTIVE"
	TroopInactive  = "INACTIVE"
	TroopSuspended = "SUSPENDED"
	TroopArchived  = "ARCHIVED"
)

// Troop is a scouting unit selling camp cards. The statistics block is
// derived and only refreshed on demand.
type Troop struct {
	ID                   int64     `json:"id"`
	UUID                 string    `json:"uuid"`
	TroopNumber          string    `json:"troopNumber"`
	CouncilID            string    `json:"councilId"`
	TroopName            string    `json:"troopName"`
	TroopType            string    `json:"troopType"`
	CharterOrganization  string    `json:"charterOrganization"`
	MeetingLocation      string    `json:"meetingLocation"`
	MeetingDay           string    `json:"meetingDay"`
	MeetingTime          string    `json:"meetingTime"`
	ScoutmasterID        *string   `json:"scoutmasterId,omitempty"`
	ScoutmasterName      string    `json:"scoutmasterName"`
	ScoutmasterEmail     string    `json:"scoutmasterEmail"`
	ScoutmasterPhone     string    `json:"scoutmasterPhone"`
	TotalScouts          int       `json:"totalScouts"`
	ActiveScouts         int       `json:"activeScouts"`
	TotalSales           float64   `json:"totalSales"`
	CardsSold            int       `json:"cardsSold"`
	GoalAmount           float64   `json:"goalAmount"`
	GoalProgress         float64   `json:"goalProgress"`
	AverageSalesPerScout float64   `json:"averageSalesPerScout"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// TroopSalesTotals is the raw aggregate from which troop statistics are
// derived.
type TroopSalesTotals struct {
	TotalScouts     int
	ActiveScouts    int
	CardsSold       int
	TotalSalesCents int64
}

// ApplyStats recomputes the derived statistics of t from raw totals.
func (t *Troop) ApplyStats(s TroopSalesTotals) {
	t.TotalScouts = s.TotalScouts
	t.ActiveScouts = s.ActiveScouts
	t.CardsSold = s.CardsSold
	t.TotalSales = round2(float64(s.TotalSalesCents) / 100)
	t.RecomputeRatios()
}

// RecomputeRatios derives goal progress and average sales from the current
// totals. Both are zero when their denominator is zero.
func (t *Troop) RecomputeRatios() {
	t.GoalProgress = 0
	if t.GoalAmount > 0 {
		t.GoalProgress = round2(t.TotalSales / t.GoalAmount * 100)
	}
	t.AverageSalesPerScout = 0
	if t.TotalScouts > 0 {
		t.AverageSalesPerScout = round2(t.TotalSales / float64(t.TotalScouts))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TroopRequest is the input for creating or updating a troop.
type TroopRequest struct {
	TroopNumber         string  `json:"troopNumber" validate:"required,alphanum,max=20"`
	CouncilID           string  `json:"councilId" validate:"required"`
	TroopName           string  `json:"troopName" validate:"required,max=200"`
	TroopType           string  `json:"troopType" validate:"omitempty,max=50"`
	CharterOrganization string  `json:"charterOrganization" validate:"omitempty,max=200"`
	MeetingLocation     string  `json:"meetingLocation"`
	MeetingDay          string  `json:"meetingDay"`
	MeetingTime         string  `json:"meetingTime"`
	ScoutmasterID       *string `json:"scoutmasterId" validate:"omitempty,uuid"`
	ScoutmasterName     string  `json:"scoutmasterName"`
	ScoutmasterEmail    string  `json:"scoutmasterEmail" validate:"omitempty,email"`
	ScoutmasterPhone    string  `json:"scoutmasterPhone"`
	GoalAmount          float64 `json:"goalAmount" validate:"gte=0"`
}

// TroopStatusRequest is the input for a status transition.
type TroopStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE SUSPENDED ARCHIVED"`
}

// TroopSort selects the ordering of troop listings.
type TroopSort struct {
	Field string
	Desc  bool
}

// TroopFilter narrows a troop listing. Empty fields do not filter.
type TroopFilter struct {
	Search    string
	CouncilID string
}

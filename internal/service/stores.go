package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
)

// The store interfaces below are satisfied by the pgx repositories in
// internal/repository. Services depend on them so tests can substitute
// in-memory fakes.

type SubscriptionStore interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	FindActiveByUser(ctx context.Context, userID string) (*domain.Subscription, error)
	FindLatestByUser(ctx context.Context, userID string) (*domain.Subscription, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Subscription, error)
	FindByUUID(ctx context.Context, id string) (*domain.Subscription, error)
	List(ctx context.Context, page domain.PageRequest) ([]*domain.Subscription, int64, error)
	Update(ctx context.Context, sub *domain.Subscription) error
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

type PlanStore interface {
	ListPlans(ctx context.Context, councilID *string) ([]domain.SubscriptionPlan, error)
	FindPlanByUUID(ctx context.Context, id string) (*domain.SubscriptionPlan, error)
	FindPlanByID(ctx context.Context, id int64) (*domain.SubscriptionPlan, error)
}

type TroopStore interface {
	Create(ctx context.Context, t *domain.Troop) error
	Update(ctx context.Context, t *domain.Troop) error
	FindByID(ctx context.Context, id int64) (*domain.Troop, error)
	FindByNumber(ctx context.Context, number string) (*domain.Troop, error)
	FindByUUID(ctx context.Context, id string) (*domain.Troop, error)
	List(ctx context.Context, filter domain.TroopFilter, sort domain.TroopSort, page domain.PageRequest) ([]*domain.Troop, int64, error)
	TopPerformers(ctx context.Context, councilID *string, limit int) ([]*domain.Troop, error)
	SalesTotals(ctx context.Context, troopUUID string) (domain.TroopSalesTotals, error)
	CountActiveScouts(ctx context.Context, troopUUID string) (int, error)
	ListIDsByStatus(ctx context.Context, status string) ([]int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Exists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, page domain.PageRequest) ([]*domain.User, int64, error)
	Search(ctx context.Context, q string, page domain.PageRequest) ([]*domain.User, int64, error)
	ListByCouncil(ctx context.Context, councilID string, page domain.PageRequest) ([]*domain.User, int64, error)
	ListByTroop(ctx context.Context, troopID string) ([]*domain.User, error)
	ListScoutsByTroop(ctx context.Context, troopID string) ([]*domain.User, error)
	ListUnassignedScouts(ctx context.Context, councilID *string) ([]*domain.User, error)
	SetTroop(ctx context.Context, userID string, troopID *string) error
	Delete(ctx context.Context, id string) (bool, error)
}

type ReferralStore interface {
	FindCodeByUser(ctx context.Context, userID string) (string, error)
	CreateCode(ctx context.Context, userID, code string) error
	FindUserByCode(ctx context.Context, code string) (string, error)
	CreateReferral(ctx context.Context, ref *domain.Referral) error
	FindByReferred(ctx context.Context, userID string) (*domain.Referral, error)
	FindByID(ctx context.Context, id int64) (*domain.Referral, error)
	ListByReferrer(ctx context.Context, userID string) ([]*domain.Referral, error)
	MarkCompleted(ctx context.Context, referredUserID string, at time.Time) (bool, error)
	MarkRewarded(ctx context.Context, id int64) (bool, error)
}

type QRStore interface {
	FindValidUserCode(ctx context.Context, userID string, now time.Time) (*domain.UserQRCode, error)
	FindUserCode(ctx context.Context, code string) (*domain.UserQRCode, error)
	CreateUserCode(ctx context.Context, q *domain.UserQRCode) error
	CreateOfferLink(ctx context.Context, l *domain.OfferLink) error
	FindOfferLink(ctx context.Context, code string) (*domain.OfferLink, error)
	IncrementOfferLinkUse(ctx context.Context, code string, now time.Time) (*domain.OfferLink, error)
}

type LocationStore interface {
	SearchPlaces(ctx context.Context, q domain.PlaceQuery) ([]*domain.Place, error)
	FindPlace(ctx context.Context, id string) (*domain.Place, error)
	SavePosition(ctx context.Context, p *domain.DevicePosition) error
	FindPosition(ctx context.Context, deviceID string) (*domain.DevicePosition, error)
	UpsertGeofence(ctx context.Context, g *domain.Geofence) error
	DeleteGeofence(ctx context.Context, merchantID int64) (bool, error)
	ListGeofences(ctx context.Context) ([]*domain.Geofence, error)
}

// Cache is a JSON key/value cache with age-bounded reads.
type Cache interface {
	Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, error)
	Set(ctx context.Context, key string, data json.RawMessage) error
}

// Sealer encrypts secrets before they are stored and decrypts them for use.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

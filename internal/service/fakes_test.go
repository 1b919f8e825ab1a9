package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
)

// In-memory stores used by the service tests.

type memUsers struct {
	byID map[string]*domain.User
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return domain.ErrDuplicateKey
		}
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) Update(ctx context.Context, u *domain.User) error {
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return m.byID[id], nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) Exists(ctx context.Context, email string) (bool, error) {
	u, _ := m.FindByEmail(ctx, email)
	return u != nil, nil
}

func (m *memUsers) filter(keep func(*domain.User) bool) []*domain.User {
	out := []*domain.User{}
	for _, u := range m.byID {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func pageOf[T any](all []T, page domain.PageRequest) ([]T, int64) {
	start := min(page.Offset(), len(all))
	end := min(start+page.Size, len(all))
	return all[start:end], int64(len(all))
}

func (m *memUsers) List(ctx context.Context, page domain.PageRequest) ([]*domain.User, int64, error) {
	users, total := pageOf(m.filter(func(*domain.User) bool { return true }), page)
	return users, total, nil
}

func (m *memUsers) Search(ctx context.Context, q string, page domain.PageRequest) ([]*domain.User, int64, error) {
	q = strings.ToLower(q)
	users, total := pageOf(m.filter(func(u *domain.User) bool {
		return strings.Contains(strings.ToLower(u.Email+" "+u.FirstName+" "+u.LastName), q)
	}), page)
	return users, total, nil
}

func (m *memUsers) ListByCouncil(ctx context.Context, councilID string, page domain.PageRequest) ([]*domain.User, int64, error) {
	users, total := pageOf(m.filter(func(u *domain.User) bool {
		return u.CouncilID != nil && *u.CouncilID == councilID
	}), page)
	return users, total, nil
}

func (m *memUsers) ListByTroop(ctx context.Context, troopID string) ([]*domain.User, error) {
	return m.filter(func(u *domain.User) bool { return u.TroopID != nil && *u.TroopID == troopID }), nil
}

func (m *memUsers) ListScoutsByTroop(ctx context.Context, troopID string) ([]*domain.User, error) {
	return m.filter(func(u *domain.User) bool {
		return u.Role == domain.RoleScout && u.TroopID != nil && *u.TroopID == troopID
	}), nil
}

func (m *memUsers) ListUnassignedScouts(ctx context.Context, councilID *string) ([]*domain.User, error) {
	return m.filter(func(u *domain.User) bool {
		if u.Role != domain.RoleScout || u.TroopID != nil {
			return false
		}
		return councilID == nil || (u.CouncilID != nil && *u.CouncilID == *councilID)
	}), nil
}

func (m *memUsers) SetTroop(ctx context.Context, userID string, troopID *string) error {
	if u, ok := m.byID[userID]; ok {
		u.TroopID = troopID
	}
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

type memTroops struct {
	byID         map[int64]*domain.Troop
	nextID       int64
	totals       map[string]domain.TroopSalesTotals
	activeScouts map[string]int
	lastFilter   domain.TroopFilter
	lastCouncil  *string
}

func newMemTroops(troops ...*domain.Troop) *memTroops {
	m := &memTroops{
		byID:         map[int64]*domain.Troop{},
		totals:       map[string]domain.TroopSalesTotals{},
		activeScouts: map[string]int{},
	}
	for _, t := range troops {
		m.byID[t.ID] = t
		m.nextID = max(m.nextID, t.ID)
	}
	return m
}

func (m *memTroops) Create(ctx context.Context, t *domain.Troop) error {
	for _, existing := range m.byID {
		if existing.TroopNumber == t.TroopNumber {
			return domain.ErrDuplicateKey
		}
	}
	m.nextID++
	t.ID = m.nextID
	m.byID[t.ID] = t
	return nil
}

func (m *memTroops) Update(ctx context.Context, t *domain.Troop) error {
	m.byID[t.ID] = t
	return nil
}

func (m *memTroops) FindByID(ctx context.Context, id int64) (*domain.Troop, error) {
	return m.byID[id], nil
}

func (m *memTroops) FindByNumber(ctx context.Context, number string) (*domain.Troop, error) {
	for _, t := range m.byID {
		if t.TroopNumber == number {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memTroops) FindByUUID(ctx context.Context, id string) (*domain.Troop, error) {
	for _, t := range m.byID {
		if t.UUID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memTroops) sorted() []*domain.Troop {
	out := make([]*domain.Troop, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memTroops) List(ctx context.Context, filter domain.TroopFilter, _ domain.TroopSort, page domain.PageRequest) ([]*domain.Troop, int64, error) {
	m.lastFilter = filter
	var matched []*domain.Troop
	for _, t := range m.sorted() {
		if filter.CouncilID != "" && t.CouncilID != filter.CouncilID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.TroopName+" "+t.TroopNumber), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, t)
	}
	troops, total := pageOf(matched, page)
	return troops, total, nil
}

func (m *memTroops) TopPerformers(ctx context.Context, councilID *string, limit int) ([]*domain.Troop, error) {
	m.lastCouncil = councilID
	var out []*domain.Troop
	for _, t := range m.sorted() {
		if councilID == nil || t.CouncilID == *councilID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalSales > out[j].TotalSales })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTroops) SalesTotals(ctx context.Context, troopUUID string) (domain.TroopSalesTotals, error) {
	return m.totals[troopUUID], nil
}

func (m *memTroops) CountActiveScouts(ctx context.Context, troopUUID string) (int, error) {
	return m.activeScouts[troopUUID], nil
}

func (m *memTroops) ListIDsByStatus(ctx context.Context, status string) ([]int64, error) {
	var ids []int64
	for _, t := range m.sorted() {
		if t.Status == status {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

func (m *memTroops) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

type memSubs struct {
	subs    []*domain.Subscription
	nextID  int64
	creates int
	// createErrs are returned, in order, by the next Create calls.
	createErrs []error
}

func (m *memSubs) Create(ctx context.Context, sub *domain.Subscription) error {
	m.creates++
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		return err
	}
	for _, s := range m.subs {
		switch {
		case s.UserID == sub.UserID && s.Status == domain.SubscriptionActive && sub.Status == domain.SubscriptionActive:
			return domain.ErrActiveSubscriptionExists
		case s.UserID == sub.UserID && s.IdempotencyKey != nil && sub.IdempotencyKey != nil && *s.IdempotencyKey == *sub.IdempotencyKey:
			return domain.ErrIdempotencyKeyUsed
		case s.CardNumber == sub.CardNumber || s.UUID == sub.UUID:
			return domain.ErrDuplicateKey
		}
	}
	m.nextID++
	sub.ID = m.nextID
	m.subs = append(m.subs, sub)
	return nil
}

func (m *memSubs) FindActiveByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	for i := len(m.subs) - 1; i >= 0; i-- {
		if s := m.subs[i]; s.UserID == userID && s.Status == domain.SubscriptionActive {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memSubs) FindLatestByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	for i := len(m.subs) - 1; i >= 0; i-- {
		if m.subs[i].UserID == userID {
			return m.subs[i], nil
		}
	}
	return nil, nil
}

func (m *memSubs) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Subscription, error) {
	for _, s := range m.subs {
		if s.UserID == userID && s.IdempotencyKey != nil && *s.IdempotencyKey == key {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memSubs) FindByUUID(ctx context.Context, id string) (*domain.Subscription, error) {
	for _, s := range m.subs {
		if s.UUID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memSubs) List(ctx context.Context, page domain.PageRequest) ([]*domain.Subscription, int64, error) {
	newest := make([]*domain.Subscription, len(m.subs))
	for i, s := range m.subs {
		newest[len(m.subs)-1-i] = s
	}
	subs, total := pageOf(newest, page)
	return subs, total, nil
}

func (m *memSubs) Update(ctx context.Context, sub *domain.Subscription) error {
	return nil
}

func (m *memSubs) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, s := range m.subs {
		if s.Status == domain.SubscriptionActive && s.CancelAtPeriodEnd && s.CurrentPeriodEnd.Before(now) {
			s.Status = domain.SubscriptionExpired
			n++
		}
	}
	return n, nil
}

type memPlans struct {
	plans []domain.SubscriptionPlan
}

func (m *memPlans) ListPlans(ctx context.Context, councilID *string) ([]domain.SubscriptionPlan, error) {
	out := []domain.SubscriptionPlan{}
	for _, p := range m.plans {
		if p.CouncilID == nil || (councilID != nil && *p.CouncilID == *councilID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPlans) FindPlanByUUID(ctx context.Context, id string) (*domain.SubscriptionPlan, error) {
	for i := range m.plans {
		if m.plans[i].UUID == id {
			return &m.plans[i], nil
		}
	}
	return nil, nil
}

func (m *memPlans) FindPlanByID(ctx context.Context, id int64) (*domain.SubscriptionPlan, error) {
	for i := range m.plans {
		if m.plans[i].ID == id {
			return &m.plans[i], nil
		}
	}
	return nil, nil
}

type memReferrals struct {
	codes     map[string]string // user -> code
	referrals []*domain.Referral
	nextID    int64
}

func newMemReferrals() *memReferrals {
	return &memReferrals{codes: map[string]string{}}
}

func (m *memReferrals) FindCodeByUser(ctx context.Context, userID string) (string, error) {
	return m.codes[userID], nil
}

func (m *memReferrals) CreateCode(ctx context.Context, userID, code string) error {
	for _, c := range m.codes {
		if c == code {
			return domain.ErrDuplicateKey
		}
	}
	if _, ok := m.codes[userID]; ok {
		return domain.ErrDuplicateKey
	}
	m.codes[userID] = code
	return nil
}

func (m *memReferrals) FindUserByCode(ctx context.Context, code string) (string, error) {
	for user, c := range m.codes {
		if c == code {
			return user, nil
		}
	}
	return "", nil
}

func (m *memReferrals) CreateReferral(ctx context.Context, ref *domain.Referral) error {
	for _, r := range m.referrals {
		if r.ReferredUserID == ref.ReferredUserID {
			return domain.ErrDuplicateKey
		}
	}
	m.nextID++
	ref.ID = m.nextID
	m.referrals = append(m.referrals, ref)
	return nil
}

func (m *memReferrals) FindByReferred(ctx context.Context, userID string) (*domain.Referral, error) {
	for _, r := range m.referrals {
		if r.ReferredUserID == userID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memReferrals) FindByID(ctx context.Context, id int64) (*domain.Referral, error) {
	for _, r := range m.referrals {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memReferrals) ListByReferrer(ctx context.Context, userID string) ([]*domain.Referral, error) {
	out := []*domain.Referral{}
	for i := len(m.referrals) - 1; i >= 0; i-- {
		if m.referrals[i].ReferrerID == userID {
			out = append(out, m.referrals[i])
		}
	}
	return out, nil
}

func (m *memReferrals) MarkCompleted(ctx context.Context, referredUserID string, at time.Time) (bool, error) {
	for _, r := range m.referrals {
		if r.ReferredUserID == referredUserID && r.Status == domain.ReferralPending {
			r.Status = domain.ReferralCompleted
			r.CompletedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memReferrals) MarkRewarded(ctx context.Context, id int64) (bool, error) {
	for _, r := range m.referrals {
		if r.ID == id && r.Status == domain.ReferralCompleted && !r.RewardClaimed {
			r.Status = domain.ReferralRewarded
			r.RewardClaimed = true
			return true, nil
		}
	}
	return false, nil
}

type memQR struct {
	codes  []*domain.UserQRCode
	links  map[string]*domain.OfferLink
	nextID int64
}

func newMemQR() *memQR {
	return &memQR{links: map[string]*domain.OfferLink{}}
}

func (m *memQR) FindValidUserCode(ctx context.Context, userID string, now time.Time) (*domain.UserQRCode, error) {
	for i := len(m.codes) - 1; i >= 0; i-- {
		if q := m.codes[i]; q.UserID == userID && q.Valid(now) {
			return q, nil
		}
	}
	return nil, nil
}

func (m *memQR) FindUserCode(ctx context.Context, code string) (*domain.UserQRCode, error) {
	for _, q := range m.codes {
		if q.UniqueCode == code {
			return q, nil
		}
	}
	return nil, nil
}

func (m *memQR) CreateUserCode(ctx context.Context, q *domain.UserQRCode) error {
	m.nextID++
	q.ID = m.nextID
	m.codes = append(m.codes, q)
	return nil
}

func (m *memQR) CreateOfferLink(ctx context.Context, l *domain.OfferLink) error {
	if _, ok := m.links[l.UniqueCode]; ok {
		return domain.ErrDuplicateKey
	}
	m.nextID++
	l.ID = m.nextID
	m.links[l.UniqueCode] = l
	return nil
}

func (m *memQR) FindOfferLink(ctx context.Context, code string) (*domain.OfferLink, error) {
	return m.links[code], nil
}

func (m *memQR) IncrementOfferLinkUse(ctx context.Context, code string, now time.Time) (*domain.OfferLink, error) {
	l, ok := m.links[code]
	if !ok || !now.Before(l.ExpiresAt) || l.Exhausted() {
		return nil, nil
	}
	l.CurrentUses++
	return l, nil
}

type memLocation struct {
	places    []*domain.Place
	positions map[string]*domain.DevicePosition
	fences    map[int64]*domain.Geofence
	searches  int
}

func newMemLocation(places ...*domain.Place) *memLocation {
	return &memLocation{
		places:    places,
		positions: map[string]*domain.DevicePosition{},
		fences:    map[int64]*domain.Geofence{},
	}
}

func (m *memLocation) SearchPlaces(ctx context.Context, q domain.PlaceQuery) ([]*domain.Place, error) {
	m.searches++
	var out []*domain.Place
	text := strings.ToLower(q.Text)
	for _, p := range m.places {
		haystack := strings.ToLower(strings.Join([]string{p.Name, p.Address.Label, p.Address.Street, p.Address.City, p.Address.PostalCode}, " "))
		if text != "" && !strings.Contains(haystack, text) {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.MerchantsOnly && p.MerchantID == nil {
			continue
		}
		if b := q.Box; b != nil {
			c := p.Coordinate
			if c.Latitude < b.MinLatitude || c.Latitude > b.MaxLatitude || c.Longitude < b.MinLongitude || c.Longitude > b.MaxLongitude {
				continue
			}
		}
		out = append(out, p)
	}
	if at := q.Near; at != nil {
		planar := func(c domain.Coordinate) float64 {
			dLon := (c.Longitude - at.Longitude) * math.Cos(at.Latitude*math.Pi/180)
			return math.Pow(c.Latitude-at.Latitude, 2) + dLon*dLon
		}
		sort.SliceStable(out, func(i, j int) bool { return planar(out[i].Coordinate) < planar(out[j].Coordinate) })
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memLocation) FindPlace(ctx context.Context, id string) (*domain.Place, error) {
	for _, p := range m.places {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memLocation) SavePosition(ctx context.Context, p *domain.DevicePosition) error {
	m.positions[p.DeviceID] = p
	return nil
}

func (m *memLocation) FindPosition(ctx context.Context, deviceID string) (*domain.DevicePosition, error) {
	return m.positions[deviceID], nil
}

func (m *memLocation) UpsertGeofence(ctx context.Context, g *domain.Geofence) error {
	m.fences[g.MerchantID] = g
	return nil
}

func (m *memLocation) DeleteGeofence(ctx context.Context, merchantID int64) (bool, error) {
	if _, ok := m.fences[merchantID]; !ok {
		return false, nil
	}
	delete(m.fences, merchantID)
	return true, nil
}

func (m *memLocation) ListGeofences(ctx context.Context) ([]*domain.Geofence, error) {
	out := []*domain.Geofence{}
	for _, g := range m.fences {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MerchantID < out[j].MerchantID })
	return out, nil
}

type memCache struct {
	data map[string]json.RawMessage
}

func newMemCache() *memCache {
	return &memCache{data: map[string]json.RawMessage{}}
}

func (m *memCache) Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, error) {
	return m.data[key], nil
}

func (m *memCache) Set(ctx context.Context, key string, data json.RawMessage) error {
	m.data[key] = data
	return nil
}

type prefixSealer struct{}

func (prefixSealer) Seal(plaintext string) (string, error) {
	return "sealed:" + plaintext, nil
}

func (prefixSealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, "sealed:") {
		return "", errors.New("not sealed")
	}
	return strings.TrimPrefix(sealed, "sealed:"), nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/google/uuid"
)

const defaultTopPerformers = 10

// TroopService manages troops and their sales statistics.
type TroopService struct {
	repo TroopStore
	now  func() time.Time
}

// NewTroopService creates a new TroopService.
func NewTroopService(repo TroopStore) *TroopService {
	return &TroopService{repo: repo, now: time.Now}
}

// Create registers a troop. Troop numbers are unique.
func (s *TroopService) Create(ctx context.Context, req *domain.TroopRequest) (*domain.Troop, error) {
	if err := s.ensureNumberFree(ctx, req.TroopNumber, 0); err != nil {
		return nil, err
	}

	now := s.now()
	t := &domain.Troop{
		UUID:      uuid.NewString(),
		Status:    domain.TroopActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyTroopRequest(t, req)

	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.ErrBadRequest("troop number already exists")
		}
		return nil, domain.ErrInternal("failed to create troop", err)
	}
	slog.Info("troop created", "troop_id", t.ID, "troop_number", t.TroopNumber)
	return t, nil
}

// Update replaces the descriptive fields of a troop.
func (s *TroopService) Update(ctx context.Context, id int64, req *domain.TroopRequest) (*domain.Troop, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.TroopNumber != t.TroopNumber {
		if err := s.ensureNumberFree(ctx, req.TroopNumber, id); err != nil {
			return nil, err
		}
	}

	applyTroopRequest(t, req)
	t.RecomputeRatios()
	return s.save(ctx, t)
}

// Get returns a troop by ID.
func (s *TroopService) Get(ctx context.Context, id int64) (*domain.Troop, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find troop", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound("troop not found")
	}
	return t, nil
}

// GetByNumber returns a troop by its troop number.
func (s *TroopService) GetByNumber(ctx context.Context, number string) (*domain.Troop, error) {
	t, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, domain.ErrInternal("failed to find troop", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound("troop not found")
	}
	return t, nil
}

// List returns one page of troops matching filter.
func (s *TroopService) List(ctx context.Context, filter domain.TroopFilter, sort domain.TroopSort, page domain.PageRequest) (domain.Page[*domain.Troop], error) {
	page = page.Normalize()
	troops, total, err := s.repo.List(ctx, filter, sort, page)
	if err != nil {
		return domain.Page[*domain.Troop]{}, domain.ErrInternal("failed to list troops", err)
	}
	return domain.NewPage(troops, total, page), nil
}

// Search returns troops whose name, number or charter organization contain q.
func (s *TroopService) Search(ctx context.Context, q string, page domain.PageRequest) (domain.Page[*domain.Troop], error) {
	return s.List(ctx, domain.TroopFilter{Search: q}, domain.TroopSort{}, page)
}

// ListByCouncil returns one page of a council's troops.
func (s *TroopService) ListByCouncil(ctx context.Context, councilID string, page domain.PageRequest) (domain.Page[*domain.Troop], error) {
	return s.List(ctx, domain.TroopFilter{CouncilID: councilID}, domain.TroopSort{}, page)
}

// TopPerformers ranks all troops by total sales.
func (s *TroopService) TopPerformers(ctx context.Context, limit int) ([]*domain.Troop, error) {
	return s.topPerformers(ctx, nil, limit)
}

// TopPerformersByCouncil ranks one council's troops by total sales.
func (s *TroopService) TopPerformersByCouncil(ctx context.Context, councilID string, limit int) ([]*domain.Troop, error) {
	return s.topPerformers(ctx, &councilID, limit)
}

func (s *TroopService) topPerformers(ctx context.Context, councilID *string, limit int) ([]*domain.Troop, error) {
	if limit <= 0 {
		limit = defaultTopPerformers
	}
	if limit > domain.MaxPageSize {
		limit = domain.MaxPageSize
	}
	troops, err := s.repo.TopPerformers(ctx, councilID, limit)
	if err != nil {
		return nil, domain.ErrInternal("failed to rank troops", err)
	}
	return troops, nil
}

// UpdateStatus moves a troop to status.
func (s *TroopService) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Troop, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Status = status
	troop, err := s.save(ctx, t)
	if err != nil {
		return nil, err
	}
	slog.Info("troop status changed", "troop_id", id, "status", status)
	return troop, nil
}

// RefreshStats recomputes the derived statistics of a troop.
func (s *TroopService) RefreshStats(ctx context.Context, id int64) (*domain.Troop, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.SalesTotals(ctx, t.UUID)
	if err != nil {
		return nil, domain.ErrInternal("failed to aggregate troop sales", err)
	}
	t.ApplyStats(totals)
	return s.save(ctx, t)
}

// RefreshAllActive recomputes statistics for every ACTIVE troop and returns
// how many were refreshed. A failing troop is logged and skipped.
func (s *TroopService) RefreshAllActive(ctx context.Context) (int, error) {
	ids, err := s.repo.ListIDsByStatus(ctx, domain.TroopActive)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if _, err := s.RefreshStats(ctx, id); err != nil {
			slog.Warn("failed to refresh troop stats", "troop_id", id, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// Delete removes a troop that has no active scouts.
func (s *TroopService) Delete(ctx context.Context, id int64) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	active, err := s.repo.CountActiveScouts(ctx, t.UUID)
	if err != nil {
		return domain.ErrInternal("failed to count active scouts", err)
	}
	if active > 0 {
		return domain.ErrConflict("cannot delete troop with active scouts")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return domain.ErrInternal("failed to delete troop", err)
	}
	if !deleted {
		return domain.ErrNotFound("troop not found")
	}
	slog.Info("troop deleted", "troop_id", id)
	return nil
}

func (s *TroopService) ensureNumberFree(ctx context.Context, number string, selfID int64) error {
	existing, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return domain.ErrInternal("failed to check troop number", err)
	}
	if existing != nil && existing.ID != selfID {
		return domain.ErrBadRequest("troop number already exists")
	}
	return nil
}

func (s *TroopService) save(ctx context.Context, t *domain.Troop) (*domain.Troop, error) {
	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.ErrBadRequest("troop number already exists")
		}
		return nil, domain.ErrInternal("failed to update troop", err)
	}
	return t, nil
}

func applyTroopRequest(t *domain.Troop, req *domain.TroopRequest) {
	t.TroopNumber = strings.TrimSpace(req.TroopNumber)
	t.CouncilID = req.CouncilID
	t.TroopName = req.TroopName
	t.TroopType = req.TroopType
	t.CharterOrganization = req.CharterOrganization
	t.MeetingLocation = req.MeetingLocation
	t.MeetingDay = req.MeetingDay
	t.MeetingTime = req.MeetingTime
	t.ScoutmasterID = req.ScoutmasterID
	t.ScoutmasterName = req.ScoutmasterName
	t.ScoutmasterEmail = req.ScoutmasterEmail
	t.ScoutmasterPhone = req.ScoutmasterPhone
	t.GoalAmount = req.GoalAmount
}

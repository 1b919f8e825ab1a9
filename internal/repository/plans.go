package repository

import (
	"context"
	"fmt"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const planColumns = `id, uuid, council_id, name, description, price_cents, currency, billing_interval, trial_days, features`

// PlanRepository reads subscription plans.
type PlanRepository struct {
	db *pgxpool.Pool
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

// ListPlans returns the global plans plus, when councilID is set, the plans
// of that council.
func (r *PlanRepository) ListPlans(ctx context.Context, councilID *string) ([]domain.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans
		WHERE council_id IS NULL OR council_id = $1
		ORDER BY price_cents DESC, id`
	rows, err := r.db.Query(ctx, query, councilID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := []domain.SubscriptionPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// FindPlanByUUID returns a plan or nil.
func (r *PlanRepository) FindPlanByUUID(ctx context.Context, id string) (*domain.SubscriptionPlan, error) {
	return r.findOne(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE uuid = $1`, id)
}

// FindPlanByID returns a plan or nil.
func (r *PlanRepository) FindPlanByID(ctx context.Context, id int64) (*domain.SubscriptionPlan, error) {
	return r.findOne(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id)
}

func (r *PlanRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.SubscriptionPlan, error) {
	p, err := scanPlan(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func scanPlan(row pgx.Row) (*domain.SubscriptionPlan, error) {
	var p domain.SubscriptionPlan
	err := row.Scan(&p.ID, &p.UUID, &p.CouncilID, &p.Name, &p.Description, &p.PriceCents,
		&p.Currency, &p.BillingInterval, &p.TrialDays, &p.Features)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	return &p, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const troopColumns = `
	id, uuid, troop_number, council_id, troop_name, troop_type, charter_organization,
	meeting_location, meeting_day, meeting_time, scoutmaster_id, scoutmaster_name,
	scoutmaster_email, scoutmaster_phone, total_scouts, active_scouts, total_sales,
	cards_sold, goal_amount, goal_progress, average_sales_per_scout, status,
	created_at, updated_at`

var troopSortColumns = map[string]string{
	"troopNumber": "troop_number",
	"troopName":   "troop_name",
	"totalSales":  "total_sales",
	"createdAt":   "created_at",
}

// TroopRepository handles database operations for troops.
type TroopRepository struct {
	db *pgxpool.Pool
}

// NewTroopRepository creates a new TroopRepository.
func NewTroopRepository(db *pgxpool.Pool) *TroopRepository {
	return &TroopRepository{db: db}
}

// Create inserts a troop and sets its generated ID.
func (r *TroopRepository) Create(ctx context.Context, t *domain.Troop) error {
	query := `
		INSERT INTO troops (uuid, troop_number, council_id, troop_name, troop_type, charter_organization,
			meeting_location, meeting_day, meeting_time, scoutmaster_id, scoutmaster_name,
			scoutmaster_email, scoutmaster_phone, goal_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		t.UUID, t.TroopNumber, t.CouncilID, t.TroopName, t.TroopType, t.CharterOrganization,
		t.MeetingLocation, t.MeetingDay, t.MeetingTime, t.ScoutmasterID, t.ScoutmasterName,
		t.ScoutmasterEmail, t.ScoutmasterPhone, t.GoalAmount, t.Status, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create troop: %w", err)
	}
	return nil
}

// Update persists every mutable column of a troop, statistics included.
func (r *TroopRepository) Update(ctx context.Context, t *domain.Troop) error {
	query := `
		UPDATE troops
		SET troop_number = $1, council_id = $2, troop_name = $3, troop_type = $4, charter_organization = $5,
			meeting_location = $6, meeting_day = $7, meeting_time = $8, scoutmaster_id = $9,
			scoutmaster_name = $10, scoutmaster_email = $11, scoutmaster_phone = $12,
			total_scouts = $13, active_scouts = $14, total_sales = $15, cards_sold = $16,
			goal_amount = $17, goal_progress = $18, average_sales_per_scout = $19,
			status = $20, updated_at = $21
		WHERE id = $22
	`
	_, err := r.db.Exec(ctx, query,
		t.TroopNumber, t.CouncilID, t.TroopName, t.TroopType, t.CharterOrganization,
		t.MeetingLocation, t.MeetingDay, t.MeetingTime, t.ScoutmasterID,
		t.ScoutmasterName, t.ScoutmasterEmail, t.ScoutmasterPhone,
		t.TotalScouts, t.ActiveScouts, t.TotalSales, t.CardsSold,
		t.GoalAmount, t.GoalProgress, t.AverageSalesPerScout,
		t.Status, t.UpdatedAt, t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to update troop: %w", err)
	}
	return nil
}

// FindByID returns a troop or nil.
func (r *TroopRepository) FindByID(ctx context.Context, id int64) (*domain.Troop, error) {
	return r.findOne(ctx, `SELECT `+troopColumns+` FROM troops WHERE id = $1`, id)
}

// FindByNumber returns a troop or nil.
func (r *TroopRepository) FindByNumber(ctx context.Context, number string) (*domain.Troop, error) {
	return r.findOne(ctx, `SELECT `+troopColumns+` FROM troops WHERE troop_number = $1`, number)
}

// FindByUUID returns a troop or nil.
func (r *TroopRepository) FindByUUID(ctx context.Context, id string) (*domain.Troop, error) {
	return r.findOne(ctx, `SELECT `+troopColumns+` FROM troops WHERE uuid = $1`, id)
}

// List returns one page of troops matching filter, ordered by sort.
func (r *TroopRepository) List(ctx context.Context, filter domain.TroopFilter, sort domain.TroopSort, page domain.PageRequest) ([]*domain.Troop, int64, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CouncilID != "" {
		args = append(args, filter.CouncilID)
		conds = append(conds, fmt.Sprintf("council_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, containsPattern(s))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(LOWER(troop_name) LIKE $%[1]d ESCAPE '\' OR LOWER(troop_number) LIKE $%[1]d ESCAPE '\'`+
				` OR LOWER(charter_organization) LIKE $%[1]d ESCAPE '\')`, n))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM troops`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count troops: %w", err)
	}

	column, ok := troopSortColumns[sort.Field]
	if !ok {
		column = "troop_number"
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	args = append(args, page.Size, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM troops%s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		troopColumns, where, column, direction, len(args)-1, len(args))

	troops, err := r.queryTroops(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return troops, total, nil
}

// TopPerformers returns the limit troops with the highest total sales. A nil
// councilID ranks across all councils.
func (r *TroopRepository) TopPerformers(ctx context.Context, councilID *string, limit int) ([]*domain.Troop, error) {
	if councilID != nil {
		query := `SELECT ` + troopColumns + ` FROM troops WHERE council_id = $1 ORDER BY total_sales DESC, id LIMIT $2`
		return r.queryTroops(ctx, query, *councilID, limit)
	}
	query := `SELECT ` + troopColumns + ` FROM troops ORDER BY total_sales DESC, id LIMIT $1`
	return r.queryTroops(ctx, query, limit)
}

// SalesTotals aggregates the scouts assigned to the troop and the cards
// credited to them.
func (r *TroopRepository) SalesTotals(ctx context.Context, troopUUID string) (domain.TroopSalesTotals, error) {
	var totals domain.TroopSalesTotals
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
		FROM users WHERE role = 'SCOUT' AND troop_id = $1
	`, troopUUID).Scan(&totals.TotalScouts, &totals.ActiveScouts)
	if err != nil {
		return totals, fmt.Errorf("failed to count troop scouts: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(s.id), COALESCE(SUM(p.price_cents), 0)
		FROM subscriptions s
		JOIN subscription_plans p ON p.id = s.plan_id
		JOIN users u ON u.id = s.scout_id
		WHERE u.role = 'SCOUT' AND u.troop_id = $1
	`, troopUUID).Scan(&totals.CardsSold, &totals.TotalSalesCents)
	if err != nil {
		return totals, fmt.Errorf("failed to sum troop sales: %w", err)
	}
	return totals, nil
}

// CountActiveScouts returns the number of active scouts assigned to the troop.
func (r *TroopRepository) CountActiveScouts(ctx context.Context, troopUUID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM users WHERE role = 'SCOUT' AND is_active AND troop_id = $1
	`, troopUUID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active scouts: %w", err)
	}
	return n, nil
}

// ListIDsByStatus returns the IDs of every troop with the given status.
func (r *TroopRepository) ListIDsByStatus(ctx context.Context, status string) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM troops WHERE status = $1 ORDER BY id`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query troop ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan troop id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a troop. It reports whether a row was deleted.
func (r *TroopRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM troops WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete troop: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TroopRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Troop, error) {
	t, err := scanTroop(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *TroopRepository) queryTroops(ctx context.Context, query string, args ...interface{}) ([]*domain.Troop, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query troops: %w", err)
	}
	defer rows.Close()

	troops := []*domain.Troop{}
	for rows.Next() {
		t, err := scanTroop(rows)
		if err != nil {
			return nil, err
		}
		troops = append(troops, t)
	}
	return troops, rows.Err()
}

func scanTroop(row pgx.Row) (*domain.Troop, error) {
	var t domain.Troop
	err := row.Scan(
		&t.ID, &t.UUID, &t.TroopNumber, &t.CouncilID, &t.TroopName, &t.TroopType, &t.CharterOrganization,
		&t.MeetingLocation, &t.MeetingDay, &t.MeetingTime, &t.ScoutmasterID, &t.ScoutmasterName,
		&t.ScoutmasterEmail, &t.ScoutmasterPhone, &t.TotalScouts, &t.ActiveScouts, &t.TotalSales,
		&t.CardsSold, &t.GoalAmount, &t.GoalProgress, &t.AverageSalesPerScout, &t.Status,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan troop: %w", err)
	}
	return &t, nil
}

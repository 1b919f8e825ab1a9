package repository

import (
	"context"
	"fmt"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `
	id, email, password, first_name, last_name, phone_number, role, council_id,
	troop_id, is_active, email_verified, created_at, updated_at`

// UserRepository handles database operations for users.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, password, first_name, last_name, phone_number, role,
			council_id, troop_id, is_active, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber, u.Role,
		u.CouncilID, u.TroopID, u.IsActive, u.EmailVerified, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update persists the profile fields of a user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, phone_number = $4, role = $5,
			council_id = $6, is_active = $7, email_verified = $8, updated_at = $9
		WHERE id = $10
	`
	_, err := r.db.Exec(ctx, query,
		u.Email, u.FirstName, u.LastName, u.PhoneNumber, u.Role,
		u.CouncilID, u.IsActive, u.EmailVerified, u.UpdatedAt, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// Exists checks if a user with the given email already exists.
func (r *UserRepository) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`
	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// List returns one page of users ordered by name.
func (r *UserRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.User, int64, error) {
	return r.page(ctx, "", nil, page)
}

// Search returns one page of users whose name or email contains q.
func (r *UserRepository) Search(ctx context.Context, q string, page domain.PageRequest) ([]*domain.User, int64, error) {
	pattern := containsPattern(q)
	where := ` WHERE LOWER(first_name) LIKE $1 ESCAPE '\' OR LOWER(last_name) LIKE $1 ESCAPE '\' OR LOWER(email) LIKE $1 ESCAPE '\'`
	return r.page(ctx, where, []interface{}{pattern}, page)
}

// ListByCouncil returns one page of the council's users.
func (r *UserRepository) ListByCouncil(ctx context.Context, councilID string, page domain.PageRequest) ([]*domain.User, int64, error) {
	return r.page(ctx, ` WHERE council_id = $1`, []interface{}{councilID}, page)
}

// ListByTroop returns every user assigned to the troop.
func (r *UserRepository) ListByTroop(ctx context.Context, troopID string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE troop_id = $1 ORDER BY last_name, first_name, id`
	return r.queryUsers(ctx, query, troopID)
}

// ListScoutsByTroop returns the SCOUT users assigned to the troop.
func (r *UserRepository) ListScoutsByTroop(ctx context.Context, troopID string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE troop_id = $1 AND role = 'SCOUT' ORDER BY last_name, first_name, id`
	return r.queryUsers(ctx, query, troopID)
}

// ListUnassignedScouts returns SCOUT users without a troop. A nil councilID
// spans all councils.
func (r *UserRepository) ListUnassignedScouts(ctx context.Context, councilID *string) ([]*domain.User, error) {
	if councilID != nil {
		query := `SELECT ` + userColumns + ` FROM users
			WHERE role = 'SCOUT' AND troop_id IS NULL AND council_id = $1 ORDER BY last_name, first_name, id`
		return r.queryUsers(ctx, query, *councilID)
	}
	query := `SELECT ` + userColumns + ` FROM users
		WHERE role = 'SCOUT' AND troop_id IS NULL ORDER BY last_name, first_name, id`
	return r.queryUsers(ctx, query)
}

// SetTroop assigns the user to troopID, or clears the assignment when nil.
func (r *UserRepository) SetTroop(ctx context.Context, userID string, troopID *string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET troop_id = $1, updated_at = NOW() WHERE id = $2`, troopID, userID)
	if err != nil {
		return fmt.Errorf("failed to set user troop: %w", err)
	}
	return nil
}

// Delete removes a user. It reports whether a row was deleted.
func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepository) page(ctx context.Context, where string, args []interface{}, page domain.PageRequest) ([]*domain.User, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, page.Size, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))
	users, err := r.queryUsers(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.Role,
		&u.CouncilID, &u.TroopID, &u.IsActive, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

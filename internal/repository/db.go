package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations creates the schema if it does not exist yet.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			password       TEXT NOT NULL DEFAULT '',
			first_name     TEXT NOT NULL,
			last_name      TEXT NOT NULL,
			phone_number   TEXT NOT NULL DEFAULT '',
			role           TEXT NOT NULL,
			council_id     TEXT,
			troop_id       TEXT,
			is_active      BOOLEAN NOT NULL DEFAULT TRUE,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_council_id ON users(council_id);
		CREATE INDEX IF NOT EXISTS idx_users_troop_id ON users(troop_id);

		CREATE TABLE IF NOT EXISTS subscription_plans (
			id               BIGSERIAL PRIMARY KEY,
			uuid             TEXT NOT NULL UNIQUE,
			council_id       TEXT,
			name             TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			price_cents      BIGINT NOT NULL,
			currency         TEXT NOT NULL DEFAULT 'USD',
			billing_interval TEXT NOT NULL,
			trial_days       INT NOT NULL DEFAULT 0,
			features         TEXT[] NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id                   BIGSERIAL PRIMARY KEY,
			uuid                 TEXT NOT NULL UNIQUE,
			user_id              TEXT NOT NULL,
			plan_id              BIGINT NOT NULL REFERENCES subscription_plans(id),
			scout_id             TEXT,
			card_number          TEXT NOT NULL UNIQUE,
			status               TEXT NOT NULL,
			cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
			current_period_start TIMESTAMPTZ NOT NULL,
			current_period_end   TIMESTAMPTZ NOT NULL,
			canceled_at          TIMESTAMPTZ,
			payment_method_ref   TEXT NOT NULL DEFAULT '',
			idempotency_key      TEXT,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_subscriptions_one_active
			ON subscriptions(user_id) WHERE status = 'ACTIVE';
		CREATE UNIQUE INDEX IF NOT EXISTS uq_subscriptions_idempotency
			ON subscriptions(user_id, idempotency_key) WHERE idempotency_key IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_subscriptions_scout_id ON subscriptions(scout_id);

		CREATE TABLE IF NOT EXISTS troops (
			id                      BIGSERIAL PRIMARY KEY,
			uuid                    TEXT NOT NULL UNIQUE,
			troop_number            TEXT NOT NULL UNIQUE,
			council_id              TEXT NOT NULL,
			troop_name              TEXT NOT NULL,
			troop_type              TEXT NOT NULL DEFAULT '',
			charter_organization    TEXT NOT NULL DEFAULT '',
			meeting_location        TEXT NOT NULL DEFAULT '',
			meeting_day             TEXT NOT NULL DEFAULT '',
			meeting_time            TEXT NOT NULL DEFAULT '',
			scoutmaster_id          TEXT,
			scoutmaster_name        TEXT NOT NULL DEFAULT '',
			scoutmaster_email       TEXT NOT NULL DEFAULT '',
			scoutmaster_phone       TEXT NOT NULL DEFAULT '',
			total_scouts            INT NOT NULL DEFAULT 0,
			active_scouts           INT NOT NULL DEFAULT 0,
			total_sales             DOUBLE PRECISION NOT NULL DEFAULT 0,
			cards_sold              INT NOT NULL DEFAULT 0,
			goal_amount             DOUBLE PRECISION NOT NULL DEFAULT 0,
			goal_progress           DOUBLE PRECISION NOT NULL DEFAULT 0,
			average_sales_per_scout DOUBLE PRECISION NOT NULL DEFAULT 0,
			status                  TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_troops_council_id ON troops(council_id);

		CREATE TABLE IF NOT EXISTS referral_codes (
			user_id    TEXT PRIMARY KEY,
			code       TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS referrals (
			id               BIGSERIAL PRIMARY KEY,
			referrer_id      TEXT NOT NULL,
			referred_user_id TEXT NOT NULL UNIQUE,
			status           TEXT NOT NULL,
			reward_cents     BIGINT NOT NULL,
			reward_claimed   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at     TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_referrals_referrer_id ON referrals(referrer_id);

		CREATE TABLE IF NOT EXISTS user_qr_codes (
			id          BIGSERIAL PRIMARY KEY,
			user_id     TEXT NOT NULL,
			unique_code TEXT NOT NULL UNIQUE,
			valid_until TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_user_qr_codes_user_id ON user_qr_codes(user_id);

		CREATE TABLE IF NOT EXISTS offer_links (
			id           BIGSERIAL PRIMARY KEY,
			offer_id     BIGINT NOT NULL,
			user_id      TEXT,
			unique_code  TEXT NOT NULL UNIQUE,
			expires_at   TIMESTAMPTZ NOT NULL,
			max_uses     INT,
			current_uses INT NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS places (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			category    TEXT NOT NULL DEFAULT '',
			merchant_id BIGINT,
			label       TEXT NOT NULL DEFAULT '',
			street      TEXT NOT NULL DEFAULT '',
			city        TEXT NOT NULL DEFAULT '',
			region      TEXT NOT NULL DEFAULT '',
			postal_code TEXT NOT NULL DEFAULT '',
			country     TEXT NOT NULL DEFAULT '',
			latitude    DOUBLE PRECISION NOT NULL,
			longitude   DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_places_lat_lon ON places(latitude, longitude);

		CREATE TABLE IF NOT EXISTS device_positions (
			device_id   TEXT PRIMARY KEY,
			latitude    DOUBLE PRECISION NOT NULL,
			longitude   DOUBLE PRECISION NOT NULL,
			accuracy    DOUBLE PRECISION,
			sample_time TIMESTAMPTZ NOT NULL,
			received_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS geofences (
			merchant_id   BIGINT PRIMARY KEY,
			name          TEXT NOT NULL,
			latitude      DOUBLE PRECISION NOT NULL,
			longitude     DOUBLE PRECISION NOT NULL,
			radius_meters DOUBLE PRECISION NOT NULL,
			valid_from    TIMESTAMPTZ,
			valid_until   TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS system_cache (
			key        TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SeedPlans inserts the default plans if they are missing.
func SeedPlans(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		INSERT INTO subscription_plans (uuid, council_id, name, description, price_cents, currency, billing_interval, trial_days, features)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (uuid) DO NOTHING
	`
	for _, p := range domain.DefaultPlans() {
		if _, err := pool.Exec(ctx, query,
			p.UUID, p.CouncilID, p.Name, p.Description, p.PriceCents,
			p.Currency, p.BillingInterval, p.TrialDays, p.Features,
		); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", p.Name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	_, ok := uniqueViolation(err)
	return ok
}

// uniqueViolation returns the name of the unique constraint err violated.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns user text into a lowercase LIKE pattern matching it
// anywhere. Use it with ESCAPE '\'.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const placeColumns = `id, name, category, merchant_id, label, street, city, region, postal_code, country, latitude, longitude`

// LocationRepository stores the place directory, device positions and
// merchant geofences.
type LocationRepository struct {
	db *pgxpool.Pool
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(db *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{db: db}
}

// SearchPlaces returns places matching q. Text matches name or any address
// field, case insensitively.
func (r *LocationRepository) SearchPlaces(ctx context.Context, q domain.PlaceQuery) ([]*domain.Place, error) {
	var (
		conds []string
		args  []interface{}
	)
	if t := strings.TrimSpace(q.Text); t != "" {
		args = append(args, containsPattern(t))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(LOWER(name) LIKE $%[1]d ESCAPE '\' OR LOWER(label) LIKE $%[1]d ESCAPE '\' OR LOWER(street) LIKE $%[1]d ESCAPE '\'`+
				` OR LOWER(city) LIKE $%[1]d ESCAPE '\' OR LOWER(postal_code) LIKE $%[1]d ESCAPE '\')`, n))
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		args = append(args, strings.ToLower(c))
		conds = append(conds, fmt.Sprintf("LOWER(category) = $%d", len(args)))
	}
	if q.MerchantsOnly {
		conds = append(conds, "merchant_id IS NOT NULL")
	}
	if b := q.Box; b != nil {
		args = append(args, b.MinLatitude, b.MaxLatitude, b.MinLongitude, b.MaxLongitude)
		n := len(args)
		conds = append(conds, fmt.Sprintf("latitude BETWEEN $%d AND $%d AND longitude BETWEEN $%d AND $%d", n-3, n-2, n-1, n))
	}

	query := `SELECT ` + placeColumns + ` FROM places`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if c := q.Near; c != nil {
		// Equirectangular distance keeps the nearest rows ahead of the LIMIT.
		args = append(args, c.Latitude, c.Longitude)
		n := len(args)
		query += fmt.Sprintf(
			" ORDER BY POWER(latitude - $%[1]d::float8, 2) + POWER((longitude - $%[2]d::float8) * COS(RADIANS($%[1]d::float8)), 2), id", n-1, n)
	} else {
		query += " ORDER BY name, id"
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	places := []*domain.Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// FindPlace returns a place or nil.
func (r *LocationRepository) FindPlace(ctx context.Context, id string) (*domain.Place, error) {
	p, err := scanPlace(r.db.QueryRow(ctx, `SELECT `+placeColumns+` FROM places WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// SavePosition stores the latest position of a device.
func (r *LocationRepository) SavePosition(ctx context.Context, p *domain.DevicePosition) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO device_positions (device_id, latitude, longitude, accuracy, sample_time, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id) DO UPDATE
		SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, accuracy = EXCLUDED.accuracy,
			sample_time = EXCLUDED.sample_time, received_at = EXCLUDED.received_at
	`, p.DeviceID, p.Latitude, p.Longitude, p.Accuracy, p.SampleTime, p.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to save device position: %w", err)
	}
	return nil
}

// FindPosition returns the latest position of a device, or nil.
func (r *LocationRepository) FindPosition(ctx context.Context, deviceID string) (*domain.DevicePosition, error) {
	var p domain.DevicePosition
	err := r.db.QueryRow(ctx, `
		SELECT device_id, latitude, longitude, accuracy, sample_time, received_at
		FROM device_positions WHERE device_id = $1
	`, deviceID).Scan(&p.DeviceID, &p.Latitude, &p.Longitude, &p.Accuracy, &p.SampleTime, &p.ReceivedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find device position: %w", err)
	}
	return &p, nil
}

// UpsertGeofence creates or replaces the geofence of a merchant.
func (r *LocationRepository) UpsertGeofence(ctx context.Context, g *domain.Geofence) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO geofences (merchant_id, name, latitude, longitude, radius_meters, valid_from, valid_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (merchant_id) DO UPDATE
		SET name = EXCLUDED.name, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			radius_meters = EXCLUDED.radius_meters, valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until, created_at = EXCLUDED.created_at
	`, g.MerchantID, g.Name, g.Center.Latitude, g.Center.Longitude, g.RadiusMeters, g.ValidFrom, g.ValidUntil, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save geofence: %w", err)
	}
	return nil
}

// DeleteGeofence removes a merchant geofence. It reports whether one existed.
func (r *LocationRepository) DeleteGeofence(ctx context.Context, merchantID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM geofences WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return false, fmt.Errorf("failed to delete geofence: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListGeofences returns every geofence ordered by merchant.
func (r *LocationRepository) ListGeofences(ctx context.Context) ([]*domain.Geofence, error) {
	rows, err := r.db.Query(ctx, `
		SELECT merchant_id, name, latitude, longitude, radius_meters, valid_from, valid_until, created_at
		FROM geofences ORDER BY merchant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query geofences: %w", err)
	}
	defer rows.Close()

	fences := []*domain.Geofence{}
	for rows.Next() {
		var g domain.Geofence
		if err := rows.Scan(&g.MerchantID, &g.Name, &g.Center.Latitude, &g.Center.Longitude,
			&g.RadiusMeters, &g.ValidFrom, &g.ValidUntil, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan geofence: %w", err)
		}
		fences = append(fences, &g)
	}
	return fences, rows.Err()
}

func scanPlace(row pgx.Row) (*domain.Place, error) {
	var p domain.Place
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.MerchantID,
		&p.Address.Label, &p.Address.Street, &p.Address.City, &p.Address.Region,
		&p.Address.PostalCode, &p.Address.Country, &p.Coordinate.Latitude, &p.Coordinate.Longitude)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan place: %w", err)
	}
	return &p, nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CacheEntry represents an entry in the system_cache table.
type CacheEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CacheRepository is a JSON key/value cache backed by the system_cache table.
// Geocoding results are cached here.
type CacheRepository struct {
	db *pgxpool.Pool
}

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(db *pgxpool.Pool) *CacheRepository {
	return &CacheRepository{db: db}
}

// Get returns the raw JSON stored under key if it was written within maxAge.
// A miss returns nil, nil.
func (r *CacheRepository) Get(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, error) {
	query := `SELECT key, data, updated_at FROM system_cache WHERE key = $1`

	var entry CacheEntry
	err := r.db.QueryRow(ctx, query, key).Scan(&entry.Key, &entry.Data, &entry.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan system_cache entry: %w", err)
	}
	if maxAge > 0 && time.Since(entry.UpdatedAt) > maxAge {
		return nil, nil
	}
	return entry.Data, nil
}

// Set inserts or updates a cache entry.
func (r *CacheRepository) Set(ctx context.Context, key string, data json.RawMessage) error {
	query := `
		INSERT INTO system_cache (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET data = EXCLUDED.data, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, key, data)
	if err != nil {
		return fmt.Errorf("failed to set system_cache entry: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

type ImageCacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewImageCacheRepository(db *sql.DB) *ImageCacheRepository {
	return &ImageCacheRepository{db: db, now: time.Now}
}

// Get returns nil, nil on a miss and refreshes last_used on a hit.
func (r *ImageCacheRepository) Get(ctx context.Context, partNumber string) (*domain.ImageLookupResult, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE image_cache
SET last_used = $2
WHERE part_number = $1
RETURNING image_url, quality, source
`, partNumber, r.now().UTC())

	var result domain.ImageLookupResult
	var quality string
	if err := row.Scan(&result.ImageURL, &quality, &result.Source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached image: %w", err)
	}

	result.PartNumber = partNumber
	result.Found = result.ImageURL != ""
	result.Quality = domain.ImageQuality(quality)
	result.Cached = true
	return &result, nil
}

func (r *ImageCacheRepository) Put(ctx context.Context, result domain.ImageLookupResult) error {
	if !result.Found || result.ImageURL == "" {
		return nil
	}
	now := r.now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO image_cache (part_number, image_url, quality, source, created_at, last_used)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (part_number) DO UPDATE SET
	image_url = EXCLUDED.image_url,
	quality = EXCLUDED.quality,
	source = EXCLUDED.source,
	last_used = EXCLUDED.last_used
`, result.PartNumber, result.ImageURL, string(result.Quality), result.Source, now)
	if err != nil {
		return fmt.Errorf("put cached image: %w", err)
	}
	return nil
}

func (r *ImageCacheRepository) Prune(ctx context.Context, unusedFor time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM image_cache WHERE last_used < $1`, r.now().UTC().Add(-unusedFor))
	if err != nil {
		return 0, fmt.Errorf("prune image cache: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune image cache rows affected: %w", err)
	}
	return removed, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const partColumns = `id, part_number, description, brand, category, image_url, compatible_vehicles, specifications, oem_status, estimated_lifespan, interchangeable_parts, ai_notes, last_enriched, last_image_update, created_at, updated_at`

type PartRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPartRepository(db *sql.DB) *PartRepository {
	return &PartRepository{db: db, now: time.Now}
}

// Upsert inserts or merges a part keyed by part number. NULL parameters keep the stored value.
func (r *PartRepository) Upsert(ctx context.Context, upd domain.PartUpsert) (*domain.Part, error) {
	if upd.PartNumber == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upsert part", fmt.Errorf("part number is required"))
	}

	vehicles, err := nullableJSON(upd.CompatibleVehicles, upd.CompatibleVehicles == nil)
	if err != nil {
		return nil, err
	}
	specs, err := nullableJSON(upd.Specifications, upd.Specifications == nil)
	if err != nil {
		return nil, err
	}
	interchange, err := nullableJSON(upd.InterchangeableParts, upd.InterchangeableParts == nil)
	if err != nil {
		return nil, err
	}
	var oemStatus any
	if upd.OEMStatus != nil {
		oemStatus = string(*upd.OEMStatus)
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO parts (
	id, part_number, description, brand, category, image_url, compatible_vehicles, specifications,
	oem_status, estimated_lifespan, interchangeable_parts, ai_notes, last_enriched, last_image_update, created_at, updated_at
) VALUES (
	$1, $2, COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, ''), COALESCE($6, ''),
	COALESCE($7::jsonb, '[]'::jsonb), COALESCE($8::jsonb, '{}'::jsonb), COALESCE($9, 'Unknown'), COALESCE($10, ''),
	COALESCE($11::jsonb, '[]'::jsonb), COALESCE($12, ''), $13, $14, $15, $15
)
ON CONFLICT (part_number) DO UPDATE SET
	description = COALESCE($3, parts.description),
	brand = COALESCE($4, parts.brand),
	category = COALESCE($5, parts.category),
	image_url = COALESCE($6, parts.image_url),
	compatible_vehicles = COALESCE($7::jsonb, parts.compatible_vehicles),
	specifications = COALESCE($8::jsonb, parts.specifications),
	oem_status = COALESCE($9, parts.oem_status),
	estimated_lifespan = COALESCE($10, parts.estimated_lifespan),
	interchangeable_parts = COALESCE($11::jsonb, parts.interchangeable_parts),
	ai_notes = COALESCE($12, parts.ai_notes),
	last_enriched = COALESCE($13, parts.last_enriched),
	last_image_update = COALESCE($14, parts.last_image_update),
	updated_at = $15
RETURNING `+partColumns,
		uuid.NewString(), upd.PartNumber,
		nullableString(upd.Description), nullableString(upd.Brand), nullableString(upd.Category), nullableString(upd.ImageURL),
		vehicles, specs, oemStatus, nullableString(upd.EstimatedLifespan), interchange, nullableString(upd.AINotes),
		nullableTime(upd.LastEnriched), nullableTime(upd.LastImageUpdate), r.now().UTC(),
	)

	part, err := scanPart(row)
	if err != nil {
		return nil, fmt.Errorf("upsert part %s: %w", upd.PartNumber, err)
	}
	return &part, nil
}

func (r *PartRepository) GetByPartNumber(ctx context.Context, partNumber string) (*domain.Part, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+partColumns+` FROM parts WHERE part_number = $1`, partNumber)
	part, err := scanPart(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPartNotFound, "get part", fmt.Errorf("part_number=%s", partNumber))
		}
		return nil, err
	}
	return &part, nil
}

func (r *PartRepository) List(ctx context.Context, filter domain.PartFilter) ([]domain.Part, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultPartListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+partColumns+`
FROM parts
WHERE ($1 = '' OR part_number ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
  AND ($2 = '' OR brand = $2)
  AND ($3 = '' OR category = $3)
  AND (NOT $5::boolean OR last_enriched IS NULL OR compatible_vehicles = '[]'::jsonb)
ORDER BY created_at DESC
LIMIT $4
`, filter.Search, filter.Brand, filter.Category, limit, filter.NeedsEnrichment)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	parts := make([]domain.Part, 0)
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts: %w", err)
	}
	return parts, nil
}

func scanPart(row rowScanner) (domain.Part, error) {
	var part domain.Part
	var vehiclesRaw, specsRaw, interchangeRaw []byte
	var oemStatus string

	err := row.Scan(
		&part.ID, &part.PartNumber, &part.Description, &part.Brand, &part.Category, &part.ImageURL,
		&vehiclesRaw, &specsRaw, &oemStatus, &part.EstimatedLifespan, &interchangeRaw, &part.AINotes,
		&part.LastEnriched, &part.LastImageUpdate, &part.CreatedAt, &part.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Part{}, err
		}
		return domain.Part{}, fmt.Errorf("scan part: %w", err)
	}

	part.OEMStatus = domain.OEMStatus(oemStatus)
	part.CompatibleVehicles = []domain.VehicleCompatibility{}
	part.Specifications = map[string]string{}
	part.InterchangeableParts = []string{}
	if err := unmarshalJSONColumn(vehiclesRaw, &part.CompatibleVehicles); err != nil {
		return domain.Part{}, fmt.Errorf("unmarshal compatible vehicles: %w", err)
	}
	if err := unmarshalJSONColumn(specsRaw, &part.Specifications); err != nil {
		return domain.Part{}, fmt.Errorf("unmarshal specifications: %w", err)
	}
	if err := unmarshalJSONColumn(interchangeRaw, &part.InterchangeableParts); err != nil {
		return domain.Part{}, fmt.Errorf("unmarshal interchangeable parts: %w", err)
	}
	return part, nil
}

func nullableJSON(value any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return string(raw), nil
}

func unmarshalJSONColumn(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

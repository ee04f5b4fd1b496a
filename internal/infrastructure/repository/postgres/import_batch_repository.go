package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dakshin/partsquote/internal/core/domain"
)

type ImportBatchRepository struct {
	db *sql.DB
}

func NewImportBatchRepository(db *sql.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

const importBatchColumns = `id, filename, mime_type, archive_key, lines, headers, skipped, parsed, enqueued, duplicates, created_at`

func (r *ImportBatchRepository) Create(ctx context.Context, batch domain.ImportBatch) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO import_batches (`+importBatchColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		batch.ID, batch.Filename, batch.MimeType, batch.ArchiveKey,
		batch.Stats.Lines, batch.Stats.Headers, batch.Stats.Skipped, batch.Stats.Parsed,
		batch.Enqueued, batch.Duplicates, batch.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert import batch: %w", err)
	}
	return nil
}

func (r *ImportBatchRepository) GetByID(ctx context.Context, id string) (*domain.ImportBatch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+importBatchColumns+` FROM import_batches WHERE id = $1`, id)
	batch, err := scanImportBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrImportNotFound, "get import batch", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan import batch: %w", err)
	}
	return batch, nil
}

// List returns the most recent batches first.
func (r *ImportBatchRepository) List(ctx context.Context, limit int) ([]domain.ImportBatch, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+importBatchColumns+`
FROM import_batches
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ImportBatch, 0)
	for rows.Next() {
		batch, err := scanImportBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import batch: %w", err)
		}
		out = append(out, *batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import batches: %w", err)
	}
	return out, nil
}

func scanImportBatch(row rowScanner) (*domain.ImportBatch, error) {
	var batch domain.ImportBatch
	err := row.Scan(
		&batch.ID, &batch.Filename, &batch.MimeType, &batch.ArchiveKey,
		&batch.Stats.Lines, &batch.Stats.Headers, &batch.Stats.Skipped, &batch.Stats.Parsed,
		&batch.Enqueued, &batch.Duplicates, &batch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

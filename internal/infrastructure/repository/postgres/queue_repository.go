package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const queueColumns = `id, seq, batch_id, part_number, description, brand, category, status, error_message, retry_count, details, created_at, updated_at, completed_at`

// ReleasedStaleMessage is written to entries returned to pending after a worker vanished mid-claim.
const ReleasedStaleMessage = "Released after stale processing claim"

// StaleExhaustedMessage is written when a stale release uses up the entry's last retry.
const StaleExhaustedMessage = "Failed after repeated stale processing claims"

type QueueRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db, now: time.Now}
}

func (r *QueueRepository) Enqueue(ctx context.Context, entries []domain.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, entry := range entries {
		details, err := marshalDetails(entry.Details)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO enrichment_queue (
	id, batch_id, part_number, description, brand, category, status, error_message, retry_count, details, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
			entry.ID, entry.BatchID, entry.PartNumber, entry.Description, entry.Brand, entry.Category,
			string(entry.Status), entry.Error, entry.RetryCount, details, entry.CreatedAt, entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert queue entry %s: %w", entry.PartNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enqueue tx: %w", err)
	}
	return nil
}

// ClaimPending uses SKIP LOCKED so concurrent workers never claim the same entry.
func (r *QueueRepository) ClaimPending(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
	if limit <= 0 {
		return []domain.QueueEntry{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
UPDATE enrichment_queue
SET status = 'processing', updated_at = $2
WHERE id IN (
	SELECT id FROM enrichment_queue
	WHERE status = 'pending'
	ORDER BY created_at, seq
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING `+queueColumns, limit, r.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("claim pending entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanQueueRows(rows)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Seq < entries[j].Seq
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (r *QueueRepository) Update(ctx context.Context, id string, upd domain.QueueUpdate) error {
	args := []any{id}
	sets := make([]string, 0, 6)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if upd.Error != nil {
		set("error_message", *upd.Error)
	}
	if upd.RetryCount != nil {
		set("retry_count", *upd.RetryCount)
	}
	if upd.Details != nil {
		details, err := marshalDetails(upd.Details)
		if err != nil {
			return err
		}
		set("details", details)
	}
	if upd.CompletedAt != nil {
		set("completed_at", upd.CompletedAt.UTC())
	}
	set("updated_at", r.now().UTC())

	res, err := r.db.ExecContext(ctx,
		"UPDATE enrichment_queue SET "+strings.Join(sets, ", ")+" WHERE id = $1",
		args...,
	)
	if err != nil {
		return fmt.Errorf("update queue entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update queue entry rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrEntryNotFound, "update queue entry", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *QueueRepository) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM enrichment_queue WHERE id = $1`, id)
	entry, err := scanQueueEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEntryNotFound, "get queue entry", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return &entry, nil
}

func (r *QueueRepository) List(ctx context.Context, filter domain.QueueFilter) ([]domain.QueueEntry, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, len(filter.Statuses)+2)
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(args)+1, len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		where = append(where, fmt.Sprintf("batch_id = $%d", len(args)))
	}

	query := `SELECT ` + queueColumns + ` FROM enrichment_queue`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, seq"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()
	return scanQueueRows(rows)
}

func (r *QueueRepository) Counts(ctx context.Context) (domain.QueueCounts, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM enrichment_queue GROUP BY status`)
	if err != nil {
		return domain.QueueCounts{}, fmt.Errorf("count queue entries: %w", err)
	}
	defer rows.Close()

	var counts domain.QueueCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.QueueCounts{}, fmt.Errorf("scan queue count: %w", err)
		}
		counts.Add(domain.QueueStatus(status), n)
	}
	if err := rows.Err(); err != nil {
		return domain.QueueCounts{}, fmt.Errorf("iterate queue counts: %w", err)
	}
	return counts, nil
}

func (r *QueueRepository) Clear(ctx context.Context, statuses []domain.QueueStatus) (int64, error) {
	query := `DELETE FROM enrichment_queue`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (" + placeholders(1, len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear queue entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear queue rows affected: %w", err)
	}
	return removed, nil
}

// ReleaseStale counts each orphaned claim as a used retry, so an entry that keeps
// killing its worker ends up failed instead of cycling forever.
func (r *QueueRepository) ReleaseStale(ctx context.Context, olderThan time.Duration, maxRetries int) (int64, error) {
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE enrichment_queue
SET retry_count = LEAST(retry_count + 1, $4),
    status = CASE WHEN retry_count + 1 >= $4 THEN 'failed' ELSE 'pending' END,
    error_message = CASE WHEN retry_count + 1 >= $4 THEN $5 ELSE $2 END,
    updated_at = $3
WHERE status = 'processing' AND updated_at < $1
`, now.Add(-olderThan), ReleasedStaleMessage, now, maxRetries, StaleExhaustedMessage)
	if err != nil {
		return 0, fmt.Errorf("release stale entries: %w", err)
	}
	released, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release stale rows affected: %w", err)
	}
	return released, nil
}

func scanQueueRows(rows *sql.Rows) ([]domain.QueueEntry, error) {
	entries := make([]domain.QueueEntry, 0)
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue entries: %w", err)
	}
	return entries, nil
}

func scanQueueEntry(row rowScanner) (domain.QueueEntry, error) {
	var entry domain.QueueEntry
	var status string
	var detailsRaw []byte

	err := row.Scan(
		&entry.ID, &entry.Seq, &entry.BatchID, &entry.PartNumber, &entry.Description, &entry.Brand, &entry.Category,
		&status, &entry.Error, &entry.RetryCount, &detailsRaw, &entry.CreatedAt, &entry.UpdatedAt, &entry.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QueueEntry{}, err
		}
		return domain.QueueEntry{}, fmt.Errorf("scan queue entry: %w", err)
	}

	entry.Status = domain.QueueStatus(status)
	if len(detailsRaw) > 0 {
		var details domain.EnrichmentDetails
		if err := json.Unmarshal(detailsRaw, &details); err != nil {
			return domain.QueueEntry{}, fmt.Errorf("unmarshal queue entry details: %w", err)
		}
		entry.Details = &details
	}
	return entry, nil
}

func marshalDetails(details *domain.EnrichmentDetails) (any, error) {
	if details == nil {
		return nil, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal queue entry details: %w", err)
	}
	return raw, nil
}

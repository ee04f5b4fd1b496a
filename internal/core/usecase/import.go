package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/parser"
	"github.com/dakshin/partsquote/internal/core/ports"
)

const maxImportListLimit = 100

type ImportPartsListUseCase struct {
	parser       *parser.Parser
	extractor    ports.TextExtractor
	storage      ports.ObjectStorage
	queue        ports.QueueRepository
	batches      ports.ImportBatchRepository
	orchestrator ports.OrchestratorController
	events       ports.EventPublisher
	now          func() time.Time
}

func NewImportPartsListUseCase(
	p *parser.Parser,
	extractor ports.TextExtractor,
	storage ports.ObjectStorage,
	queue ports.QueueRepository,
	batches ports.ImportBatchRepository,
	orchestrator ports.OrchestratorController,
	events ports.EventPublisher,
) *ImportPartsListUseCase {
	if p == nil {
		p = parser.New(parser.DefaultRules())
	}
	return &ImportPartsListUseCase{
		parser:       p,
		extractor:    extractor,
		storage:      storage,
		queue:        queue,
		batches:      batches,
		orchestrator: orchestrator,
		events:       publisherOrNop(events),
		now:          time.Now,
	}
}

func (uc *ImportPartsListUseCase) Parse(_ context.Context, text string) (*domain.ParseReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse parts list", fmt.Errorf("text is empty"))
	}
	items, stats := uc.parser.ParseWithStats(text)
	return &domain.ParseReport{Items: items, Stats: stats}, nil
}

// Import parses the source, archives it, and enqueues one entry per distinct part number.
func (uc *ImportPartsListUseCase) Import(ctx context.Context, src domain.ImportSource) (*domain.ImportResult, error) {
	text, err := uc.sourceText(ctx, src)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "import parts list", fmt.Errorf("no text content"))
	}

	items, stats := uc.parser.ParseWithStats(text)
	if len(items) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "import parts list", fmt.Errorf("no usable rows in %d lines", stats.Lines))
	}

	batchID := uuid.NewString()
	archiveKey := ""
	if uc.storage != nil {
		archiveKey = fmt.Sprintf("imports/%s_%s", batchID, archiveName(src.Filename))
		if err := uc.storage.Save(ctx, archiveKey, strings.NewReader(text)); err != nil {
			return nil, fmt.Errorf("archive parts list: %w", err)
		}
	}

	now := uc.now().UTC()
	entries, duplicates := buildEntries(batchID, items, now)
	if err := uc.queue.Enqueue(ctx, entries); err != nil {
		return nil, fmt.Errorf("enqueue parts: %w", err)
	}

	if uc.batches != nil {
		batch := domain.ImportBatch{
			ID:         batchID,
			Filename:   src.Filename,
			MimeType:   src.MimeType,
			ArchiveKey: archiveKey,
			Stats:      stats,
			Enqueued:   len(entries),
			Duplicates: duplicates,
			CreatedAt:  now,
		}
		if err := uc.batches.Create(ctx, batch); err != nil {
			// The entries are already queued; only the history row is lost.
			slog.Warn("import_batch_record_failed", "batch_id", batchID, "error", err)
		}
	}

	publishBestEffort(ctx, uc.events, domain.QueueEvent{
		Type:    domain.EventEntriesEnqueued,
		BatchID: batchID,
		Count:   len(entries),
	})

	if uc.orchestrator != nil {
		if err := uc.orchestrator.Start(ctx); err != nil {
			// Entries stay pending; the scheduled resume picks them up.
			slog.Warn("orchestrator_start_failed", "batch_id", batchID, "error", err)
		}
	}

	slog.Info("parts_list_imported",
		"batch_id", batchID,
		"items", len(items),
		"enqueued", len(entries),
		"duplicates", duplicates,
		"skipped", stats.Skipped,
	)

	return &domain.ImportResult{
		BatchID:    batchID,
		Items:      items,
		Stats:      stats,
		Enqueued:   len(entries),
		Duplicates: duplicates,
		ArchiveKey: archiveKey,
	}, nil
}

func (uc *ImportPartsListUseCase) ListImports(ctx context.Context, limit int) ([]domain.ImportBatch, error) {
	if uc.batches == nil {
		return []domain.ImportBatch{}, nil
	}
	if limit <= 0 || limit > maxImportListLimit {
		limit = maxImportListLimit
	}
	batches, err := uc.batches.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	return batches, nil
}

func (uc *ImportPartsListUseCase) GetImport(ctx context.Context, id string) (*domain.ImportBatch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get import batch", fmt.Errorf("id is required"))
	}
	if uc.batches == nil {
		return nil, domain.WrapError(domain.ErrImportNotFound, "get import batch", fmt.Errorf("id %s", id))
	}
	return uc.batches.GetByID(ctx, id)
}

func (uc *ImportPartsListUseCase) sourceText(ctx context.Context, src domain.ImportSource) (string, error) {
	if src.Body == nil {
		return src.Text, nil
	}
	if uc.extractor == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "import parts list", fmt.Errorf("file uploads are not supported"))
	}
	text, err := uc.extractor.Extract(ctx, src.Filename, src.MimeType, src.Body)
	if err != nil {
		return "", fmt.Errorf("extract parts list text: %w", err)
	}
	return text, nil
}

func buildEntries(batchID string, items []domain.ParsedLineItem, now time.Time) ([]domain.QueueEntry, int) {
	seen := make(map[string]struct{}, len(items))
	entries := make([]domain.QueueEntry, 0, len(items))
	duplicates := 0
	for _, item := range items {
		key := strings.ToUpper(item.PartNumber)
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, domain.QueueEntry{
			ID:          uuid.NewString(),
			BatchID:     batchID,
			PartNumber:  item.PartNumber,
			Description: item.Description,
			Brand:       item.Brand,
			Category:    item.Category,
			Status:      domain.QueueStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return entries, duplicates
}

func archiveName(filename string) string {
	if strings.TrimSpace(filename) == "" {
		return "pasted.txt"
	}
	name := sanitizeFilename(filename)
	if filepath.Ext(name) != ".txt" {
		name += ".txt"
	}
	return name
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "parts.txt"
	}
	return base
}

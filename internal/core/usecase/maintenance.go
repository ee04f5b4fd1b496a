package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

type MaintenanceConfig struct {
	StaleAfter        time.Duration
	ImageCacheMaxIdle time.Duration
	MaxRetries        int
}

// MaintenanceUseCase holds the periodic housekeeping jobs run by the worker.
type MaintenanceUseCase struct {
	queue        ports.QueueRepository
	images       ports.ImageCache
	orchestrator ports.OrchestratorController
	cfg          MaintenanceConfig
}

func NewMaintenanceUseCase(
	queue ports.QueueRepository,
	images ports.ImageCache,
	orchestrator ports.OrchestratorController,
	cfg MaintenanceConfig,
) *MaintenanceUseCase {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.ImageCacheMaxIdle <= 0 {
		cfg.ImageCacheMaxIdle = 30 * 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = domain.DefaultMaxRetries
	}
	return &MaintenanceUseCase{queue: queue, images: images, orchestrator: orchestrator, cfg: cfg}
}

// ReleaseStale returns orphaned processing entries to pending and restarts processing.
// Each release spends a retry; entries out of retries are parked as failed.
func (uc *MaintenanceUseCase) ReleaseStale(ctx context.Context) error {
	released, err := uc.queue.ReleaseStale(ctx, uc.cfg.StaleAfter, uc.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("release stale entries: %w", err)
	}
	if released == 0 {
		return nil
	}
	slog.Warn("stale_entries_released", "count", released, "stale_after", uc.cfg.StaleAfter.String())
	return uc.ResumePending(ctx)
}

// ResumePending starts the orchestrator when work is waiting and nobody paused it.
func (uc *MaintenanceUseCase) ResumePending(ctx context.Context) error {
	if uc.orchestrator == nil {
		return nil
	}
	state := uc.orchestrator.State()
	if state.Processing || state.Paused {
		return nil
	}
	counts, err := uc.queue.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count queue entries: %w", err)
	}
	if counts.Pending == 0 {
		return nil
	}
	slog.Info("orchestrator_resume", "pending", counts.Pending)
	return uc.orchestrator.Start(ctx)
}

func (uc *MaintenanceUseCase) PruneImageCache(ctx context.Context) error {
	if uc.images == nil {
		return nil
	}
	removed, err := uc.images.Prune(ctx, uc.cfg.ImageCacheMaxIdle)
	if err != nil {
		return fmt.Errorf("prune image cache: %w", err)
	}
	if removed > 0 {
		slog.Info("image_cache_pruned", "removed", removed)
	}
	return nil
}

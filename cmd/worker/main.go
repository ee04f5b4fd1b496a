package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dakshin/partsquote/internal/bootstrap"
	"github.com/dakshin/partsquote/internal/config"
	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/infrastructure/scheduler"
	"github.com/dakshin/partsquote/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer w.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux(w),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	// Entries left processing by a previous crash go back to pending before the first run.
	if err := w.Maintenance.ReleaseStale(ctx); err != nil {
		slog.Error("startup_stale_release_failed", "error", err)
	}
	if err := w.Maintenance.ResumePending(ctx); err != nil {
		slog.Error("startup_resume_failed", "error", err)
	}

	sched := scheduler.New(ctx)
	if err := addJobs(sched, w, cfg); err != nil {
		slog.Error("scheduler_setup_failed", "error", err)
		os.Exit(1)
	}
	sched.Start()

	slog.Info("worker_subscribed", "subject", cfg.NATSControlSubject)
	err = w.Bus.SubscribeControl(ctx, func(handlerCtx context.Context, cmd domain.ControlCommand) error {
		switch cmd.Action {
		case domain.ControlStart:
			return w.Orchestrator.Start(handlerCtx)
		case domain.ControlPause:
			return w.Orchestrator.Pause(handlerCtx)
		default:
			return fmt.Errorf("unknown control action %q", cmd.Action)
		}
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	w.Orchestrator.Wait()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker_metrics_shutdown_failed", "error", err)
	}
}

// addJobs registers housekeeping. Jobs that may start the orchestrator carry no
// timeout because the run inherits the job context.
func addJobs(sched *scheduler.Scheduler, w *bootstrap.Worker, cfg config.Config) error {
	jobs := []scheduler.Job{
		{Name: "release_stale", Spec: cfg.WorkerSweepSchedule, Run: w.Maintenance.ReleaseStale},
		{Name: "resume_pending", Spec: cfg.WorkerSweepSchedule, Run: w.Maintenance.ResumePending},
		{Name: "prune_image_cache", Spec: "@daily", Timeout: time.Minute, Run: w.Maintenance.PruneImageCache},
		{Name: "queue_depth", Spec: "@every 30s", Timeout: 10 * time.Second, Run: func(ctx context.Context) error {
			counts, err := w.Queue.Counts(ctx)
			if err != nil {
				return err
			}
			w.Metrics.ObserveQueueCounts(counts)
			return nil
		}},
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return err
		}
	}
	return nil
}

func metricsMux(w *bootstrap.Worker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", w.Metrics.Handler())
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		state := w.Orchestrator.State()
		_, _ = fmt.Fprintf(rw, `{"status":"ok","processing":%t,"paused":%t,"in_flight":%d}`+"\n", state.Processing, state.Paused, state.InFlight)
	})
	return mux
}

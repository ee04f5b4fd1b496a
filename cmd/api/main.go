package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/dakshin/partsquote/internal/adapters/http"
	mcpadapter "github.com/dakshin/partsquote/internal/adapters/mcp"
	"github.com/dakshin/partsquote/internal/bootstrap"
	"github.com/dakshin/partsquote/internal/config"
	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewAPI(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	events := httpadapter.NewEventStream()
	go func() {
		err := app.Bus.SubscribeEvents(ctx, func(event domain.QueueEvent) {
			app.Orchestrator.HandleEvent(event)
			events.Publish(event)
		})
		if err != nil {
			slog.Error("queue_events_subscription_failed", "error", err)
		}
	}()

	deps := httpadapter.Dependencies{
		Importer:     app.Importer,
		Imports:      app.Importer,
		Queue:        app.QueueAdmin,
		Orchestrator: app.Orchestrator,
		Catalog:      app.CatalogUC,
		Requeue:      app.CatalogUC,
		Customers:    app.Customers,
		Quotes:       app.Quotes,
		Events:       events,
		Metrics:      app.Metrics,
	}
	if cfg.MCPEnabled {
		deps.MCP = mcpadapter.NewServer(mcpadapter.Dependencies{
			Importer: app.Importer,
			Queue:    app.QueueAdmin,
			Catalog:  app.CatalogUC,
			Quotes:   app.Quotes,
		}).Handler()
	}

	// No write timeout: /v1/queue/events is a long-lived stream.
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           httpadapter.NewRouter(cfg, deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "mcp_enabled", cfg.MCPEnabled, "auth_enabled", cfg.APIToken != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}

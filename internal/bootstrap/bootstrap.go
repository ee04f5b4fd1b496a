package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dakshin/partsquote/internal/config"
	"github.com/dakshin/partsquote/internal/core/parser"
	"github.com/dakshin/partsquote/internal/core/ports"
	"github.com/dakshin/partsquote/internal/core/usecase"
	"github.com/dakshin/partsquote/internal/infrastructure/export/xlsx"
	"github.com/dakshin/partsquote/internal/infrastructure/extractor"
	"github.com/dakshin/partsquote/internal/infrastructure/extractor/pdftext"
	"github.com/dakshin/partsquote/internal/infrastructure/extractor/plaintext"
	"github.com/dakshin/partsquote/internal/infrastructure/extractor/spreadsheet"
	"github.com/dakshin/partsquote/internal/infrastructure/graph/neo4j"
	"github.com/dakshin/partsquote/internal/infrastructure/imagesearch"
	"github.com/dakshin/partsquote/internal/infrastructure/imagesearch/googleimages"
	"github.com/dakshin/partsquote/internal/infrastructure/llm/anthropic"
	"github.com/dakshin/partsquote/internal/infrastructure/llm/openrouter"
	"github.com/dakshin/partsquote/internal/infrastructure/queue/nats"
	"github.com/dakshin/partsquote/internal/infrastructure/repository/postgres"
	"github.com/dakshin/partsquote/internal/infrastructure/resilience"
	"github.com/dakshin/partsquote/internal/infrastructure/storage/localfs"
	"github.com/dakshin/partsquote/internal/observability/metrics"
)

// App holds what both binaries share: storage, the message bus and the parser rules.
type App struct {
	Config config.Config

	DB         *sql.DB
	Bus        *nats.Bus
	Queue      *postgres.QueueRepository
	Catalog    *postgres.PartRepository
	ImageCache *postgres.ImageCacheRepository
	Parser     *parser.Parser
	Graph      ports.CompatibilityGraph

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}

	rules := parser.DefaultRules()
	if cfg.ParserRulesPath != "" {
		loaded, err := parser.LoadRules(cfg.ParserRulesPath)
		if err != nil {
			return nil, fmt.Errorf("load parser rules: %w", err)
		}
		rules = loaded
		slog.Info("parser_rules_loaded", "path", cfg.ParserRulesPath, "brands", len(rules.Brands), "categories", len(rules.Categories))
	}
	app.Parser = parser.New(rules)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.onClose(func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	app.DB = db
	app.Queue = postgres.NewQueueRepository(db)
	app.Catalog = postgres.NewPartRepository(db)
	app.ImageCache = postgres.NewImageCacheRepository(db)

	bus, err := nats.New(cfg.NATSURL, nats.Options{
		ControlSubject:     cfg.NATSControlSubject,
		EventsSubject:      cfg.NATSEventsSubject,
		ResilienceExecutor: resilience.NewExecutor(resilience.BusConfig()),
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message bus: %w", err)
	}
	app.Bus = bus
	app.onClose(bus.Close)

	if cfg.Neo4jURI != "" {
		graph, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			// The catalog answers interchange queries on its own.
			slog.Warn("compatibility_graph_unavailable", "uri", cfg.Neo4jURI, "error", err)
		} else {
			app.Graph = graph
			app.onClose(func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = graph.Close(closeCtx)
			})
		}
	}

	return app, nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// API is the wiring for cmd/api. Orchestration runs in the worker and is
// reached through the control bus.
type API struct {
	*App

	Orchestrator *usecase.RemoteOrchestrator
	Importer     *usecase.ImportPartsListUseCase
	QueueAdmin   *usecase.QueueAdminUseCase
	CatalogUC    *usecase.CatalogUseCase
	Customers    *usecase.CustomerUseCase
	Quotes       *usecase.QuoteUseCase
	Metrics      *metrics.HTTPServerMetrics
}

func NewAPI(ctx context.Context, cfg config.Config) (*API, error) {
	app, err := newApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	textExtractor := extractor.NewRouter(
		plaintext.NewExtractor(),
		pdftext.NewExtractor(),
		spreadsheet.NewExtractor(),
	)

	remote := usecase.NewRemoteOrchestrator(app.Bus)
	customers := postgres.NewCustomerRepository(app.DB)
	return &API{
		App:          app,
		Orchestrator: remote,
		Importer:     usecase.NewImportPartsListUseCase(app.Parser, textExtractor, storage, app.Queue, postgres.NewImportBatchRepository(app.DB), remote, app.Bus),
		QueueAdmin:   usecase.NewQueueAdminUseCase(app.Queue, remote, app.Bus),
		CatalogUC:    usecase.NewCatalogUseCase(app.Catalog, app.Graph, app.Queue, remote, app.Bus),
		Customers:    usecase.NewCustomerUseCase(customers),
		Quotes:       usecase.NewQuoteUseCase(app.Parser, xlsx.NewRenderer(), customers),
		Metrics:      metrics.NewHTTPServerMetrics("api"),
	}, nil
}

// Worker is the wiring for cmd/worker.
type Worker struct {
	*App

	Orchestrator *usecase.Orchestrator
	Maintenance  *usecase.MaintenanceUseCase
	Metrics      *metrics.WorkerMetrics
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	app, err := newApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	enricher, err := newEnricher(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	browser := googleimages.NewBrowser(cfg.BrowserRemoteURL)
	app.onClose(func() { _ = browser.Close() })
	finder := googleimages.NewFinder(browser, googleimages.Options{
		Timeout:    cfg.ImageSearchTimeout,
		RPS:        cfg.ImageSearchRPS,
		Policy:     rankingPolicy(cfg),
		Resilience: resilience.NewExecutor(resilience.BrowserConfig()),
	})
	images := imagesearch.NewCachedFinder(finder, app.ImageCache)

	workerMetrics := metrics.NewWorkerMetrics("worker")
	processor := usecase.NewEnrichEntryUseCase(app.Queue, app.Catalog, images, enricher, usecase.EnrichEntryOptions{
		MaxRetries: cfg.EnrichMaxRetries,
		Graph:      app.Graph,
		Events:     app.Bus,
		Observer:   workerMetrics,
	})
	orchestrator := usecase.NewOrchestrator(app.Queue, processor, app.Bus, usecase.OrchestratorConfig{
		Concurrency: cfg.EnrichConcurrency,
		BatchDelay:  cfg.EnrichBatchDelay,
		ItemTimeout: cfg.EnrichItemTimeout,
	})
	maintenance := usecase.NewMaintenanceUseCase(app.Queue, app.ImageCache, orchestrator, usecase.MaintenanceConfig{
		StaleAfter:        cfg.EnrichStaleAfter,
		ImageCacheMaxIdle: cfg.ImageCacheTTL,
		MaxRetries:        cfg.EnrichMaxRetries,
	})

	slog.Info("worker_wired",
		"llm_provider", cfg.LLMProvider,
		"model", enricher.Model(),
		"concurrency", cfg.EnrichConcurrency,
		"graph_enabled", app.Graph != nil,
	)

	return &Worker{
		App:          app,
		Orchestrator: orchestrator,
		Maintenance:  maintenance,
		Metrics:      workerMetrics,
	}, nil
}

func newEnricher(cfg config.Config) (ports.PartEnricher, error) {
	switch cfg.LLMProvider {
	case "", "openrouter":
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required for the openrouter provider")
		}
		return openrouter.New(openrouter.Options{
			BaseURL:    cfg.OpenRouterURL,
			APIKey:     cfg.OpenRouterAPIKey,
			Model:      cfg.OpenRouterModel,
			Timeout:    cfg.LLMTimeout,
			Title:      "partsquote",
			Resilience: resilience.NewExecutor(resilience.ModelConfig()),
		}), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return anthropic.New(anthropic.Options{
			APIKey:     cfg.AnthropicAPIKey,
			Model:      cfg.AnthropicModel,
			Timeout:    cfg.LLMTimeout,
			Resilience: resilience.NewExecutor(resilience.ModelConfig()),
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func rankingPolicy(cfg config.Config) imagesearch.RankingPolicy {
	policy := imagesearch.DefaultRankingPolicy()
	if cfg.ImageWatermarkBlacklist != nil {
		policy.Blacklist = cfg.ImageWatermarkBlacklist
	}
	if cfg.ImagePreferredDomains != nil {
		policy.PreferredDomains = cfg.ImagePreferredDomains
	}
	return policy
}

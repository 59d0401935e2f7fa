package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mkale-dev/swarmd/internal/api/handlers"
	mw "github.com/mkale-dev/swarmd/internal/api/middleware"
	"github.com/mkale-dev/swarmd/internal/buildconfig"
	"github.com/mkale-dev/swarmd/internal/catalog"
	"github.com/mkale-dev/swarmd/internal/config"
	"github.com/mkale-dev/swarmd/internal/domain"
	"github.com/mkale-dev/swarmd/internal/service"
	"github.com/mkale-dev/swarmd/internal/store"
)

// App holds the router and the dispatcher for lifecycle management.
type App struct {
	Router     *chi.Mux
	Dispatcher *service.Dispatcher

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) *App {
	// Stores
	agentStore := store.NewAgentStore(db)
	runStore := store.NewRunStore(db)
	outputStore := store.NewOutputStore(rdb)

	// Catalogs are read-only from here on.
	tools, strategies := catalog.Builtins()

	// Services
	runner := service.NewRunner(agentStore, runStore, outputStore, tools, strategies, logger)
	runner.SetTimeout(config.ExecutionTimeout())
	runner.SetGrace(config.ExecutionGrace())
	runner.SetRetention(config.LogRetention())
	dispatcher := service.NewDispatcher(agentStore, runner, logger)
	dispatcher.SetTickUnit(config.TickResolution())
	agentSvc := service.NewAgentService(agentStore, runStore, outputStore, tools, strategies, dispatcher, runner, logger)

	// Handlers
	agentHandler := handlers.NewAgentHandler(agentSvc)
	triggerHandler := handlers.NewTriggerHandler(dispatcher)
	runHandler := handlers.NewRunHandler(agentSvc)
	catalogHandler := handlers.NewCatalogHandler(tools, strategies)

	r := chi.NewRouter()

	app := &App{
		Router:     r,
		Dispatcher: dispatcher,
		startTime:  time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", agentHandler.List)
			r.Post("/", agentHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", agentHandler.GetByID)
				r.Put("/", agentHandler.Update)
				r.Delete("/", agentHandler.Delete)
				r.Post("/state", agentHandler.SetState)
				r.Post("/webhook", triggerHandler.Trigger)
				r.Get("/logs", runHandler.Logs)
				r.Get("/output", runHandler.Output)
			})
		})

		r.Get("/tools", catalogHandler.Tools)
		r.Get("/strategies", catalogHandler.Strategies)
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy the domain interfaces at compile time.
var (
	_ domain.AgentStore  = (*store.AgentStore)(nil)
	_ domain.RunStore    = (*store.RunStore)(nil)
	_ domain.OutputStore = (*store.OutputStore)(nil)
)

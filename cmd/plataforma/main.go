package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/adapters/electoral"
	"github.com/impulso-digital/plataforma/internal/assist"
	"github.com/impulso-digital/plataforma/internal/directory"
	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/messaging"
	"github.com/impulso-digital/plataforma/internal/notification"
	"github.com/impulso-digital/plataforma/internal/provisioning"
	"github.com/impulso-digital/plataforma/internal/realtime"
	"github.com/impulso-digital/plataforma/internal/shared/auth"
	"github.com/impulso-digital/plataforma/internal/shared/config"
	"github.com/impulso-digital/plataforma/internal/shared/database"
	"github.com/impulso-digital/plataforma/internal/shared/events"
	"github.com/impulso-digital/plataforma/internal/shared/logging"
	"github.com/impulso-digital/plataforma/internal/shared/metrics"
	secmiddleware "github.com/impulso-digital/plataforma/internal/shared/middleware"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// App holds the application's shared infrastructure
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *database.DB
	Bus    *events.Bus
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.Env)
	app := &App{Config: cfg, Logger: logger}

	// The role catalog is the authorization ground truth. An
	// inconsistent catalog is fatal: better to refuse startup than to
	// authorize against broken tables.
	catalog, err := hierarchy.NewCatalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("role catalog is inconsistent")
	}
	engine := hierarchy.NewEngine(catalog)
	classifier := messaging.NewClassifier(catalog)

	// Database (optional - degrade to in-memory stores if unavailable)
	var memberStore directory.Store
	var messageStore messaging.Store
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("database not available, running with in-memory stores")
		memberStore = directory.NewMemoryStore()
		messageStore = messaging.NewMemoryStore()
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		memberStore = directory.NewRepository(db.Pool)
		messageStore = messaging.NewRepository(db.Pool)
	}

	// Event bus (optional - skip streaming if unavailable)
	var publisher events.Publisher = events.NopPublisher{}
	bus, err := events.NewBus(cfg.EventStore, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("eventstore not available, running without event streaming")
	} else {
		app.Bus = bus
		defer bus.Close()
		publisher = bus
		logger.Info().Msg("event bus initialized")
	}

	// External notification dispatch
	var provider notification.Provider
	if cfg.Automation.Enabled {
		provider = notification.NewAutomationWebhookProvider(cfg.Automation)
	} else {
		provider = notification.NewConsoleProvider(logger)
	}
	dispatcher := notification.NewDispatcher(provider, notification.DefaultDispatcherConfig(), logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Credential store for account provisioning
	var credentials provisioning.CredentialStore
	if cfg.Identity.Enabled {
		credentials = provisioning.NewHTTPCredentialStore(cfg.Identity)
	} else {
		logger.Warn().Msg("identity store disabled, credentials held in memory")
		credentials = provisioning.NewMemoryCredentialStore()
	}

	// Domain services
	directoryService := directory.NewService(memberStore, engine)
	provisioner := provisioning.NewService(memberStore, engine, credentials, publisher, logger)
	messagingService := messaging.NewService(messageStore, classifier, catalog, publisher, dispatcher, logger)

	// Retry credential sync for members provisioned during an outage.
	go provisioner.RunReconciler(ctx, time.Minute)

	// Realtime hub and event bridge
	hub := realtime.NewHub(engine, classifier, logger)
	go hub.Run(ctx)
	if app.Bus != nil {
		bridge := realtime.NewBridge(app.Bus, hub, logger)
		if err := bridge.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("realtime bridge failed to start")
		}
	}

	// One-shot import of verified office holders from the electoral
	// registry. Idempotent, so re-running is safe.
	if cfg.Electoral.ImportRun {
		runElectoralImport(ctx, cfg, memberStore, logger)
	}

	rateLimiter := secmiddleware.NewIPRateLimiter(20, 40)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.MaxBody)
	r.Use(rateLimiter.Middleware)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", infoHandler)

	// Tokens come from the identity provider in production; the dev
	// endpoint keeps local work self-contained.
	if cfg.Server.Env == "development" {
		r.Post("/auth/dev-token", devTokenHandler(cfg, catalog))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth))

		r.Mount("/hierarchy", hierarchy.NewHandler(engine).Routes())
		r.Mount("/directory", directory.NewHandler(directoryService, engine, provisioner).Routes())
		r.Mount("/messages", messaging.NewHandler(messagingService, catalog).Routes())
		r.Mount("/realtime", realtime.NewHandler(hub, catalog, logger).Routes())

		if cfg.Assist.Enabled {
			client := assist.NewClient(cfg.Assist, logger)
			r.Mount("/assist", assist.NewHandler(client, catalog).Routes())
			logger.Info().Str("url", cfg.Assist.URL).Msg("content assist enabled")
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info().Msg("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		close(done)
	}()

	logger.Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Msg("plataforma listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}

	<-done
	logger.Info().Msg("server stopped")
}

func runElectoralImport(ctx context.Context, cfg *config.Config, store directory.Store, logger zerolog.Logger) {
	importer, err := electoral.NewImporter(cfg.Electoral, store, logger)
	if err != nil {
		logger.Error().Err(err).Msg("electoral registry connection failed")
		return
	}
	defer importer.Close()

	if _, err := importer.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("electoral import failed")
	}
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Plataforma Organizativa",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["eventstore"] = "not ready: " + err.Error()
			} else {
				checks["eventstore"] = "ready"
			}
		} else {
			checks["eventstore"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

// devTokenHandler issues a signed token for any known role. Development
// only; never mounted in other environments.
func devTokenHandler(cfg *config.Config, catalog *hierarchy.Catalog) http.HandlerFunc {
	type request struct {
		Name         string `json:"name"`
		Role         string `json:"role"`
		Department   string `json:"department,omitempty"`
		Municipality string `json:"municipality,omitempty"`
		Locality     string `json:"locality,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if !catalog.Known(hierarchy.Role(req.Role)) {
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}

		actor := &auth.Actor{
			ID:   types.NewID(),
			Name: req.Name,
			Role: req.Role,
			Territory: types.Territory{
				Department:   req.Department,
				Municipality: req.Municipality,
				Locality:     req.Locality,
			},
		}
		token, err := auth.IssueToken(cfg.Auth, actor, 24*time.Hour)
		if err != nil {
			http.Error(w, "failed to issue token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token":    token,
			"actor_id": actor.ID.String(),
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Package main is the entry point for the booking API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/robfig/cron/v3"

	"github.com/BrainsyETH/dillardmill/internal/cms"
	"github.com/BrainsyETH/dillardmill/internal/config"
	"github.com/BrainsyETH/dillardmill/internal/feed"
	"github.com/BrainsyETH/dillardmill/internal/handler"
	"github.com/BrainsyETH/dillardmill/internal/middleware"
	"github.com/BrainsyETH/dillardmill/internal/notify"
	"github.com/BrainsyETH/dillardmill/internal/payment"
	"github.com/BrainsyETH/dillardmill/internal/repo"
	"github.com/BrainsyETH/dillardmill/internal/service"
	"github.com/BrainsyETH/dillardmill/migrations"
)

// maxRequestBody caps incoming request bodies. Booking forms are small;
// anything near this size is not a legitimate request.
const maxRequestBody = 1 << 20 // 1 MiB

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// log/slog is the stdlib structured logger introduced in Go 1.21.
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Migrations -------------------------------------------------------
	// goose needs database/sql; the pool below uses pgx natively. Run the
	// embedded migrations before opening the pool so the schema is current
	// by the time the first query lands.
	if err := runMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Collaborators ----------------------------------------------------
	units := cms.NewClient(cfg.SanityProjectID, cfg.SanityDataset, cfg.SanityAPIToken)
	charger := payment.NewClient(cfg.SquareAccessToken, cfg.SquareLocationID, cfg.SquareEnvironment)
	notifier := notify.NewClient(cfg.ResendAPIKey, cfg.BookingFromEmail, cfg.AdminEmail)
	fetcher := feed.NewFetcher(cfg.FeedTimeout)

	bookingRepo := repo.NewBookingRepo(pool)
	externalRepo := repo.NewExternalRepo(pool)

	availabilitySvc := service.NewAvailabilityService(bookingRepo, externalRepo)
	syncSvc := service.NewSyncService(units, fetcher, externalRepo, logger)
	bookingSvc := service.NewBookingService(units, availabilitySvc, bookingRepo, charger, notifier, logger)

	// --- Sync schedule ----------------------------------------------------
	// External platform calendars drift; the schedule keeps the local mirror
	// fresh without anyone hitting the manual trigger.
	var scheduler *cron.Cron
	if cfg.SyncSchedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.SyncSchedule, func() {
			if _, err := syncSvc.SyncAll(context.Background()); err != nil {
				slog.Error("scheduled calendar sync failed", "error", err)
			}
		})
		if err != nil {
			slog.Error("invalid sync schedule", "schedule", cfg.SyncSchedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		slog.Info("calendar sync scheduled", "schedule", cfg.SyncSchedule)
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxRequestBody))

	srvHandler := handler.NewServer(bookingSvc, availabilitySvc, syncSvc, cfg.SyncAuthToken)
	srvHandler.Routes(r)

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second, // payment round-trips make booking commits slow
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	if scheduler != nil {
		// Stop scheduling new runs; an in-flight sync finishes on its own.
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// runMigrations applies all pending embedded migrations over database/sql.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return err
	}
	return nil
}

// Package main is the entry point for the matchbook settlement engine API
// server.  It wires the store, ledger, transfer dispatcher, and WebSocket hub
// together and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/evetabi/matchbook/internal/api"
	"github.com/evetabi/matchbook/internal/config"
	"github.com/evetabi/matchbook/internal/ledger"
	"github.com/evetabi/matchbook/internal/store"
	"github.com/evetabi/matchbook/internal/transfer"
	"github.com/evetabi/matchbook/internal/ws"
)

func main() {
	// ── 1. Config + logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting matchbook settlement engine", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Store ──────────────────────────────────────────────────────────────
	var (
		st store.Store
		db *sqlx.DB
	)
	if cfg.UseMemoryStore() {
		st = store.NewMemoryStore()
		logger.Warn("no DATABASE_DSN set, using in-memory store (state is lost on restart)")
	} else {
		var err error
		db, err = sqlx.Connect("postgres", cfg.DB.DSN)
		if err != nil {
			logger.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

		if err = db.Ping(); err != nil {
			logger.Error("database ping failed", "err", err)
			os.Exit(1)
		}
		logger.Info("database connected")

		if err = runMigrations(db, "migrations"); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")

		st = store.NewPostgresStore(db)
	}

	// ── 3. WebSocket hub (the event emitter) ──────────────────────────────────
	hub := ws.NewHub([]byte(cfg.JWT.Secret), cfg.Server.AllowedOrigins, logger)

	// ── 4. Ledger core ────────────────────────────────────────────────────────
	eng := ledger.New(st, hub, logger)

	// ── 5. Transfer dispatcher ────────────────────────────────────────────────
	var gw transfer.Gateway
	if cfg.Transfer.GatewayURL != "" {
		gw = transfer.NewHTTPGateway(cfg.Transfer.GatewayURL, cfg.Transfer.GatewayKey)
	} else {
		gw = transfer.LogGateway{Logger: logger}
		logger.Warn("no TRANSFER_GATEWAY_URL set, transfers are log-only")
	}
	dispatcher := transfer.NewDispatcher(st, gw, logger, cfg.Transfer.PollInterval, cfg.Transfer.MaxAttempts)
	eng.SetWaker(dispatcher)

	// ── 6. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run()
	go dispatcher.Run(ctx)
	logger.Info("websocket hub and transfer dispatcher started")

	// ── 7. HTTP router + server ───────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		Ledger: eng,
		Hub:    hub,
		Cfg:    cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	// ── 8. Graceful shutdown ──────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	if db != nil {
		db.Close()
	}
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}

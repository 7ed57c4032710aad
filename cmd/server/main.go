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

	"github.com/ayush/task-manager/backend/internal/auth"
	"github.com/ayush/task-manager/backend/internal/config"
	"github.com/ayush/task-manager/backend/internal/httpx"
	"github.com/ayush/task-manager/backend/internal/logger"
	"github.com/ayush/task-manager/backend/internal/server"
	"github.com/ayush/task-manager/backend/internal/store"
	"github.com/ayush/task-manager/backend/internal/tasks"
)

const redisTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Store ────────────────────────────────────────────────
	st, err := store.Open(ctx, store.Options{
		Driver:       cfg.StoreDriver,
		MongoURI:     cfg.MongoURI,
		MongoDB:      cfg.MongoDB,
		MongoTimeout: cfg.MongoTimeout,
		PostgresDSN:  cfg.PostgresDSN,
	}, log)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	log.Info("store connected", "driver", cfg.StoreDriver)

	// ── Auth ─────────────────────────────────────────────────
	secret, fallback := cfg.SigningSecret()
	if fallback {
		log.Warn("JWT_SECRET is not set, signing tokens with the development fallback secret")
	}
	authOpts := []auth.Option{auth.WithLogger(log)}

	// ── Redis (optional profile cache) ───────────────────────
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, redisTimeout)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rdb.Close()
		authOpts = append(authOpts, auth.WithProfileCache(auth.NewRedisProfileCache(rdb, cfg.ProfileCacheTTL)))
		log.Info("profile cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ProfileCacheTTL)
	}

	authSvc := auth.NewService(st, auth.NewTokenIssuer(secret, cfg.TokenTTL), authOpts...)
	taskSvc := tasks.NewService(st, tasks.WithMaxLimit(cfg.MaxPageLimit), tasks.WithLogger(log))

	// ── Handlers ─────────────────────────────────────────────
	resp := &httpx.Responder{Dev: cfg.IsDevelopment(), Log: log}
	router := server.NewRouter(server.Deps{
		Auth:      auth.NewHandler(authSvc, resp),
		Tasks:     tasks.NewHandler(taskSvc, resp),
		Verifier:  authSvc,
		Store:     st,
		ClientURL: cfg.ClientURL,
		Log:       log,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = st.Close(context.Background())
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	if err := st.Close(shutCtx); err != nil {
		log.Error("store close", "error", err)
	}
	return nil
}

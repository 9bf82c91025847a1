package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/book"
	"libraryapi/internal/cache"
	"libraryapi/internal/config"
	"libraryapi/internal/enrich"
	apphttp "libraryapi/internal/http"
	"libraryapi/internal/platform/openlibrary"
	"libraryapi/internal/user"
)

const repoTimeout = 5 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := openDB(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Error("cannot connect to database", "dsn", redactDSN(cfg.DatabaseDSN), "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	store := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, logger)
	defer store.Close()

	olClient := openlibrary.NewClient(
		cfg.OpenLibraryBaseURL,
		"libraryapi (catalog enrichment)",
		cfg.OpenLibraryTimeout,
		cfg.OpenLibraryRetries,
		cfg.OpenLibraryRPS,
	)
	enricher := enrich.NewService(olClient, store, cfg.LookupTTL, logger)

	bookRepo := book.NewPostgresRepo(dbPool, repoTimeout)
	bookService := book.NewService(bookRepo, enricher, store, cfg.DetailTTL, logger)

	userRepo := user.NewPostgresRepo(dbPool, repoTimeout)
	userService := user.NewService(userRepo)

	bookHandler := apphttp.NewBookHandler(bookService)
	userHandler := apphttp.NewUserHandler(userService, cfg.JWTSecret, cfg.TokenTTL)

	requireAuth := apphttp.AuthMiddleware(cfg.JWTSecret)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("POST /auth/register", userHandler.Register)
	router.HandleFunc("POST /auth/login", userHandler.Login)
	router.Handle("GET /me", requireAuth(http.HandlerFunc(userHandler.Me)))

	router.Handle("POST /books", requireAuth(http.HandlerFunc(bookHandler.Create)))
	router.Handle("GET /books", requireAuth(http.HandlerFunc(bookHandler.List)))
	router.Handle("GET /books/{id}", requireAuth(http.HandlerFunc(bookHandler.Get)))
	router.Handle("PATCH /books/{id}", requireAuth(http.HandlerFunc(bookHandler.Update)))
	router.Handle("DELETE /books/{id}", requireAuth(http.HandlerFunc(bookHandler.Delete)))

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}
}

func openDB(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("database connection OK")
	return pool, nil
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}

// Command distill-server exposes the extraction pipeline over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yhilem/distill"
	"github.com/yhilem/distill/cache"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	cacheDB := flag.String("cache-db", "", "Path to a SQLite cache database (in-memory when empty)")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := distill.DefaultConfig()
	if *configPath != "" {
		loaded, err := distill.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Override from environment variables.
	if v := os.Getenv("DISTILL_ADDR"); v != "" {
		*addr = v
	}
	if v := os.Getenv("DISTILL_CACHE_DB"); v != "" {
		*cacheDB = v
	}
	apiKey := os.Getenv("DISTILL_API_KEY")

	opts := []distill.Option{distill.WithLogger(slog.Default())}
	if *cacheDB != "" {
		c, err := cache.NewSQLite(*cacheDB)
		if err != nil {
			slog.Error("opening cache", "path", *cacheDB, "error", err)
			os.Exit(1)
		}
		opts = append(opts, distill.WithCache(c))
	}
	pipeline := distill.New(opts...)
	defer pipeline.Cache().Close()

	h := newHandler(pipeline, cfg)

	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(requestIDMiddleware)
	r.Use(logMiddleware)
	r.Use(authMiddleware(apiKey))

	r.Post("/extract", h.handleExtract)
	r.Post("/batch", h.handleBatch)
	r.Get("/health", h.handleHealth)
	r.Get("/cache/stats", h.handleCacheStats)
	r.Delete("/cache", h.handleCacheClear)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // large batches can take a while
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

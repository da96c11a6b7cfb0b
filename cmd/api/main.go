package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/IANDYI/journal-service/internal/adapters/handler"
	"github.com/IANDYI/journal-service/internal/adapters/middleware"
	"github.com/IANDYI/journal-service/internal/adapters/repository"
	"github.com/IANDYI/journal-service/internal/config"
	"github.com/IANDYI/journal-service/internal/core/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load clinical catalog: %v", err)
	}

	db, err := config.ConnectDatabase(cfg.DatabaseURL, 5, 2*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := config.InitDatabase(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	sqlRepo := repository.NewSQLRepository(db, repository.BreakerSettings{
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
	})
	entryService := services.NewEntryService(sqlRepo, catalog)

	handler.RegisterEntriesMetrics()
	entriesHandler := handler.NewEntriesHandler(entryService)
	healthHandler := handler.NewHealthHandler(sqlRepo)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)
	defer authMiddleware.Stop()

	mux := http.NewServeMux()

	// Health endpoints (OpenShift compatible, no auth required)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	// Timeline entries, always scoped to the token's user
	mux.HandleFunc("GET /timeline/entries", authMiddleware.RequireAuth(entriesHandler.ListEntries))
	mux.HandleFunc("POST /timeline/entries", authMiddleware.RequireAuth(entriesHandler.UpsertEntry))
	mux.HandleFunc("DELETE /timeline/entries/{week}", authMiddleware.RequireAuth(entriesHandler.DeleteEntry))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.MetricsMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting Timeline Entries API on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IANDYI/journal-service/internal/adapters/gateway"
	"github.com/IANDYI/journal-service/internal/adapters/handler"
	"github.com/IANDYI/journal-service/internal/adapters/middleware"
	"github.com/IANDYI/journal-service/internal/adapters/repository"
	"github.com/IANDYI/journal-service/internal/config"
	"github.com/IANDYI/journal-service/internal/core/ports"
	"github.com/IANDYI/journal-service/internal/core/services"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.LoadJournal()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load clinical catalog: %v", err)
	}

	timelineClient := gateway.NewTimelineClient(cfg.TimelineAPIURL, cfg.TimelineAPITimeout, gateway.BreakerSettings{
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
	})

	// Danger warnings still reach the user when the broker is down; only the
	// downstream notification is skipped
	var publisher ports.WarningPublisher
	if cfg.RabbitMQURL != "" {
		rabbitMQPublisher, err := repository.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.WarningsQueueName)
		if err != nil {
			log.Printf("Warning: danger warnings will not be published: %v", err)
		} else {
			defer rabbitMQPublisher.Close()
			publisher = rabbitMQPublisher
		}
	} else {
		log.Println("RABBITMQ_URL not set, danger warnings will not be published")
	}

	registry := services.NewJournalRegistry(catalog, timelineClient, publisher, cfg.SessionIdleTimeout)
	defer registry.Stop()

	handler.RegisterJournalMetrics(registry.Len)
	journalHandler := handler.NewJournalHandler(registry, catalog)
	healthHandler := handler.NewHealthHandler(timelineClient)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)
	defer authMiddleware.Stop()

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	mux.HandleFunc("GET /journal/catalog", authMiddleware.RequireAuth(journalHandler.Catalog))
	mux.HandleFunc("POST /journal/load", authMiddleware.RequireAuth(journalHandler.Load))
	mux.HandleFunc("GET /journal/progress", authMiddleware.RequireAuth(journalHandler.Progress))

	mux.HandleFunc("GET /journal/selection", authMiddleware.RequireAuth(journalHandler.Selection))
	mux.HandleFunc("PUT /journal/selection/trimester/{trimester}", authMiddleware.RequireAuth(journalHandler.SelectTrimester))
	mux.HandleFunc("PUT /journal/selection/week/{week}", authMiddleware.RequireAuth(journalHandler.SelectWeek))

	mux.HandleFunc("GET /journal/weeks/{week}", authMiddleware.RequireAuth(journalHandler.Week))
	mux.HandleFunc("PUT /journal/weeks/{week}/health-services/{serviceID}", authMiddleware.RequireAuth(journalHandler.ToggleHealthService))
	mux.HandleFunc("PUT /journal/weeks/{week}/symptoms/{symptomID}", authMiddleware.RequireAuth(journalHandler.ToggleSymptom))
	mux.HandleFunc("PUT /journal/weeks/{week}/notes/{section}", authMiddleware.RequireAuth(journalHandler.SetNotes))
	mux.HandleFunc("POST /journal/weeks/{week}/save", authMiddleware.RequireAuth(journalHandler.Save))

	mux.HandleFunc("GET /journal/warning", authMiddleware.RequireAuth(journalHandler.Warning))
	mux.HandleFunc("DELETE /journal/warning", authMiddleware.RequireAuth(journalHandler.DismissWarning))
	mux.HandleFunc("GET /journal/notifications", authMiddleware.RequireAuth(journalHandler.Notifications))

	corsHandler := handlers.CORS(
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsHandler(middleware.MetricsMiddleware(mux)),
		// Save waits on the entries API, so the write timeout sits above the gateway timeout
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.TimelineAPITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting Journal Service on :%s (entries API: %s)", cfg.Port, cfg.TimelineAPIURL)
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

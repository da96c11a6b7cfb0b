package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IANDYI/journal-service/internal/adapters/handler"
	"github.com/IANDYI/journal-service/internal/adapters/middleware"
	"github.com/IANDYI/journal-service/internal/adapters/repository"
	"github.com/IANDYI/journal-service/internal/adapters/websocket"
	"github.com/IANDYI/journal-service/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.LoadRelay()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(cfg.AllowedOrigins)
	go hub.Run(ctx)

	consumer, err := repository.NewWarningConsumer(cfg.RabbitMQURL, cfg.WarningsQueueName, hub)
	if err != nil {
		log.Fatalf("Failed to create warning consumer: %v", err)
	}
	defer consumer.Close()

	if err := consumer.StartConsuming(ctx); err != nil {
		log.Fatalf("Failed to start warning consumer: %v", err)
	}

	handler.RegisterRelayMetrics(hub.Count)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)
	defer authMiddleware.Stop()

	wsHandler := handler.NewWebSocketHandler(hub, authMiddleware, cfg.AllowedRoles)
	healthHandler := handler.NewHealthHandler(consumer)

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	mux.HandleFunc("GET /ws/warnings", wsHandler.HandleWebSocket)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.MetricsMiddleware(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Starting Warning Relay on :%s (queue: %s, roles: %v)", cfg.Port, cfg.WarningsQueueName, cfg.AllowedRoles)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stops the consumer and disconnects every dashboard
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

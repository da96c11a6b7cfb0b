package config

import (
	"crypto/rsa"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

// CircuitBreakerConfig holds gobreaker settings read from the environment
type CircuitBreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// Config holds all configuration for the timeline entries API
type Config struct {
	// JWT configuration - public key from Identity Service
	JWTPublicKey *rsa.PublicKey

	// Database configuration
	DatabaseURL string

	// Clinical catalog file, empty means the embedded catalog
	CatalogPath string

	// Server configuration
	Port string

	CircuitBreaker CircuitBreakerConfig
}

// JournalConfig holds all configuration for the journal service
type JournalConfig struct {
	JWTPublicKey *rsa.PublicKey

	// Entries API the journal persists through
	TimelineAPIURL     string
	TimelineAPITimeout time.Duration

	// RabbitMQ configuration, empty URL disables warning publishing
	RabbitMQURL       string
	WarningsQueueName string

	CatalogPath        string
	SessionIdleTimeout time.Duration
	AllowedOrigins     []string

	Port string

	CircuitBreaker CircuitBreakerConfig
}

// Load reads the entries API configuration from environment variables
// Public key is loaded from /etc/identity/public.pem (mounted via ConfigMap)
func Load() *Config {
	loadDotEnv()

	publicKey, err := loadPublicKey(publicKeyPath())
	if err != nil {
		panic("Failed to load public key: " + err.Error())
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	return &Config{
		JWTPublicKey:   publicKey,
		DatabaseURL:    dbURL,
		CatalogPath:    os.Getenv("CATALOG_PATH"),
		Port:           getEnv("PORT", "8080"),
		CircuitBreaker: loadCircuitBreaker(),
	}
}

// LoadJournal reads the journal service configuration from environment variables
func LoadJournal() *JournalConfig {
	loadDotEnv()

	publicKey, err := loadPublicKey(publicKeyPath())
	if err != nil {
		panic("Failed to load public key: " + err.Error())
	}

	return &JournalConfig{
		JWTPublicKey:       publicKey,
		TimelineAPIURL:     strings.TrimRight(getEnv("TIMELINE_API_URL", "http://localhost:8080"), "/"),
		TimelineAPITimeout: getDuration("TIMELINE_API_TIMEOUT", 15*time.Second),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		WarningsQueueName:  getEnv("WARNINGS_QUEUE_NAME", "pregnancy_danger_warnings"),
		CatalogPath:        os.Getenv("CATALOG_PATH"),
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		AllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Port:               getEnv("PORT", "8081"),
		CircuitBreaker:     loadCircuitBreaker(),
	}
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}
}

func publicKeyPath() string {
	return getEnv("PUBLIC_KEY_PATH", "/etc/identity/public.pem")
}

// loadCircuitBreaker parses the optional circuit breaker settings
func loadCircuitBreaker() CircuitBreakerConfig {
	maxRequests := uint32(5)
	if val := os.Getenv("CIRCUIT_BREAKER_MAX_REQUESTS"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil && n > 0 {
			maxRequests = uint32(n)
		} else {
			log.Printf("Warning: invalid CIRCUIT_BREAKER_MAX_REQUESTS %q, using %d", val, maxRequests)
		}
	}

	return CircuitBreakerConfig{
		MaxRequests: maxRequests,
		Interval:    getDuration("CIRCUIT_BREAKER_INTERVAL", 60*time.Second),
		Timeout:     getDuration("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s %q, using %s", key, val, fallback)
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadPublicKey loads an RSA public key from a PEM file
func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	return publicKey, nil
}

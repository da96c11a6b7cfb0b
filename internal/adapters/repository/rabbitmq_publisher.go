package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

// DefaultWarningsQueue is the queue danger warnings are published to
const DefaultWarningsQueue = "pregnancy_danger_warnings"

// RabbitMQPublisher implements WarningPublisher for publishing danger warnings to RabbitMQ
// Includes retry logic and circuit breaker for resilience
type RabbitMQPublisher struct {
	conn          *amqp091.Connection
	channel       *amqp091.Channel
	queueName     string
	cb            *gobreaker.CircuitBreaker
	maxRetries    int
	retryDelay    time.Duration
	connMutex     sync.RWMutex
	reconnectCh   chan bool
	stopReconnect chan bool
	closeOnce     sync.Once
}

// WarningEvent is the message published for every danger warning
type WarningEvent struct {
	WarningID        uuid.UUID `json:"warning_id"`
	UserID           string    `json:"user_id"`
	PregnancyWeek    int       `json:"pregnancy_week"`
	SymptomID        string    `json:"symptom_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	EmergencyActions []string  `json:"emergency_actions"`
	RaisedAt         time.Time `json:"raised_at"`
	Severity         string    `json:"severity"`
}

// NewWarningEvent converts a danger warning into its queue message
func NewWarningEvent(w domain.DangerWarning) WarningEvent {
	return WarningEvent{
		WarningID:        w.ID,
		UserID:           w.UserID,
		PregnancyWeek:    int(w.Week),
		SymptomID:        w.SymptomID,
		Title:            w.Title,
		Description:      w.Description,
		EmergencyActions: append([]string(nil), w.EmergencyActions...),
		RaisedAt:         w.RaisedAt,
		Severity:         "danger",
	}
}

// ToDangerWarning converts a queue message back into a danger warning
func (e WarningEvent) ToDangerWarning() domain.DangerWarning {
	return domain.DangerWarning{
		ID:               e.WarningID,
		Week:             domain.Week(e.PregnancyWeek),
		UserID:           e.UserID,
		SymptomID:        e.SymptomID,
		Title:            e.Title,
		Description:      e.Description,
		EmergencyActions: append([]string(nil), e.EmergencyActions...),
		RaisedAt:         e.RaisedAt,
	}
}

// NewRabbitMQPublisher creates a new RabbitMQ publisher with circuit breaker
func NewRabbitMQPublisher(rabbitMQURL string, queueName string) (*RabbitMQPublisher, error) {
	if queueName == "" {
		queueName = DefaultWarningsQueue
	}

	publisher := &RabbitMQPublisher{
		queueName:     queueName,
		maxRetries:    3,
		retryDelay:    1 * time.Second,
		reconnectCh:   make(chan bool, 1),
		stopReconnect: make(chan bool),
	}

	settings := gobreaker.Settings{
		Name:        "rabbitmq",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	publisher.cb = gobreaker.NewCircuitBreaker(settings)

	if err := publisher.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go publisher.handleReconnection(rabbitMQURL)

	return publisher, nil
}

// connect establishes connection to RabbitMQ
func (p *RabbitMQPublisher) connect(rabbitMQURL string) error {
	var conn *amqp091.Connection
	var err error
	for i := 0; i < p.maxRetries; i++ {
		conn, err = amqp091.Dial(rabbitMQURL)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v", i+1, p.maxRetries, err)
		if i < p.maxRetries-1 {
			time.Sleep(p.retryDelay)
		}
	}
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	// Declare queue (idempotent)
	_, err = channel.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return err
	}

	p.connMutex.Lock()
	p.conn = conn
	p.channel = channel
	p.connMutex.Unlock()

	log.Printf("Connected to RabbitMQ successfully (queue: %s)", p.queueName)
	return nil
}

// handleReconnection handles automatic reconnection to RabbitMQ
func (p *RabbitMQPublisher) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-p.reconnectCh:
			log.Println("Attempting to reconnect to RabbitMQ...")
			p.connMutex.Lock()
			if p.channel != nil {
				p.channel.Close()
			}
			if p.conn != nil {
				p.conn.Close()
			}
			p.channel = nil
			p.conn = nil
			p.connMutex.Unlock()

			if err := p.connect(rabbitMQURL); err != nil {
				log.Printf("Reconnection failed: %v", err)
			}
		case <-p.stopReconnect:
			return
		}
	}
}

// PublishWarning publishes a danger warning event to RabbitMQ
func (p *RabbitMQPublisher) PublishWarning(ctx context.Context, warning domain.DangerWarning) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.publishWithRetry(ctx, warning)
	})
	return err
}

// publishWithRetry publishes with retry logic
func (p *RabbitMQPublisher) publishWithRetry(ctx context.Context, warning domain.DangerWarning) error {
	startTime := time.Now()
	event := NewWarningEvent(warning)

	logEntry := map[string]interface{}{
		"event":          "warning_publish_attempt",
		"warning_id":     warning.ID.String(),
		"user_id":        warning.UserID,
		"pregnancy_week": int(warning.Week),
		"symptom_id":     warning.SymptomID,
		"timestamp":      time.Now().Format(time.RFC3339),
	}
	jsonBytes, _ := json.Marshal(logEntry)
	log.Printf("%s", string(jsonBytes))

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal warning event: %w", err)
	}

	var lastErr error
	for i := 0; i < p.maxRetries; i++ {
		p.connMutex.RLock()
		ch := p.channel
		conn := p.conn
		p.connMutex.RUnlock()

		if ch == nil || conn == nil || conn.IsClosed() {
			p.requestReconnect()
			lastErr = fmt.Errorf("rabbitmq connection unavailable")
			if !p.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		err = ch.PublishWithContext(
			ctx,
			"",          // exchange
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp091.Persistent,
				MessageId:    warning.ID.String(),
				Timestamp:    time.Now(),
			},
		)

		if err == nil {
			if latency := time.Since(startTime); latency > 15*time.Second {
				log.Printf("Warning: danger warning publishing latency exceeded 15s: %v", latency)
			}
			return nil
		}

		lastErr = err
		log.Printf("Failed to publish danger warning (attempt %d/%d): %v", i+1, p.maxRetries, err)

		if i < p.maxRetries-1 {
			p.requestReconnect()
			if !p.wait(ctx) {
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed to publish danger warning after %d retries: %w", p.maxRetries, lastErr)
}

func (p *RabbitMQPublisher) requestReconnect() {
	select {
	case p.reconnectCh <- true:
	default:
	}
}

func (p *RabbitMQPublisher) wait(ctx context.Context) bool {
	select {
	case <-time.After(p.retryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

// Close closes the RabbitMQ connection
func (p *RabbitMQPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.stopReconnect)
		p.connMutex.Lock()
		defer p.connMutex.Unlock()

		if p.channel != nil {
			p.channel.Close()
		}
		if p.conn != nil {
			err = p.conn.Close()
		}
	})
	return err
}

// Ensure RabbitMQPublisher implements the interface
var _ ports.WarningPublisher = (*RabbitMQPublisher)(nil)

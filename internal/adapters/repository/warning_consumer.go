package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IANDYI/journal-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rabbitmq/amqp091-go"
)

var (
	WarningsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "danger_warnings_consumed_total",
			Help: "Total number of danger warnings consumed from RabbitMQ",
		},
		[]string{"status"},
	)

	WarningConsumeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "danger_warning_consume_duration_seconds",
			Help:    "Duration of danger warning processing",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"status"},
	)
)

var errInvalidWarning = errors.New("invalid danger warning message")

// WarningConsumer consumes danger warnings from RabbitMQ and hands them to a broadcaster
// Each replica runs its own consumer; RabbitMQ round-robins deliveries between them
type WarningConsumer struct {
	conn          *amqp091.Connection
	channel       *amqp091.Channel
	queueName     string
	broadcaster   ports.WarningBroadcaster
	connMutex     sync.RWMutex
	reconnectCh   chan bool
	stopReconnect chan bool
	closeOnce     sync.Once
	maxRetries    int
	retryDelay    time.Duration

	consumingMutex sync.Mutex
	consumingCtx   context.Context
	isConsuming    bool
}

// NewWarningConsumer creates a consumer of the danger warnings queue
func NewWarningConsumer(rabbitMQURL string, queueName string, broadcaster ports.WarningBroadcaster) (*WarningConsumer, error) {
	if queueName == "" {
		queueName = DefaultWarningsQueue
	}

	consumer := &WarningConsumer{
		queueName:     queueName,
		broadcaster:   broadcaster,
		maxRetries:    3,
		retryDelay:    1 * time.Second,
		reconnectCh:   make(chan bool, 1),
		stopReconnect: make(chan bool),
	}

	if err := consumer.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go consumer.handleReconnection(rabbitMQURL)

	return consumer, nil
}

// connect establishes connection to RabbitMQ
func (c *WarningConsumer) connect(rabbitMQURL string) error {
	var conn *amqp091.Connection
	var err error
	for i := 0; i < c.maxRetries; i++ {
		conn, err = amqp091.Dial(rabbitMQURL)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v", i+1, c.maxRetries, err)
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay)
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

	// Same declaration as the publisher, so either side may create the queue
	_, err = channel.QueueDeclare(
		c.queueName, // name
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

	c.connMutex.Lock()
	c.conn = conn
	c.channel = channel
	c.connMutex.Unlock()

	log.Printf("Warning consumer connected to RabbitMQ (queue: %s)", c.queueName)
	return nil
}

// handleReconnection reconnects and resumes consuming after the delivery channel closes
func (c *WarningConsumer) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-c.reconnectCh:
			log.Println("Attempting to reconnect to RabbitMQ...")
			c.connMutex.Lock()
			if c.channel != nil && !c.channel.IsClosed() {
				c.channel.Close()
			}
			if c.conn != nil && !c.conn.IsClosed() {
				c.conn.Close()
			}
			c.channel = nil
			c.conn = nil
			c.connMutex.Unlock()

			if err := c.connect(rabbitMQURL); err != nil {
				log.Printf("Reconnection failed: %v", err)
				select {
				case <-time.After(5 * time.Second):
					c.requestReconnect()
				case <-c.stopReconnect:
					return
				}
				continue
			}

			c.consumingMutex.Lock()
			ctx := c.consumingCtx
			c.consumingMutex.Unlock()
			if ctx != nil && ctx.Err() == nil {
				if err := c.StartConsuming(ctx); err != nil {
					log.Printf("Failed to resume consuming: %v", err)
				}
			}
		case <-c.stopReconnect:
			return
		}
	}
}

func (c *WarningConsumer) requestReconnect() {
	select {
	case c.reconnectCh <- true:
	default:
	}
}

// StartConsuming registers the consumer and processes deliveries in a background goroutine
// A second call while consuming is a no-op
func (c *WarningConsumer) StartConsuming(ctx context.Context) error {
	c.consumingMutex.Lock()
	if c.isConsuming {
		c.consumingMutex.Unlock()
		log.Println("Warning consumer is already running, skipping duplicate start")
		return nil
	}
	c.isConsuming = true
	c.consumingCtx = ctx
	c.consumingMutex.Unlock()

	msgs, consumerTag, err := c.subscribe()
	if err != nil {
		c.setConsuming(false)
		return err
	}

	log.Printf("Warning consumer started (tag: %s), waiting for messages on queue: %s", consumerTag, c.queueName)

	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Println("Warning consumer context cancelled")
				c.setConsuming(false)
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Warning consumer channel closed, attempting reconnection...")
					c.setConsuming(false)
					c.requestReconnect()
					return
				}
				c.processMessage(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *WarningConsumer) subscribe() (<-chan amqp091.Delivery, string, error) {
	c.connMutex.RLock()
	channel := c.channel
	conn := c.conn
	c.connMutex.RUnlock()

	if channel == nil || channel.IsClosed() || conn == nil || conn.IsClosed() {
		return nil, "", errors.New("RabbitMQ connection is closed")
	}

	// One unacknowledged warning at a time
	if err := channel.Qos(1, 0, false); err != nil {
		return nil, "", fmt.Errorf("failed to set QoS: %w", err)
	}

	consumerTag := fmt.Sprintf("warning-relay-%d", time.Now().UnixNano())
	msgs, err := channel.Consume(
		c.queueName, // queue
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to register consumer: %w", err)
	}
	return msgs, consumerTag, nil
}

func (c *WarningConsumer) setConsuming(v bool) {
	c.consumingMutex.Lock()
	c.isConsuming = v
	c.consumingMutex.Unlock()
}

// processMessage broadcasts one delivery and settles it
// Malformed messages are dropped; a broadcaster failure requeues the warning
func (c *WarningConsumer) processMessage(ctx context.Context, msg amqp091.Delivery) {
	startTime := time.Now()

	status := "broadcast"
	err := c.deliver(ctx, msg.Body)
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Printf("Failed to acknowledge danger warning: %v", ackErr)
		}
	case errors.Is(err, errInvalidWarning):
		status = "invalid"
		log.Printf("Dropping danger warning message: %v", err)
		msg.Nack(false, false)
	default:
		status = "requeued"
		log.Printf("Failed to broadcast danger warning, requeueing: %v", err)
		msg.Nack(false, true)
	}

	WarningsConsumedTotal.WithLabelValues(status).Inc()
	WarningConsumeDuration.WithLabelValues(status).Observe(time.Since(startTime).Seconds())
}

func (c *WarningConsumer) deliver(ctx context.Context, body []byte) error {
	var event WarningEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %w", errInvalidWarning, err)
	}
	if event.WarningID == uuid.Nil || event.SymptomID == "" {
		return fmt.Errorf("%w: warning_id and symptom_id are required", errInvalidWarning)
	}

	warning := event.ToDangerWarning()
	recipients, err := c.broadcaster.BroadcastWarning(ctx, warning)
	if err != nil {
		return err
	}

	logEntry := map[string]interface{}{
		"event":          "danger_warning_relayed",
		"warning_id":     warning.ID.String(),
		"user_id":        warning.UserID,
		"pregnancy_week": int(warning.Week),
		"symptom_id":     warning.SymptomID,
		"recipients":     recipients,
	}
	jsonBytes, _ := json.Marshal(logEntry)
	log.Printf("%s", string(jsonBytes))
	return nil
}

// PingContext reports whether the RabbitMQ connection is open
func (c *WarningConsumer) PingContext(ctx context.Context) error {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("RabbitMQ connection is closed")
	}
	return nil
}

// Close stops reconnecting and closes the RabbitMQ connection
// The consuming context is cancelled by the caller
func (c *WarningConsumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopReconnect)
		c.setConsuming(false)

		c.connMutex.Lock()
		defer c.connMutex.Unlock()

		if c.channel != nil && !c.channel.IsClosed() {
			if closeErr := c.channel.Close(); closeErr != nil {
				log.Printf("Error closing RabbitMQ channel: %v", closeErr)
			}
		}
		if c.conn != nil && !c.conn.IsClosed() {
			err = c.conn.Close()
		}
		log.Println("Warning consumer closed")
	})
	return err
}

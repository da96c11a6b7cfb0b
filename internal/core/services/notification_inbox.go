package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
)

const defaultInboxCapacity = 20

// NotificationInbox buffers transient notifications until the UI drains them
// Oldest notifications are dropped once capacity is reached
type NotificationInbox struct {
	mu       sync.Mutex
	pending  []domain.Notification
	capacity int
}

// NewNotificationInbox creates an inbox holding at most capacity notifications
func NewNotificationInbox(capacity int) *NotificationInbox {
	if capacity <= 0 {
		capacity = defaultInboxCapacity
	}
	return &NotificationInbox{capacity: capacity}
}

// Notify implements ports.Notifier
func (i *NotificationInbox) Notify(n domain.Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}

	i.mu.Lock()
	i.pending = append(i.pending, n)
	if overflow := len(i.pending) - i.capacity; overflow > 0 {
		i.pending = i.pending[overflow:]
	}
	i.mu.Unlock()

	logNotification(n)
}

// Drain returns and clears the pending notifications
func (i *NotificationInbox) Drain() []domain.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.pending
	i.pending = nil
	if out == nil {
		out = []domain.Notification{}
	}
	return out
}

func logNotification(n domain.Notification) {
	logEntry := map[string]interface{}{
		"event":          "journal_notification",
		"kind":           string(n.Kind),
		"pregnancy_week": int(n.Week),
		"message":        n.Message,
		"at":             n.At.Format(time.RFC3339),
	}
	jsonBytes, err := json.Marshal(logEntry)
	if err != nil {
		log.Printf("Failed to marshal notification log entry: %v", err)
		return
	}
	log.Printf("%s", string(jsonBytes))
}

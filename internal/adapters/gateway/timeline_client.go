package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/ports"
	"github.com/sony/gobreaker"
)

const maxResponseBytes = 1 << 20

// TimelineClient implements TimelineGateway over the entries API
// Calls are wrapped in a circuit breaker; there is no retry, a save is
// exactly one network write
type TimelineClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// BreakerSettings configures the client's circuit breaker
type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// NewTimelineClient creates a client for the entries API rooted at baseURL
func NewTimelineClient(baseURL string, timeout time.Duration, breaker BreakerSettings) *TimelineClient {
	if breaker.MaxRequests == 0 {
		breaker.MaxRequests = 5
	}
	if breaker.Interval == 0 {
		breaker.Interval = 60 * time.Second
	}
	if breaker.Timeout == 0 {
		breaker.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "timeline-api",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			BreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	}

	return &TimelineClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cb:         gobreaker.NewCircuitBreaker(settings),
	}
}

// isBreakerSuccess keeps rejections and cancellations from tripping the breaker;
// only transport failures and 5xx answers count against the entries API
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		return remote.StatusCode < 500
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrAuthMissing)
}

// ListEntries implements ports.TimelineGateway
func (c *TimelineClient) ListEntries(ctx context.Context, session domain.Session) ([]domain.JournalEntryWire, error) {
	var envelope domain.ListEntriesResponse
	if err := c.do(ctx, session, "list", http.MethodGet, "/timeline/entries", nil, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil || envelope.Data.Entries == nil {
		return []domain.JournalEntryWire{}, nil
	}
	return envelope.Data.Entries, nil
}

// UpsertEntry implements ports.TimelineGateway
func (c *TimelineClient) UpsertEntry(ctx context.Context, session domain.Session, req domain.UpsertEntryRequest) (domain.JournalEntryWire, error) {
	var envelope domain.UpsertEntryResponse
	if err := c.do(ctx, session, "upsert", http.MethodPost, "/timeline/entries", req, &envelope); err != nil {
		return domain.JournalEntryWire{}, err
	}
	if envelope.Data == nil {
		// Older deployments answer without echoing the entry
		return domain.JournalEntryWire{
			PregnancyWeek:       req.PregnancyWeek,
			HealthServices:      req.HealthServices,
			Symptoms:            req.Symptoms,
			HealthServicesNotes: req.HealthServicesNotes,
			SymptomsNotes:       req.SymptomsNotes,
		}, nil
	}
	return envelope.Data.Entry, nil
}

// DeleteEntry implements ports.TimelineGateway
func (c *TimelineClient) DeleteEntry(ctx context.Context, session domain.Session, week domain.Week) error {
	var envelope domain.StatusResponse
	path := "/timeline/entries/" + strconv.Itoa(int(week))
	return c.do(ctx, session, "delete", http.MethodDelete, path, nil, &envelope)
}

// PingContext checks that the entries API answers its health endpoint
func (c *TimelineClient) PingContext(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/live", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return &domain.RemoteError{StatusCode: resp.StatusCode}
	}
	return nil
}

// do performs one authenticated call through the circuit breaker and decodes
// the {success, message, data} envelope into out
func (c *TimelineClient) do(ctx context.Context, session domain.Session, operation, method, path string, body interface{}, out interface{}) error {
	if !session.Authenticated() {
		return domain.ErrAuthMissing
	}

	startTime := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, session, method, path, body, out)
	})

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	GatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())

	return err
}

func (c *TimelineClient) roundTrip(ctx context.Context, session domain.Session, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("timeline api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var status domain.StatusResponse
	decodeErr := json.Unmarshal(raw, &status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if decodeErr == nil {
			msg = status.Message
		}
		return &domain.RemoteError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if !status.Success {
		return &domain.RemoteError{StatusCode: resp.StatusCode, Message: status.Message}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ensure TimelineClient implements the interface
var _ ports.TimelineGateway = (*TimelineClient)(nil)

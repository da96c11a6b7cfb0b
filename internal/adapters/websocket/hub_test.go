package websocket_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IANDYI/journal-service/internal/adapters/websocket"
	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, allowedOrigins []string) (*websocket.Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.NewHub(allowedOrigins)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, "midwife-1", "MIDWIFE"); err != nil {
			t.Logf("serve: %v", err)
		}
	}))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, server, cancel
}

func dial(t *testing.T, server *httptest.Server, header http.Header) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testWarning() domain.DangerWarning {
	return domain.DangerWarning{
		ID:               uuid.New(),
		Week:             20,
		UserID:           "6f1c2a4e-0000-4000-8000-000000000001",
		SymptomID:        "bleeding",
		Title:            "Perdarahan",
		EmergencyActions: []string{"Segera hubungi bidan"},
		RaisedAt:         time.Now().UTC(),
	}
}

func TestHub_BroadcastWarning(t *testing.T) {
	hub, server, _ := startHub(t, []string{"*"})

	first := dial(t, server, nil)
	second := dial(t, server, nil)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	warning := testWarning()
	recipients, err := hub.BroadcastWarning(context.Background(), warning)
	require.NoError(t, err)
	assert.Equal(t, 2, recipients)

	for _, conn := range []*gorilla.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg websocket.Message
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "danger_warning", msg.Type)
		assert.Equal(t, warning.ID, msg.Warning.ID)
		assert.Equal(t, "Perdarahan", msg.Warning.Title)
		assert.Equal(t, domain.Week(20), msg.Warning.Week)
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub, server, _ := startHub(t, []string{"*"})

	conn := dial(t, server, nil)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub, _, _ := startHub(t, []string{"*"})

	recipients, err := hub.BroadcastWarning(context.Background(), testWarning())
	require.NoError(t, err)
	assert.Equal(t, 0, recipients)
}

func TestHub_StoppedHub(t *testing.T) {
	hub, _, cancel := startHub(t, []string{"*"})
	cancel()

	assert.Eventually(t, func() bool {
		_, err := hub.BroadcastWarning(context.Background(), testWarning())
		return errors.Is(err, websocket.ErrHubStopped)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_OriginCheck(t *testing.T) {
	_, server, _ := startHub(t, []string{"https://bidan.example"})
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	allowed := http.Header{"Origin": []string{"https://bidan.example"}}
	conn, _, err := gorilla.DefaultDialer.Dial(url, allowed)
	require.NoError(t, err)
	conn.Close()

	denied := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := gorilla.DefaultDialer.Dial(url, denied)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

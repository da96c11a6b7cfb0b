package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/IANDYI/journal-service/internal/adapters/middleware"
	"github.com/IANDYI/journal-service/internal/adapters/websocket"
)

// WebSocketHandler attaches midwife dashboards to the danger warning stream
type WebSocketHandler struct {
	hub            *websocket.Hub
	authMiddleware *middleware.AuthMiddleware
	allowedRoles   map[string]bool
}

// NewWebSocketHandler creates a new WebSocket handler
// Only callers whose role claim is in allowedRoles may subscribe
func NewWebSocketHandler(hub *websocket.Hub, authMiddleware *middleware.AuthMiddleware, allowedRoles []string) *WebSocketHandler {
	roles := make(map[string]bool, len(allowedRoles))
	for _, role := range allowedRoles {
		roles[strings.ToUpper(strings.TrimSpace(role))] = true
	}
	return &WebSocketHandler{
		hub:            hub,
		authMiddleware: authMiddleware,
		allowedRoles:   roles,
	}
}

// HandleWebSocket handles GET /ws/warnings
// Browsers cannot set headers on a websocket handshake, so the token may also come as ?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := ""
	if bearer, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = strings.TrimSpace(bearer)
	}
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		log.Printf("WebSocket connection rejected: missing token")
		WebSocketConnectionsTotal.WithLabelValues("unauthorized").Inc()
		writeError(w, http.StatusUnauthorized, "unauthorized: missing token")
		return
	}

	userID, role, ok := h.validateToken(tokenString)
	if !ok {
		WebSocketConnectionsTotal.WithLabelValues("unauthorized").Inc()
		writeError(w, http.StatusUnauthorized, "unauthorized: invalid token")
		return
	}
	if !h.allowedRoles[strings.ToUpper(role)] {
		log.Printf("WebSocket connection rejected: role %q may not subscribe to danger warnings", role)
		WebSocketConnectionsTotal.WithLabelValues("forbidden").Inc()
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.hub.Serve(w, r, userID, role); err != nil {
		// The upgrader has already answered the request
		log.Printf("WebSocket upgrade error: %v", err)
		WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		return
	}
	WebSocketConnectionsTotal.WithLabelValues("accepted").Inc()
}

func (h *WebSocketHandler) validateToken(tokenString string) (userID, role string, ok bool) {
	if h.authMiddleware == nil {
		return "", "", false
	}

	claims, _, err := h.authMiddleware.GetClaimsFromCacheOrParse(tokenString)
	if err != nil {
		log.Printf("Token validation failed: %v", err)
		return "", "", false
	}

	userID, _ = claims["sub"].(string)
	if userID == "" {
		log.Printf("Missing or invalid 'sub' claim")
		return "", "", false
	}

	role, _ = claims["role"].(string)
	return userID, role, true
}

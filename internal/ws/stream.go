package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

// TokenVerifier turns a bearer token into the caller it was issued to.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.Principal, error)
}

// PositionStream streams live device positions over WebSocket.
type PositionStream struct {
	hub  *Hub
	auth TokenVerifier
}

// NewPositionStream creates a new PositionStream.
func NewPositionStream(hub *Hub, auth TokenVerifier) *PositionStream {
	return &PositionStream{hub: hub, auth: auth}
}

// Handle upgrades HTTP to WebSocket and pushes each new position of the device.
// URL: /api/v1/location/device/{deviceId}/stream?token=JWT_TOKEN
func (s *PositionStream) Handle(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		http.Error(w, "device id required", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	principal, err := s.auth.VerifyToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("position stream connected", "device_id", deviceID, "user_id", principal.UserID)

	updates, cancel := s.hub.Subscribe(deviceID)
	defer cancel()

	// Reader: only pongs and close frames are expected from the client.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case pos, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(pos); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

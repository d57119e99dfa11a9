package sse

import (
	"log/slog"
	"net/http"
	"time"
)

// UserFunc returns the signed-in user of a request.
type UserFunc func(r *http.Request) (string, bool)

// Handler serves GET /api/v1/events, one stream per browser tab.
type Handler struct {
	manager   *Manager
	userOf    UserFunc
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, userOf UserFunc, logger *slog.Logger) *Handler {
	return &Handler{
		manager:   manager,
		userOf:    userOf,
		logger:    logger,
		heartbeat: 30 * time.Second,
	}
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := h.userOf(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Early client disconnect.
	if r.Context().Err() != nil {
		return
	}

	client, err := h.manager.Connect(userID)
	if err != nil {
		h.logger.Error("failed to register SSE client", "error", err)
		http.Error(w, "Failed to establish connection", http.StatusServiceUnavailable)
		return
	}
	defer h.manager.Disconnect(client.ID)

	stream, err := NewStream(w)
	if err != nil {
		h.logger.Error("failed to start event stream", "error", err)
		return
	}

	clientLogger := h.logger.With("client_id", client.ID, "user_id", userID)

	if err := stream.Send(EventConnected, map[string]string{"client_id": client.ID}); err != nil {
		clientLogger.Warn("failed to send initial connection message", "error", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := stream.Send(event.Type, event); err != nil {
				clientLogger.Info("client disconnected during send")
				return
			}

		case <-ticker.C:
			hb := NewHeartbeatEvent()
			if err := stream.Send(hb.Type, hb); err != nil {
				clientLogger.Info("client disconnected during heartbeat")
				return
			}

		case <-client.Done:
			clientLogger.Info("client closed by manager")
			return

		case <-ctx.Done():
			clientLogger.Debug("client context canceled")
			return
		}
	}
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nomis52/reactivities/notice"
	"github.com/nomis52/reactivities/observable"
	"github.com/nomis52/reactivities/stores/activitystore"
	"github.com/nomis52/reactivities/stores/profilestore"
	"github.com/nomis52/reactivities/stores/userstore"
)

const (
	keepAliveInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StreamFrame is one message sent on /api/stream.
type StreamFrame struct {
	State   StateResponse   `json:"state"`
	Notices []notice.Notice `json:"notices"`
}

// StreamHandler pushes a state frame every time a store changes.
type StreamHandler struct {
	logger *slog.Logger
	roots  RootProvider
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(logger *slog.Logger, roots RootProvider) *StreamHandler {
	return &StreamHandler{logger: logger, roots: roots}
}

// ServeHTTP implements http.Handler. The connection stays bound to the root that
// was current when it was opened; clients reconnect after a reload.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With("handler", "stream")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				l.Debug("stream reader closed", "error", err)
				cancel()
				return
			}
		}
	}()

	root := h.roots.Root()

	// Coalesce bursts of updates into one pending frame.
	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	unsubs := []func(){
		root.Activities.Subscribe(func(context.Context, observable.Event[activitystore.State]) { notify() }),
		root.Profiles.Subscribe(func(context.Context, observable.Event[profilestore.State]) { notify() }),
		root.Users.Subscribe(func(context.Context, observable.Event[userstore.State]) { notify() }),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	send := func() error {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(StreamFrame{
			State:   newStateResponse(root),
			Notices: root.Notices.Active(),
		})
	}

	if err := send(); err != nil {
		l.Warn("failed to send initial frame", "error", err)
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Debug("stopping stream: client closed connection")
			return
		case <-changed:
			if err := send(); err != nil {
				l.Warn("failed to send frame", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				l.Warn("failed to write keepalive", "error", err)
				return
			}
		}
	}
}

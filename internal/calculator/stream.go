package calculator

import (
	"net/http"
	"time"

	"sam-calculator/internal/observability"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream handles GET /calculator/sessions/{id}/stream. It upgrades to a
// websocket, sends the current representation, then one message per
// transition until either side goes away.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r, "stream")
	if !ok {
		return
	}

	logger := observability.LoggerWithTrace(r.Context()).With(zap.String("session_id", session.ID))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := session.Subscribe()
	defer cancel()

	if err := writeRepresentation(conn, Represent(session.Snapshot())); err != nil {
		logger.Info("websocket closed before first write", zap.Error(err))
		return
	}

	// The stream is one-way; reading only detects the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	logger.Info("websocket stream opened")

	for {
		select {
		case <-closed:
			logger.Info("websocket stream closed")
			return
		case rep, ok := <-updates:
			if !ok {
				return
			}
			if err := writeRepresentation(conn, rep); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Error("websocket write failed", zap.Error(err))
				}
				return
			}
		}
	}
}

func writeRepresentation(conn *websocket.Conn, rep Representation) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(rep)
}

package internal

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsBuffer     = 256
)

// wsMessage is the envelope pushed to browser clients
type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS already restricts browser origins on the HTTP routes
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket streams every progress event to one client. With ?since=N
// it first replays buffered events newer than N.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	replay := r.URL.Query().Has("since")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	s.app.metrics.WSConnections.Add(1)
	log := s.logger.With(slog.String("remote", r.RemoteAddr))
	log.Info("client connected")
	defer log.Info("client disconnected")

	// subscribe before replaying so nothing published in between is lost
	events, cancel := s.app.bus.Subscribe(wsBuffer)
	defer cancel()

	if err := writeWS(conn, wsMessage{Event: "connected", Data: map[string]string{"status": "connected"}}); err != nil {
		return
	}

	var lastSeq int64
	if replay {
		for _, ev := range s.app.bus.Since(since) {
			if err := writeWS(conn, wsMessage{Event: "progress", Data: ev}); err != nil {
				return
			}
			lastSeq = ev.Seq
		}
	}

	// reader goroutine: handles pongs and notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Seq <= lastSeq {
				continue
			}
			lastSeq = ev.Seq
			if err := writeWS(conn, wsMessage{Event: "progress", Data: ev}); err != nil {
				log.Debug("websocket write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		}
	}
}

func writeWS(conn *websocket.Conn, msg wsMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}

package websocket

import (
	"net/http"
	"strings"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"gamekit/core"
	"gamekit/realtime"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Handler returns an http.Handler that upgrades to WebSocket and streams events from the hub.
// Query parameters narrow the stream: ?user=<id> and ?types=score_reported,friend_added.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := filterFromQuery(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		id, ch := hub.Subscribe(256, filter)
		defer hub.Unsubscribe(id)

		closed := make(chan struct{})
		go readPump(conn, closed)

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev)); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	})
}

// readPump discards client frames so control messages are processed, and signals on close.
func readPump(conn *gorillaws.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func filterFromQuery(r *http.Request) realtime.Filter {
	q := r.URL.Query()
	f := realtime.Filter{User: core.UserID(strings.TrimSpace(q.Get("user")))}
	for _, t := range strings.Split(q.Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.Types = append(f.Types, core.EventType(t))
		}
	}
	return f
}

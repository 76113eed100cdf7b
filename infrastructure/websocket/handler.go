package websocket

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"log/slog"
	"net/http"

	gows "github.com/gorilla/websocket"
)

// Attacher takes ownership of an established connection.
type Attacher interface {
	Attach(conn contract.Conn) (domain.SessionID, error)
}

// NewHandler upgrades the request and hands the connection to attacher.
// The session then runs exactly like a TCP one.
func NewHandler(log *slog.Logger, attacher Attacher, opts Options) http.HandlerFunc {
	upgrader := gows.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied with an HTTP error
			log.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		id, err := attacher.Attach(NewConn(conn, opts))
		if err != nil {
			log.Warn("WebSocket session rejected", "remote", r.RemoteAddr, "err", err)
			return
		}
		log.Debug("WebSocket session attached", "session", id, "remote", r.RemoteAddr)
	}
}

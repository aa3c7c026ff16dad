package wsgateway

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler is invoked once per upgraded connection, with the adapted
// net.Conn handed to the same per-connection logic a plain TCP
// accept would use (broker.Server.handshake's equivalent, wired from
// cmd/relayd).
type Handler func(net.Conn)

// Gateway runs an HTTP server that upgrades every request to a
// WebSocket connection and hands it to Handler.
type Gateway struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	handler  Handler
	server   *http.Server
}

// New constructs a Gateway bound to bind, upgrading every request path
// to WebSocket. CheckOrigin is left permissive: this is a LAN broker
// gateway, not a public API surface.
func New(bind string, logger *slog.Logger, handler Handler) *Gateway {
	g := &Gateway{
		logger:  logger,
		handler: handler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.serveWS)
	g.server = &http.Server{Addr: bind, Handler: mux}
	return g
}

func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	g.handler(NewConn(ws))
}

// Start begins serving in a background goroutine. Errors other than a
// clean shutdown are logged, matching the teacher's pattern of
// surfacing fatal listener errors without panicking the process.
func (g *Gateway) Start() {
	g.logger.Info("websocket gateway listening", "addr", g.server.Addr)
	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.logger.Error("websocket gateway stopped", "error", err)
		}
	}()
}

// Stop closes the HTTP server at once (http.Server.Close). WebSocket
// connections already upgraded are not closed by it.
func (g *Gateway) Stop() error {
	return g.server.Close()
}

package pulse

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// SocketServer is a small embedded WebSocket bridge. Inbound text frames
// become EventSocketMessage records dispatched through the dispatcher, so
// socket listeners get the same predicate and temporal-gate treatment as
// player event listeners. It deliberately models nothing of HTTP beyond
// this one endpoint.
type SocketServer struct {
	d        *Dispatcher
	srv      *http.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*SocketConn]struct{}
}

// NewSocketServer creates a server exposing GET /ws on addr. Start it with
// ListenAndServe and shut it down with Close.
func NewSocketServer(d *Dispatcher, addr string) *SocketServer {
	s := &SocketServer{
		d:     d,
		conns: make(map[*SocketConn]struct{}),
		upgrader: websocket.Upgrader{
			// The bridge carries no credentials; origin policy is left to
			// whatever reverse proxy sits in front of it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Get("/ws", s.serveWS)
	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

// ListenAndServe blocks serving the socket endpoint until Close is called.
func (s *SocketServer) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close disconnects every client and stops the HTTP server.
func (s *SocketServer) Close() error {
	s.mu.Lock()
	for c := range s.conns {
		_ = c.ws.Close()
	}
	s.conns = make(map[*SocketConn]struct{})
	s.mu.Unlock()

	return s.srv.Shutdown(context.Background())
}

// Broadcast queues msg for delivery to every connected client on the
// background pool. The returned channel reports the first write error, or
// nil; callers may ignore it.
func (s *SocketServer) Broadcast(msg string) <-chan error {
	s.mu.Lock()
	conns := make([]*SocketConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	return s.d.sched.Go(func() {
		for _, c := range conns {
			if err := c.Send(msg); err != nil {
				s.d.log.Warn("pulse: socket broadcast failed", "remote", c.Remote(), "err", err)
			}
		}
	})
}

// serveWS upgrades the request and pumps inbound messages into the
// dispatcher until the client disconnects.
func (s *SocketServer) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.d.log.Warn("pulse: socket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	conn := &SocketConn{ws: ws, remote: r.RemoteAddr}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		s.d.Dispatch(&EventSocketMessage{Conn: conn, Message: string(data)})
	}
}

// SocketConn is one connected WebSocket client. Writes are serialized
// internally, so Send may be called from any goroutine.
type SocketConn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	remote string
}

// Remote returns the client's remote address.
func (c *SocketConn) Remote() string { return c.remote }

// Send writes a text frame to the client.
func (c *SocketConn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

// EventSocketMessage fires for each inbound text frame. It carries no
// actor, so actor- and world-shaped predicate clauses fail closed against
// it.
type EventSocketMessage struct {
	Conn    *SocketConn
	Message string
}

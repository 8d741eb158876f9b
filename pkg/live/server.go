// Package live tells connected browsers to reload when templates change.
package live

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Path is where the dev server mounts the reload socket.
const Path = "/__lumen/reload"

const writeWait = 5 * time.Second

// Message is sent to every client on Broadcast.
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Server tracks reload clients.
type Server struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]bool
	mu       sync.Mutex
}

// NewServer creates a reload server.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			// dev only
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the client
// goes away. A HELLO message is answered with ACK.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Live] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Live] unexpected close: %v", err)
			}
			return
		}
		switch strings.ToUpper(msg.Type) {
		case "HELLO":
			s.mu.Lock()
			err := s.write(conn, Message{Type: "ACK"})
			s.mu.Unlock()
			if err != nil {
				return
			}
		default:
			log.Printf("[Live] unknown message type %q", msg.Type)
		}
	}
}

// Broadcast sends a message of msgType to every client and returns how many
// received it. Clients that fail are dropped.
func (s *Server) Broadcast(msgType, message string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{Type: strings.ToUpper(msgType), Message: message}
	sent := 0
	for conn := range s.clients {
		if err := s.write(conn, msg); err != nil {
			log.Printf("[Live] failed to notify client: %v", err)
			conn.Close()
			delete(s.clients, conn)
			continue
		}
		sent++
	}
	return sent
}

// Reload asks every client to reload the page.
func (s *Server) Reload() int {
	return s.Broadcast("reload", "")
}

// Error reports a compile error to every client.
func (s *Server) Error(err error) int {
	return s.Broadcast("error", err.Error())
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		conn.Close()
		delete(s.clients, conn)
	}
}

// write sends msg on conn. The caller holds s.mu, which serializes writers.
func (s *Server) write(conn *websocket.Conn, msg Message) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// Script returns the client snippet that connects to the reload socket at
// path and reloads the page on RELOAD.
func Script(path string) string {
	return fmt.Sprintf(`<script type="module">
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + %q);
ws.onopen = () => ws.send(JSON.stringify({ type: "HELLO" }));
ws.onmessage = (e) => {
  const msg = JSON.parse(e.data);
  if (msg.type === "RELOAD") location.reload();
  if (msg.type === "ERROR") console.error("[lumen]", msg.message);
};
</script>`, path)
}

package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Conexion is one open streaming connection. The registry owns every
// Conexion exclusively: it is the only component allowed to write to or
// close one.
type Conexion interface {
	// EscribirEvento writes one framed event with a JSON payload.
	EscribirEvento(evento string, data []byte) error
	// EscribirComentario writes a lightweight keep-alive frame.
	EscribirComentario() error
	Cerrar()
}

// sseConexion frames events for a text/event-stream response:
// "event: <name>\ndata: <json>\n\n", comments as ":\n\n".
type sseConexion struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	cerrada bool
}

func newSSEConexion(w http.ResponseWriter, flusher http.Flusher) *sseConexion {
	return &sseConexion{w: w, flusher: flusher}
}

func (c *sseConexion) EscribirEvento(evento string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cerrada {
		return fmt.Errorf("conexion sse cerrada")
	}
	if _, err := fmt.Fprintf(c.w, "event: %s\ndata: %s\n\n", evento, data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *sseConexion) EscribirComentario() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cerrada {
		return fmt.Errorf("conexion sse cerrada")
	}
	if _, err := fmt.Fprint(c.w, ":\n\n"); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// Cerrar only marks the sink; the response itself closes when its handler
// returns.
func (c *sseConexion) Cerrar() {
	c.mu.Lock()
	c.cerrada = true
	c.mu.Unlock()
}

// wsConexion carries the same events over a WebSocket, one JSON text
// message per frame.
type wsConexion struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConexion(conn *websocket.Conn) *wsConexion {
	return &wsConexion{conn: conn}
}

func (c *wsConexion) EscribirEvento(evento string, data []byte) error {
	frame, err := json.Marshal(map[string]json.RawMessage{
		"evento": json.RawMessage(fmt.Sprintf("%q", evento)),
		"data":   json.RawMessage(data),
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConexion) EscribirComentario() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsConexion) Cerrar() {
	_ = c.conn.Close()
}

package stream

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ServeSSE upgrades the response into a long-lived text event stream and
// keeps it registered until the client goes away. One connection = one
// response; only disconnection ends it.
func ServeSSE(registry *Registry, w http.ResponseWriter, r *http.Request, usuarioID uuid.UUID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming no soportado", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	conexionID := uuid.NewString()
	registry.Conectar(usuarioID, conexionID, newSSEConexion(w, flusher))

	<-r.Context().Done()
	registry.Desconectar(usuarioID, conexionID)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS registers a WebSocket connection carrying the same event frames.
// The read loop only exists to notice the peer closing.
func ServeWS(registry *Registry, w http.ResponseWriter, r *http.Request, usuarioID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Stream Registry] upgrade websocket fallido: %v", err)
		return
	}

	conexionID := uuid.NewString()
	registry.Conectar(usuarioID, conexionID, newWSConexion(conn))

	go func() {
		defer registry.Desconectar(usuarioID, conexionID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

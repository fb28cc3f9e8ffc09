package stream

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// EventoConexionEstablecida acknowledges a fresh connection so the
	// client can confirm the channel is live.
	EventoConexionEstablecida = "CONEXION_ESTABLECIDA"

	heartbeatPeriodo = 30 * time.Second
)

var (
	conexionesActivas = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stream_conexiones_activas",
		Help: "Open streaming connections across all users.",
	})

	eventosEnviados = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_eventos_enviados_total",
		Help: "Events written to streaming connections.",
	}, []string{"evento"})
)

// UsuarioConectado is one row of the operational introspection listing.
type UsuarioConectado struct {
	UsuarioID  uuid.UUID `json:"usuarioId"`
	Conexiones int       `json:"conexiones"`
}

// Registry is the process-wide set of open per-user streaming connections.
// One instance lives for the whole process: constructed at startup, handed
// by reference to everything that pushes, shut down at process stop. Safe
// for concurrent connect/disconnect/push.
type Registry struct {
	mu         sync.RWMutex
	conexiones map[uuid.UUID]map[string]Conexion

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRegistry() *Registry {
	return &Registry{
		conexiones: make(map[uuid.UUID]map[string]Conexion),
		stop:       make(chan struct{}),
	}
}

// Conectar registers the connection and writes the acknowledgment frame. A
// failed ack means the transport is already gone; the connection is removed
// again immediately.
func (r *Registry) Conectar(usuarioID uuid.UUID, conexionID string, c Conexion) {
	r.mu.Lock()
	if _, ok := r.conexiones[usuarioID]; !ok {
		r.conexiones[usuarioID] = make(map[string]Conexion)
	}
	r.conexiones[usuarioID][conexionID] = c
	r.mu.Unlock()
	conexionesActivas.Inc()

	ack, _ := json.Marshal(map[string]string{"conexionId": conexionID})
	if err := c.EscribirEvento(EventoConexionEstablecida, ack); err != nil {
		log.Printf("[Stream Registry] ack fallido para usuario %s: %v", usuarioID, err)
		r.Desconectar(usuarioID, conexionID)
	}
}

// Desconectar is idempotent. Removing the last connection of a user drops
// the whole user entry so the map stays bounded in long-running processes.
func (r *Registry) Desconectar(usuarioID uuid.UUID, conexionID string) {
	r.mu.Lock()
	bucket, ok := r.conexiones[usuarioID]
	if ok {
		if _, ok = bucket[conexionID]; ok {
			c := bucket[conexionID]
			delete(bucket, conexionID)
			if len(bucket) == 0 {
				delete(r.conexiones, usuarioID)
			}
			r.mu.Unlock()
			c.Cerrar()
			conexionesActivas.Dec()
			return
		}
	}
	r.mu.Unlock()
}

// Push serializes the payload and writes one event to every open connection
// of the user. A write failure disconnects only the failing connection; no
// open connections is a silent no-op.
func (r *Registry) Push(usuarioID uuid.UUID, evento string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Stream Registry] payload no serializable para evento %s: %v", evento, err)
		return
	}

	for conexionID, c := range r.snapshot(usuarioID) {
		if err := c.EscribirEvento(evento, data); err != nil {
			log.Printf("[Stream Registry] escritura fallida (usuario %s, conexion %s): %v", usuarioID, conexionID, err)
			r.Desconectar(usuarioID, conexionID)
			continue
		}
		eventosEnviados.WithLabelValues(evento).Inc()
	}
}

// Heartbeat writes a keep-alive comment to every open connection so idle
// intermediaries do not tear the streams down.
func (r *Registry) Heartbeat() {
	r.mu.RLock()
	type destino struct {
		usuarioID  uuid.UUID
		conexionID string
		c          Conexion
	}
	var destinos []destino
	for usuarioID, bucket := range r.conexiones {
		for conexionID, c := range bucket {
			destinos = append(destinos, destino{usuarioID, conexionID, c})
		}
	}
	r.mu.RUnlock()

	for _, d := range destinos {
		if err := d.c.EscribirComentario(); err != nil {
			r.Desconectar(d.usuarioID, d.conexionID)
		}
	}
}

// IniciarHeartbeat starts the fixed 30s keep-alive schedule.
func (r *Registry) IniciarHeartbeat() {
	go func() {
		ticker := time.NewTicker(heartbeatPeriodo)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Heartbeat()
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *Registry) ListarUsuariosConectados() []UsuarioConectado {
	r.mu.RLock()
	defer r.mu.RUnlock()
	usuarios := make([]UsuarioConectado, 0, len(r.conexiones))
	for usuarioID, bucket := range r.conexiones {
		usuarios = append(usuarios, UsuarioConectado{UsuarioID: usuarioID, Conexiones: len(bucket)})
	}
	return usuarios
}

// Shutdown stops the heartbeat schedule. Open connections are left to drain
// naturally with their in-flight requests.
func (r *Registry) Shutdown() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// snapshot copies a user's connection set so writes happen outside the lock.
func (r *Registry) snapshot(usuarioID uuid.UUID) map[string]Conexion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.conexiones[usuarioID]
	if !ok {
		return nil
	}
	copia := make(map[string]Conexion, len(bucket))
	for id, c := range bucket {
		copia[id] = c
	}
	return copia
}

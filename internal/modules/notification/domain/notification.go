package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TipoNotificacion string

// Closed contract with rendering clients. Never rename silently.
const (
	TipoAlquilerFinalizado TipoNotificacion = "ALQUILER_FINALIZADO"
	TipoReservaCancelada   TipoNotificacion = "RESERVA_CANCELADA"
	TipoVehiculoCalificado TipoNotificacion = "VEHICULO_CALIFICADO"
	TipoReservaConfirmada  TipoNotificacion = "RESERVA_CONFIRMADA"
	TipoDepositoConfirmado TipoNotificacion = "DEPOSITO_CONFIRMADO"
	TipoReservaModificada  TipoNotificacion = "RESERVA_MODIFICADA"
)

type Prioridad string

const (
	PrioridadBaja  Prioridad = "BAJA"
	PrioridadMedia Prioridad = "MEDIA"
	PrioridadAlta  Prioridad = "ALTA"
)

// Notificacion is a persisted notification owned by exactly one user.
// EntidadID/TipoEntidad form a weak reference to the domain entity that
// caused it; together with UsuarioID and Tipo they make up the dedup key.
type Notificacion struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	UsuarioID     uuid.UUID        `json:"usuarioId" db:"usuario_id"`
	Titulo        string           `json:"titulo" db:"titulo"`
	Mensaje       string           `json:"mensaje" db:"mensaje"`
	Tipo          TipoNotificacion `json:"tipo" db:"tipo"`
	Prioridad     Prioridad        `json:"prioridad" db:"prioridad"`
	EntidadID     *uuid.UUID       `json:"entidadId,omitempty" db:"entidad_id"`
	TipoEntidad   *string          `json:"tipoEntidad,omitempty" db:"tipo_entidad"`
	Leido         bool             `json:"leido" db:"leido"`
	LeidoEn       *time.Time       `json:"leidoEn,omitempty" db:"leido_en"`
	HaSidoBorrada bool             `json:"-" db:"ha_sido_borrada"`
	CreadoEn      time.Time        `json:"creadoEn" db:"creado_en"`
}

// CrearNotificacionDTO carries the fields needed to create a notification.
// Prioridad defaults to MEDIA when empty.
type CrearNotificacionDTO struct {
	UsuarioID   uuid.UUID
	Titulo      string
	Mensaje     string
	Tipo        TipoNotificacion
	Prioridad   Prioridad
	EntidadID   *uuid.UUID
	TipoEntidad *string
}

// NotificacionFiltro enumerates every supported listing filter. Zero values
// mean "not filtered".
type NotificacionFiltro struct {
	UsuarioID   *uuid.UUID
	Tipo        TipoNotificacion
	Leido       *bool
	Prioridad   Prioridad
	TipoEntidad string
	Desde       *time.Time
	Hasta       *time.Time
	Limit       int
	Offset      int
}

// TipoEntidad is the discriminator of the weak entity reference.
type TipoEntidad string

const (
	EntidadRenta        TipoEntidad = "Renta"
	EntidadReserva      TipoEntidad = "Reserva"
	EntidadCalificacion TipoEntidad = "Calificacion"
)

// ReferenciaEntidad is the resolved form of the (entidadId, tipoEntidad)
// pair stored on a notification.
type ReferenciaEntidad struct {
	ID   uuid.UUID
	Tipo TipoEntidad
}

// Referencia resolves the stored weak reference. Stored discriminators vary
// in casing across old rows, so matching is case-insensitive; unknown
// discriminators report no reference.
func (n *Notificacion) Referencia() (ReferenciaEntidad, bool) {
	if n.EntidadID == nil || n.TipoEntidad == nil {
		return ReferenciaEntidad{}, false
	}
	switch strings.ToLower(*n.TipoEntidad) {
	case "renta":
		return ReferenciaEntidad{ID: *n.EntidadID, Tipo: EntidadRenta}, true
	case "reserva":
		return ReferenciaEntidad{ID: *n.EntidadID, Tipo: EntidadReserva}, true
	case "calificacion":
		return ReferenciaEntidad{ID: *n.EntidadID, Tipo: EntidadCalificacion}, true
	}
	return ReferenciaEntidad{}, false
}

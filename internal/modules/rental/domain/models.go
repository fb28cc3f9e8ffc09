package domain

import (
	"time"

	"github.com/google/uuid"
)

// Read-models over the rental side of the marketplace. This module only
// reads them; reservation/rental services own all writes and call into the
// notification module after mutating state.

type EstatusRenta string

const (
	RentaEnCurso    EstatusRenta = "EN_CURSO"
	RentaFinalizada EstatusRenta = "FINALIZADA"
	RentaCancelada  EstatusRenta = "CANCELADA"
)

type EstadoReserva string

const (
	ReservaPendiente  EstadoReserva = "PENDIENTE"
	ReservaAprobada   EstadoReserva = "APROBADA"
	ReservaConfirmada EstadoReserva = "CONFIRMADA"
	ReservaCancelada  EstadoReserva = "CANCELADA"
)

type Usuario struct {
	ID       uuid.UUID `db:"id"`
	Nombre   string    `db:"nombre"`
	Apellido string    `db:"apellido"`
}

type Auto struct {
	ID            uuid.UUID `db:"id"`
	Marca         string    `db:"marca"`
	Modelo        string    `db:"modelo"`
	Placa         string    `db:"placa"`
	PropietarioID uuid.UUID `db:"propietario_id"`
}

type Renta struct {
	ID        uuid.UUID    `db:"id"`
	ReservaID uuid.UUID    `db:"reserva_id"`
	ClienteID uuid.UUID    `db:"cliente_id"`
	Estatus   EstatusRenta `db:"estatus"`
	FechaFin  time.Time    `db:"fecha_fin"`
}

type Reserva struct {
	ID              uuid.UUID     `db:"id"`
	ClienteID       uuid.UUID     `db:"cliente_id"`
	AutoID          uuid.UUID     `db:"auto_id"`
	Estado          EstadoReserva `db:"estado"`
	MontoPagado     float64       `db:"monto_pagado"`
	MontoTotal      float64       `db:"monto_total"`
	EstaPagada      bool          `db:"esta_pagada"`
	FechaLimitePago *time.Time    `db:"fecha_limite_pago"`
}

type Calificacion struct {
	ID         uuid.UUID `db:"id"`
	RentaID    uuid.UUID `db:"renta_id"`
	Puntuacion int       `db:"puntuacion"`
	Comentario *string   `db:"comentario"`
}

// RentaDetalle joins the renta with the vehicle (through its reserva) and
// the two parties a notifier may address.
type RentaDetalle struct {
	Renta       Renta
	Auto        Auto
	Cliente     Usuario
	Propietario Usuario
}

type ReservaDetalle struct {
	Reserva     Reserva
	Auto        Auto
	Cliente     Usuario
	Propietario Usuario
}

type CalificacionDetalle struct {
	Calificacion Calificacion
	Renta        Renta
	Auto         Auto
	Cliente      Usuario
	Propietario  Usuario
}

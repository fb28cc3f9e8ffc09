package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRentaNoEncontrada        = errors.New("renta no encontrada")
	ErrReservaNoEncontrada      = errors.New("reserva no encontrada")
	ErrCalificacionNoEncontrada = errors.New("calificacion no encontrada")
)

// RentalReader is the read-only view of the rental domain that the
// notification module depends on.
type RentalReader interface {
	GetRentaDetalle(ctx context.Context, rentaID uuid.UUID) (*RentaDetalle, error)
	GetReservaDetalle(ctx context.Context, reservaID uuid.UUID) (*ReservaDetalle, error)
	// GetCalificacionPorRenta looks the rating up by its renta, which is how
	// the rating flow hands it over.
	GetCalificacionPorRenta(ctx context.Context, rentaID uuid.UUID) (*CalificacionDetalle, error)

	// First vehicle image for each entity tag, nil when the vehicle has none.
	ImagenAutoPorRenta(ctx context.Context, rentaID uuid.UUID) (*string, error)
	ImagenAutoPorReserva(ctx context.Context, reservaID uuid.UUID) (*string, error)
	ImagenAutoPorCalificacion(ctx context.Context, calificacionID uuid.UUID) (*string, error)
}

// SweepReader supplies the reconciler with entities whose state implies a
// notification that does not exist yet. Each query anti-joins the
// notifications table on the dedup key so steady-state sweeps return nothing.
type SweepReader interface {
	RentasFinalizadasSinNotificacion(ctx context.Context) ([]uuid.UUID, error)
	RentasCanceladasSinNotificacion(ctx context.Context) ([]uuid.UUID, error)
	ReservasConfirmadasSinNotificacion(ctx context.Context, desde time.Time) ([]uuid.UUID, error)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redibo/backend/internal/modules/rental/domain"
)

type PgRentalReader struct {
	db *sqlx.DB
}

func NewRentalReader(db *sqlx.DB) *PgRentalReader {
	return &PgRentalReader{db: db}
}

type rentaDetalleRow struct {
	domain.Renta
	AutoID              uuid.UUID `db:"auto_id"`
	Marca               string    `db:"marca"`
	Modelo              string    `db:"modelo"`
	Placa               string    `db:"placa"`
	PropietarioID       uuid.UUID `db:"propietario_id"`
	ClienteNombre       string    `db:"cliente_nombre"`
	ClienteApellido     string    `db:"cliente_apellido"`
	PropietarioNombre   string    `db:"propietario_nombre"`
	PropietarioApellido string    `db:"propietario_apellido"`
}

func (row rentaDetalleRow) detalle() *domain.RentaDetalle {
	return &domain.RentaDetalle{
		Renta: row.Renta,
		Auto: domain.Auto{
			ID:            row.AutoID,
			Marca:         row.Marca,
			Modelo:        row.Modelo,
			Placa:         row.Placa,
			PropietarioID: row.PropietarioID,
		},
		Cliente:     domain.Usuario{ID: row.ClienteID, Nombre: row.ClienteNombre, Apellido: row.ClienteApellido},
		Propietario: domain.Usuario{ID: row.PropietarioID, Nombre: row.PropietarioNombre, Apellido: row.PropietarioApellido},
	}
}

func (r *PgRentalReader) GetRentaDetalle(ctx context.Context, rentaID uuid.UUID) (*domain.RentaDetalle, error) {
	query := `
		SELECT r.id, r.reserva_id, r.cliente_id, r.estatus, r.fecha_fin,
		       a.id AS auto_id, a.marca, a.modelo, a.placa, a.propietario_id,
		       c.nombre AS cliente_nombre, c.apellido AS cliente_apellido,
		       p.nombre AS propietario_nombre, p.apellido AS propietario_apellido
		FROM rentas r
		JOIN reservas rv ON rv.id = r.reserva_id
		JOIN autos a ON a.id = rv.auto_id
		JOIN usuarios c ON c.id = r.cliente_id
		JOIN usuarios p ON p.id = a.propietario_id
		WHERE r.id = $1
	`
	var row rentaDetalleRow
	err := r.db.GetContext(ctx, &row, query, rentaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRentaNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	return row.detalle(), nil
}

type reservaDetalleRow struct {
	domain.Reserva
	Marca               string    `db:"marca"`
	Modelo              string    `db:"modelo"`
	Placa               string    `db:"placa"`
	PropietarioID       uuid.UUID `db:"propietario_id"`
	ClienteNombre       string    `db:"cliente_nombre"`
	ClienteApellido     string    `db:"cliente_apellido"`
	PropietarioNombre   string    `db:"propietario_nombre"`
	PropietarioApellido string    `db:"propietario_apellido"`
}

func (r *PgRentalReader) GetReservaDetalle(ctx context.Context, reservaID uuid.UUID) (*domain.ReservaDetalle, error) {
	query := `
		SELECT rv.id, rv.cliente_id, rv.auto_id, rv.estado, rv.monto_pagado, rv.monto_total,
		       rv.esta_pagada, rv.fecha_limite_pago,
		       a.marca, a.modelo, a.placa, a.propietario_id,
		       c.nombre AS cliente_nombre, c.apellido AS cliente_apellido,
		       p.nombre AS propietario_nombre, p.apellido AS propietario_apellido
		FROM reservas rv
		JOIN autos a ON a.id = rv.auto_id
		JOIN usuarios c ON c.id = rv.cliente_id
		JOIN usuarios p ON p.id = a.propietario_id
		WHERE rv.id = $1
	`
	var row reservaDetalleRow
	err := r.db.GetContext(ctx, &row, query, reservaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservaNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	return &domain.ReservaDetalle{
		Reserva: row.Reserva,
		Auto: domain.Auto{
			ID:            row.AutoID,
			Marca:         row.Marca,
			Modelo:        row.Modelo,
			Placa:         row.Placa,
			PropietarioID: row.PropietarioID,
		},
		Cliente:     domain.Usuario{ID: row.ClienteID, Nombre: row.ClienteNombre, Apellido: row.ClienteApellido},
		Propietario: domain.Usuario{ID: row.PropietarioID, Nombre: row.PropietarioNombre, Apellido: row.PropietarioApellido},
	}, nil
}

type calificacionDetalleRow struct {
	domain.Calificacion
	ReservaID           uuid.UUID           `db:"reserva_id"`
	ClienteID           uuid.UUID           `db:"cliente_id"`
	Estatus             domain.EstatusRenta `db:"estatus"`
	FechaFin            time.Time           `db:"fecha_fin"`
	AutoID              uuid.UUID           `db:"auto_id"`
	Marca               string              `db:"marca"`
	Modelo              string              `db:"modelo"`
	Placa               string              `db:"placa"`
	PropietarioID       uuid.UUID           `db:"propietario_id"`
	ClienteNombre       string              `db:"cliente_nombre"`
	ClienteApellido     string              `db:"cliente_apellido"`
	PropietarioNombre   string              `db:"propietario_nombre"`
	PropietarioApellido string              `db:"propietario_apellido"`
}

func (r *PgRentalReader) GetCalificacionPorRenta(ctx context.Context, rentaID uuid.UUID) (*domain.CalificacionDetalle, error) {
	query := `
		SELECT cal.id, cal.renta_id, cal.puntuacion, cal.comentario,
		       r.reserva_id, r.cliente_id, r.estatus, r.fecha_fin,
		       a.id AS auto_id, a.marca, a.modelo, a.placa, a.propietario_id,
		       c.nombre AS cliente_nombre, c.apellido AS cliente_apellido,
		       p.nombre AS propietario_nombre, p.apellido AS propietario_apellido
		FROM calificaciones cal
		JOIN rentas r ON r.id = cal.renta_id
		JOIN reservas rv ON rv.id = r.reserva_id
		JOIN autos a ON a.id = rv.auto_id
		JOIN usuarios c ON c.id = r.cliente_id
		JOIN usuarios p ON p.id = a.propietario_id
		WHERE cal.renta_id = $1
	`
	var row calificacionDetalleRow
	err := r.db.GetContext(ctx, &row, query, rentaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCalificacionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	return &domain.CalificacionDetalle{
		Calificacion: row.Calificacion,
		Renta: domain.Renta{
			ID:        row.Calificacion.RentaID,
			ReservaID: row.ReservaID,
			ClienteID: row.ClienteID,
			Estatus:   row.Estatus,
			FechaFin:  row.FechaFin,
		},
		Auto: domain.Auto{
			ID:            row.AutoID,
			Marca:         row.Marca,
			Modelo:        row.Modelo,
			Placa:         row.Placa,
			PropietarioID: row.PropietarioID,
		},
		Cliente:     domain.Usuario{ID: row.ClienteID, Nombre: row.ClienteNombre, Apellido: row.ClienteApellido},
		Propietario: domain.Usuario{ID: row.PropietarioID, Nombre: row.PropietarioNombre, Apellido: row.PropietarioApellido},
	}, nil
}

// primeraImagen returns nil both for a missing vehicle and for a vehicle
// without images; image resolution is best-effort everywhere.
func (r *PgRentalReader) primeraImagen(ctx context.Context, query string, id uuid.UUID) (*string, error) {
	var direccion string
	err := r.db.GetContext(ctx, &direccion, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &direccion, nil
}

func (r *PgRentalReader) ImagenAutoPorRenta(ctx context.Context, rentaID uuid.UUID) (*string, error) {
	query := `
		SELECT i.direccion_imagen
		FROM rentas r
		JOIN reservas rv ON rv.id = r.reserva_id
		JOIN imagenes_auto i ON i.auto_id = rv.auto_id
		WHERE r.id = $1
		ORDER BY i.creado_en ASC
		LIMIT 1
	`
	return r.primeraImagen(ctx, query, rentaID)
}

func (r *PgRentalReader) ImagenAutoPorReserva(ctx context.Context, reservaID uuid.UUID) (*string, error) {
	query := `
		SELECT i.direccion_imagen
		FROM reservas rv
		JOIN imagenes_auto i ON i.auto_id = rv.auto_id
		WHERE rv.id = $1
		ORDER BY i.creado_en ASC
		LIMIT 1
	`
	return r.primeraImagen(ctx, query, reservaID)
}

func (r *PgRentalReader) ImagenAutoPorCalificacion(ctx context.Context, calificacionID uuid.UUID) (*string, error) {
	query := `
		SELECT i.direccion_imagen
		FROM calificaciones cal
		JOIN rentas r ON r.id = cal.renta_id
		JOIN reservas rv ON rv.id = r.reserva_id
		JOIN imagenes_auto i ON i.auto_id = rv.auto_id
		WHERE cal.id = $1
		ORDER BY i.creado_en ASC
		LIMIT 1
	`
	return r.primeraImagen(ctx, query, calificacionID)
}

func (r *PgRentalReader) RentasFinalizadasSinNotificacion(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT r.id
		FROM rentas r
		WHERE r.estatus = 'FINALIZADA' AND r.fecha_fin < NOW()
		  AND NOT EXISTS (
			SELECT 1 FROM notificaciones n
			WHERE n.usuario_id = r.cliente_id
			  AND n.entidad_id = r.id
			  AND n.tipo = 'ALQUILER_FINALIZADO'
			  AND n.ha_sido_borrada = FALSE
		  )
	`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PgRentalReader) RentasCanceladasSinNotificacion(ctx context.Context) ([]uuid.UUID, error) {
	// The cancellation notice goes to the vehicle owner, so the anti-join
	// keys on the propietario rather than the cliente.
	query := `
		SELECT r.id
		FROM rentas r
		JOIN reservas rv ON rv.id = r.reserva_id
		JOIN autos a ON a.id = rv.auto_id
		WHERE r.estatus = 'CANCELADA'
		  AND NOT EXISTS (
			SELECT 1 FROM notificaciones n
			WHERE n.usuario_id = a.propietario_id
			  AND n.entidad_id = r.id
			  AND n.tipo = 'RESERVA_CANCELADA'
			  AND n.ha_sido_borrada = FALSE
		  )
	`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PgRentalReader) ReservasConfirmadasSinNotificacion(ctx context.Context, desde time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT rv.id
		FROM reservas rv
		WHERE rv.estado = 'CONFIRMADA' AND rv.actualizado_en >= $1
		  AND NOT EXISTS (
			SELECT 1 FROM notificaciones n
			WHERE n.usuario_id = rv.cliente_id
			  AND n.entidad_id = rv.id
			  AND n.tipo = 'RESERVA_CONFIRMADA'
			  AND n.ha_sido_borrada = FALSE
		  )
	`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, desde); err != nil {
		return nil, err
	}
	return ids, nil
}

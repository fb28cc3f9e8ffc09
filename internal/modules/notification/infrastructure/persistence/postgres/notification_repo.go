package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/redibo/backend/internal/modules/notification/domain"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index on (usuario_id, entidad_id, tipo) among active rows.
const uniqueViolation = "23505"

type PgNotificacionRepository struct {
	db *sqlx.DB
}

func NewNotificacionRepository(db *sqlx.DB) *PgNotificacionRepository {
	return &PgNotificacionRepository{db: db}
}

func (r *PgNotificacionRepository) Create(ctx context.Context, dto domain.CrearNotificacionDTO) (*domain.Notificacion, error) {
	n := &domain.Notificacion{
		ID:          uuid.New(),
		UsuarioID:   dto.UsuarioID,
		Titulo:      dto.Titulo,
		Mensaje:     dto.Mensaje,
		Tipo:        dto.Tipo,
		Prioridad:   dto.Prioridad,
		EntidadID:   dto.EntidadID,
		TipoEntidad: dto.TipoEntidad,
		CreadoEn:    time.Now(),
	}
	if n.Prioridad == "" {
		n.Prioridad = domain.PrioridadMedia
	}

	query := `
		INSERT INTO notificaciones (id, usuario_id, titulo, mensaje, tipo, prioridad,
			entidad_id, tipo_entidad, leido, ha_sido_borrada, creado_en)
		VALUES (:id, :usuario_id, :titulo, :mensaje, :tipo, :prioridad,
			:entidad_id, :tipo_entidad, :leido, :ha_sido_borrada, :creado_en)
	`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return nil, fmt.Errorf("insertar notificacion: %w", err)
	}
	return n, nil
}

func (r *PgNotificacionRepository) FindActiveDuplicate(ctx context.Context, usuarioID, entidadID uuid.UUID, tipo domain.TipoNotificacion) (*domain.Notificacion, error) {
	query := `
		SELECT * FROM notificaciones
		WHERE usuario_id = $1 AND entidad_id = $2 AND tipo = $3 AND ha_sido_borrada = FALSE
	`
	n := &domain.Notificacion{}
	err := r.db.GetContext(ctx, n, query, usuarioID, entidadID, tipo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// UpsertByDedupKey implements the idempotent creation path. The dedup
// check-then-write races against concurrent identical triggers, so a
// unique-violation on insert is converted into the update path instead of
// surfacing as an error.
func (r *PgNotificacionRepository) UpsertByDedupKey(ctx context.Context, dto domain.CrearNotificacionDTO) (*domain.Notificacion, error) {
	if dto.EntidadID == nil || dto.TipoEntidad == nil {
		return r.Create(ctx, dto)
	}

	existente, err := r.FindActiveDuplicate(ctx, dto.UsuarioID, *dto.EntidadID, dto.Tipo)
	if err != nil {
		return nil, err
	}
	if existente != nil {
		return r.refresh(ctx, existente.ID, dto)
	}

	n, err := r.Create(ctx, dto)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		existente, findErr := r.FindActiveDuplicate(ctx, dto.UsuarioID, *dto.EntidadID, dto.Tipo)
		if findErr != nil {
			return nil, findErr
		}
		if existente == nil {
			return nil, err
		}
		return r.refresh(ctx, existente.ID, dto)
	}
	return n, err
}

// refresh replaces the mutable fields of an active duplicate and resets its
// read-state, so a re-triggered notification surfaces as unread again.
func (r *PgNotificacionRepository) refresh(ctx context.Context, id uuid.UUID, dto domain.CrearNotificacionDTO) (*domain.Notificacion, error) {
	prioridad := dto.Prioridad
	if prioridad == "" {
		prioridad = domain.PrioridadMedia
	}
	query := `
		UPDATE notificaciones
		SET titulo = $1, mensaje = $2, prioridad = $3, leido = FALSE, leido_en = NULL
		WHERE id = $4
		RETURNING *
	`
	n := &domain.Notificacion{}
	if err := r.db.GetContext(ctx, n, query, dto.Titulo, dto.Mensaje, prioridad, id); err != nil {
		return nil, fmt.Errorf("refrescar notificacion duplicada: %w", err)
	}
	return n, nil
}

func (r *PgNotificacionRepository) List(ctx context.Context, filtro domain.NotificacionFiltro) (*domain.ListadoNotificaciones, error) {
	var results []struct {
		domain.Notificacion
		TotalCount int `db:"total_count"`
	}

	cond := " WHERE ha_sido_borrada = FALSE"
	args := []interface{}{}
	argID := 1

	if filtro.UsuarioID != nil {
		cond += fmt.Sprintf(" AND usuario_id = $%d", argID)
		args = append(args, *filtro.UsuarioID)
		argID++
	}
	if filtro.Tipo != "" {
		cond += fmt.Sprintf(" AND tipo = $%d", argID)
		args = append(args, filtro.Tipo)
		argID++
	}
	if filtro.Leido != nil {
		cond += fmt.Sprintf(" AND leido = $%d", argID)
		args = append(args, *filtro.Leido)
		argID++
	}
	if filtro.Prioridad != "" {
		cond += fmt.Sprintf(" AND prioridad = $%d", argID)
		args = append(args, filtro.Prioridad)
		argID++
	}
	if filtro.TipoEntidad != "" {
		cond += fmt.Sprintf(" AND tipo_entidad = $%d", argID)
		args = append(args, filtro.TipoEntidad)
		argID++
	}
	if filtro.Desde != nil {
		cond += fmt.Sprintf(" AND creado_en >= $%d", argID)
		args = append(args, *filtro.Desde)
		argID++
	}
	if filtro.Hasta != nil {
		cond += fmt.Sprintf(" AND creado_en <= $%d", argID)
		args = append(args, *filtro.Hasta)
		argID++
	}

	query := `SELECT *, COUNT(*) OVER() AS total_count FROM notificaciones` + cond

	limit := filtro.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filtro.Offset
	if offset < 0 {
		offset = 0
	}

	// Most recent first; id breaks creado_en ties so pages stay stable.
	query += fmt.Sprintf(" ORDER BY creado_en DESC, id DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, err
	}

	listado := &domain.ListadoNotificaciones{
		Items: make([]domain.Notificacion, len(results)),
		Page:  offset/limit + 1,
		Limit: limit,
	}
	for i, res := range results {
		listado.Items[i] = res.Notificacion
	}
	switch {
	case len(results) > 0:
		listado.Total = results[0].TotalCount
	case offset > 0:
		// The window count disappears with the rows when the page is past
		// the end, so recount the filtered set without the pagination args.
		countQuery := `SELECT COUNT(*) FROM notificaciones` + cond
		if err := r.db.GetContext(ctx, &listado.Total, countQuery, args[:len(args)-2]...); err != nil {
			return nil, err
		}
	}
	return listado, nil
}

func (r *PgNotificacionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
	query := `SELECT * FROM notificaciones WHERE id = $1 AND ha_sido_borrada = FALSE`
	return r.get(ctx, query, id)
}

func (r *PgNotificacionRepository) GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
	query := `SELECT * FROM notificaciones WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *PgNotificacionRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Notificacion, error) {
	n := &domain.Notificacion{}
	err := r.db.GetContext(ctx, n, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotificacionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *PgNotificacionRepository) MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
	query := `
		UPDATE notificaciones
		SET leido = TRUE, leido_en = $1
		WHERE id = $2 AND ha_sido_borrada = FALSE
		RETURNING *
	`
	n := &domain.Notificacion{}
	err := r.db.GetContext(ctx, n, query, time.Now(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotificacionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *PgNotificacionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notificaciones SET ha_sido_borrada = TRUE WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotificacionNoEncontrada
	}
	return nil
}

func (r *PgNotificacionRepository) CountUnread(ctx context.Context, usuarioID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM notificaciones
		WHERE usuario_id = $1 AND leido = FALSE AND ha_sido_borrada = FALSE
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, usuarioID)
	return count, err
}

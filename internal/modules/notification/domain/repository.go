package domain

import (
	"context"

	"github.com/google/uuid"
)

// ListadoNotificaciones is a page of non-deleted notifications ordered by
// creado_en descending.
type ListadoNotificaciones struct {
	Items []Notificacion `json:"notificaciones"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type NotificacionRepository interface {
	Create(ctx context.Context, dto CrearNotificacionDTO) (*Notificacion, error)
	// FindActiveDuplicate looks up the dedup key (usuarioId, entidadId, tipo)
	// among non-deleted rows. Returns nil without error when there is none.
	FindActiveDuplicate(ctx context.Context, usuarioID, entidadID uuid.UUID, tipo TipoNotificacion) (*Notificacion, error)
	// UpsertByDedupKey creates the notification, or refreshes the existing
	// active row for the same dedup key (titulo/mensaje/prioridad replaced,
	// read-state reset). Every creation path goes through here.
	UpsertByDedupKey(ctx context.Context, dto CrearNotificacionDTO) (*Notificacion, error)
	List(ctx context.Context, filtro NotificacionFiltro) (*ListadoNotificaciones, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Notificacion, error)
	// GetByIDIncludingDeleted bypasses the soft-delete exclusion. Store-level
	// introspection only; service operations never serve deleted rows.
	GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*Notificacion, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*Notificacion, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, usuarioID uuid.UUID) (int, error)
}

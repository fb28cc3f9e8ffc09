package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redibo/backend/internal/modules/notification/domain"
	rental "github.com/redibo/backend/internal/modules/rental/domain"
)

// Event names pushed over the stream. Closed contract with clients.
const (
	EventoNuevaNotificacion     = "NUEVA_NOTIFICACION"
	EventoNotificacionLeida     = "NOTIFICACION_LEIDA"
	EventoNotificacionEliminada = "NOTIFICACION_ELIMINADA"
)

var notificacionesCreadas = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notificaciones_creadas_total",
	Help: "Notifications created or refreshed, by tipo.",
}, []string{"tipo"})

// Pusher is the live-delivery side of the service; *stream.Registry
// implements it.
type Pusher interface {
	Push(usuarioID uuid.UUID, evento string, payload interface{})
}

// ConteoCache is the optional unread-counter cache.
type ConteoCache interface {
	Get(ctx context.Context, usuarioID uuid.UUID) (int, bool)
	Set(ctx context.Context, usuarioID uuid.UUID, count int)
	Invalidate(ctx context.Context, usuarioID uuid.UUID)
}

// NotificacionConImagen is the read shape served to clients: the record
// plus the first image of the vehicle behind its entity reference.
type NotificacionConImagen struct {
	domain.Notificacion
	ImagenAuto *string `json:"imagenAuto"`
}

type ListadoConImagen struct {
	Items []NotificacionConImagen `json:"notificaciones"`
	Total int                     `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

type ResultadoEliminacion struct {
	ID        uuid.UUID `json:"id"`
	Eliminada bool      `json:"eliminada"`
}

type ConteoNoLeidas struct {
	Count int `json:"count"`
}

// NotificacionService is the single entry point combining persistence and
// live delivery. Persistence success is the success criterion of every
// operation; pushes are best-effort.
type NotificacionService struct {
	repo   domain.NotificacionRepository
	pusher Pusher
	reader rental.RentalReader
	cache  ConteoCache
	logger *slog.Logger
}

func NewNotificacionService(repo domain.NotificacionRepository, pusher Pusher, reader rental.RentalReader, cache ConteoCache, logger *slog.Logger) *NotificacionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificacionService{repo: repo, pusher: pusher, reader: reader, cache: cache, logger: logger}
}

func (s *NotificacionService) CrearNotificacion(ctx context.Context, dto domain.CrearNotificacionDTO) (*domain.Notificacion, error) {
	n, err := s.repo.UpsertByDedupKey(ctx, dto)
	if err != nil {
		return nil, err
	}
	notificacionesCreadas.WithLabelValues(string(n.Tipo)).Inc()
	s.invalidarConteo(ctx, n.UsuarioID)
	s.pusher.Push(n.UsuarioID, EventoNuevaNotificacion, n)
	return n, nil
}

func (s *NotificacionService) ObtenerNotificaciones(ctx context.Context, filtro domain.NotificacionFiltro) (*ListadoConImagen, error) {
	listado, err := s.repo.List(ctx, filtro)
	if err != nil {
		return nil, err
	}

	resultado := &ListadoConImagen{
		Items: make([]NotificacionConImagen, len(listado.Items)),
		Total: listado.Total,
		Page:  listado.Page,
		Limit: listado.Limit,
	}
	for i := range listado.Items {
		resultado.Items[i] = NotificacionConImagen{
			Notificacion: listado.Items[i],
			ImagenAuto:   s.resolverImagen(ctx, &listado.Items[i]),
		}
	}
	return resultado, nil
}

func (s *NotificacionService) ObtenerDetalleNotificacion(ctx context.Context, id, usuarioID uuid.UUID) (*NotificacionConImagen, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UsuarioID != usuarioID {
		return nil, domain.ErrNoAutorizado
	}
	return &NotificacionConImagen{Notificacion: *n, ImagenAuto: s.resolverImagen(ctx, n)}, nil
}

func (s *NotificacionService) MarcarComoLeida(ctx context.Context, id, usuarioID uuid.UUID) (*domain.Notificacion, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UsuarioID != usuarioID {
		return nil, domain.ErrNoAutorizado
	}

	actualizada, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidarConteo(ctx, usuarioID)
	s.pusher.Push(usuarioID, EventoNotificacionLeida, actualizada)
	return actualizada, nil
}

func (s *NotificacionService) EliminarNotificacion(ctx context.Context, id, usuarioID uuid.UUID) (*ResultadoEliminacion, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UsuarioID != usuarioID {
		return nil, domain.ErrNoAutorizado
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return nil, err
	}
	s.invalidarConteo(ctx, usuarioID)
	s.pusher.Push(usuarioID, EventoNotificacionEliminada, map[string]uuid.UUID{"id": id})
	return &ResultadoEliminacion{ID: id, Eliminada: true}, nil
}

func (s *NotificacionService) ObtenerConteoNoLeidas(ctx context.Context, usuarioID uuid.UUID) (*ConteoNoLeidas, error) {
	if s.cache != nil {
		if count, ok := s.cache.Get(ctx, usuarioID); ok {
			return &ConteoNoLeidas{Count: count}, nil
		}
	}

	count, err := s.repo.CountUnread(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, usuarioID, count)
	}
	return &ConteoNoLeidas{Count: count}, nil
}

func (s *NotificacionService) invalidarConteo(ctx context.Context, usuarioID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, usuarioID)
	}
}

// resolverImagen follows the weak entity reference down to the vehicle's
// first image. Failures degrade to no image; one bad row never fails a page.
func (s *NotificacionService) resolverImagen(ctx context.Context, n *domain.Notificacion) *string {
	ref, ok := n.Referencia()
	if !ok {
		return nil
	}

	var (
		imagen *string
		err    error
	)
	switch ref.Tipo {
	case domain.EntidadRenta:
		imagen, err = s.reader.ImagenAutoPorRenta(ctx, ref.ID)
	case domain.EntidadReserva:
		imagen, err = s.reader.ImagenAutoPorReserva(ctx, ref.ID)
	case domain.EntidadCalificacion:
		imagen, err = s.reader.ImagenAutoPorCalificacion(ctx, ref.ID)
	}
	if err != nil {
		s.logger.Warn("no se pudo resolver la imagen del auto",
			"notificacion", n.ID, "entidad", ref.ID, "tipoEntidad", ref.Tipo, "error", err)
		return nil
	}
	return imagen
}

// EsNoEncontrada reports whether err maps to a 404 at the HTTP boundary.
func EsNoEncontrada(err error) bool {
	return errors.Is(err, domain.ErrNotificacionNoEncontrada)
}

// EsNoAutorizado reports whether err maps to a 403 at the HTTP boundary.
func EsNoAutorizado(err error) bool {
	return errors.Is(err, domain.ErrNoAutorizado)
}

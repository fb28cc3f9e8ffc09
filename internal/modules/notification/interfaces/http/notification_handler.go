package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redibo/backend/internal/gateway/middleware"
	"github.com/redibo/backend/internal/modules/notification/application"
	"github.com/redibo/backend/internal/modules/notification/domain"
	"github.com/redibo/backend/internal/modules/notification/infrastructure/stream"
	"github.com/redibo/backend/internal/utils"
)

// NotificationHandler exposes the notification operations over HTTP. Every
// route sits behind RequireAuth; the user identity always comes from the
// token, never from the request.
type NotificationHandler struct {
	service  *application.NotificacionService
	registry *stream.Registry
	logger   *slog.Logger
}

func NewNotificationHandler(service *application.NotificacionService, registry *stream.Registry, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{service: service, registry: registry, logger: logger}
}

// Listar handles GET /api/notificaciones.
func (h *NotificationHandler) Listar(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "no autenticado", nil)
		return
	}

	filtro, err := parseFiltro(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "filtro invalido", err)
		return
	}
	filtro.UsuarioID = &usuarioID

	listado, err := h.service.ObtenerNotificaciones(r.Context(), filtro)
	if err != nil {
		h.logger.Error("no se pudieron listar las notificaciones", "usuario", usuarioID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "no se pudieron obtener las notificaciones", nil)
		return
	}
	utils.WriteJSON(w, http.StatusOK, listado)
}

// ConteoNoLeidas handles GET /api/notificaciones/conteo-no-leidas.
func (h *NotificationHandler) ConteoNoLeidas(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "no autenticado", nil)
		return
	}

	conteo, err := h.service.ObtenerConteoNoLeidas(r.Context(), usuarioID)
	if err != nil {
		h.logger.Error("no se pudo obtener el conteo de no leidas", "usuario", usuarioID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "no se pudo obtener el conteo", nil)
		return
	}
	utils.WriteJSON(w, http.StatusOK, conteo)
}

// Detalle handles GET /api/notificaciones/{id}.
func (h *NotificationHandler) Detalle(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "no autenticado", nil)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "id invalido", nil)
		return
	}

	detalle, err := h.service.ObtenerDetalleNotificacion(r.Context(), id, usuarioID)
	if err != nil {
		h.escribirErrorDeOperacion(w, "obtener el detalle", id, usuarioID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, detalle)
}

// MarcarLeida handles PATCH /api/notificaciones/{id}/leida.
func (h *NotificationHandler) MarcarLeida(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "no autenticado", nil)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "id invalido", nil)
		return
	}

	n, err := h.service.MarcarComoLeida(r.Context(), id, usuarioID)
	if err != nil {
		h.escribirErrorDeOperacion(w, "marcar como leida", id, usuarioID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, n)
}

// Eliminar handles DELETE /api/notificaciones/{id}.
func (h *NotificationHandler) Eliminar(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "no autenticado", nil)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "id invalido", nil)
		return
	}

	resultado, err := h.service.EliminarNotificacion(r.Context(), id, usuarioID)
	if err != nil {
		h.escribirErrorDeOperacion(w, "eliminar", id, usuarioID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resultado)
}

// StreamSSE handles GET /api/notificaciones/stream. Blocks until the client
// disconnects.
func (h *NotificationHandler) StreamSSE(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "no autenticado", nil)
		return
	}
	stream.ServeSSE(h.registry, w, r, usuarioID)
}

// StreamWS handles GET /ws, the websocket variant of the live channel.
func (h *NotificationHandler) StreamWS(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "no autenticado", nil)
		return
	}
	stream.ServeWS(h.registry, w, r, usuarioID)
}

// Estadisticas handles GET /api/notificaciones/stream/estadisticas.
func (h *NotificationHandler) Estadisticas(w http.ResponseWriter, r *http.Request) {
	usuarios := h.registry.ListarUsuariosConectados()
	conexiones := 0
	for _, u := range usuarios {
		conexiones += u.Conexiones
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"usuariosConectados": len(usuarios),
		"conexionesActivas":  conexiones,
		"usuarios":           usuarios,
	})
}

func (h *NotificationHandler) escribirErrorDeOperacion(w http.ResponseWriter, operacion string, id, usuarioID uuid.UUID, err error) {
	switch {
	case application.EsNoEncontrada(err):
		utils.WriteError(w, http.StatusNotFound, "notificacion no encontrada", nil)
	case application.EsNoAutorizado(err):
		utils.WriteError(w, http.StatusForbidden, "la notificacion pertenece a otro usuario", nil)
	default:
		h.logger.Error("operacion sobre notificacion fallida",
			"operacion", operacion, "notificacion", id, "usuario", usuarioID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "no se pudo "+operacion, nil)
	}
}

func parseFiltro(r *http.Request) (domain.NotificacionFiltro, error) {
	q := r.URL.Query()
	filtro := domain.NotificacionFiltro{
		Tipo:        domain.TipoNotificacion(q.Get("tipo")),
		Prioridad:   domain.Prioridad(q.Get("prioridad")),
		TipoEntidad: q.Get("tipoEntidad"),
	}

	if v := q.Get("leido"); v != "" {
		leido, err := strconv.ParseBool(v)
		if err != nil {
			return filtro, err
		}
		filtro.Leido = &leido
	}
	if v := q.Get("desde"); v != "" {
		desde, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filtro, err
		}
		filtro.Desde = &desde
	}
	if v := q.Get("hasta"); v != "" {
		hasta, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filtro, err
		}
		filtro.Hasta = &hasta
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filtro, err
		}
		filtro.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return filtro, err
		}
		filtro.Offset = offset
	}
	return filtro, nil
}

package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redibo/backend/internal/gateway/middleware"
	"github.com/redibo/backend/internal/modules/notification/application"
	"github.com/redibo/backend/internal/modules/notification/domain"
	"github.com/redibo/backend/internal/modules/notification/infrastructure/stream"
	notification_http "github.com/redibo/backend/internal/modules/notification/interfaces/http"
	rental "github.com/redibo/backend/internal/modules/rental/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handlerRepo is the minimal repository fake the handler tests need.
type handlerRepo struct {
	domain.NotificacionRepository

	listFn       func(ctx context.Context, filtro domain.NotificacionFiltro) (*domain.ListadoNotificaciones, error)
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error)
	markReadFn   func(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error)
	softDeleteFn func(ctx context.Context, id uuid.UUID) error
	countFn      func(ctx context.Context, usuarioID uuid.UUID) (int, error)
}

func (r *handlerRepo) List(ctx context.Context, filtro domain.NotificacionFiltro) (*domain.ListadoNotificaciones, error) {
	return r.listFn(ctx, filtro)
}

func (r *handlerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
	return r.getByIDFn(ctx, id)
}

func (r *handlerRepo) MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
	return r.markReadFn(ctx, id)
}

func (r *handlerRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.softDeleteFn(ctx, id)
}

func (r *handlerRepo) CountUnread(ctx context.Context, usuarioID uuid.UUID) (int, error) {
	return r.countFn(ctx, usuarioID)
}

// handlerReader never resolves images; image behavior is covered in the
// application tests.
type handlerReader struct {
	rental.RentalReader
}

func (handlerReader) ImagenAutoPorRenta(ctx context.Context, id uuid.UUID) (*string, error) {
	return nil, nil
}

func (handlerReader) ImagenAutoPorReserva(ctx context.Context, id uuid.UUID) (*string, error) {
	return nil, nil
}

func (handlerReader) ImagenAutoPorCalificacion(ctx context.Context, id uuid.UUID) (*string, error) {
	return nil, nil
}

func newHandler(repo *handlerRepo) (*notification_http.NotificationHandler, *stream.Registry) {
	registry := stream.NewRegistry()
	svc := application.NewNotificacionService(repo, registry, handlerReader{}, nil, nil)
	return notification_http.NewNotificationHandler(svc, registry, nil), registry
}

func conUsuario(r *http.Request, usuarioID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUserId, usuarioID)
	return r.WithContext(ctx)
}

func TestListar_FuerzaElFiltroDePropietario(t *testing.T) {
	usuarioID := uuid.New()
	var filtroRecibido domain.NotificacionFiltro

	repo := &handlerRepo{
		listFn: func(ctx context.Context, filtro domain.NotificacionFiltro) (*domain.ListadoNotificaciones, error) {
			filtroRecibido = filtro
			return &domain.ListadoNotificaciones{Items: []domain.Notificacion{}, Page: 1, Limit: 10}, nil
		},
	}
	h, _ := newHandler(repo)

	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones?tipo=RESERVA_CONFIRMADA&prioridad=ALTA&leido=false&limit=5&offset=10", nil), usuarioID)
	rec := httptest.NewRecorder()
	h.Listar(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, filtroRecibido.UsuarioID)
	assert.Equal(t, usuarioID, *filtroRecibido.UsuarioID)
	assert.Equal(t, domain.TipoReservaConfirmada, filtroRecibido.Tipo)
	assert.Equal(t, domain.PrioridadAlta, filtroRecibido.Prioridad)
	require.NotNil(t, filtroRecibido.Leido)
	assert.False(t, *filtroRecibido.Leido)
	assert.Equal(t, 5, filtroRecibido.Limit)
	assert.Equal(t, 10, filtroRecibido.Offset)
}

func TestListar_FiltroInvalido(t *testing.T) {
	h, _ := newHandler(&handlerRepo{})

	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones?leido=quizas", nil), uuid.New())
	rec := httptest.NewRecorder()
	h.Listar(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListar_SinIdentidad(t *testing.T) {
	h, _ := newHandler(&handlerRepo{})

	rec := httptest.NewRecorder()
	h.Listar(rec, httptest.NewRequest("GET", "/api/notificaciones", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDetalle(t *testing.T) {
	usuarioID, id := uuid.New(), uuid.New()
	repo := &handlerRepo{
		getByIDFn: func(ctx context.Context, gotID uuid.UUID) (*domain.Notificacion, error) {
			return &domain.Notificacion{ID: gotID, UsuarioID: usuarioID, Titulo: "Reserva Confirmada"}, nil
		},
	}
	h, _ := newHandler(repo)

	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones/"+id.String(), nil), usuarioID)
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.Detalle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Reserva Confirmada", body["titulo"])
	assert.Contains(t, body, "imagenAuto")
}

func TestDetalle_NoEncontrada(t *testing.T) {
	repo := &handlerRepo{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
			return nil, domain.ErrNotificacionNoEncontrada
		},
	}
	h, _ := newHandler(repo)

	id := uuid.New()
	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones/"+id.String(), nil), uuid.New())
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.Detalle(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetalle_DeOtroUsuario(t *testing.T) {
	repo := &handlerRepo{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
			return &domain.Notificacion{ID: id, UsuarioID: uuid.New()}, nil
		},
	}
	h, _ := newHandler(repo)

	id := uuid.New()
	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones/"+id.String(), nil), uuid.New())
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.Detalle(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDetalle_IdInvalido(t *testing.T) {
	h, _ := newHandler(&handlerRepo{})

	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones/no-un-uuid", nil), uuid.New())
	req.SetPathValue("id", "no-un-uuid")
	rec := httptest.NewRecorder()
	h.Detalle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarcarLeida(t *testing.T) {
	usuarioID, id := uuid.New(), uuid.New()
	leidoEn := time.Now()
	repo := &handlerRepo{
		getByIDFn: func(ctx context.Context, gotID uuid.UUID) (*domain.Notificacion, error) {
			return &domain.Notificacion{ID: gotID, UsuarioID: usuarioID}, nil
		},
		markReadFn: func(ctx context.Context, gotID uuid.UUID) (*domain.Notificacion, error) {
			return &domain.Notificacion{ID: gotID, UsuarioID: usuarioID, Leido: true, LeidoEn: &leidoEn}, nil
		},
	}
	h, _ := newHandler(repo)

	req := conUsuario(httptest.NewRequest("PATCH", "/api/notificaciones/"+id.String()+"/leida", nil), usuarioID)
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.MarcarLeida(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["leido"])
}

func TestEliminar(t *testing.T) {
	usuarioID, id := uuid.New(), uuid.New()
	repo := &handlerRepo{
		getByIDFn: func(ctx context.Context, gotID uuid.UUID) (*domain.Notificacion, error) {
			return &domain.Notificacion{ID: gotID, UsuarioID: usuarioID}, nil
		},
		softDeleteFn: func(ctx context.Context, gotID uuid.UUID) error {
			return nil
		},
	}
	h, _ := newHandler(repo)

	req := conUsuario(httptest.NewRequest("DELETE", "/api/notificaciones/"+id.String(), nil), usuarioID)
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.Eliminar(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ID        uuid.UUID `json:"id"`
		Eliminada bool      `json:"eliminada"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.ID)
	assert.True(t, body.Eliminada)
}

func TestConteoNoLeidas(t *testing.T) {
	usuarioID := uuid.New()
	repo := &handlerRepo{
		countFn: func(ctx context.Context, gotID uuid.UUID) (int, error) {
			assert.Equal(t, usuarioID, gotID)
			return 5, nil
		},
	}
	h, _ := newHandler(repo)

	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones/conteo-no-leidas", nil), usuarioID)
	rec := httptest.NewRecorder()
	h.ConteoNoLeidas(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":5}`, rec.Body.String())
}

func TestEstadisticas(t *testing.T) {
	h, registry := newHandler(&handlerRepo{})
	usuarioID := uuid.New()
	registry.Conectar(usuarioID, "conn-1", conexionNula{})
	registry.Conectar(usuarioID, "conn-2", conexionNula{})

	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones/stream/estadisticas", nil), uuid.New())
	rec := httptest.NewRecorder()
	h.Estadisticas(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		UsuariosConectados int `json:"usuariosConectados"`
		ConexionesActivas  int `json:"conexionesActivas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.UsuariosConectados)
	assert.Equal(t, 2, body.ConexionesActivas)
}

func TestStreamSSE_EscribeElAck(t *testing.T) {
	h, registry := newHandler(&handlerRepo{})
	usuarioID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	req := conUsuario(httptest.NewRequest("GET", "/api/notificaciones/stream", nil).WithContext(ctx), usuarioID)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.StreamSSE(rec, req)
	}()

	require.Eventually(t, func() bool {
		return len(registry.ListarUsuariosConectados()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StreamSSE no termino tras cancelar el contexto")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: CONEXION_ESTABLECIDA")
}

type conexionNula struct{}

func (conexionNula) EscribirEvento(string, []byte) error { return nil }
func (conexionNula) EscribirComentario() error           { return nil }
func (conexionNula) Cerrar()                             {}

package application_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redibo/backend/internal/modules/notification/domain"
	rental "github.com/redibo/backend/internal/modules/rental/domain"
)

type mockRepo struct {
	CreateFn                  func(ctx context.Context, dto domain.CrearNotificacionDTO) (*domain.Notificacion, error)
	FindActiveDuplicateFn     func(ctx context.Context, usuarioID, entidadID uuid.UUID, tipo domain.TipoNotificacion) (*domain.Notificacion, error)
	UpsertByDedupKeyFn        func(ctx context.Context, dto domain.CrearNotificacionDTO) (*domain.Notificacion, error)
	ListFn                    func(ctx context.Context, filtro domain.NotificacionFiltro) (*domain.ListadoNotificaciones, error)
	GetByIDFn                 func(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error)
	GetByIDIncludingDeletedFn func(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error)
	MarkReadFn                func(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error)
	SoftDeleteFn              func(ctx context.Context, id uuid.UUID) error
	CountUnreadFn             func(ctx context.Context, usuarioID uuid.UUID) (int, error)
}

func (m *mockRepo) Create(ctx context.Context, dto domain.CrearNotificacionDTO) (*domain.Notificacion, error) {
	return m.CreateFn(ctx, dto)
}

func (m *mockRepo) FindActiveDuplicate(ctx context.Context, usuarioID, entidadID uuid.UUID, tipo domain.TipoNotificacion) (*domain.Notificacion, error) {
	if m.FindActiveDuplicateFn == nil {
		return nil, nil
	}
	return m.FindActiveDuplicateFn(ctx, usuarioID, entidadID, tipo)
}

func (m *mockRepo) UpsertByDedupKey(ctx context.Context, dto domain.CrearNotificacionDTO) (*domain.Notificacion, error) {
	return m.UpsertByDedupKeyFn(ctx, dto)
}

func (m *mockRepo) List(ctx context.Context, filtro domain.NotificacionFiltro) (*domain.ListadoNotificaciones, error) {
	return m.ListFn(ctx, filtro)
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockRepo) GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
	return m.GetByIDIncludingDeletedFn(ctx, id)
}

func (m *mockRepo) MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notificacion, error) {
	return m.MarkReadFn(ctx, id)
}

func (m *mockRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return m.SoftDeleteFn(ctx, id)
}

func (m *mockRepo) CountUnread(ctx context.Context, usuarioID uuid.UUID) (int, error) {
	return m.CountUnreadFn(ctx, usuarioID)
}

type pushRegistrado struct {
	UsuarioID uuid.UUID
	Evento    string
	Payload   interface{}
}

type mockPusher struct {
	mu     sync.Mutex
	pushes []pushRegistrado
}

func (m *mockPusher) Push(usuarioID uuid.UUID, evento string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, pushRegistrado{usuarioID, evento, payload})
}

func (m *mockPusher) registrados() []pushRegistrado {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pushRegistrado(nil), m.pushes...)
}

type mockReader struct {
	GetRentaDetalleFn           func(ctx context.Context, rentaID uuid.UUID) (*rental.RentaDetalle, error)
	GetReservaDetalleFn         func(ctx context.Context, reservaID uuid.UUID) (*rental.ReservaDetalle, error)
	GetCalificacionPorRentaFn   func(ctx context.Context, rentaID uuid.UUID) (*rental.CalificacionDetalle, error)
	ImagenAutoPorRentaFn        func(ctx context.Context, rentaID uuid.UUID) (*string, error)
	ImagenAutoPorReservaFn      func(ctx context.Context, reservaID uuid.UUID) (*string, error)
	ImagenAutoPorCalificacionFn func(ctx context.Context, calificacionID uuid.UUID) (*string, error)
}

func (m *mockReader) GetRentaDetalle(ctx context.Context, rentaID uuid.UUID) (*rental.RentaDetalle, error) {
	return m.GetRentaDetalleFn(ctx, rentaID)
}

func (m *mockReader) GetReservaDetalle(ctx context.Context, reservaID uuid.UUID) (*rental.ReservaDetalle, error) {
	return m.GetReservaDetalleFn(ctx, reservaID)
}

func (m *mockReader) GetCalificacionPorRenta(ctx context.Context, rentaID uuid.UUID) (*rental.CalificacionDetalle, error) {
	return m.GetCalificacionPorRentaFn(ctx, rentaID)
}

func (m *mockReader) ImagenAutoPorRenta(ctx context.Context, rentaID uuid.UUID) (*string, error) {
	if m.ImagenAutoPorRentaFn == nil {
		return nil, nil
	}
	return m.ImagenAutoPorRentaFn(ctx, rentaID)
}

func (m *mockReader) ImagenAutoPorReserva(ctx context.Context, reservaID uuid.UUID) (*string, error) {
	if m.ImagenAutoPorReservaFn == nil {
		return nil, nil
	}
	return m.ImagenAutoPorReservaFn(ctx, reservaID)
}

func (m *mockReader) ImagenAutoPorCalificacion(ctx context.Context, calificacionID uuid.UUID) (*string, error) {
	if m.ImagenAutoPorCalificacionFn == nil {
		return nil, nil
	}
	return m.ImagenAutoPorCalificacionFn(ctx, calificacionID)
}

type mockCache struct {
	mu            sync.Mutex
	valores       map[uuid.UUID]int
	invalidations int
}

func newMockCache() *mockCache {
	return &mockCache{valores: make(map[uuid.UUID]int)}
}

func (m *mockCache) Get(ctx context.Context, usuarioID uuid.UUID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count, ok := m.valores[usuarioID]
	return count, ok
}

func (m *mockCache) Set(ctx context.Context, usuarioID uuid.UUID, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valores[usuarioID] = count
}

func (m *mockCache) Invalidate(ctx context.Context, usuarioID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.valores, usuarioID)
	m.invalidations++
}

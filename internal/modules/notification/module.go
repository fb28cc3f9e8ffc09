package notification

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/redibo/backend/internal/modules/notification/application"
	"github.com/redibo/backend/internal/modules/notification/infrastructure/cache"
	"github.com/redibo/backend/internal/modules/notification/infrastructure/persistence/postgres"
	"github.com/redibo/backend/internal/modules/notification/infrastructure/stream"
	notification_http "github.com/redibo/backend/internal/modules/notification/interfaces/http"
	rental "github.com/redibo/backend/internal/modules/rental/domain"
)

type Module struct {
	service  *application.NotificacionService
	handler  *notification_http.NotificationHandler
	registry *stream.Registry
}

// NewModule wires the notification module. redisClient may be nil; the
// unread counter then always hits Postgres.
func NewModule(db *sqlx.DB, redisClient *redis.Client, reader rental.RentalReader, logger *slog.Logger) *Module {
	repo := postgres.NewNotificacionRepository(db)
	registry := stream.NewRegistry()
	registry.IniciarHeartbeat()

	var conteoCache application.ConteoCache
	if redisClient != nil {
		conteoCache = cache.NewRedisConteoCache(redisClient)
	}

	service := application.NewNotificacionService(repo, registry, reader, conteoCache, logger)
	handler := notification_http.NewNotificationHandler(service, registry, logger)

	return &Module{
		service:  service,
		handler:  handler,
		registry: registry,
	}
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

func (m *Module) Service() *application.NotificacionService {
	return m.service
}

func (m *Module) Registry() *stream.Registry {
	return m.registry
}

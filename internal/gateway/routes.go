package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redibo/backend/internal/gateway/middleware"
	notification_http "github.com/redibo/backend/internal/modules/notification/interfaces/http"
)

// RouterConfig holds the handlers and middleware needed for routing.
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	NotificationHandler *notification_http.NotificationHandler
}

// SetupRoutes creates and configures all application routes.
func SetupRoutes(config RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	// Health Check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus Metrics Endpoint
	mux.Handle("/metrics", promhttp.Handler())

	requireAuth := config.AuthMiddleware.RequireAuth
	nh := config.NotificationHandler

	// Notification Routes
	mux.Handle("GET /api/notificaciones", requireAuth(http.HandlerFunc(nh.Listar)))
	mux.Handle("GET /api/notificaciones/conteo-no-leidas", requireAuth(http.HandlerFunc(nh.ConteoNoLeidas)))
	mux.Handle("GET /api/notificaciones/stream", requireAuth(http.HandlerFunc(nh.StreamSSE)))
	mux.Handle("GET /api/notificaciones/stream/estadisticas", requireAuth(http.HandlerFunc(nh.Estadisticas)))
	mux.Handle("GET /api/notificaciones/{id}", requireAuth(http.HandlerFunc(nh.Detalle)))
	mux.Handle("PATCH /api/notificaciones/{id}/leida", requireAuth(http.HandlerFunc(nh.MarcarLeida)))
	mux.Handle("DELETE /api/notificaciones/{id}", requireAuth(http.HandlerFunc(nh.Eliminar)))

	// Websocket variant of the live channel
	mux.Handle("GET /ws", requireAuth(http.HandlerFunc(nh.StreamWS)))

	return mux
}

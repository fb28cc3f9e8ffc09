package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/redibo/backend/internal/gateway"
	"github.com/redibo/backend/internal/gateway/middleware"
	"github.com/redibo/backend/internal/modules/notification"
	"github.com/redibo/backend/internal/modules/notification/jobs"
	rental_postgres "github.com/redibo/backend/internal/modules/rental/infrastructure/persistence/postgres"
	"github.com/redibo/backend/internal/shared/infrastructure/config"
	"github.com/redibo/backend/internal/shared/infrastructure/database"
	"github.com/redibo/backend/pkg/migration"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		logger.Error("no se pudo conectar a postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("conexion a postgres establecida")

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := migration.AutoMigrate(cfg.Database.URL(), migrationsPath, logger); err != nil {
		logger.Error("migraciones fallidas", "error", err)
		os.Exit(1)
	}

	// Redis is an optimization; the service degrades to Postgres-only
	// counts when it is unavailable.
	redisClient, err := database.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis no disponible, conteo sin cache", "error", err)
		redisClient = nil
	} else if redisClient != nil {
		defer redisClient.Close()
		logger.Info("conexion a redis establecida")
	}

	rentalReader := rental_postgres.NewRentalReader(db)
	notificationModule := notification.NewModule(db, redisClient, rentalReader, logger)

	reconciler := jobs.NewReconciler(notificationModule.Service(), rentalReader, cfg.Reconciler.Interval, logger)
	reconciler.EjecutarUnaVez()
	reconciler.Iniciar()

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	mux := gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      authMiddleware,
		NotificationHandler: notificationModule.HTTPHandler(),
	})

	var handler http.Handler = mux
	handler = middleware.PrometheusMiddleware(handler)
	handler = middleware.CORSMiddleware(handler, cfg.Server.AllowedOrigins)

	server := gateway.NewServer(cfg.Server.Port, handler)
	server.OnShutdown(reconciler.Detener)
	server.OnShutdown(notificationModule.Registry().Shutdown)

	if err := server.Start(); err != nil {
		logger.Error("servidor terminado con error", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/alert"
	"github.com/mindhaven/mindhaven-api/internal/config"
	"github.com/mindhaven/mindhaven-api/internal/detection"
	"github.com/mindhaven/mindhaven-api/internal/events"
	"github.com/mindhaven/mindhaven-api/internal/handlers"
	"github.com/mindhaven/mindhaven-api/internal/history"
	"github.com/mindhaven/mindhaven-api/internal/middleware"
	"github.com/mindhaven/mindhaven-api/internal/migration"
	"github.com/mindhaven/mindhaven-api/internal/notification"
	"github.com/mindhaven/mindhaven-api/internal/repository"
	"github.com/mindhaven/mindhaven-api/internal/routes"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config        *config.Config
	db            *sql.DB
	logger        zerolog.Logger
	bus           *events.Bus
	alerts        alert.Service
	notifications notification.Service
	detector      *detection.Service
	cache         *history.RedisCache
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL)

	// Initialize the redis-backed observation history cache.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping redis")
	}
	cache := history.NewRedisCache(redisClient, time.Duration(cfg.Redis.HistoryTTLDays)*24*time.Hour, logger)

	// Repositories.
	alertRepo := repository.NewAlertRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)

	// Notification pipeline: scheduler, dispatcher, and the event handlers
	// that fan upstream domain events out into notifications.
	scheduler := notification.NewScheduler(preferenceRepo, notificationRepo, logger)
	notificationService := notification.NewService(notificationRepo, preferenceRepo, scheduler, logger)

	bus := events.NewBus(logger)
	events.NewHandlers(notificationService, logger).Register(bus)

	// Crisis detection and alerting.
	detector := detection.NewDetector(cfg.Detection)
	detectionService := detection.NewService(detector, cache, cfg.Detection.WindowDays, logger)
	alertService := alert.NewService(alertRepo, bus, logger)

	app := &application{
		config:        cfg,
		db:            db,
		logger:        logger,
		bus:           bus,
		alerts:        alertService,
		notifications: notificationService,
		detector:      detectionService,
		cache:         cache,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter()
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter() http.Handler {
	alertHandler := handlers.NewAlertHandler(app.alerts, app.logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, app.logger)
	signalHandler := handlers.NewSignalHandler(app.detector, app.alerts, app.cache, app.bus, app.logger)
	eventHandler := handlers.NewEventHandler(app.bus, app.logger)

	return routes.NewRouter(app.config.JWTSecret, alertHandler, notificationHandler, signalHandler, eventHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		app.logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		app.logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		app.logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		app.logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		app.logger.Info().Msg("HTTP server shutdown complete.")
	}
}

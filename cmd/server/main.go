package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mesaYaReviews/internal/config"
	devapiusecase "mesaYaReviews/internal/modules/devapi/application/usecase"
	devapiinfra "mesaYaReviews/internal/modules/devapi/infrastructure"
	devapitransport "mesaYaReviews/internal/modules/devapi/interface"
	identityusecase "mesaYaReviews/internal/modules/identity/application/usecase"
	identitytransport "mesaYaReviews/internal/modules/identity/interface"
	"mesaYaReviews/internal/modules/realtime/application/handler"
	realtimeport "mesaYaReviews/internal/modules/realtime/application/port"
	realtimeusecase "mesaYaReviews/internal/modules/realtime/application/usecase"
	realtime "mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/modules/realtime/infrastructure"
	realtimetransport "mesaYaReviews/internal/modules/realtime/interface"
	"mesaYaReviews/internal/platform/broker"
	"mesaYaReviews/internal/shared/auth"
	"mesaYaReviews/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireServerSecret()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := setupLogging(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))

	if err := run(cfg, logger); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := infrastructure.NewHub(logger)
	defer hub.Close()
	registry := infrastructure.NewHandlerRegistry()
	broadcastUC := realtimeusecase.NewBroadcastUseCase(hub, logger)
	for _, entity := range realtime.Entities() {
		registry.Register(handler.NewEntityStreamHandler(entity, cfg.Websocket.AllowedActions, broadcastUC, logger))
	}

	publisher, consumers, closePublisher := setupPublisher(ctx, cfg.Kafka, registry, logger)
	defer closePublisher()

	photoStore, err := devapiinfra.NewFilePhotoStore(cfg.Server.PhotoDir)
	if err != nil {
		return fmt.Errorf("photo store: %w", err)
	}
	catalog := devapiusecase.NewCatalog(devapiinfra.NewMemoryRestaurantStore(), devapiinfra.NewRandomGeoLocator(), publisher, logger)
	photos := devapiusecase.NewPhotoService(photoStore, publisher, logger)

	validator := auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.Issuer)
	issuer := auth.NewIssuer(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.AccessTTL, cfg.Security.RefreshTTL)
	grants := identityusecase.NewGrantService(cfg.Security.Users, cfg.OIDC.ClientID, issuer, validator, logger)

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := devapitransport.NewHTTPMetrics(metricsRegistry)

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())
	e.HTTPErrorHandler = devapitransport.ErrorHandler(devapitransport.NewErrorMapper(), logger)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.OIDC.RedirectURL},
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(httpMetrics.Middleware())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	api := e.Group("/api", devapitransport.RateLimit(cfg.Server.RateLimit))
	devapitransport.NewHandlers(catalog, photos, logger).Register(api, validator)

	if realm := cfg.OIDC.Realm(); realm != "" {
		identitytransport.NewIdentityHandlers(realm, cfg.OIDC.Authority, grants, logger).Register(e)
	} else {
		slog.Warn("identity provider disabled: authority has no realm", slog.String("authority", cfg.OIDC.Authority))
	}

	topics := realtimetransport.NewTopicSet(cfg.Websocket.AllowedActions)
	e.GET("/ws/events", realtimetransport.NewEventsHandler(realtimetransport.EventsHandlerConfig{
		Hub:       hub,
		Topics:    topics,
		Validator: validator,
		Logger:    logger,
	}))
	e.POST("/ws/publish", realtimetransport.NewPublishHTTPHandler(publisher, topics, logger), devapitransport.Authenticate(validator, true))

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", slog.Any("error", err))
	}
	stop()
	consumers.Wait()
	return nil
}

// setupPublisher fans change events out through Kafka when brokers are configured, so every
// instance's hub receives them; otherwise events go straight to the local registry.
func setupPublisher(ctx context.Context, cfg config.KafkaConfig, registry *infrastructure.HandlerRegistry, logger *slog.Logger) (realtimeport.Publisher, *sync.WaitGroup, func()) {
	if len(cfg.Brokers) == 0 {
		slog.Info("kafka disabled, publishing change events locally")
		return infrastructure.NewLocalPublisher(registry), &sync.WaitGroup{}, func() {}
	}
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Brokers), slog.String("topic", cfg.Topic), slog.String("group", cfg.GroupID))
	publisher := broker.NewKafkaPublisher(cfg.Brokers, cfg.Topic, logger)
	consumers := broker.StartKafkaConsumers(ctx, registry, cfg.Brokers, cfg.GroupID, []string{cfg.Topic}, logger)
	return publisher, consumers, func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("kafka publisher close failed", slog.Any("error", err))
		}
	}
}

func setupLogging(cfg config.LoggingConfig) (*os.File, *slog.Logger, error) {
	dir := cfg.Directory
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	fileName := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".log")
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	writer := io.MultiWriter(os.Stdout, file)
	logger := logging.New(writer, logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: true,
	})
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")

	return file, logger, nil
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/urbanplantlife/store/internal/config"
	"github.com/urbanplantlife/store/internal/es"
	"github.com/urbanplantlife/store/internal/events"
	"github.com/urbanplantlife/store/internal/handlers"
	"github.com/urbanplantlife/store/internal/handlers/cart"
	"github.com/urbanplantlife/store/internal/handlers/order"
	"github.com/urbanplantlife/store/internal/logging"
	httpserver "github.com/urbanplantlife/store/internal/transport/http"
	"github.com/urbanplantlife/store/internal/web"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LOG_LEVEL)

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", "err", err)
		os.Exit(1)
	}

	jwtSecret := []byte(cfg.JWT_SECRET)

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{cfg.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS not set, domain events disabled")
	}

	plantHandler := &handlers.PlantHandler{DB: db, ESIndex: "plants", Producer: producer}
	if cfg.ES_URL != "" {
		esClient, err := es.NewClient(cfg, logger)
		if err != nil {
			logger.Warn("elasticsearch unavailable, falling back to SQL search", "err", err)
		} else {
			plantHandler.ES = esClient
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = web.NewValidator()
	e.HTTPErrorHandler = web.ErrorHandler(logger)
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true, LogURI: true, LogMethod: true, LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			)
			return nil
		},
	}))

	deps := httpserver.Deps{
		DB:           db,
		JWTSecret:    jwtSecret,
		AuthHandler:  &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, TokenTTL: cfg.JWT_TTL, Producer: producer},
		UserHandler:  &handlers.UserHandler{DB: db, Producer: producer},
		PlantHandler: plantHandler,
		CartHandler:  &cart.CartHandler{DB: db, Producer: producer},
		OrderHandler: &order.OrderHandler{DB: db, Producer: producer},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + cfg.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "err", err)
		}
	} else {
		logger.Error("db handle error", "err", err)
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "err", err)
	}

	logger.Info("shutdown complete")
}

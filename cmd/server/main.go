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

	"github.com/lalamig/storefront/internal/config"
	"github.com/lalamig/storefront/internal/db"
	"github.com/lalamig/storefront/internal/es"
	"github.com/lalamig/storefront/internal/events"
	"github.com/lalamig/storefront/internal/httpserver"
	"github.com/lalamig/storefront/internal/logging"
	"github.com/lalamig/storefront/internal/notify"
	"github.com/lalamig/storefront/internal/repo"
	"github.com/lalamig/storefront/internal/search"
	"github.com/lalamig/storefront/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LOG_LEVEL)

	gdb, err := db.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{cfg.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS not set, events disabled")
	}

	// The shop keeps serving when search or mail are down, the same
	// way it keeps taking orders when a confirmation mail bounces.
	esClient, err := es.NewClient(cfg)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esClient = nil
	}

	var notifier service.Notifier
	if cfg.SMTP_HOST != "" {
		mailer, err := notify.NewMailer(cfg)
		if err != nil {
			logger.Warn("mailer misconfigured, confirmations disabled", "error", err)
		} else {
			notifier = mailer
		}
	} else {
		logger.Warn("SMTP_HOST not set, confirmations disabled")
	}

	r := repo.New(gdb)

	authSvc := &service.AuthService{
		Repo:      r,
		JWTSecret: []byte(cfg.JWT_SECRET),
	}
	orderSvc := &service.OrderService{
		Repo:     r,
		Notifier: notifier,
	}
	catalogSvc := &service.CatalogService{
		Repo:  r,
		ES:    esClient,
		Index: search.Index,
	}
	if producer != nil {
		authSvc.Producer = producer
		orderSvc.Producer = producer
		catalogSvc.Producer = producer
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logging.IntoContext(req.Context(), logger)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		OrderHandler:   &httpserver.OrderHTTP{Svc: orderSvc},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: catalogSvc},
		AuthSvc:        authSvc,
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}

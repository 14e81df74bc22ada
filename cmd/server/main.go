package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/skarpov/webauth/internal/config"
	"github.com/skarpov/webauth/internal/events"
	"github.com/skarpov/webauth/internal/httpserver"
	"github.com/skarpov/webauth/internal/logging"
	"github.com/skarpov/webauth/internal/metrics"
	"github.com/skarpov/webauth/internal/middleware"
	"github.com/skarpov/webauth/internal/repo"
	"github.com/skarpov/webauth/internal/service"
	"github.com/skarpov/webauth/internal/tokens"
	"github.com/skarpov/webauth/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)

	gdb, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, events.TopicUserEvents)

	codec := tokens.NewCodec(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	store := repo.New(gdb)

	svc := &service.AuthService{
		Users:  store,
		Tokens: store,
		Codec:  codec,
		Events: producer,
	}

	m := metrics.New()

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(m.Middleware())

	deps := httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:           svc,
			RefreshTTL:    cfg.RefreshTTL,
			SecureCookies: cfg.SecureCookies,
		},
		AdminHandler: &httpserver.AdminHTTP{DB: gdb},
		Gate:         middleware.NewAuthGate(codec, store),
		Metrics:      m,
		PoolStats:    func() (sql.DBStats, error) { return db.Stats(gdb) },
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
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

	if err := producer.Close(); err != nil {
		log.Printf("producer close error: %v", err)
	}

	log.Println("shutdown complete")
}

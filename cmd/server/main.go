package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/farhorizons/tabletop/internal/catalog"
	"github.com/farhorizons/tabletop/internal/config"
	"github.com/farhorizons/tabletop/internal/database"
	"github.com/farhorizons/tabletop/internal/httpapi"
	"github.com/farhorizons/tabletop/internal/session"
	"github.com/farhorizons/tabletop/internal/store"
	"github.com/farhorizons/tabletop/internal/ws"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	st, err := store.NewRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("redis unreachable")
	}
	defer st.Close()

	var archive session.Archiver
	if cfg.DatabaseURL != "" {
		db, err := database.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("database unreachable")
		}
		defer db.Close()
		archive = db
		log.Info("archival enabled")
	}

	var cat catalog.Lookup
	if cfg.CatalogURL != "" {
		cat = catalog.New(cfg.CatalogURL, st, cfg.CatalogTTL, log)
	}

	reg := session.NewRegistry(st, session.Config{
		IdleTimeout: cfg.IdleTimeout,
		BidTimeout:  cfg.BidTimeout,
	}, archive, log)
	gw := ws.NewGateway(reg, []byte(cfg.JWTSecret), log)
	api := httpapi.NewServer(reg, gw, cat, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", cfg.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
}

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

	"github.com/Clark-Hu/movie-diary/db"
	"github.com/Clark-Hu/movie-diary/internal/auth"
	"github.com/Clark-Hu/movie-diary/internal/config"
	httpserver "github.com/Clark-Hu/movie-diary/internal/http"
	"github.com/Clark-Hu/movie-diary/internal/logging"
	"github.com/Clark-Hu/movie-diary/internal/repository"
	"github.com/Clark-Hu/movie-diary/internal/store"
	"github.com/Clark-Hu/movie-diary/internal/tmdb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("logger error")
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.WithError(err).Fatal("connect database")
	}
	defer st.Close()

	if cfg.DBAutoMigrate {
		applied, err := st.Migrate(dbCtx, db.Migrations)
		if err != nil {
			logger.WithError(err).Fatal("apply migrations")
		}
		logger.WithField("applied", applied).Info("migrations up to date")
	}

	catalog, err := tmdb.NewHTTPClient(tmdb.Options{
		BaseURL:  cfg.TMDBBaseURL,
		ImageURL: cfg.TMDBImageURL,
		APIKey:   cfg.TMDBAPIKey,
		Timeout:  time.Duration(cfg.TMDBTimeoutSecs) * time.Second,
		CacheTTL: time.Duration(cfg.TMDBCacheSecs) * time.Second,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("init tmdb client")
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	repo := repository.New(st)
	server := httpserver.New(cfg, st, repo, catalog, issuer, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("graceful shutdown error")
	}
}

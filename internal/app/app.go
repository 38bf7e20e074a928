// Package app assembles the service: configuration, logging, the
// storage backend, the identity and contact services, the enrichment
// pipeline with its background refresher, and the HTTP server.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/agenda/internal/auth"
	"github.com/patric-chuzhbe/agenda/internal/config"
	"github.com/patric-chuzhbe/agenda/internal/contacts"
	"github.com/patric-chuzhbe/agenda/internal/db/jsondb"
	"github.com/patric-chuzhbe/agenda/internal/db/memorystorage"
	"github.com/patric-chuzhbe/agenda/internal/db/postgresdb"
	"github.com/patric-chuzhbe/agenda/internal/db/storage"
	"github.com/patric-chuzhbe/agenda/internal/enrichment"
	"github.com/patric-chuzhbe/agenda/internal/geocode"
	"github.com/patric-chuzhbe/agenda/internal/georefresher"
	"github.com/patric-chuzhbe/agenda/internal/identity"
	"github.com/patric-chuzhbe/agenda/internal/ipchecker"
	"github.com/patric-chuzhbe/agenda/internal/logger"
	"github.com/patric-chuzhbe/agenda/internal/models"
	"github.com/patric-chuzhbe/agenda/internal/router"
	"github.com/patric-chuzhbe/agenda/internal/viacep"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived component of the service.
type App struct {
	cfg       *config.Config
	db        storage.Storage
	refresher *georefresher.GeoRefresher
	server    *http.Server
}

func getStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}
	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch getStorageType(cfg) {
	case models.StorageTypePostgresql:
		return postgresdb.New(ctx, cfg.DatabaseDSN, cfg.DBConnectionTimeout, cfg.MigrationsDir)
	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	case models.StorageTypeMemory:
		return memorystorage.New()
	}

	return nil, errors.New("unknown storage type")
}

// New builds a fully wired but not yet running App.
func New(cfg *config.Config) (*App, error) {
	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := getStorageByType(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	signingSecretKey, err := base64.StdEncoding.DecodeString(cfg.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, fmt.Errorf("decoding the signing secret key: %w", err)
	}

	authHandler := auth.New(db, cfg.AuthCookieName, signingSecretKey)
	identitySvc := identity.New(db, authHandler)
	contactsSvc := contacts.New(db)

	pipeline := enrichment.New(
		viacep.New(cfg.ViaCEPBaseURL, cfg.LookupTimeout),
		geocode.New(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.LookupTimeout),
	)

	refresher := georefresher.New(db, pipeline, cfg.ChannelCapacity, cfg.DelayBetweenQueueFetches)

	checker, err := ipchecker.New(cfg.TrustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("initializing the IP checker: %w", err)
	}

	mux := router.New(
		identitySvc,
		contactsSvc,
		pipeline,
		refresher,
		db,
		authHandler,
		checker,
	)

	return &App{
		cfg:       cfg,
		db:        db,
		refresher: refresher,
		server: &http.Server{
			Addr:    cfg.RunAddr,
			Handler: mux,
		},
	}, nil
}

// Run starts the background refresher and the HTTP server, then blocks
// until SIGINT/SIGTERM and shuts both down gracefully.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.refresher.ListenErrors(func(err error) {
		logger.Log.Errorw("coordinate refresh failed", "error", err)
	})
	a.refresher.Run(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Infow("Running server", "address", a.cfg.RunAddr)
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	logger.Log.Infoln("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return a.server.Shutdown(shutdownCtx)
}

// Close releases the storage backend and flushes the logger.
func (a *App) Close() error {
	err := a.db.Close()

	if syncErr := logger.Sync(); err == nil {
		err = syncErr
	}

	return err
}

// Package server initializes and runs the media vault server. It opens the
// metadata ledger, applies migrations, wires the services to object storage
// and the token cache, and hosts the HTTP endpoint until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avern/mediavault/internal/logging"
	"github.com/avern/mediavault/internal/server/blob"
	"github.com/avern/mediavault/internal/server/config"
	"github.com/avern/mediavault/internal/server/httpapi"
	"github.com/avern/mediavault/internal/server/repositories/repomanager"
	"github.com/avern/mediavault/internal/server/services"
	"github.com/avern/mediavault/internal/server/tokencache"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	assetService    *services.AssetService
	downloadService *services.DownloadService
	tokenCache      *tokencache.MemoryCache
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	gateway := blob.NewS3Gateway(cfg)
	cache := tokencache.NewMemoryCache()

	as := services.NewAssetService(db, repos, gateway, cfg, logger)
	ds := services.NewDownloadService(db, repos, gateway, cache, cfg, logger)

	return &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		assetService:    as,
		downloadService: ds,
		tokenCache:      cache,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.assetService, app.downloadService, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.tokenCache.Run(ctx, app.config.TokenSweepInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}

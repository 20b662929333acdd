// Package app initializes and runs the FetchCart companion.
// It configures logging, snapshot storage, the backend client, the session
// verifier, and routing, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/fetchcart/internal/api"
	"github.com/patric-chuzhbe/fetchcart/internal/config"
	"github.com/patric-chuzhbe/fetchcart/internal/guard"
	"github.com/patric-chuzhbe/fetchcart/internal/logger"
	"github.com/patric-chuzhbe/fetchcart/internal/models"
	"github.com/patric-chuzhbe/fetchcart/internal/persister"
	"github.com/patric-chuzhbe/fetchcart/internal/router"
	"github.com/patric-chuzhbe/fetchcart/internal/service"
	"github.com/patric-chuzhbe/fetchcart/internal/session"
	"github.com/patric-chuzhbe/fetchcart/internal/statejson"
	"github.com/patric-chuzhbe/fetchcart/internal/statemem"
	"github.com/patric-chuzhbe/fetchcart/internal/statepg"
	"github.com/patric-chuzhbe/fetchcart/internal/store"
)

// SignInPath and LandingPath are the redirect targets of the route guards.
const (
	SignInPath  = "/signin"
	LandingPath = "/dashboard"
)

const (
	keeperTypeUnknown = iota
	keeperTypePostgresql
	keeperTypeFile
	keeperTypeMemory
)

type snapshotStorage interface {
	LoadSnapshot(ctx context.Context, namespace string) (*models.StateSnapshot, error)
	SaveSnapshot(ctx context.Context, namespace string, snapshot *models.StateSnapshot) error
	Ping(ctx context.Context) error
	Close() error
}

// App encapsulates the configuration, HTTP handler, snapshot keeper,
// session store and background persister needed to run the companion.
type App struct {
	cfg           *config.Config
	keeper        snapshotStorage
	store         *store.Store
	verifier      *session.Verifier
	stopPersister context.CancelFunc
	httpHandler   http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up the snapshot keeper
// - restoring the persisted session store and its write-behind persister
// - setting up the backend client, session verifier, guards and router
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.keeper, err = getKeeperByType(app.cfg)
	if err != nil {
		return nil, err
	}

	thePersister := persister.New(
		app.keeper,
		app.cfg.SnapshotNamespace,
		app.cfg.ChannelCapacity,
		app.cfg.FlushInterval,
	)
	persisterRunCtx, stopPersister := context.WithCancel(context.Background())
	app.stopPersister = stopPersister

	thePersister.Run(persisterRunCtx)
	thePersister.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `thePersister.ListenErrors()`:", zap.Error(err))
	})

	app.store, err = store.New(
		app.keeper,
		app.cfg.SnapshotNamespace,
		store.WithWriteBehind(thePersister),
	)
	if err != nil {
		return nil, err
	}

	apiClient := api.New(app.cfg.BackendAPIBase, app.cfg.RequestTimeout)

	app.verifier = session.New(apiClient, app.store)

	app.httpHandler = router.New(
		service.New(apiClient, app.store),
		app.store,
		guard.New(app.store, SignInPath, LandingPath),
	)

	return app, nil
}

// Run resolves the session status and then starts the HTTP server with
// graceful shutdown support. No guarded route is served before the first
// verification resolves.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.verifier.Verify(ctx)

	logger.Log.Infoln("companion running", "RunAddr", a.cfg.RunAddr, "authStatus", a.store.AuthStatus())

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Flushing session state and exiting...")
		a.stopPersister()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.keeper.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableKeeperType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return keeperTypePostgresql
	}

	if cfg.StateFileName != "" {
		return keeperTypeFile
	}

	return keeperTypeMemory
}

func getKeeperByType(cfg *config.Config) (snapshotStorage, error) {
	switch getAvailableKeeperType(cfg) {
	case keeperTypeUnknown:
		return nil, errors.New("unknown snapshot keeper type")

	case keeperTypePostgresql:
		return statepg.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case keeperTypeFile:
		return statejson.New(cfg.StateFileName)
	}

	return statemem.New()
}

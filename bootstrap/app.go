package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"warden/api"
	"warden/config"
	"warden/store"
	"warden/util/goroutine"

	"go.uber.org/zap"
)

// App represents the warden server with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Services
	Tokens    store.TokenStore
	APIServer *api.API

	// Lifecycle
	listener     net.Listener
	serveErr     chan error
	serviceWg    sync.WaitGroup
	shutdownOnce sync.Once
}

// NewApp loads configuration and builds every component. An empty configFile looks for
// config.yaml in the usual places.
func NewApp(ctx context.Context, configFile string) (*App, error) {
	cfg, err := InitConfig(configFile)
	if err != nil {
		return nil, err
	}

	logger, sugar, err := InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	sugar.Info("warden starting...")
	logConfig(cfg, sugar)

	tokens, err := store.New(ctx, cfg, sugar)
	if err != nil {
		if cfg.Store.Backend == config.StoreBackendRedis {
			sugar.Error(ClassifyRedisError(err, cfg.Store.Redis.Addr))
		}
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}
	sugar.Infow("Token store ready", "backend", tokens.Backend())

	return &App{
		Config:    cfg,
		Logger:    logger,
		Sugar:     sugar,
		Tokens:    tokens,
		APIServer: api.NewAPI(cfg, tokens, sugar),
		serveErr:  make(chan error, 1),
	}, nil
}

// Start binds the listen address and serves in the background.
func (a *App) Start(ctx context.Context) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", a.Config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Config.Addr(), err)
	}
	a.listener = l
	a.Sugar.Infow("API server listening", "addr", l.Addr().String())

	a.serviceWg.Add(1)
	goroutine.Go("api-server", a.Sugar, func() {
		defer a.serviceWg.Done()
		if err := a.APIServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("API server stopped", "error", err)
			a.serveErr <- err
		}
	})
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// WaitForShutdown blocks until SIGINT/SIGTERM, ctx is done or the server fails.
func (a *App) WaitForShutdown(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Received signal", "signal", sig.String())
		return nil
	case <-ctx.Done():
		return nil
	case err := <-a.serveErr:
		return err
	}
}

// Shutdown gracefully shuts down all components. It is safe to call more than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.Sugar.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Error stopping API server", "error", err)
		}
		a.serviceWg.Wait()

		if err := a.Tokens.Close(); err != nil {
			a.Sugar.Errorw("Error closing token store", "error", err)
		}

		a.Sugar.Info("Shutdown complete")
		_ = a.Logger.Sync()
	})
}

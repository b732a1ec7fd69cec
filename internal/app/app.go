// Package app initializes and runs the keeper daemon. It wires the store,
// the proxy control client, and the reconciliation engine, handles graceful
// shutdown, and drives the full-sync and health-check timers.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/access"
	"github.com/dmitrijs2005/relaykeeper/internal/config"
	"github.com/dmitrijs2005/relaykeeper/internal/logging"
	"github.com/dmitrijs2005/relaykeeper/internal/proxy"
	"github.com/dmitrijs2005/relaykeeper/internal/reconciler"
	"github.com/dmitrijs2005/relaykeeper/internal/store"
	"github.com/dmitrijs2005/relaykeeper/internal/store/repositories/repomanager"
	"github.com/dmitrijs2005/relaykeeper/internal/syncx"
	"github.com/dmitrijs2005/relaykeeper/internal/vless"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	proxy  *proxy.GRPCClient
	store  *store.Store
	engine *reconciler.Engine
	access *access.Service
}

// NewApp constructs the full dependency graph. membership is the
// chat-platform collaborator; pass nil to treat every subscriber as a
// member.
func NewApp(cfg *config.Config, membership reconciler.MembershipChecker) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	st := store.New(db, repomanager.NewPostgresRepositoryManager())

	px, err := proxy.NewGRPCClient(cfg.XrayAPIAddr, cfg.XrayInboundTag, cfg.XrayServiceName)
	if err != nil {
		return nil, fmt.Errorf("proxy client init error: %w", err)
	}

	if membership == nil {
		membership = reconciler.AllowAllMembership{}
	}

	locks := syncx.NewKeyedMutex()
	dispatcher := reconciler.NewDispatcher(px, st, locks, logger,
		cfg.DispatchConcurrency, cfg.DispatchMaxRetries, cfg.ProxyCallTimeout)
	engine := reconciler.NewEngine(st, px, membership, dispatcher, logger, cfg.ProxyCallTimeout)

	reality := vless.RealityParams{
		ServerAddr: cfg.ServerAddr,
		ServerPort: cfg.ServerPort,
		PublicKey:  cfg.RealityPublicKey,
		SNI:        cfg.RealitySNI,
		ShortID:    cfg.RealityShortID,
	}
	svc := access.NewService(st, engine, cfg.KeyTTL, cfg.KeyDataLimitBytes, reality)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		proxy:  px,
		store:  st,
		engine: engine,
		access: svc,
	}, nil
}

// Access exposes the user-facing action surface for a chat front end.
func (app *App) Access() *access.Service {
	return app.access
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) runFullSyncLoop(ctx context.Context) {
	ticker := time.NewTicker(app.config.SyncInterval)
	defer ticker.Stop()

	// one pass right at startup so a crash between store and daemon writes
	// is repaired without waiting out the first interval
	app.fullSync(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.fullSync(ctx)
		}
	}
}

func (app *App) fullSync(ctx context.Context) {
	if _, err := app.engine.FullSync(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, "full sync failed", "error", err)
	}
}

func (app *App) runHealthLoop(ctx context.Context) {
	ticker := time.NewTicker(app.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.engine.HealthCheck(ctx)
		}
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.store.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runFullSyncLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runHealthLoop(ctx)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Shutting down...")

	if err := app.proxy.Close(); err != nil {
		app.logger.Error(ctx, "closing proxy client", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
	return nil
}

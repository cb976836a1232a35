// Package server wires the kit entitlement components together and runs
// them until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	"github.com/dmitrijs2005/kitkeeper/internal/server/admin"
	"github.com/dmitrijs2005/kitkeeper/internal/server/auth"
	"github.com/dmitrijs2005/kitkeeper/internal/server/catalog"
	"github.com/dmitrijs2005/kitkeeper/internal/server/claims"
	"github.com/dmitrijs2005/kitkeeper/internal/server/config"
	"github.com/dmitrijs2005/kitkeeper/internal/server/console"
	"github.com/dmitrijs2005/kitkeeper/internal/server/economy"
	"github.com/dmitrijs2005/kitkeeper/internal/server/entitlements"
	"github.com/dmitrijs2005/kitkeeper/internal/server/inventory"
	"github.com/dmitrijs2005/kitkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/kitkeeper/internal/server/players"
	"github.com/dmitrijs2005/kitkeeper/internal/server/storage"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/kitkeeper/internal/server/grpc"
)

// drainTimeout bounds how long shutdown waits for claims in flight and
// for the final flush.
const drainTimeout = 15 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	clock  timex.Clock
	stdin  io.Reader
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &App{
		config: c,
		logger: logging.NewJSON(os.Stdout, false),
		clock:  timex.SystemClock{},
		stdin:  os.Stdin,
	}, nil
}

// components is everything build opens; close releases it in reverse.
type components struct {
	backend     *storage.Backend
	store       *entitlements.Store
	catalog     *catalog.Catalog
	watcher     *catalog.Watcher
	coordinator *claims.Coordinator
	admin       *admin.Service
	metrics     *metrics.Metrics
	grpc        *gs.GRPCServer
}

func (app *App) build(ctx context.Context) (*components, error) {
	cfg := app.config
	c := &components{metrics: metrics.New()}

	backend, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	c.backend = backend

	store, err := entitlements.Open(ctx, backend, entitlements.Options{
		Debounce:      cfg.SaveDebounce,
		SweepSchedule: cfg.SweepSchedule,
		Clock:         app.clock,
		Logger:        app.logger,
		Observer:      c.metrics,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("entitlement store init error: %w", err)
	}
	c.store = store
	c.metrics.TrackRecords(store.Len)

	source := catalog.NewYAMLSource(cfg.KitsFile, cfg.PermissionPrefix)
	c.catalog = catalog.New(source, cfg.PermissionPrefix, app.logger)
	if err := c.catalog.Reload(ctx); err != nil {
		app.close(ctx, c)
		return nil, fmt.Errorf("kit catalog init error: %w", err)
	}

	if cfg.WatchKitsFile {
		w, err := catalog.NewWatcher(c.catalog, source.Path(), app.logger)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			// reload still works through the admin verb
			app.logger.Warn(ctx, "kits file watcher disabled", "error", err)
		} else {
			c.watcher = w
		}
	}

	// a nil interface, never a typed nil, switches costs off
	var econ claims.Economy
	var balances admin.Economy
	if cfg.EconomyEnabled {
		ledger := economy.NewLedger(cfg.StartingBalance)
		econ, balances = ledger, ledger
	}
	overflow := claims.OverflowDiscard
	if cfg.DropOnGround {
		overflow = claims.OverflowDrop
	}

	inv := inventory.NewMemory()
	dispatcher := console.NewDispatcher(app.logger)
	c.coordinator = claims.NewCoordinator(claims.Deps{
		Kits:         c.catalog,
		Entitlements: store,
		Economy:      econ,
		Inventory:    inv,
		Dispatcher:   dispatcher,
		Notifier: &metrics.ClaimNotifier{
			Logger:           app.logger,
			LogClaims:        cfg.LogClaims,
			Dispatcher:       dispatcher,
			Broadcast:        cfg.Broadcast,
			BroadcastMinCost: cfg.BroadcastMinCost,
		},
		Recorder: c.metrics,
		Clock:    app.clock,
		Logger:   app.logger,
	}, claims.Options{
		DenyIfFull:       cfg.DenyIfFull,
		Overflow:         overflow,
		AutoEquipArmor:   cfg.AutoEquipArmor,
		ClearBeforeGive:  cfg.ClearBeforeGive,
		BypassPermission: claims.DefaultBypassPermission,
	})

	registry := players.NewRegistry()
	c.admin = admin.NewService(admin.Deps{
		Catalog:     c.catalog,
		Store:       store,
		Claims:      c.coordinator,
		Economy:     balances,
		Players:     registry,
		Inventories: inv,
		Tokens:      auth.NewIssuer([]byte(cfg.SecretKey), cfg.TokenValidity),
		Logger:      app.logger,
	})

	c.grpc = gs.NewGRPCServer(cfg.EndpointAddrGRPC, app.logger, cfg.SecretKey, gs.Deps{
		Claims:       c.coordinator,
		Kits:         c.catalog,
		Entitlements: store,
		Admin:        c.admin,
		Players:      registry,
		Clock:        app.clock,
	})

	return c, nil
}

// close runs the shutdown sequence: stop taking claims and wait for the
// ones in flight, stop the watcher, flush, then release the database.
func (app *App) close(ctx context.Context, c *components) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	if c.coordinator != nil {
		if err := c.coordinator.Shutdown(ctx); err != nil {
			app.logger.Warn(ctx, "claims still in flight at shutdown", "error", err)
		}
	}
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.store != nil {
		if err := c.store.Close(ctx); err != nil {
			app.logger.Error(ctx, "final entitlement flush failed", "error", err)
		}
	}
	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			app.logger.Error(ctx, "failed to close database", "error", err)
		}
	}
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

// Run starts every component and blocks until ctx is done, a signal
// arrives or a server fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	c, err := app.build(ctx)
	if err != nil {
		return err
	}

	return app.serve(ctx, c)
}

func (app *App) serve(ctx context.Context, c *components) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.grpc.Run(gctx)
	})

	if app.config.MetricsAddr != "" {
		g.Go(func() error {
			return c.metrics.Serve(gctx, app.config.MetricsAddr, app.logger)
		})
	}

	if app.config.ConsoleEnabled {
		g.Go(func() error {
			console.Run(gctx, c.admin, app.stdin)
			return nil
		})
	}

	// new claims are refused as soon as shutdown starts
	g.Go(func() error {
		<-gctx.Done()
		app.close(gctx, c)
		return nil
	})

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

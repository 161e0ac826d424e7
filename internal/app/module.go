// Package app composes the client: config, logging, cache, transport,
// sync engine, composer and TUI, wired through fx with lifecycle hooks.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/classchat/classchat/internal/api"
	"github.com/classchat/classchat/internal/bus"
	"github.com/classchat/classchat/internal/chat"
	"github.com/classchat/classchat/internal/composer"
	"github.com/classchat/classchat/internal/config"
	"github.com/classchat/classchat/internal/convstore"
	"github.com/classchat/classchat/internal/lock"
	"github.com/classchat/classchat/internal/logging"
	"github.com/classchat/classchat/internal/session"
	"github.com/classchat/classchat/internal/status"
	"github.com/classchat/classchat/internal/store"
	intsync "github.com/classchat/classchat/internal/sync"
	"github.com/classchat/classchat/internal/transport"
	"github.com/classchat/classchat/internal/tui"
	"github.com/classchat/classchat/internal/tui/model"
)

// Params holds the resolved profile passed to the fx module.
type Params struct {
	ProfileName string
	Profile     *config.Profile
}

// Module returns the fx module for the client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("classchat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideConvStore,
			provideAPIClient,
			provideTransport,
			provideSyncEngine,
			provideComposer,
			provideViewModel,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(session.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.CacheDBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideConvStore(b *bus.Bus) *convstore.Store {
	return convstore.New(b)
}

func provideAPIClient(p Params) (*api.Client, error) {
	return api.New(p.Profile.ServerURL, p.Profile.Token)
}

func provideTransport(p Params, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *transport.Client {
	return transport.New(p.Profile.PushURL, p.Profile.Token, b, machine, logger, transport.DefaultOptions())
}

func provideSyncEngine(p Params, conversations *convstore.Store, db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(conversations, db, b, logger, p.Profile.UserID)
}

func provideComposer(client *api.Client, engine *intsync.Engine, logger *zap.Logger) *composer.Composer {
	return composer.New(client, engine, composer.NewMicRecorder(), logger)
}

func provideViewModel(p Params, client *api.Client, conversations *convstore.Store, engine *intsync.Engine, db *store.DB, comp *composer.Composer) *model.ViewModel {
	return model.NewViewModel(client, conversations, engine, db, comp, chat.Role(p.Profile.Role), p.Profile.PageLimit)
}

func provideApp(p Params, vm *model.ViewModel, b *bus.Bus) *tui.App {
	return tui.NewApp(vm, b, p.ProfileName)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, push *transport.Client, engine *intsync.Engine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Engine first so no push event is dropped between connect
			// and subscribe.
			engine.Start(context.Background())
			push.Start(context.Background())
			logger.Info("client started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			push.Stop()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/config"
	httptransport "github.com/cmc-edu/room-booking/internal/http"
	"github.com/cmc-edu/room-booking/internal/notify"
	"github.com/cmc-edu/room-booking/internal/persistence"
	"github.com/cmc-edu/room-booking/internal/persistence/memory"
	"github.com/cmc-edu/room-booking/internal/persistence/sqlite"
	"github.com/cmc-edu/room-booking/internal/seed"
)

// App is the assembled service: a seeded store, the booking services and the
// HTTP handler in front of them.
type App struct {
	Store   persistence.Store
	Handler http.Handler
	Seeded  seed.Result

	dispatcher *notify.Dispatcher
	closers    []io.Closer
}

type appOptions struct {
	hasher   application.PasswordHasher
	notifier notify.Notifier
	now      func() time.Time
}

// AppOption customises NewApp.
type AppOption func(*appOptions)

// WithHasher replaces the default argon2id password hasher.
func WithHasher(h application.PasswordHasher) AppOption {
	return func(o *appOptions) { o.hasher = h }
}

// WithNotifier replaces the notifier selected from configuration.
func WithNotifier(n notify.Notifier) AppOption {
	return func(o *appOptions) { o.notifier = n }
}

// WithNow replaces the wall clock used by the services.
func WithNow(now func() time.Time) AppOption {
	return func(o *appOptions) { o.now = now }
}

// NewApp opens the configured store, seeds empty collections and wires the
// services behind the HTTP router.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	o := appOptions{
		hasher: application.NewArgon2idHasher(application.DefaultArgon2idParams),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, store)

	data, err := loadDataset(cfg.SeedFile)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	seeder := seed.NewBootstrapper(store, data, o.hasher, logger)
	if app.Seeded, err = seeder.Ensure(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	notifier := o.notifier
	if notifier == nil {
		if notifier, err = newNotifier(cfg, logger); err != nil {
			_ = app.Close()
			return nil, err
		}
	}
	if c, ok := notifier.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}
	app.dispatcher = notify.NewDispatcher(notifier, cfg.NotifyTimeout, logger)

	bookings := application.NewBookingServiceWithLogger(store, app.dispatcher, application.ConflictPolicy(cfg.ConflictPolicy), o.now, logger)
	rooms := application.NewRoomServiceWithLogger(store, logger)
	users := application.NewUserService(store, o.hasher, seeder)
	queries := application.NewQueryServiceWithLogger(store, logger)
	stats := application.NewStatsService(store, o.now)

	limiter := httptransport.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 0)
	app.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:    httptransport.NewRoomHandler(rooms, queries, bookings, logger),
		Bookings: httptransport.NewBookingHandler(bookings, queries, logger),
		Users:    httptransport.NewUserHandler(users, queries, logger),
		Slots:    httptransport.NewSlotHandler(queries, logger),
		System:   httptransport.NewSystemHandler(stats, store, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recovery(logger),
			limiter.Middleware(logger),
			httptransport.Timeout(cfg.RequestTimeout),
			httptransport.Identify(users, logger),
		},
	})
	return app, nil
}

// Close waits for in-flight notifications and releases the notifier and store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.Config) (persistence.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.BackendMemory, "":
		return memory.New(memory.WithLatency(cfg.LatencyMin, cfg.LatencyMax)), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func loadDataset(path string) (seed.Dataset, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.LoadFile(path)
}

func newNotifier(cfg config.Config, logger *slog.Logger) (notify.Notifier, error) {
	if !cfg.KafkaEnabled() {
		return notify.NewLogNotifier(logger), nil
	}
	n, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, fmt.Errorf("create kafka notifier: %w", err)
	}
	return n, nil
}

package testfixtures

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/notify"
	"github.com/cmc-edu/room-booking/internal/persistence"
	"github.com/cmc-edu/room-booking/internal/persistence/memory"
	"github.com/cmc-edu/room-booking/internal/seed"
)

// ServiceFactory builds a fully wired service stack over a seeded store with
// deterministic identifiers and clock.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Policy      application.ConflictPolicy
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a factory using the reject policy and a
// discarding logger.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(referenceTime),
		IDGenerator: NewIDGenerator("id"),
		Policy:      application.ConflictReject,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		if clock != nil {
			f.Clock = clock
		}
	}
}

func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		if generator != nil {
			f.IDGenerator = generator
		}
	}
}

func WithPolicy(policy application.ConflictPolicy) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Policy = policy
	}
}

func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		if logger != nil {
			f.Logger = logger
		}
	}
}

// Stack is a seeded store with every service built on top of it.
type Stack struct {
	Store    persistence.Store
	Bookings *application.BookingService
	Rooms    *application.RoomService
	Users    *application.UserService
	Queries  *application.QueryService
	Stats    *application.StatsService
	Notifier *RecordingNotifier
	Seeder   *seed.Bootstrapper
}

// Build seeds an in-memory store with the default dataset and wires services.
func (f *ServiceFactory) Build(tb testing.TB) *Stack {
	tb.Helper()
	store := memory.New(
		memory.WithIDGenerator(f.IDGenerator.NextFunc()),
		memory.WithClock(f.Clock.NowFunc()),
	)
	return f.BuildWithStore(tb, store)
}

// BuildWithStore seeds store with the default dataset and wires services.
func (f *ServiceFactory) BuildWithStore(tb testing.TB, store persistence.Store) *Stack {
	tb.Helper()

	data, err := seed.Default()
	if err != nil {
		tb.Fatalf("load default dataset: %v", err)
	}
	hasher := PlainHasher{}
	seeder := seed.NewBootstrapper(store, data, hasher, f.Logger)
	if _, err := seeder.Ensure(context.Background()); err != nil {
		tb.Fatalf("seed store: %v", err)
	}

	notifier := &RecordingNotifier{}
	return &Stack{
		Store:    store,
		Bookings: application.NewBookingServiceWithLogger(store, notifier, f.Policy, f.Clock.NowFunc(), f.Logger),
		Rooms:    application.NewRoomServiceWithLogger(store, f.Logger),
		Users:    application.NewUserService(store, hasher, seeder),
		Queries:  application.NewQueryServiceWithLogger(store, f.Logger),
		Stats:    application.NewStatsService(store, f.Clock.NowFunc()),
		Notifier: notifier,
		Seeder:   seeder,
	}
}

// PlainHasher stores passwords with a visible prefix so tests stay fast.
type PlainHasher struct{}

const plainPrefix = "plain$"

func (PlainHasher) Hash(password string) (string, error) {
	return plainPrefix + password, nil
}

func (PlainHasher) Verify(hash, password string) error {
	if !strings.HasPrefix(hash, plainPrefix) || strings.TrimPrefix(hash, plainPrefix) != password {
		return errors.New("password mismatch")
	}
	return nil
}

// Notification is one call received by RecordingNotifier.
type Notification struct {
	Kind   string
	Notice notify.Notice
	Reason string
}

// RecordingNotifier remembers every booking decision it is told about.
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification
}

func (n *RecordingNotifier) BookingConfirmed(_ context.Context, notice notify.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, Notification{Kind: "confirmed", Notice: notice})
}

func (n *RecordingNotifier) BookingRejected(_ context.Context, notice notify.Notice, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, Notification{Kind: "rejected", Notice: notice, Reason: reason})
}

// Notifications returns a copy of the recorded calls.
func (n *RecordingNotifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.calls...)
}

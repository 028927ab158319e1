package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cmc-edu/room-booking/internal/persistence/sqlite"
)

// NewSQLiteStore opens a file backed store under the test's temp dir using the
// factory's identifiers and clock. The store is closed on cleanup.
func (f *ServiceFactory) NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	dsn := "file:" + filepath.Join(tb.TempDir(), "roombooking.db")
	store, err := sqlite.Open(context.Background(), dsn,
		sqlite.WithIDGenerator(f.IDGenerator.NextFunc()),
		sqlite.WithClock(f.Clock.NowFunc()),
	)
	if err != nil {
		tb.Fatalf("failed to open sqlite store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

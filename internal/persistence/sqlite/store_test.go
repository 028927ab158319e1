package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cmc-edu/room-booking/internal/persistence"
	"github.com/cmc-edu/room-booking/internal/persistence/sqlite"
	"github.com/cmc-edu/room-booking/internal/persistence/storetest"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "roombooking.db")
	store, err := sqlite.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.Store {
		return newTestStore(t)
	})
}

func TestStoreConformanceInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.Store {
		store, err := sqlite.Open(context.Background(), sqlite.DefaultDSN)
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestWithinTxDeadlineKeepsInMemoryDatabase(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer store.Close()

	if _, err := store.CreateRoom(ctx, persistence.Room{Code: "VPC1_101", Status: persistence.RoomAvailable}); err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err = store.WithinTx(reqCtx, func(tx persistence.BookingTx) error {
		time.Sleep(60 * time.Millisecond)
		_, err := tx.ListBookings(persistence.BookingFilter{RoomCode: "VPC1_101"})
		return err
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if strings.Contains(err.Error(), "rollback") {
		t.Fatalf("unexpected rollback failure: %v", err)
	}

	rooms, err := store.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms after deadline returned error: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room after deadline, got %d", len(rooms))
	}
}

func TestWithinTxCommitSkippedWhenCallerGone(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer store.Close()

	reqCtx, cancel := context.WithCancel(ctx)
	err = store.WithinTx(reqCtx, func(tx persistence.BookingTx) error {
		_, err := tx.CreateBooking(persistence.Booking{
			RoomCode: "VPC1_101", Date: "11/06/2025", Slot: "Ca1", Status: persistence.BookingConfirmed,
		})
		cancel()
		return err
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts returned error: %v", err)
	}
	if counts.Bookings != 0 {
		t.Fatalf("expected no committed bookings, got %d", counts.Bookings)
	}
}

func TestOpenInMemoryByDefault(t *testing.T) {
	store, err := sqlite.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer store.Close()

	if _, err := store.CreateRoom(context.Background(), persistence.Room{Code: "VPC1_101", Status: persistence.RoomAvailable}); err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}
	counts, err := store.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts returned error: %v", err)
	}
	if counts.Rooms != 1 {
		t.Fatalf("expected 1 room, got %d", counts.Rooms)
	}
}

func TestOpenIsIdempotentOnExistingFile(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "roombooking.db")

	first, err := sqlite.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("first Open returned error: %v", err)
	}
	if _, err := first.CreateSlot(ctx, persistence.ScheduleSlot{Period: 1, Start: "07:00:00", End: "07:45:00"}); err != nil {
		t.Fatalf("CreateSlot returned error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second, err := sqlite.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("second Open returned error: %v", err)
	}
	defer second.Close()

	slot, err := second.GetSlot(ctx, 1)
	if err != nil {
		t.Fatalf("GetSlot returned error: %v", err)
	}
	if slot.Start != "07:00:00" {
		t.Fatalf("unexpected slot after reopen: %#v", slot)
	}
}

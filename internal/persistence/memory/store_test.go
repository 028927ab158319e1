package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmc-edu/room-booking/internal/persistence"
	"github.com/cmc-edu/room-booking/internal/persistence/memory"
	"github.com/cmc-edu/room-booking/internal/persistence/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.Store {
		return memory.New()
	})
}

func TestStoreUsesInjectedGenerators(t *testing.T) {
	fixed := time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC)
	store := memory.New(
		memory.WithIDGenerator(func() string { return "room-1" }),
		memory.WithClock(func() time.Time { return fixed }),
	)

	room, err := store.CreateRoom(context.Background(), persistence.Room{Code: "VPC1_101", Status: persistence.RoomAvailable})
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}
	if room.ID != "room-1" {
		t.Fatalf("expected injected id, got %q", room.ID)
	}
	if !room.CreatedAt.Equal(fixed) || !room.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected timestamps %v, got %v / %v", fixed, room.CreatedAt, room.UpdatedAt)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	decided := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	created, err := store.CreateBooking(ctx, persistence.Booking{
		RoomCode:  "VPC1_101",
		Date:      "11/06/2025",
		Slot:      "Ca1",
		Status:    persistence.BookingCancelled,
		DecidedAt: &decided,
	})
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}

	*created.DecidedAt = decided.Add(time.Hour)
	decided = decided.Add(2 * time.Hour)

	fetched, err := store.GetBooking(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBooking returned error: %v", err)
	}
	want := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	if !fetched.DecidedAt.Equal(want) {
		t.Fatalf("stored booking was mutated through caller memory: %v", fetched.DecidedAt)
	}
}

func TestStoreLatencyHonoursContext(t *testing.T) {
	store := memory.New(memory.WithLatency(time.Second, 2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := store.ListRooms(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("latency hook ignored cancellation, waited %v", elapsed)
	}
}

func TestStoreLatencyDelaysCalls(t *testing.T) {
	store := memory.New(memory.WithLatency(20*time.Millisecond, 30*time.Millisecond))

	start := time.Now()
	if _, err := store.Counts(context.Background()); err != nil {
		t.Fatalf("Counts returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("expected at least 20ms of simulated latency, got %v", elapsed)
	}
}

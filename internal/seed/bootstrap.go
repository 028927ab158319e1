package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/availability"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

// Store is the subset of persistence.Store the bootstrapper needs.
type Store interface {
	CreateUser(ctx context.Context, user persistence.User) (persistence.User, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
	CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error)
	ListRooms(ctx context.Context) ([]persistence.Room, error)
	CreateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error)
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
	CreateSlot(ctx context.Context, slot persistence.ScheduleSlot) (persistence.ScheduleSlot, error)
	ListSlots(ctx context.Context) ([]persistence.ScheduleSlot, error)
}

// Hasher turns seed passwords into stored hashes.
type Hasher interface {
	Hash(password string) (string, error)
}

// Result counts the records inserted by one Ensure call.
type Result struct {
	Users    int `json:"users" yaml:"users"`
	Rooms    int `json:"rooms" yaml:"rooms"`
	Bookings int `json:"bookings" yaml:"bookings"`
	Slots    int `json:"slots" yaml:"slots"`
}

// Bootstrapper populates empty collections with the reference dataset.
// Collections that already hold records are left alone, so running it twice
// never duplicates data.
type Bootstrapper struct {
	mu     sync.Mutex
	store  Store
	data   Dataset
	hasher Hasher
	logger *slog.Logger
}

// NewBootstrapper returns a bootstrapper for data. A nil logger uses slog.Default.
func NewBootstrapper(store Store, data Dataset, hasher Hasher, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{store: store, data: data, hasher: hasher, logger: logger.With("component", "seed")}
}

// Ensure seeds every empty collection.
func (b *Bootstrapper) Ensure(ctx context.Context) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res Result
	var err error
	if res.Slots, err = b.ensureSlots(ctx); err != nil {
		return res, err
	}
	if res.Rooms, err = b.ensureRooms(ctx); err != nil {
		return res, err
	}
	if res.Users, err = b.ensureUsers(ctx); err != nil {
		return res, err
	}
	if res.Bookings, err = b.ensureBookings(ctx); err != nil {
		return res, err
	}

	b.logger.InfoContext(ctx, "reference data ensured",
		"users", res.Users, "rooms", res.Rooms, "bookings", res.Bookings, "slots", res.Slots)
	return res, nil
}

// EnsureUsers restores the demo accounts when the user collection is empty.
func (b *Bootstrapper) EnsureUsers(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.ensureUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		b.logger.InfoContext(ctx, "demo accounts restored", "users", n)
	}
	return nil
}

func (b *Bootstrapper) ensureUsers(ctx context.Context) (int, error) {
	existing, err := b.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list users: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	inserted := 0
	for _, u := range b.data.Users {
		hash := ""
		if u.Password != "" && b.hasher != nil {
			if hash, err = b.hasher.Hash(u.Password); err != nil {
				return inserted, fmt.Errorf("seed: hash password for %s: %w", u.Email, err)
			}
		}
		phone, perr := application.NormalizePhone(u.Phone)
		if perr != nil {
			phone = strings.TrimSpace(u.Phone)
		}
		_, err := b.store.CreateUser(ctx, persistence.User{
			ID:           u.ID,
			Code:         u.Code,
			Name:         u.Name,
			DateOfBirth:  u.DateOfBirth,
			Sex:          u.Sex,
			Email:        u.Email,
			Phone:        phone,
			PasswordHash: hash,
			Role:         persistence.Role(u.Role),
		})
		switch {
		case err == nil:
			inserted++
		case !alreadySeeded(err):
			return inserted, fmt.Errorf("seed: create user %s: %w", u.Email, err)
		}
	}
	return inserted, nil
}

func (b *Bootstrapper) ensureRooms(ctx context.Context) (int, error) {
	existing, err := b.store.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list rooms: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	inserted := 0
	for _, r := range b.data.Rooms {
		status := persistence.RoomStatus(r.Status)
		if status == "" {
			status = persistence.RoomAvailable
		}
		_, err := b.store.CreateRoom(ctx, persistence.Room{
			ID:          r.ID,
			Code:        r.Code,
			Number:      r.Number,
			Campus:      r.Campus,
			AreaM2:      r.AreaM2,
			Equipment:   r.Equipment,
			Capacity:    r.Capacity,
			Description: r.Description,
			Rules:       r.Rules,
			Status:      status,
		})
		switch {
		case err == nil:
			inserted++
		case !alreadySeeded(err):
			return inserted, fmt.Errorf("seed: create room %s: %w", r.Code, err)
		}
	}
	return inserted, nil
}

func (b *Bootstrapper) ensureBookings(ctx context.Context) (int, error) {
	existing, err := b.store.ListBookings(ctx, persistence.BookingFilter{})
	if err != nil {
		return 0, fmt.Errorf("seed: list bookings: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	inserted := 0
	for _, bk := range b.data.Bookings {
		key := availability.NewSlotKey(bk.RoomCode, bk.Date, bk.Slot)
		status := persistence.BookingStatus(bk.Status)
		if status == "" {
			status = persistence.BookingPending
		}
		_, err := b.store.CreateBooking(ctx, persistence.Booking{
			ID:       bk.ID,
			RoomCode: key.Room,
			Date:     key.Date,
			Email:    bk.Email,
			UserCode: bk.UserCode,
			UserName: bk.UserName,
			Reason:   bk.Reason,
			Slot:     key.Slot,
			BookedOn: availability.CanonicalDate(bk.BookedOn),
			Status:   status,
		})
		switch {
		case err == nil:
			inserted++
		case !alreadySeeded(err):
			return inserted, fmt.Errorf("seed: create booking %s: %w", key, err)
		}
	}
	return inserted, nil
}

func (b *Bootstrapper) ensureSlots(ctx context.Context) (int, error) {
	existing, err := b.store.ListSlots(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list slots: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	inserted := 0
	for _, s := range b.data.Slots {
		_, err := b.store.CreateSlot(ctx, persistence.ScheduleSlot{ID: s.ID, Period: s.Period, Start: s.Start, End: s.End})
		switch {
		case err == nil:
			inserted++
		case !alreadySeeded(err):
			return inserted, fmt.Errorf("seed: create slot %d: %w", s.Period, err)
		}
	}
	return inserted, nil
}

// alreadySeeded treats duplicate keys and taken slots as records inserted by
// an earlier run.
func alreadySeeded(err error) bool {
	return errors.Is(err, persistence.ErrDuplicate) || errors.Is(err, persistence.ErrConflict)
}

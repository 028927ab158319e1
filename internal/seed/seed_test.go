package seed

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmc-edu/room-booking/internal/availability"
	"github.com/cmc-edu/room-booking/internal/persistence"
	"github.com/cmc-edu/room-booking/internal/persistence/memory"
)

type prefixHasher struct{ calls int }

func (h *prefixHasher) Hash(password string) (string, error) {
	h.calls++
	return "hashed:" + password, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultDataset(t *testing.T) {
	ds, err := Default()
	require.NoError(t, err)

	assert.Len(t, ds.Users, 9)
	assert.Len(t, ds.Rooms, 8)
	assert.Len(t, ds.Bookings, 1)
	assert.Len(t, ds.Slots, 5)

	assert.Equal(t, "VPC1_101", ds.Rooms[0].Code)
	assert.Equal(t, 30.0, ds.Rooms[0].AreaM2)
	assert.Equal(t, "07:00:00", ds.Slots[0].Start)
	assert.Equal(t, "Tiết 7-9", ds.Bookings[0].Slot)

	roles := map[string]int{}
	for _, u := range ds.Users {
		roles[u.Role]++
	}
	assert.Equal(t, map[string]int{"student": 4, "teacher": 2, "admin": 1, "pctsv": 1, "security": 1}, roles)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("rooms:\n  - Ma_phong: X\n    Tang: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tang")
}

func TestDecodeValidates(t *testing.T) {
	input := `
users:
  - ma_nguoi_dung: X
    email: x@st.cmc.edu.vn
    vai_tro: janitor
slots:
  - Ca: 0
`
	_, err := Decode(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "janitor"`)
	assert.Contains(t, err.Error(), "slots[0]")

	ds, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, ds.Rooms)
}

func TestBootstrapperEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ds, err := Default()
	require.NoError(t, err)

	store := memory.New()
	hasher := &prefixHasher{}
	boot := NewBootstrapper(store, ds, hasher, quietLogger())

	first, err := boot.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 9, Rooms: 8, Bookings: 1, Slots: 5}, first)

	second, err := boot.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, second)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, persistence.Counts{Users: 9, Rooms: 8, Bookings: 1, Slots: 5}, counts)
	assert.Equal(t, 9, hasher.calls)

	admin, err := store.GetUserByEmail(ctx, "admin@cmc.edu.vn")
	require.NoError(t, err)
	assert.Equal(t, "hashed:123456", admin.PasswordHash)
	assert.Equal(t, "+84123456789", admin.Phone)
	assert.Equal(t, "user_003", admin.ID)

	booking, err := store.GetBooking(ctx, "684fd0bf9a560218492c74ca")
	require.NoError(t, err)
	assert.Equal(t, persistence.BookingConfirmed, booking.Status)

	bookings, err := store.ListBookings(ctx, persistence.BookingFilter{RoomCode: "VPC2_202"})
	require.NoError(t, err)
	assert.False(t, availability.IsAvailable(bookings, availability.NewSlotKey("VPC2_202", "11/06/2025", "Tiết 7-9")))
}

func TestBootstrapperFillsOnlyEmptyCollections(t *testing.T) {
	ctx := context.Background()
	ds, err := Default()
	require.NoError(t, err)

	store := memory.New()
	_, err = store.CreateRoom(ctx, persistence.Room{Code: "LAB_1", Campus: "VPC9", Capacity: 10, Status: persistence.RoomAvailable})
	require.NoError(t, err)

	res, err := NewBootstrapper(store, ds, &prefixHasher{}, quietLogger()).Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rooms)
	assert.Equal(t, 5, res.Slots)

	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "LAB_1", rooms[0].Code)
}

func TestBootstrapperEnsureUsers(t *testing.T) {
	ctx := context.Background()
	ds, err := Default()
	require.NoError(t, err)

	var logs bytes.Buffer
	store := memory.New()
	boot := NewBootstrapper(store, ds, &prefixHasher{}, slog.New(slog.NewTextHandler(&logs, nil)))

	require.NoError(t, boot.EnsureUsers(ctx))
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 9)
	assert.Contains(t, logs.String(), "demo accounts restored")

	require.NoError(t, boot.EnsureUsers(ctx))
	users, err = store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 9)

	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestSnapshotOmitsPasswords(t *testing.T) {
	ctx := context.Background()
	ds, err := Default()
	require.NoError(t, err)

	store := memory.New()
	_, err = NewBootstrapper(store, ds, &prefixHasher{}, quietLogger()).Ensure(ctx)
	require.NoError(t, err)

	snap, err := Snapshot(ctx, store)
	require.NoError(t, err)
	require.Len(t, snap.Users, 9)
	for _, u := range snap.Users {
		assert.Empty(t, u.Password)
	}
	assert.Equal(t, ds.Rooms, snap.Rooms)
	assert.Equal(t, ds.Slots, snap.Slots)
}

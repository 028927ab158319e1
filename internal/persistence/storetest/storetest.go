// Package storetest holds the behaviour every persistence.Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmc-edu/room-booking/internal/persistence"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) persistence.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("rooms", func(t *testing.T) { testRooms(t, newStore(t)) })
	t.Run("bookings", func(t *testing.T) { testBookings(t, newStore(t)) })
	t.Run("confirmed slot is unique", func(t *testing.T) { testConfirmedUnique(t, newStore(t)) })
	t.Run("slots", func(t *testing.T) { testSlots(t, newStore(t)) })
	t.Run("within tx rolls back on error", func(t *testing.T) { testTxRollback(t, newStore(t)) })
	t.Run("within tx survives a cancelled context", func(t *testing.T) { testTxCancelled(t, newStore(t)) })
	t.Run("within tx serializes check and insert", func(t *testing.T) { testTxSerializes(t, newStore(t)) })
	t.Run("counts", func(t *testing.T) { testCounts(t, newStore(t)) })
}

func sampleRoom(code string) persistence.Room {
	return persistence.Room{
		Code:      code,
		Number:    101,
		Campus:    "VPC1",
		AreaM2:    30,
		Equipment: "['Máy chiếu', 'Wifi']",
		Capacity:  35,
		Status:    persistence.RoomAvailable,
	}
}

func sampleBooking(room, date, slot string, status persistence.BookingStatus) persistence.Booking {
	return persistence.Booking{
		RoomCode: room,
		Date:     date,
		Email:    "teacher1@st.cmc.edu.vn",
		UserCode: "GV001",
		UserName: "TS. Trần Thị B",
		Reason:   "Lớp học Lập trình Java",
		Slot:     slot,
		BookedOn: date,
		Status:   status,
	}
}

func testUsers(t *testing.T, store persistence.Store) {
	ctx := context.Background()

	created, err := store.CreateUser(ctx, persistence.User{
		Code:  "BIT230372",
		Name:  "Nguyễn Thị Tâm",
		Email: "BIT230372@st.cmc.edu.vn",
		Role:  persistence.RoleStudent,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := store.GetUserByEmail(ctx, "bit230372@ST.cmc.edu.vn")
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "BIT230372@st.cmc.edu.vn", fetched.Email)

	byCode, err := store.GetUserByCode(ctx, "BIT230372")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)

	_, err = store.CreateUser(ctx, persistence.User{Code: "OTHER", Email: "bit230372@st.cmc.edu.vn", Role: persistence.RoleStudent})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	_, err = store.CreateUser(ctx, persistence.User{Code: "BIT230372", Email: "other@st.cmc.edu.vn", Role: persistence.RoleStudent})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	name := "Nguyễn Thị Tâm (cập nhật)"
	require.NoError(t, store.UpdateUser(ctx, created.Email, persistence.UserPatch{Name: &name}))
	fetched, err = store.GetUserByEmail(ctx, created.Email)
	require.NoError(t, err)
	assert.Equal(t, name, fetched.Name)
	assert.Equal(t, "BIT230372", fetched.Code)

	err = store.UpdateUser(ctx, "missing@st.cmc.edu.vn", persistence.UserPatch{Name: &name})
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	second, err := store.CreateUser(ctx, persistence.User{Code: "GV001", Email: "teacher1@st.cmc.edu.vn", Role: persistence.RoleTeacher})
	require.NoError(t, err)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, created.ID, users[0].ID)
	assert.Equal(t, second.ID, users[1].ID)

	require.NoError(t, store.DeleteUser(ctx, created.Email))
	_, err = store.GetUserByEmail(ctx, created.Email)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.ErrorIs(t, store.DeleteUser(ctx, created.Email), persistence.ErrNotFound)
}

func testRooms(t *testing.T, store persistence.Store) {
	ctx := context.Background()

	first, err := store.CreateRoom(ctx, sampleRoom("VPC1_101"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = store.CreateRoom(ctx, sampleRoom("VPC1_101"))
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	_, err = store.CreateRoom(ctx, sampleRoom("VPC2_202"))
	require.NoError(t, err)

	capacity := 40
	status := persistence.RoomMaintenance
	require.NoError(t, store.UpdateRoom(ctx, "VPC1_101", persistence.RoomPatch{Capacity: &capacity, Status: &status}))

	room, err := store.GetRoom(ctx, "VPC1_101")
	require.NoError(t, err)
	assert.Equal(t, 40, room.Capacity)
	assert.Equal(t, persistence.RoomMaintenance, room.Status)
	assert.Equal(t, "VPC1", room.Campus)

	err = store.UpdateRoom(ctx, "VPC9_999", persistence.RoomPatch{Capacity: &capacity})
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "VPC1_101", rooms[0].Code)
	assert.Equal(t, "VPC2_202", rooms[1].Code)

	require.NoError(t, store.DeleteRoom(ctx, "VPC2_202"))
	_, err = store.GetRoom(ctx, "VPC2_202")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func testBookings(t *testing.T, store persistence.Store) {
	ctx := context.Background()

	created, err := store.CreateBooking(ctx, sampleBooking("VPC2_202", "11/06/2025", "Tiết 7-9", persistence.BookingConfirmed))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	fetched, err := store.GetBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "Lớp học Lập trình Java", fetched.Reason)
	assert.Equal(t, persistence.BookingConfirmed, fetched.Status)
	assert.Nil(t, fetched.DecidedAt)

	_, err = store.CreateBooking(ctx, persistence.Booking{RoomCode: "VPC2_202"})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)

	pending, err := store.CreateBooking(ctx, sampleBooking("VPC1_101", "12/06/2025", "Ca1", ""))
	require.NoError(t, err)
	assert.Equal(t, persistence.BookingPending, pending.Status)

	status := persistence.BookingCancelled
	reason := "Phòng đang bảo trì"
	decidedBy := "pctsv@cmc.edu.vn"
	decidedAt := created.CreatedAt.Add(1)
	require.NoError(t, store.UpdateBooking(ctx, created.ID, persistence.BookingPatch{
		Status:          &status,
		RejectionReason: &reason,
		DecidedBy:       &decidedBy,
		DecidedAt:       &decidedAt,
	}))

	fetched, err = store.GetBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, persistence.BookingCancelled, fetched.Status)
	assert.Equal(t, reason, fetched.RejectionReason)
	assert.Equal(t, decidedBy, fetched.DecidedBy)
	require.NotNil(t, fetched.DecidedAt)
	assert.True(t, fetched.DecidedAt.Equal(decidedAt))

	err = store.UpdateBooking(ctx, "does-not-exist", persistence.BookingPatch{Status: &status})
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	byRoom, err := store.ListBookings(ctx, persistence.BookingFilter{RoomCode: "VPC1_101"})
	require.NoError(t, err)
	require.Len(t, byRoom, 1)
	assert.Equal(t, pending.ID, byRoom[0].ID)

	byEmail, err := store.ListBookings(ctx, persistence.BookingFilter{Email: "TEACHER1@st.cmc.edu.vn"})
	require.NoError(t, err)
	assert.Len(t, byEmail, 2)

	all, err := store.ListBookings(ctx, persistence.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, created.ID, all[0].ID)
	assert.Equal(t, pending.ID, all[1].ID)

	require.NoError(t, store.DeleteBooking(ctx, pending.ID))
	assert.ErrorIs(t, store.DeleteBooking(ctx, pending.ID), persistence.ErrNotFound)
}

func testConfirmedUnique(t *testing.T, store persistence.Store) {
	ctx := context.Background()

	first, err := store.CreateBooking(ctx, sampleBooking("VPC1_101", "11/06/2025", "Ca1", persistence.BookingConfirmed))
	require.NoError(t, err)

	_, err = store.CreateBooking(ctx, sampleBooking("VPC1_101", "11/06/2025", "Ca1", persistence.BookingConfirmed))
	assert.ErrorIs(t, err, persistence.ErrConflict)

	queued, err := store.CreateBooking(ctx, sampleBooking("VPC1_101", "11/06/2025", "Ca1", persistence.BookingPending))
	require.NoError(t, err)

	confirmed := persistence.BookingConfirmed
	err = store.UpdateBooking(ctx, queued.ID, persistence.BookingPatch{Status: &confirmed})
	assert.ErrorIs(t, err, persistence.ErrConflict)

	unchanged, err := store.GetBooking(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, persistence.BookingPending, unchanged.Status)

	cancelled := persistence.BookingCancelled
	require.NoError(t, store.UpdateBooking(ctx, first.ID, persistence.BookingPatch{Status: &cancelled}))
	require.NoError(t, store.UpdateBooking(ctx, queued.ID, persistence.BookingPatch{Status: &confirmed}))

	// same room and date, different slot
	_, err = store.CreateBooking(ctx, sampleBooking("VPC1_101", "11/06/2025", "Ca2", persistence.BookingConfirmed))
	assert.NoError(t, err)
}

func testSlots(t *testing.T, store persistence.Store) {
	ctx := context.Background()

	for i, bounds := range [][2]string{{"07:00:00", "07:45:00"}, {"07:50:00", "08:35:00"}} {
		_, err := store.CreateSlot(ctx, persistence.ScheduleSlot{Period: i + 1, Start: bounds[0], End: bounds[1]})
		require.NoError(t, err)
	}

	_, err := store.CreateSlot(ctx, persistence.ScheduleSlot{Period: 1, Start: "07:00:00", End: "07:45:00"})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	_, err = store.CreateSlot(ctx, persistence.ScheduleSlot{Period: 0})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)

	end := "07:40:00"
	require.NoError(t, store.UpdateSlot(ctx, 1, persistence.SlotPatch{End: &end}))
	slot, err := store.GetSlot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "07:00:00", slot.Start)
	assert.Equal(t, end, slot.End)

	assert.ErrorIs(t, store.UpdateSlot(ctx, 9, persistence.SlotPatch{End: &end}), persistence.ErrNotFound)

	slots, err := store.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 1, slots[0].Period)
	assert.Equal(t, 2, slots[1].Period)

	require.NoError(t, store.DeleteSlot(ctx, 2))
	_, err = store.GetSlot(ctx, 2)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func testTxRollback(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx persistence.BookingTx) error {
		if _, err := tx.CreateBooking(sampleBooking("VPC1_101", "11/06/2025", "Ca1", persistence.BookingConfirmed)); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	bookings, err := store.ListBookings(ctx, persistence.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func testTxCancelled(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	_, err := store.CreateRoom(ctx, sampleRoom("VPC1_101"))
	require.NoError(t, err)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	err = store.WithinTx(reqCtx, func(tx persistence.BookingTx) error {
		if _, err := tx.CreateBooking(sampleBooking("VPC1_101", "11/06/2025", "Ca1", persistence.BookingConfirmed)); err != nil {
			return err
		}
		cancel()
		return reqCtx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "rollback")

	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
	bookings, err := store.ListBookings(ctx, persistence.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, bookings)

	err = store.WithinTx(ctx, func(tx persistence.BookingTx) error {
		_, err := tx.CreateBooking(sampleBooking("VPC1_101", "11/06/2025", "Ca1", persistence.BookingConfirmed))
		return err
	})
	require.NoError(t, err)
}

func testTxSerializes(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.WithinTx(ctx, func(tx persistence.BookingTx) error {
				existing, err := tx.ListBookings(persistence.BookingFilter{
					RoomCode: "VPC1_101", Date: "11/06/2025", Slot: "Ca1", Status: persistence.BookingConfirmed,
				})
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return nil
				}
				booking := sampleBooking("VPC1_101", "11/06/2025", "Ca1", persistence.BookingConfirmed)
				booking.Reason = fmt.Sprintf("worker %d", i)
				if _, err := tx.CreateBooking(booking); err != nil {
					return err
				}
				mu.Lock()
				confirmed++
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, confirmed)
	bookings, err := store.ListBookings(ctx, persistence.BookingFilter{Status: persistence.BookingConfirmed})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func testCounts(t *testing.T, store persistence.Store) {
	ctx := context.Background()

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, persistence.Counts{}, counts)

	_, err = store.CreateRoom(ctx, sampleRoom("VPC1_101"))
	require.NoError(t, err)
	_, err = store.CreateSlot(ctx, persistence.ScheduleSlot{Period: 1, Start: "07:00:00", End: "07:45:00"})
	require.NoError(t, err)
	_, err = store.CreateBooking(ctx, sampleBooking("VPC1_101", "11/06/2025", "Ca1", persistence.BookingConfirmed))
	require.NoError(t, err)

	counts, err = store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, persistence.Counts{Rooms: 1, Bookings: 1, Slots: 1}, counts)
}

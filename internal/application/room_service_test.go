package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cmc-edu/room-booking/internal/persistence"
	"github.com/cmc-edu/room-booking/internal/persistence/memory"
)

type roomRepoStub struct {
	created   persistence.Room
	patched   persistence.RoomPatch
	deleted   string
	room      persistence.Room
	err       error
	deleteErr error
}

func (s *roomRepoStub) CreateRoom(_ context.Context, room persistence.Room) (persistence.Room, error) {
	if s.err != nil {
		return persistence.Room{}, s.err
	}
	s.created = room
	room.ID = "room-1"
	return room, nil
}

func (s *roomRepoStub) GetRoom(_ context.Context, code string) (persistence.Room, error) {
	if s.err != nil {
		return persistence.Room{}, s.err
	}
	return s.room, nil
}

func (s *roomRepoStub) UpdateRoom(_ context.Context, code string, patch persistence.RoomPatch) error {
	if s.err != nil {
		return s.err
	}
	s.patched = patch
	return nil
}

func (s *roomRepoStub) DeleteRoom(_ context.Context, code string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = code
	return nil
}

func TestRoomServiceCreateRoom(t *testing.T) {
	t.Parallel()

	input := RoomInput{
		Code:      " VPC3_301 ",
		Number:    301,
		Campus:    "VPC3",
		AreaM2:    60,
		Equipment: "['Máy chiếu', 'Loa']",
		Capacity:  70,
	}

	t.Run("staff creates room", func(t *testing.T) {
		t.Parallel()
		repo := &roomRepoStub{}
		svc := NewRoomService(repo)

		room, err := svc.CreateRoom(context.Background(), CreateRoomParams{Principal: staff, Input: input})
		if err != nil {
			t.Fatalf("CreateRoom returned error: %v", err)
		}
		if room.ID != "room-1" {
			t.Fatalf("expected repository result, got %+v", room)
		}
		if repo.created.Code != "VPC3_301" || repo.created.Status != persistence.RoomAvailable {
			t.Fatalf("expected trimmed code and default status, got %+v", repo.created)
		}
	})

	t.Run("teacher is rejected", func(t *testing.T) {
		t.Parallel()
		svc := NewRoomService(&roomRepoStub{})
		if _, err := svc.CreateRoom(context.Background(), CreateRoomParams{Principal: teacher, Input: input}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		svc := NewRoomService(&roomRepoStub{})
		bad := RoomInput{Capacity: 0, AreaM2: -1, Status: "closed"}
		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{Principal: staff, Input: bad})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		want := map[string]string{
			"Ma_phong":   msgRequired,
			"Co_so":      msgRequired,
			"Suc_chua":   msgPositive,
			"Dien_tich":  msgNonNegative,
			"trang_thai": msgUnknownState,
		}
		if !reflect.DeepEqual(vErr.FieldErrors, want) {
			t.Fatalf("unexpected field errors %v", vErr.FieldErrors)
		}
	})

	t.Run("duplicate code", func(t *testing.T) {
		t.Parallel()
		svc := NewRoomService(&roomRepoStub{err: persistence.ErrDuplicate})
		if _, err := svc.CreateRoom(context.Background(), CreateRoomParams{Principal: staff, Input: input}); !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestRoomServiceUpdateRoom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	if _, err := store.CreateRoom(ctx, persistence.Room{Code: "VPC1_101", Campus: "VPC1", Capacity: 40, Status: persistence.RoomAvailable}); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	svc := NewRoomService(store)

	capacity := 45
	status := persistence.RoomMaintenance
	room, err := svc.UpdateRoom(ctx, UpdateRoomParams{
		Principal: staff,
		Code:      "VPC1_101",
		Patch:     persistence.RoomPatch{Capacity: &capacity, Status: &status},
	})
	if err != nil {
		t.Fatalf("UpdateRoom returned error: %v", err)
	}
	if room.Capacity != 45 || room.Status != persistence.RoomMaintenance || room.Campus != "VPC1" {
		t.Fatalf("expected patch to merge, got %+v", room)
	}

	zero := 0
	_, err = svc.UpdateRoom(ctx, UpdateRoomParams{Principal: staff, Code: "VPC1_101", Patch: persistence.RoomPatch{Capacity: &zero}})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["Suc_chua"] != msgPositive {
		t.Fatalf("expected capacity validation error, got %v", err)
	}

	if _, err := svc.UpdateRoom(ctx, UpdateRoomParams{Principal: staff, Code: "VPC9_999", Patch: persistence.RoomPatch{Capacity: &capacity}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomServiceDeleteRoom(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{}
	svc := NewRoomService(repo)
	if err := svc.DeleteRoom(context.Background(), student, "VPC1_101"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteRoom(context.Background(), staff, "VPC1_101"); err != nil {
		t.Fatalf("DeleteRoom returned error: %v", err)
	}
	if repo.deleted != "VPC1_101" {
		t.Fatalf("expected repository delete, got %q", repo.deleted)
	}

	repo.deleteErr = persistence.ErrNotFound
	if err := svc.DeleteRoom(context.Background(), staff, "VPC1_101"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseEquipment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "['Máy chiếu', 'Wifi', 'Điều hòa']", want: []string{"Máy chiếu", "Wifi", "Điều hòa"}},
		{raw: `["Bảng trắng"]`, want: []string{"Bảng trắng"}},
		{raw: "Máy chiếu, Loa ,", want: []string{"Máy chiếu", "Loa"}},
		{raw: "  ", want: nil},
	}
	for _, tc := range tests {
		if got := ParseEquipment(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseEquipment(%q) = %#v, want %#v", tc.raw, got, tc.want)
		}
	}
}

func TestQueryService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	seedCatalog(t, store)
	bookings := NewBookingService(store, nil, ConflictReject, nil)
	if _, err := bookings.CreateBooking(ctx, bookingRequest(teacher, "VPC1_101", "11/06/2025", "Ca1")); err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}
	if _, err := bookings.CreateBooking(ctx, bookingRequest(student, "VPC2_201", "11/06/2025", "Ca1")); err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}

	svc := NewQueryService(store)

	rooms, err := svc.ListRooms(ctx)
	if err != nil || len(rooms) != 2 || rooms[0].Code != "VPC1_101" {
		t.Fatalf("unexpected rooms %+v (err=%v)", rooms, err)
	}
	if _, err := svc.GetRoom(ctx, "VPC9_999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown room, got %v", err)
	}

	byRoom, err := svc.BookingsByRoom(ctx, "VPC1_101")
	if err != nil || len(byRoom) != 1 || byRoom[0].Email != teacher.Email {
		t.Fatalf("unexpected bookings by room %+v (err=%v)", byRoom, err)
	}
	byUser, err := svc.BookingsByUser(ctx, student.Code)
	if err != nil || len(byUser) != 1 || byUser[0].RoomCode != "VPC2_201" {
		t.Fatalf("unexpected bookings by user %+v (err=%v)", byUser, err)
	}
	byEmail, err := svc.BookingsByEmail(ctx, "TEACHER1@st.cmc.edu.vn")
	if err != nil || len(byEmail) != 1 {
		t.Fatalf("unexpected bookings by email %+v (err=%v)", byEmail, err)
	}
	if _, err := svc.BookingsByRoom(ctx, " "); err == nil {
		t.Fatalf("expected validation error for blank room code")
	}

	got, err := svc.GetBooking(ctx, byRoom[0].ID)
	if err != nil || got.ID != byRoom[0].ID {
		t.Fatalf("unexpected booking %+v (err=%v)", got, err)
	}

	slots, err := svc.ListSlots(ctx)
	if err != nil || len(slots) != 3 {
		t.Fatalf("unexpected slots %+v (err=%v)", slots, err)
	}
	slot, err := svc.SlotByPeriod(ctx, 2)
	if err != nil || slot.Start != "09:30:00" {
		t.Fatalf("unexpected slot %+v (err=%v)", slot, err)
	}
	if _, err := svc.SlotByPeriod(ctx, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown period, got %v", err)
	}

	again, err := svc.BookingsByRoom(ctx, "VPC1_101")
	if err != nil || !reflect.DeepEqual(again, byRoom) {
		t.Fatalf("expected repeatable results, got %+v", again)
	}
}

func TestStatsServiceDashboard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	seedCatalog(t, store)
	for _, b := range []persistence.Booking{
		{RoomCode: "VPC1_101", Date: "11/06/2025", Slot: "Ca1", Status: persistence.BookingConfirmed},
		{RoomCode: "VPC1_101", Date: "12/06/2025", Slot: "Ca1", Status: persistence.BookingPending},
		{RoomCode: "VPC2_201", Date: "01/05/2025", Slot: "Ca2", Status: persistence.BookingCancelled},
	} {
		if _, err := store.CreateBooking(ctx, b); err != nil {
			t.Fatalf("seed booking: %v", err)
		}
	}
	maintenance := persistence.RoomMaintenance
	if err := store.UpdateRoom(ctx, "VPC2_201", persistence.RoomPatch{Status: &maintenance}); err != nil {
		t.Fatalf("update room: %v", err)
	}

	svc := NewStatsService(store, func() time.Time { return bookingNow })
	stats, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if stats.TotalRooms != 2 || stats.RoomsByStatus[persistence.RoomAvailable] != 1 || stats.RoomsByStatus[persistence.RoomMaintenance] != 1 {
		t.Fatalf("unexpected room stats %+v", stats)
	}
	if stats.TotalBookings != 3 || stats.BookingsByStatus[persistence.BookingPending] != 1 {
		t.Fatalf("unexpected booking stats %+v", stats)
	}
	if stats.BookingsThisMonth != 2 {
		t.Fatalf("expected 2 bookings in June, got %d", stats.BookingsThisMonth)
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmc-edu/room-booking/internal/notify"
	"github.com/cmc-edu/room-booking/internal/persistence"
	"github.com/cmc-edu/room-booking/internal/persistence/memory"
	"github.com/cmc-edu/room-booking/internal/persistence/sqlite"
)

var bookingNow = time.Date(2025, time.June, 10, 8, 30, 0, 0, time.UTC)

var (
	staff   = Principal{Email: "pctsv@st.cmc.edu.vn", Code: "PCTSV001", Name: "Phòng CTSV", Role: persistence.RolePCTSV}
	teacher = Principal{Email: "teacher1@st.cmc.edu.vn", Code: "GV001", Name: "TS. Trần Thị B", Role: persistence.RoleTeacher}
	student = Principal{Email: "student1@st.cmc.edu.vn", Code: "BIT220001", Name: "Nguyễn Văn A", Role: persistence.RoleStudent}
)

type recordedNotice struct {
	kind   string
	notice notify.Notice
	reason string
}

type notifierStub struct {
	mu    sync.Mutex
	calls []recordedNotice
}

func (n *notifierStub) BookingConfirmed(_ context.Context, notice notify.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotice{kind: "confirmed", notice: notice})
}

func (n *notifierStub) BookingRejected(_ context.Context, notice notify.Notice, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotice{kind: "rejected", notice: notice, reason: reason})
}

func (n *notifierStub) recorded() []recordedNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedNotice(nil), n.calls...)
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func seedCatalog(t *testing.T, store persistence.Store) {
	t.Helper()
	ctx := context.Background()
	for _, code := range []string{"VPC1_101", "VPC2_201"} {
		_, err := store.CreateRoom(ctx, persistence.Room{
			Code:     code,
			Number:   101,
			Campus:   code[:4],
			Capacity: 40,
			Status:   persistence.RoomAvailable,
		})
		require.NoError(t, err)
	}
	periods := [][2]string{
		{"07:00:00", "09:00:00"},
		{"09:30:00", "11:30:00"},
		{"13:00:00", "15:00:00"},
	}
	for i, p := range periods {
		_, err := store.CreateSlot(ctx, persistence.ScheduleSlot{Period: i + 1, Start: p[0], End: p[1]})
		require.NoError(t, err)
	}
}

func newMemoryStore(t *testing.T) persistence.Store {
	t.Helper()
	store := memory.New(memory.WithIDGenerator(sequentialIDs("bk")))
	seedCatalog(t, store)
	return store
}

func newSQLiteStore(t *testing.T) persistence.Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "booking.db")
	store, err := sqlite.Open(context.Background(), dsn, sqlite.WithIDGenerator(sequentialIDs("bk")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	seedCatalog(t, store)
	return store
}

var backends = map[string]func(t *testing.T) persistence.Store{
	"memory": newMemoryStore,
	"sqlite": newSQLiteStore,
}

func newBookingService(store persistence.Store, policy ConflictPolicy) (*BookingService, *notifierStub) {
	notifier := &notifierStub{}
	svc := NewBookingService(store, notifier, policy, func() time.Time { return bookingNow })
	return svc, notifier
}

func bookingRequest(p Principal, room, date, slot string) CreateBookingParams {
	return CreateBookingParams{Principal: p, RoomCode: room, Date: date, Slot: slot, Reason: "Sinh hoạt CLB"}
}

func TestBookingServiceScenario(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc, notifier := newBookingService(newStore(t), ConflictReject)

			created, err := svc.CreateBooking(ctx, bookingRequest(teacher, "VPC1_101", "11/06/2025", "Ca1"))
			require.NoError(t, err)
			assert.Equal(t, persistence.BookingConfirmed, created.Status)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, teacher.Email, created.Email)
			assert.Equal(t, teacher.Code, created.UserCode)
			assert.Equal(t, "10/06/2025", created.BookedOn)

			available, err := svc.IsAvailable(ctx, "VPC1_101", "11/06/2025", "Ca1")
			require.NoError(t, err)
			assert.False(t, available)

			_, err = svc.CreateBooking(ctx, bookingRequest(student, "VPC1_101", "11/06/2025", "Ca1"))
			require.ErrorIs(t, err, ErrConflict)
			var conflict *ConflictError
			require.ErrorAs(t, err, &conflict)
			require.Len(t, conflict.Occupants, 1)
			assert.Equal(t, created.ID, conflict.Occupants[0].ID)

			rejected, err := svc.Reject(ctx, RejectParams{Principal: staff, BookingID: created.ID, Reason: "room needed for maintenance"})
			require.NoError(t, err)
			assert.Equal(t, persistence.BookingCancelled, rejected.Status)
			assert.Equal(t, "room needed for maintenance", rejected.RejectionReason)
			assert.Equal(t, staff.Email, rejected.DecidedBy)
			require.NotNil(t, rejected.DecidedAt)
			assert.True(t, rejected.DecidedAt.Equal(bookingNow))

			available, err = svc.IsAvailable(ctx, "VPC1_101", "11/06/2025", "Ca1")
			require.NoError(t, err)
			assert.True(t, available)

			calls := notifier.recorded()
			require.Len(t, calls, 1)
			assert.Equal(t, "rejected", calls[0].kind)
			assert.Equal(t, "room needed for maintenance", calls[0].reason)
			assert.Equal(t, "Phòng VPC1_101", calls[0].notice.RoomName)
			assert.Equal(t, teacher.Email, calls[0].notice.BookerEmail)
		})
	}
}

func TestBookingServiceConcurrentCreates(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			svc, _ := newBookingService(store, ConflictReject)

			const workers = 12
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				confirmed int
				conflicts int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					p := Principal{Email: fmt.Sprintf("student%d@st.cmc.edu.vn", i), Role: persistence.RoleStudent}
					b, err := svc.CreateBooking(ctx, bookingRequest(p, "VPC1_101", "11/06/2025", "Ca1"))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil && b.Status == persistence.BookingConfirmed:
						confirmed++
					case errors.Is(err, ErrConflict):
						conflicts++
					default:
						t.Errorf("unexpected outcome: %+v, %v", b, err)
					}
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 1, confirmed)
			assert.Equal(t, workers-1, conflicts)

			stored, err := store.ListBookings(ctx, persistence.BookingFilter{RoomCode: "VPC1_101"})
			require.NoError(t, err)
			assert.Len(t, stored, 1)
		})
	}
}

func TestBookingServiceQueuePolicy(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc, notifier := newBookingService(newStore(t), ConflictQueue)
			assert.Equal(t, ConflictQueue, svc.Policy())

			first, err := svc.CreateBooking(ctx, bookingRequest(teacher, "VPC1_101", "11/06/2025", "Ca2"))
			require.NoError(t, err)
			require.Equal(t, persistence.BookingConfirmed, first.Status)

			second, err := svc.CreateBooking(ctx, bookingRequest(student, "VPC1_101", "11/06/2025", "Ca2"))
			require.NoError(t, err)
			assert.Equal(t, persistence.BookingPending, second.Status)

			_, err = svc.Approve(ctx, ApproveParams{Principal: staff, BookingID: second.ID})
			require.ErrorIs(t, err, ErrConflict)

			_, err = svc.Reject(ctx, RejectParams{Principal: staff, BookingID: first.ID, Reason: "trùng lịch"})
			require.NoError(t, err)

			approved, err := svc.Approve(ctx, ApproveParams{Principal: staff, BookingID: second.ID})
			require.NoError(t, err)
			assert.Equal(t, persistence.BookingConfirmed, approved.Status)
			assert.Equal(t, staff.Email, approved.DecidedBy)

			calls := notifier.recorded()
			require.Len(t, calls, 2)
			assert.Equal(t, "rejected", calls[0].kind)
			assert.Equal(t, "confirmed", calls[1].kind)
			assert.Equal(t, second.ID, calls[1].notice.BookingID)
		})
	}
}

func TestBookingServiceApproveTransitions(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	svc, notifier := newBookingService(store, ConflictQueue)

	confirmed, err := svc.CreateBooking(ctx, bookingRequest(teacher, "VPC2_201", "12/06/2025", "Ca3"))
	require.NoError(t, err)

	t.Run("student cannot approve", func(t *testing.T) {
		_, err := svc.Approve(ctx, ApproveParams{Principal: student, BookingID: confirmed.ID})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := svc.Approve(ctx, ApproveParams{Principal: staff, BookingID: "missing"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("confirmed is a no-op", func(t *testing.T) {
		got, err := svc.Approve(ctx, ApproveParams{Principal: staff, BookingID: confirmed.ID})
		require.NoError(t, err)
		assert.Equal(t, persistence.BookingConfirmed, got.Status)
		assert.Empty(t, got.DecidedBy)
		assert.Empty(t, notifier.recorded())
	})

	t.Run("cancelled cannot be approved or rejected", func(t *testing.T) {
		_, err := svc.Reject(ctx, RejectParams{Principal: staff, BookingID: confirmed.ID, Reason: "hủy"})
		require.NoError(t, err)

		_, err = svc.Approve(ctx, ApproveParams{Principal: staff, BookingID: confirmed.ID})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = svc.Reject(ctx, RejectParams{Principal: staff, BookingID: confirmed.ID, Reason: "again"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		_, err := svc.Reject(ctx, RejectParams{Principal: staff, BookingID: confirmed.ID, Reason: "   "})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, msgRequired, vErr.FieldErrors["Ly_do_tu_choi"])
	})
}

func TestBookingServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newBookingService(newMemoryStore(t), ConflictReject)

	tests := []struct {
		name    string
		params  CreateBookingParams
		field   string
		message string
	}{
		{name: "missing room", params: bookingRequest(teacher, "", "11/06/2025", "Ca1"), field: "Ma_phong", message: msgRequired},
		{name: "missing date", params: bookingRequest(teacher, "VPC1_101", "", "Ca1"), field: "Ngay", message: msgRequired},
		{name: "bad date", params: bookingRequest(teacher, "VPC1_101", "31/02/2025", "Ca1"), field: "Ngay", message: msgDate},
		{name: "missing slot", params: bookingRequest(teacher, "VPC1_101", "11/06/2025", ""), field: "Ca", message: msgRequired},
		{name: "unknown period", params: bookingRequest(teacher, "VPC1_101", "11/06/2025", "Ca9"), field: "Ca", message: msgUnknownSlot},
		{name: "unknown room", params: bookingRequest(teacher, "VPC9_999", "11/06/2025", "Ca1"), field: "Ma_phong", message: msgUnknownRoom},
		{name: "bad email", params: func() CreateBookingParams {
			p := bookingRequest(staff, "VPC1_101", "11/06/2025", "Ca1")
			p.Email = "not-an-email"
			return p
		}(), field: "Email", message: msgEmail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(ctx, tc.params)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.message, vErr.FieldErrors[tc.field])
			assert.Equal(t, "validation", ErrorKind(err))
		})
	}
}

func TestBookingServiceRequester(t *testing.T) {
	ctx := context.Background()
	svc, _ := newBookingService(newMemoryStore(t), ConflictReject)

	t.Run("student cannot book for someone else", func(t *testing.T) {
		p := bookingRequest(student, "VPC1_101", "11/06/2025", "Ca1")
		p.Email = teacher.Email
		_, err := svc.CreateBooking(ctx, p)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("staff books on behalf of a teacher", func(t *testing.T) {
		p := bookingRequest(staff, "VPC1_101", "11/06/2025", "Ca1")
		p.Email = teacher.Email
		p.UserCode = teacher.Code
		p.UserName = teacher.Name
		got, err := svc.CreateBooking(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, teacher.Email, got.Email)
		assert.Equal(t, teacher.Code, got.UserCode)
	})

	t.Run("anonymous request is refused", func(t *testing.T) {
		_, err := svc.CreateBooking(ctx, bookingRequest(Principal{}, "VPC1_101", "11/06/2025", "Ca2"))
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("anonymous request naming an email is refused", func(t *testing.T) {
		p := bookingRequest(Principal{}, "VPC1_101", "11/06/2025", "Ca3")
		p.Email = "ghost@nowhere.example"
		p.UserName = "Ghost"
		_, err := svc.CreateBooking(ctx, p)
		assert.ErrorIs(t, err, ErrUnauthenticated)

		bookings, err := svc.store.ListBookings(ctx, persistence.BookingFilter{RoomCode: "VPC1_101", Slot: "Ca3"})
		require.NoError(t, err)
		assert.Empty(t, bookings)
	})
}

func TestBookingServiceNormalizesKeys(t *testing.T) {
	ctx := context.Background()
	svc, _ := newBookingService(newMemoryStore(t), ConflictReject)

	first, err := svc.CreateBooking(ctx, bookingRequest(teacher, " VPC1_101 ", "2025-06-11", "Tiết 7-9"))
	require.NoError(t, err)
	assert.Equal(t, "VPC1_101", first.RoomCode)
	assert.Equal(t, "11/06/2025", first.Date)

	_, err = svc.CreateBooking(ctx, bookingRequest(student, "VPC1_101", "11/6/2025", "Tiết  7-9"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBookingServiceCancel(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newBookingService(newMemoryStore(t), ConflictReject)

	booking, err := svc.CreateBooking(ctx, bookingRequest(student, "VPC1_101", "13/06/2025", "Ca1"))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, Principal{Email: "other@st.cmc.edu.vn", Role: persistence.RoleStudent}, booking.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	cancelled, err := svc.Cancel(ctx, student, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, persistence.BookingCancelled, cancelled.Status)
	assert.Empty(t, cancelled.RejectionReason)
	assert.Empty(t, notifier.recorded())

	available, err := svc.IsAvailable(ctx, "VPC1_101", "13/06/2025", "Ca1")
	require.NoError(t, err)
	assert.True(t, available)

	_, err = svc.Cancel(ctx, student, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBookingServiceIsAvailableValidation(t *testing.T) {
	svc, _ := newBookingService(newMemoryStore(t), ConflictReject)

	_, err := svc.IsAvailable(context.Background(), "", "not a date", "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, msgRequired, vErr.FieldErrors["Ma_phong"])
	assert.Equal(t, msgDate, vErr.FieldErrors["Ngay"])
	assert.Equal(t, msgRequired, vErr.FieldErrors["Ca"])
}

func TestNilBookingService(t *testing.T) {
	var svc *BookingService
	_, err := svc.CreateBooking(context.Background(), CreateBookingParams{})
	assert.Error(t, err)
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmc-edu/room-booking/internal/persistence"
)

// CatalogReader captures the read operations used by the query façade.
type CatalogReader interface {
	ListRooms(ctx context.Context) ([]persistence.Room, error)
	GetRoom(ctx context.Context, code string) (persistence.Room, error)
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	ListSlots(ctx context.Context) ([]persistence.ScheduleSlot, error)
	GetSlot(ctx context.Context, period int) (persistence.ScheduleSlot, error)
}

// QueryService exposes read-only lookups for presentation layers. Every call
// returns a fresh slice and has no side effects.
type QueryService struct {
	reader CatalogReader
	logger *slog.Logger
}

// NewQueryService constructs a query service.
func NewQueryService(reader CatalogReader) *QueryService {
	return NewQueryServiceWithLogger(reader, nil)
}

// NewQueryServiceWithLogger constructs a query service with a specified logger.
func NewQueryServiceWithLogger(reader CatalogReader, logger *slog.Logger) *QueryService {
	return &QueryService{reader: reader, logger: defaultLogger(logger)}
}

func (s *QueryService) ready() error {
	if s == nil || s.reader == nil {
		return fmt.Errorf("QueryService is not configured")
	}
	return nil
}

// ListRooms returns every room in insertion order.
func (s *QueryService) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.reader.ListRooms(ctx)
}

// GetRoom finds a room by code.
func (s *QueryService) GetRoom(ctx context.Context, code string) (persistence.Room, error) {
	if err := s.ready(); err != nil {
		return persistence.Room{}, err
	}
	room, err := s.reader.GetRoom(ctx, strings.TrimSpace(code))
	return room, mapRepoError(err)
}

// ListBookings returns the bookings matching filter.
func (s *QueryService) ListBookings(ctx context.Context, filter persistence.BookingFilter) (bookings []persistence.Booking, err error) {
	if err = s.ready(); err != nil {
		return nil, err
	}

	logger := serviceLogger(ctx, s.logger, "QueryService", "ListBookings")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).DebugContext(ctx, "bookings listed")
	}()

	bookings, err = s.reader.ListBookings(ctx, filter)
	err = mapRepoError(err)
	return
}

// GetBooking finds a booking by id.
func (s *QueryService) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if err := s.ready(); err != nil {
		return persistence.Booking{}, err
	}
	booking, err := s.reader.GetBooking(ctx, strings.TrimSpace(id))
	return booking, mapRepoError(err)
}

// BookingsByRoom returns the bookings of one room.
func (s *QueryService) BookingsByRoom(ctx context.Context, code string) ([]persistence.Booking, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &ValidationError{FieldErrors: map[string]string{"Ma_phong": msgRequired}}
	}
	return s.ListBookings(ctx, persistence.BookingFilter{RoomCode: code})
}

// BookingsByUser returns the bookings made under a user code.
func (s *QueryService) BookingsByUser(ctx context.Context, userCode string) ([]persistence.Booking, error) {
	userCode = strings.TrimSpace(userCode)
	if userCode == "" {
		return nil, &ValidationError{FieldErrors: map[string]string{"Ma_nguoi_dung": msgRequired}}
	}
	return s.ListBookings(ctx, persistence.BookingFilter{UserCode: userCode})
}

// BookingsByEmail returns the bookings requested from an email address.
func (s *QueryService) BookingsByEmail(ctx context.Context, email string) ([]persistence.Booking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &ValidationError{FieldErrors: map[string]string{"Email": msgRequired}}
	}
	return s.ListBookings(ctx, persistence.BookingFilter{Email: email})
}

// ListSlots returns the schedule table.
func (s *QueryService) ListSlots(ctx context.Context) ([]persistence.ScheduleSlot, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.reader.ListSlots(ctx)
}

// SlotByPeriod finds the schedule slot of a period.
func (s *QueryService) SlotByPeriod(ctx context.Context, period int) (persistence.ScheduleSlot, error) {
	if err := s.ready(); err != nil {
		return persistence.ScheduleSlot{}, err
	}
	if period <= 0 {
		return persistence.ScheduleSlot{}, &ValidationError{FieldErrors: map[string]string{"Ca": msgPositive}}
	}
	slot, err := s.reader.GetSlot(ctx, period)
	return slot, mapRepoError(err)
}

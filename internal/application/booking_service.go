package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmc-edu/room-booking/internal/availability"
	"github.com/cmc-edu/room-booking/internal/notify"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

// BookingStore captures the persistence operations needed by the booking workflow.
type BookingStore interface {
	WithinTx(ctx context.Context, fn func(tx persistence.BookingTx) error) error
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
	GetSlot(ctx context.Context, period int) (persistence.ScheduleSlot, error)
}

// BookingNotifier receives decisions after they are stored. Implementations
// must not block.
type BookingNotifier interface {
	BookingConfirmed(ctx context.Context, notice notify.Notice)
	BookingRejected(ctx context.Context, notice notify.Notice, reason string)
}

// BookingService runs the request, approve and reject workflow.
type BookingService struct {
	store    BookingStore
	notifier BookingNotifier
	policy   ConflictPolicy
	now      func() time.Time
	logger   *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(store BookingStore, notifier BookingNotifier, policy ConflictPolicy, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(store, notifier, policy, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(store BookingStore, notifier BookingNotifier, policy ConflictPolicy, now func() time.Time, logger *slog.Logger) *BookingService {
	if !policy.Valid() {
		policy = ConflictReject
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{store: store, notifier: notifier, policy: policy, now: now, logger: defaultLogger(logger)}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, principal Principal, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...).With(principalAttrs(principal)...)
}

// Policy reports how conflicting requests are handled.
func (s *BookingService) Policy() ConflictPolicy {
	return s.policy
}

// CreateBooking validates the request and stores it. A free slot is confirmed
// immediately; a taken slot is refused or queued as pending depending on the
// conflict policy.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking persistence.Booking, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("BookingService is not configured")
		return
	}

	key := availability.NewSlotKey(params.RoomCode, params.Date, params.Slot)
	logger := s.loggerWith(ctx, "CreateBooking",
		params.Principal,
		"slot_key", key.String(),
		"policy", string(s.policy),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).With(bookingAttrs(booking)...).InfoContext(ctx, "booking created")
	}()

	requester, err := s.resolveRequester(params)
	if err != nil {
		return
	}

	vErr := validateStruct(params)
	if !vErr.HasErrors() {
		vErr.merge(s.validateSlotLabel(ctx, key.Slot))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	candidate := persistence.Booking{
		RoomCode: key.Room,
		Date:     key.Date,
		Slot:     key.Slot,
		Email:    requester.Email,
		UserCode: requester.Code,
		UserName: requester.Name,
		Reason:   strings.TrimSpace(params.Reason),
		BookedOn: s.now().Format(availability.DateLayout),
	}

	err = s.store.WithinTx(ctx, func(tx persistence.BookingTx) error {
		if _, err := tx.GetRoom(key.Room); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return &ValidationError{FieldErrors: map[string]string{"Ma_phong": msgUnknownRoom}}
			}
			return err
		}

		existing, err := tx.ListBookings(persistence.BookingFilter{RoomCode: key.Room})
		if err != nil {
			return err
		}

		candidate.Status = persistence.BookingConfirmed
		if !availability.IsAvailable(existing, key) {
			if s.policy == ConflictReject {
				return &ConflictError{Key: key.String(), Occupants: availability.Occupants(existing, key)}
			}
			candidate.Status = persistence.BookingPending
		}

		stored, err := tx.CreateBooking(candidate)
		if err != nil {
			if errors.Is(err, persistence.ErrConflict) {
				return &ConflictError{Key: key.String(), Occupants: availability.Occupants(existing, key)}
			}
			return err
		}
		booking = stored
		return nil
	})
	if err != nil {
		err = mapTxError(err)
		booking = persistence.Booking{}
	}
	return
}

// resolveRequester fills requester fields from the principal. Anonymous
// callers are refused; only staff may book on behalf of another account.
func (s *BookingService) resolveRequester(params CreateBookingParams) (Principal, error) {
	requester := Principal{
		Email: strings.TrimSpace(params.Email),
		Code:  strings.TrimSpace(params.UserCode),
		Name:  strings.TrimSpace(params.UserName),
	}
	p := params.Principal
	if p.Email == "" {
		return Principal{}, ErrUnauthenticated
	}
	if requester.Email != "" && !p.Is(requester.Email) && !p.CanDecideBookings() {
		return Principal{}, ErrUnauthorized
	}
	if requester.Email == "" || p.Is(requester.Email) {
		requester.Email = p.Email
		if requester.Code == "" {
			requester.Code = p.Code
		}
		if requester.Name == "" {
			requester.Name = p.Name
		}
	}
	return requester, nil
}

// validateSlotLabel checks that "Ca<N>" labels name a configured period.
// Other labels such as "Tiết 7-9" are accepted as free text.
func (s *BookingService) validateSlotLabel(ctx context.Context, label string) *ValidationError {
	vErr := &ValidationError{}
	period, ok := availability.ParseSlotPeriod(label)
	if !ok {
		return vErr
	}
	if _, err := s.store.GetSlot(ctx, period); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr.add("Ca", msgUnknownSlot)
			return vErr
		}
		vErr.add("Ca", msgInvalid)
	}
	return vErr
}

// Approve confirms a pending booking. Approving a confirmed booking is a
// no-op; approving a cancelled one fails with ErrInvalidTransition.
func (s *BookingService) Approve(ctx context.Context, params ApproveParams) (booking persistence.Booking, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("BookingService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Approve",
		params.Principal,
		"booking_id", params.BookingID,
	)
	changed := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(bookingAttrs(booking)...).With("changed", changed).InfoContext(ctx, "booking approved")
	}()

	if !params.Principal.CanDecideBookings() {
		err = ErrUnauthorized
		return
	}

	err = s.store.WithinTx(ctx, func(tx persistence.BookingTx) error {
		current, err := tx.GetBooking(params.BookingID)
		if err != nil {
			return err
		}

		switch current.Status {
		case persistence.BookingConfirmed:
			booking = current
			return nil
		case persistence.BookingCancelled:
			return fmt.Errorf("approve cancelled booking %s: %w", current.ID, ErrInvalidTransition)
		}

		key := availability.KeyOf(current)
		existing, err := tx.ListBookings(persistence.BookingFilter{RoomCode: current.RoomCode})
		if err != nil {
			return err
		}
		if holder, taken := availability.ConfirmedOccupant(existing, key, current.ID); taken {
			return &ConflictError{Key: key.String(), Occupants: []persistence.Booking{holder}}
		}

		decidedAt := s.now()
		status := persistence.BookingConfirmed
		decidedBy := params.Principal.Email
		if err := tx.UpdateBooking(current.ID, persistence.BookingPatch{
			Status:    &status,
			DecidedBy: &decidedBy,
			DecidedAt: &decidedAt,
		}); err != nil {
			return err
		}
		booking, err = tx.GetBooking(current.ID)
		changed = err == nil
		return err
	})
	if err != nil {
		err = mapTxError(err)
		booking = persistence.Booking{}
		return
	}

	if changed && s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, noticeFor(booking))
	}
	return
}

// Reject cancels a pending or confirmed booking and records why.
func (s *BookingService) Reject(ctx context.Context, params RejectParams) (booking persistence.Booking, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("BookingService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Reject",
		params.Principal,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reject booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(bookingAttrs(booking)...).InfoContext(ctx, "booking rejected")
	}()

	if !params.Principal.CanDecideBookings() {
		err = ErrUnauthorized
		return
	}
	params.Reason = strings.TrimSpace(params.Reason)
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}

	booking, err = s.cancel(ctx, params.BookingID, params.Principal.Email, params.Reason)
	if err != nil {
		return
	}

	if s.notifier != nil {
		s.notifier.BookingRejected(ctx, noticeFor(booking), params.Reason)
	}
	return
}

// Cancel lets the requester withdraw their own booking. Staff may cancel any
// booking through Reject instead.
func (s *BookingService) Cancel(ctx context.Context, principal Principal, bookingID string) (booking persistence.Booking, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("BookingService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Cancel",
		principal,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(bookingAttrs(booking)...).InfoContext(ctx, "booking cancelled")
	}()

	if principal.Email == "" {
		err = ErrUnauthenticated
		return
	}

	var current persistence.Booking
	current, err = s.store.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !principal.Is(current.Email) && !principal.CanDecideBookings() {
		err = ErrUnauthorized
		return
	}

	booking, err = s.cancel(ctx, bookingID, principal.Email, "")
	return
}

func (s *BookingService) cancel(ctx context.Context, bookingID, decidedBy, reason string) (booking persistence.Booking, err error) {
	err = s.store.WithinTx(ctx, func(tx persistence.BookingTx) error {
		current, err := tx.GetBooking(bookingID)
		if err != nil {
			return err
		}
		if current.Status == persistence.BookingCancelled {
			return fmt.Errorf("cancel booking %s: %w", current.ID, ErrInvalidTransition)
		}

		decidedAt := s.now()
		status := persistence.BookingCancelled
		patch := persistence.BookingPatch{
			Status:    &status,
			DecidedBy: &decidedBy,
			DecidedAt: &decidedAt,
		}
		if reason != "" {
			patch.RejectionReason = &reason
		}
		if err := tx.UpdateBooking(current.ID, patch); err != nil {
			return err
		}
		booking, err = tx.GetBooking(current.ID)
		return err
	})
	if err != nil {
		return persistence.Booking{}, mapTxError(err)
	}
	return booking, nil
}

// IsAvailable reports whether no active booking holds the room on date during slot.
func (s *BookingService) IsAvailable(ctx context.Context, roomCode, date, slot string) (available bool, err error) {
	if s == nil || s.store == nil {
		return false, fmt.Errorf("BookingService is not configured")
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(roomCode) == "" {
		vErr.add("Ma_phong", msgRequired)
	}
	if strings.TrimSpace(date) == "" {
		vErr.add("Ngay", msgRequired)
	} else if _, perr := availability.ParseDate(date); perr != nil {
		vErr.add("Ngay", msgDate)
	}
	if strings.TrimSpace(slot) == "" {
		vErr.add("Ca", msgRequired)
	}
	if vErr.HasErrors() {
		return false, vErr
	}

	key := availability.NewSlotKey(roomCode, date, slot)
	bookings, err := s.store.ListBookings(ctx, persistence.BookingFilter{RoomCode: key.Room})
	if err != nil {
		return false, mapRepoError(err)
	}
	return availability.IsAvailable(bookings, key), nil
}

func noticeFor(b persistence.Booking) notify.Notice {
	return notify.Notice{
		BookingID:   b.ID,
		RoomCode:    b.RoomCode,
		RoomName:    "Phòng " + b.RoomCode,
		BookerName:  b.UserName,
		BookerEmail: b.Email,
		Date:        b.Date,
		Slot:        b.Slot,
		Purpose:     b.Reason,
	}
}

// mapTxError keeps workflow errors produced inside a transaction and maps the
// storage ones.
func mapTxError(err error) error {
	var vErr *ValidationError
	var cErr *ConflictError
	switch {
	case errors.As(err, &vErr), errors.As(err, &cErr), errors.Is(err, ErrInvalidTransition):
		return err
	}
	return mapRepoError(err)
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/availability"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (persistence.Booking, error)
	Approve(ctx context.Context, params application.ApproveParams) (persistence.Booking, error)
	Reject(ctx context.Context, params application.RejectParams) (persistence.Booking, error)
	Cancel(ctx context.Context, principal application.Principal, bookingID string) (persistence.Booking, error)
}

type bookingQueries interface {
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
	BookingsByEmail(ctx context.Context, email string) ([]persistence.Booking, error)
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
}

type BookingHandler struct {
	bookings  bookingService
	queries   bookingQueries
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(bookings bookingService, queries bookingQueries, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{bookings: bookings, queries: queries, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// List returns bookings filtered by the room, date, slot, status, email and
// user query parameters. Accounts that cannot see every booking only get
// their own.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := persistence.BookingFilter{
		RoomCode: strings.TrimSpace(query.Get("room")),
		UserCode: strings.TrimSpace(query.Get("user")),
		Email:    strings.TrimSpace(query.Get("email")),
		Slot:     strings.TrimSpace(query.Get("slot")),
		Status:   persistence.BookingStatus(strings.TrimSpace(query.Get("status"))),
	}
	if date := strings.TrimSpace(query.Get("date")); date != "" {
		filter.Date = availability.CanonicalDate(date)
	}
	logger := h.log(r.Context(), "List")
	var (
		bookings []persistence.Booking
		err      error
	)
	if principal.CanListUsers() {
		bookings, err = h.queries.ListBookings(r.Context(), filter)
	} else {
		bookings, err = h.ownBookings(r.Context(), principal, filter)
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).DebugContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

// ownBookings narrows the caller's booking history by the remaining filter
// fields. User and email parameters are ignored.
func (h *BookingHandler) ownBookings(ctx context.Context, principal application.Principal, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	history, err := h.queries.BookingsByEmail(ctx, principal.Email)
	if err != nil {
		return nil, err
	}
	filter.Email, filter.UserCode = "", ""
	out := make([]persistence.Booking, 0, len(history))
	for _, b := range history {
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	id := strings.TrimSpace(ps.ByName("id"))
	booking, err := h.queries.GetBooking(r.Context(), id)
	if err == nil && !principal.CanListUsers() && !principal.Is(booking.Email) {
		err = application.ErrUnauthorized
	}
	if err != nil {
		h.log(r.Context(), "Get", "booking_id", id).WarnContext(r.Context(), "booking lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.bookings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "room_code", req.RoomCode)

	booking, err := h.bookings.CreateBooking(r.Context(), req.toParams(principal))
	if err != nil {
		logger.WarnContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusCreated
	if booking.Status == persistence.BookingPending {
		status = http.StatusAccepted
	}
	logger.With("booking_id", booking.ID, "status", string(booking.Status)).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, status, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.bookings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	id := strings.TrimSpace(ps.ByName("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	logger := h.log(r.Context(), "Approve", "booking_id", id)
	booking, err := h.bookings.Approve(r.Context(), application.ApproveParams{Principal: principal, BookingID: id})
	if err != nil {
		logger.WarnContext(r.Context(), "booking approval failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking approved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.bookings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	id := strings.TrimSpace(ps.ByName("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Reject", "booking_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode rejection", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Reject", "booking_id", id)
	booking, err := h.bookings.Reject(r.Context(), application.RejectParams{
		Principal: principal,
		BookingID: id,
		Reason:    req.Reason,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking rejection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking rejected")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.bookings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	id := strings.TrimSpace(ps.ByName("id"))
	logger := h.log(r.Context(), "Cancel", "booking_id", id)
	booking, err := h.bookings.Cancel(r.Context(), principal, id)
	if err != nil {
		logger.WarnContext(r.Context(), "booking cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

type bookingRequest struct {
	RoomCode string `json:"Ma_phong"`
	Date     string `json:"Ngay"`
	Slot     string `json:"Ca"`
	Reason   string `json:"Ly_do"`
	Email    string `json:"Email"`
	UserCode string `json:"Ma_nguoi_dung"`
	UserName string `json:"Ten_nguoi_dung"`
}

func (r bookingRequest) toParams(principal application.Principal) application.CreateBookingParams {
	return application.CreateBookingParams{
		Principal: principal,
		RoomCode:  r.RoomCode,
		Date:      r.Date,
		Slot:      r.Slot,
		Reason:    r.Reason,
		Email:     r.Email,
		UserCode:  r.UserCode,
		UserName:  r.UserName,
	}
}

type rejectRequest struct {
	Reason string `json:"Ly_do_tu_choi"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type bookingDTO struct {
	ID              string `json:"_id"`
	RoomCode        string `json:"Ma_phong"`
	Date            string `json:"Ngay"`
	Email           string `json:"Email"`
	UserCode        string `json:"Ma_nguoi_dung"`
	UserName        string `json:"Ten_nguoi_dung"`
	Reason          string `json:"Ly_do"`
	Slot            string `json:"Ca"`
	BookedOn        string `json:"Ngay_dat"`
	Status          string `json:"trang_thai"`
	RejectionReason string `json:"Ly_do_tu_choi,omitempty"`
	DecidedBy       string `json:"Nguoi_duyet,omitempty"`
	DecidedAt       string `json:"Thoi_gian_duyet,omitempty"`
}

func toBookingDTO(b persistence.Booking) bookingDTO {
	dto := bookingDTO{
		ID:              b.ID,
		RoomCode:        b.RoomCode,
		Date:            b.Date,
		Email:           b.Email,
		UserCode:        b.UserCode,
		UserName:        b.UserName,
		Reason:          b.Reason,
		Slot:            b.Slot,
		BookedOn:        b.BookedOn,
		Status:          string(b.Status),
		RejectionReason: b.RejectionReason,
		DecidedBy:       b.DecidedBy,
	}
	if b.DecidedAt != nil {
		dto.DecidedAt = b.DecidedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toBookingDTOs(bookings []persistence.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	return out
}

package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

type statsService interface {
	Dashboard(ctx context.Context) (application.DashboardStats, error)
}

type storeCounter interface {
	Counts(ctx context.Context) (persistence.Counts, error)
}

// SystemHandler serves the health probe and the staff dashboard.
type SystemHandler struct {
	stats     statsService
	store     storeCounter
	responder responder
	logger    *slog.Logger
}

func NewSystemHandler(stats statsService, store storeCounter, logger *slog.Logger) *SystemHandler {
	base := defaultLogger(logger)
	return &SystemHandler{stats: stats, store: store, responder: newResponder(base), logger: base}
}

// Health reports 200 with collection sizes when the store answers, 503 otherwise.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.store == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	counts, err := h.store.Counts(r.Context())
	if err != nil {
		handlerLogger(r.Context(), h.logger, "SystemHandler", "Health").ErrorContext(r.Context(), "store health check failed", "error", err)
		h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{
		Status:   "ok",
		Users:    counts.Users,
		Rooms:    counts.Rooms,
		Bookings: counts.Bookings,
		Slots:    counts.Slots,
	})
}

// Stats returns dashboard counters to staff.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.stats == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.CanDecideBookings() {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		handlerLogger(r.Context(), h.logger, "SystemHandler", "Stats").ErrorContext(r.Context(), "dashboard failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := statsResponse{
		TotalRooms:        stats.TotalRooms,
		RoomsByStatus:     make(map[string]int, len(stats.RoomsByStatus)),
		TotalBookings:     stats.TotalBookings,
		BookingsByStatus:  make(map[string]int, len(stats.BookingsByStatus)),
		BookingsThisMonth: stats.BookingsThisMonth,
	}
	for status, n := range stats.RoomsByStatus {
		resp.RoomsByStatus[string(status)] = n
	}
	for status, n := range stats.BookingsByStatus {
		resp.BookingsByStatus[string(status)] = n
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type healthResponse struct {
	Status   string `json:"status"`
	Users    int    `json:"users,omitempty"`
	Rooms    int    `json:"rooms,omitempty"`
	Bookings int    `json:"bookings,omitempty"`
	Slots    int    `json:"slots,omitempty"`
}

type statsResponse struct {
	TotalRooms        int            `json:"tong_phong"`
	RoomsByStatus     map[string]int `json:"phong_theo_trang_thai"`
	TotalBookings     int            `json:"tong_dat_phong"`
	BookingsByStatus  map[string]int `json:"dat_phong_theo_trang_thai"`
	BookingsThisMonth int            `json:"dat_phong_thang_nay"`
}

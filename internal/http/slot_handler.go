package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

type slotQueries interface {
	ListSlots(ctx context.Context) ([]persistence.ScheduleSlot, error)
	SlotByPeriod(ctx context.Context, period int) (persistence.ScheduleSlot, error)
}

type SlotHandler struct {
	queries   slotQueries
	responder responder
	logger    *slog.Logger
}

func NewSlotHandler(queries slotQueries, logger *slog.Logger) *SlotHandler {
	base := defaultLogger(logger)
	return &SlotHandler{queries: queries, responder: newResponder(base), logger: base}
}

func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slots, err := h.queries.ListSlots(r.Context())
	if err != nil {
		handlerLogger(r.Context(), h.logger, "SlotHandler", "List").ErrorContext(r.Context(), "slot list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]slotDTO, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotDTO(s))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Slots: out})
}

func (h *SlotHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	period, err := strconv.Atoi(strings.TrimSpace(ps.ByName("period")))
	if err != nil || period <= 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotPeriod)
		return
	}

	slot, err := h.queries.SlotByPeriod(r.Context(), period)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "SlotHandler", "Get", "period", period).WarnContext(r.Context(), "slot lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotResponse{Slot: toSlotDTO(slot)})
}

type slotDTO struct {
	ID     string `json:"_id"`
	Period int    `json:"Ca"`
	Start  string `json:"Giờ bắt đầu"`
	End    string `json:"Giờ kết thúc"`
}

type slotResponse struct {
	Slot slotDTO `json:"slot"`
}

type listSlotsResponse struct {
	Slots []slotDTO `json:"slots"`
}

func toSlotDTO(s persistence.ScheduleSlot) slotDTO {
	return slotDTO{ID: s.ID, Period: s.Period, Start: s.Start, End: s.End}
}

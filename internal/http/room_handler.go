package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (persistence.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (persistence.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, code string) error
}

type roomQueries interface {
	ListRooms(ctx context.Context) ([]persistence.Room, error)
	GetRoom(ctx context.Context, code string) (persistence.Room, error)
	BookingsByRoom(ctx context.Context, code string) ([]persistence.Booking, error)
}

type availabilityChecker interface {
	IsAvailable(ctx context.Context, roomCode, date, slot string) (bool, error)
}

type RoomHandler struct {
	rooms        roomService
	queries      roomQueries
	availability availabilityChecker
	responder    responder
	logger       *slog.Logger
}

func NewRoomHandler(rooms roomService, queries roomQueries, availability availabilityChecker, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{
		rooms:        rooms,
		queries:      queries,
		availability: availability,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	rooms, err := h.queries.ListRooms(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "room list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).DebugContext(r.Context(), "rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	code := strings.TrimSpace(ps.ByName("code"))
	if code == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomCode)
		return
	}

	room, err := h.queries.GetRoom(r.Context(), code)
	if err != nil {
		h.log(r.Context(), "Get", "room_code", code).WarnContext(r.Context(), "room lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "room_code", req.Code)

	room, err := h.rooms.CreateRoom(r.Context(), application.CreateRoomParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "room creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	code := strings.TrimSpace(ps.ByName("code"))
	if code == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomCode)
		return
	}

	var req roomPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "room_code", code, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "room_code", code)

	room, err := h.rooms.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Principal: principal,
		Code:      code,
		Patch:     req.toPatch(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "room update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	code := strings.TrimSpace(ps.ByName("code"))
	if code == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomCode)
		return
	}

	logger := h.log(r.Context(), "Delete", "room_code", code)
	if err := h.rooms.DeleteRoom(r.Context(), principal, code); err != nil {
		logger.WarnContext(r.Context(), "room delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Bookings lists every booking recorded against the room.
func (h *RoomHandler) Bookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if _, ok := h.responder.requirePrincipal(w, r); !ok {
		return
	}

	code := strings.TrimSpace(ps.ByName("code"))
	bookings, err := h.queries.BookingsByRoom(r.Context(), code)
	if err != nil {
		h.log(r.Context(), "Bookings", "room_code", code).WarnContext(r.Context(), "room bookings lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

// Availability answers whether the room is free on ?date= during ?slot=.
func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	code := strings.TrimSpace(ps.ByName("code"))
	query := r.URL.Query()
	date := strings.TrimSpace(query.Get("date"))
	slot := strings.TrimSpace(query.Get("slot"))

	available, err := h.availability.IsAvailable(r.Context(), code, date, slot)
	if err != nil {
		h.log(r.Context(), "Availability", "room_code", code).WarnContext(r.Context(), "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		RoomCode:  code,
		Date:      date,
		Slot:      slot,
		Available: available,
	})
}

type roomRequest struct {
	Code        string  `json:"Ma_phong"`
	Number      int     `json:"So_phong"`
	Campus      string  `json:"Co_so"`
	AreaM2      float64 `json:"Dien_tich (m2)"`
	Equipment   string  `json:"Co_so_vat_chat"`
	Capacity    int     `json:"Suc_chua"`
	Description string  `json:"Mo_ta"`
	Rules       string  `json:"Quy_dinh"`
	Status      string  `json:"trang_thai"`
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		Code:        r.Code,
		Number:      r.Number,
		Campus:      r.Campus,
		AreaM2:      r.AreaM2,
		Equipment:   r.Equipment,
		Capacity:    r.Capacity,
		Description: r.Description,
		Rules:       r.Rules,
		Status:      persistence.RoomStatus(strings.TrimSpace(r.Status)),
	}
}

type roomPatchRequest struct {
	Number      *int     `json:"So_phong"`
	Campus      *string  `json:"Co_so"`
	AreaM2      *float64 `json:"Dien_tich (m2)"`
	Equipment   *string  `json:"Co_so_vat_chat"`
	Capacity    *int     `json:"Suc_chua"`
	Description *string  `json:"Mo_ta"`
	Rules       *string  `json:"Quy_dinh"`
	Status      *string  `json:"trang_thai"`
}

func (r roomPatchRequest) toPatch() persistence.RoomPatch {
	patch := persistence.RoomPatch{
		Number:      r.Number,
		Campus:      r.Campus,
		AreaM2:      r.AreaM2,
		Equipment:   r.Equipment,
		Capacity:    r.Capacity,
		Description: r.Description,
		Rules:       r.Rules,
	}
	if r.Status != nil {
		status := persistence.RoomStatus(strings.TrimSpace(*r.Status))
		patch.Status = &status
	}
	return patch
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type availabilityResponse struct {
	RoomCode  string `json:"Ma_phong"`
	Date      string `json:"Ngay"`
	Slot      string `json:"Ca"`
	Available bool   `json:"available"`
}

type roomDTO struct {
	ID          string   `json:"_id"`
	Code        string   `json:"Ma_phong"`
	Number      int      `json:"So_phong"`
	Campus      string   `json:"Co_so"`
	AreaM2      float64  `json:"Dien_tich (m2)"`
	Equipment   string   `json:"Co_so_vat_chat"`
	Items       []string `json:"Thiet_bi"`
	Capacity    int      `json:"Suc_chua"`
	Description string   `json:"Mo_ta"`
	Rules       string   `json:"Quy_dinh"`
	Status      string   `json:"trang_thai"`
}

func toRoomDTO(room persistence.Room) roomDTO {
	items := application.ParseEquipment(room.Equipment)
	if items == nil {
		items = []string{}
	}
	return roomDTO{
		ID:          room.ID,
		Code:        room.Code,
		Number:      room.Number,
		Campus:      room.Campus,
		AreaM2:      room.AreaM2,
		Equipment:   room.Equipment,
		Items:       items,
		Capacity:    room.Capacity,
		Description: room.Description,
		Rules:       room.Rules,
		Status:      string(room.Status),
	}
}

func toRoomDTOs(rooms []persistence.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

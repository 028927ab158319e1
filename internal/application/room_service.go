package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmc-edu/room-booking/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error)
	GetRoom(ctx context.Context, code string) (persistence.Room, error)
	UpdateRoom(ctx context.Context, code string, patch persistence.RoomPatch) error
	DeleteRoom(ctx context.Context, code string) error
}

// RoomService orchestrates validation, authorization, and persistence for rooms.
type RoomService struct {
	rooms  RoomRepository
	logger *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository) *RoomService {
	return NewRoomServiceWithLogger(rooms, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, logger *slog.Logger) *RoomService {
	return &RoomService{rooms: rooms, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, principal Principal, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...).With(principalAttrs(principal)...)
}

// CreateRoom validates input and persists a new room for staff.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room persistence.Room, err error) {
	if s == nil || s.rooms == nil {
		err = fmt.Errorf("RoomService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		params.Principal,
		"room_code", params.Input.Code,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.CanManageRooms() {
		err = ErrUnauthorized
		return
	}

	input := normalizeRoomInput(params.Input)
	if vErr := validateRoomInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	room, err = s.rooms.CreateRoom(ctx, persistence.Room{
		Code:        input.Code,
		Number:      input.Number,
		Campus:      input.Campus,
		AreaM2:      input.AreaM2,
		Equipment:   input.Equipment,
		Capacity:    input.Capacity,
		Description: input.Description,
		Rules:       input.Rules,
		Status:      input.Status,
	})
	if err != nil {
		err = mapRoomRepoError(err)
	}
	return
}

// UpdateRoom merges the patch into an existing room for staff.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room persistence.Room, err error) {
	if s == nil || s.rooms == nil {
		err = fmt.Errorf("RoomService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		params.Principal,
		"room_code", params.Code,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	if !params.Principal.CanManageRooms() {
		err = ErrUnauthorized
		return
	}

	patch := normalizeRoomPatch(params.Patch)
	if vErr := validateRoomPatch(patch); vErr.HasErrors() {
		err = vErr
		return
	}

	code := strings.TrimSpace(params.Code)
	if err = s.rooms.UpdateRoom(ctx, code, patch); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	room, err = s.rooms.GetRoom(ctx, code)
	if err != nil {
		err = mapRoomRepoError(err)
	}
	return
}

// DeleteRoom removes an existing room when requested by staff. Bookings that
// reference the room are kept for history.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, code string) error {
	if s == nil || s.rooms == nil {
		return fmt.Errorf("RoomService is not configured")
	}
	if !principal.CanManageRooms() {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		principal,
		"room_code", code,
	)

	if err := s.rooms.DeleteRoom(ctx, strings.TrimSpace(code)); err != nil {
		err = mapRoomRepoError(err)
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "room deleted")
	return nil
}

// ParseEquipment splits the stored equipment text into items. It accepts the
// list literal form "['Máy chiếu', 'Wifi']" as well as plain comma separated text.
func ParseEquipment(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	var items []string
	for _, part := range strings.Split(raw, ",") {
		item := strings.Trim(strings.TrimSpace(part), `'"`)
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func normalizeRoomInput(input RoomInput) RoomInput {
	input.Code = strings.TrimSpace(input.Code)
	input.Campus = strings.TrimSpace(input.Campus)
	input.Equipment = strings.TrimSpace(input.Equipment)
	input.Description = strings.TrimSpace(input.Description)
	input.Rules = strings.TrimSpace(input.Rules)
	if input.Status == "" {
		input.Status = persistence.RoomAvailable
	}
	return input
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := validateStruct(input)
	if !input.Status.Valid() {
		vErr.add("trang_thai", msgUnknownState)
	}
	return vErr
}

func normalizeRoomPatch(patch persistence.RoomPatch) persistence.RoomPatch {
	patch.Campus = trimmedPtr(patch.Campus)
	patch.Equipment = trimmedPtr(patch.Equipment)
	patch.Description = trimmedPtr(patch.Description)
	patch.Rules = trimmedPtr(patch.Rules)
	return patch
}

func validateRoomPatch(patch persistence.RoomPatch) *ValidationError {
	vErr := &ValidationError{}
	if patch.Number != nil && *patch.Number < 0 {
		vErr.add("So_phong", msgNonNegative)
	}
	if patch.Campus != nil && *patch.Campus == "" {
		vErr.add("Co_so", msgRequired)
	}
	if patch.AreaM2 != nil && *patch.AreaM2 < 0 {
		vErr.add("Dien_tich", msgNonNegative)
	}
	if patch.Capacity != nil && *patch.Capacity <= 0 {
		vErr.add("Suc_chua", msgPositive)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		vErr.add("trang_thai", msgUnknownState)
	}
	return vErr
}

func mapRoomRepoError(err error) error {
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return &ValidationError{FieldErrors: map[string]string{"Ma_phong": msgRequired}}
	}
	return mapRepoError(err)
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

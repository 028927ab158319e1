package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmc-edu/room-booking/internal/application"
)

var (
	errBadRequestBody    = errors.New("Định dạng yêu cầu không hợp lệ.")
	errMissingIdentity   = errors.New("Vui lòng cung cấp email người dùng qua header X-User-Email.")
	errInvalidBookingID  = errors.New("Mã đặt phòng không hợp lệ.")
	errInvalidRoomCode   = errors.New("Mã phòng không hợp lệ.")
	errInvalidUserCode   = errors.New("Mã người dùng không hợp lệ.")
	errInvalidSlotPeriod = errors.New("Ca học phải là số nguyên dương.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var conflict *application.ConflictError
	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.As(err, &conflict):
		ids := make([]string, 0, len(conflict.Occupants))
		for _, b := range conflict.Occupants {
			ids = append(ids, b.ID)
		}
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:   "SLOT_CONFLICT",
			Message:     "Phòng đã được đặt trong ca này.",
			ConflictIDs: ids,
		})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_CONFLICT",
			Message:   "Phòng đã được đặt trong ca này.",
		})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TRANSITION",
			Message:   "Không thể thay đổi trạng thái của yêu cầu đặt phòng này.",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "Bản ghi đã tồn tại.",
		})
	case errors.Is(err, application.ErrUnauthenticated), errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   localizedStatusMessage(http.StatusUnauthorized),
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   localizedStatusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "TIMEOUT",
			Message:   localizedStatusMessage(http.StatusServiceUnavailable),
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Yêu cầu không hợp lệ."
	case http.StatusUnauthorized:
		return "Cần xác thực người dùng."
	case http.StatusForbidden:
		return "Bạn không có quyền thực hiện thao tác này."
	case http.StatusNotFound:
		return "Không tìm thấy tài nguyên được yêu cầu."
	case http.StatusConflict:
		return "Yêu cầu xung đột với trạng thái hiện tại."
	case http.StatusUnprocessableEntity:
		return "Dữ liệu nhập không hợp lệ."
	case http.StatusTooManyRequests:
		return "Quá nhiều yêu cầu, vui lòng thử lại sau."
	case http.StatusServiceUnavailable:
		return "Yêu cầu đã hết thời gian xử lý."
	default:
		return "Đã xảy ra lỗi máy chủ."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "is required":
		return "Trường này là bắt buộc."
	case "is invalid":
		return "Giá trị không hợp lệ."
	case "must be a valid email address":
		return "Email không hợp lệ."
	case "must be a date in dd/mm/yyyy format":
		return "Ngày phải có định dạng dd/mm/yyyy."
	case "must be positive":
		return "Giá trị phải lớn hơn 0."
	case "must not be negative":
		return "Giá trị không được âm."
	case "is too long":
		return "Giá trị quá dài."
	case "is too short":
		return "Giá trị quá ngắn."
	case "room does not exist":
		return "Phòng không tồn tại."
	case "slot does not exist":
		return "Ca học không tồn tại."
	case "role is not supported":
		return "Vai trò không được hỗ trợ."
	case "status is not supported":
		return "Trạng thái không được hỗ trợ."
	case "must be a valid phone number":
		return "Số điện thoại không hợp lệ."
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode   string            `json:"error_code,omitempty"`
	Message     string            `json:"message"`
	Errors      map[string]string `json:"errors,omitempty"`
	ConflictIDs []string          `json:"conflicting_booking_ids,omitempty"`
}

// requirePrincipal writes 401 and returns false when the request is anonymous.
func (r responder) requirePrincipal(w http.ResponseWriter, req *http.Request) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(req.Context())
	if !ok {
		r.writeJSON(req.Context(), w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   errMissingIdentity.Error(),
		})
		return application.Principal{}, false
	}
	return principal, true
}

func decodeJSON(req *http.Request, dst any) error {
	return json.NewDecoder(req.Body).Decode(dst)
}

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

type userService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (persistence.User, error)
	UpdatePassword(ctx context.Context, params application.UpdatePasswordParams) error
	ListUsers(ctx context.Context, principal application.Principal) ([]persistence.User, error)
	FindByEmail(ctx context.Context, email string) (persistence.User, error)
}

type userBookingQueries interface {
	BookingsByUser(ctx context.Context, userCode string) ([]persistence.Booking, error)
}

type UserHandler struct {
	service   userService
	queries   userBookingQueries
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, queries userBookingQueries, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, queries: queries, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// Create registers an account. Anonymous callers may only register students.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode user request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "user_code", req.Code)

	user, err := h.service.CreateUser(r.Context(), application.CreateUserParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "user creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "user created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	logger := h.log(r.Context(), "List")
	users, err := h.service.ListUsers(r.Context(), principal)
	if err != nil {
		logger.WarnContext(r.Context(), "user list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(users)).DebugContext(r.Context(), "users listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listUsersResponse{Users: toUserDTOs(users)})
}

// Me returns the account of the acting user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	user, err := h.service.FindByEmail(r.Context(), principal.Email)
	if err != nil {
		h.log(r.Context(), "Me").WarnContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdatePassword", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode password change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdatePassword")
	err := h.service.UpdatePassword(r.Context(), application.UpdatePasswordParams{
		Principal:   principal,
		NewPassword: req.Password,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "password change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "password changed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Bookings lists the bookings made by the user with the given code. Users may
// read their own history; staff may read anyone's.
func (h *UserHandler) Bookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h == nil || h.queries == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.responder.requirePrincipal(w, r)
	if !ok {
		return
	}

	code := strings.TrimSpace(ps.ByName("code"))
	if code == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserCode)
		return
	}

	logger := h.log(r.Context(), "Bookings", "user_code", code)
	if !principal.CanListUsers() && !strings.EqualFold(principal.Code, code) {
		logger.WarnContext(r.Context(), "booking history denied", "error_kind", application.ErrorKind(application.ErrUnauthorized))
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	bookings, err := h.queries.BookingsByUser(r.Context(), code)
	if err != nil {
		logger.WarnContext(r.Context(), "booking history lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

type userRequest struct {
	Code        string `json:"ma_nguoi_dung"`
	Name        string `json:"ten_nguoi_dung"`
	DateOfBirth string `json:"ngay_sinh"`
	Sex         string `json:"gioi_tinh"`
	Email       string `json:"email"`
	Phone       string `json:"so_dien_thoai"`
	Password    string `json:"mat_khau"`
	Role        string `json:"vai_tro"`
}

func (r userRequest) toInput() application.UserInput {
	return application.UserInput{
		Code:        strings.TrimSpace(r.Code),
		Name:        strings.TrimSpace(r.Name),
		DateOfBirth: strings.TrimSpace(r.DateOfBirth),
		Sex:         strings.TrimSpace(r.Sex),
		Email:       strings.TrimSpace(r.Email),
		Phone:       strings.TrimSpace(r.Phone),
		Password:    r.Password,
		Role:        persistence.Role(strings.ToLower(strings.TrimSpace(r.Role))),
	}
}

type passwordRequest struct {
	Password string `json:"mat_khau"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}

type userDTO struct {
	ID          string `json:"_id"`
	Code        string `json:"ma_nguoi_dung"`
	Name        string `json:"ten_nguoi_dung"`
	DateOfBirth string `json:"ngay_sinh"`
	Sex         string `json:"gioi_tinh"`
	Email       string `json:"email"`
	Phone       string `json:"so_dien_thoai"`
	Role        string `json:"vai_tro"`
}

func toUserDTO(user persistence.User) userDTO {
	return userDTO{
		ID:          user.ID,
		Code:        user.Code,
		Name:        user.Name,
		DateOfBirth: user.DateOfBirth,
		Sex:         user.Sex,
		Email:       user.Email,
		Phone:       user.Phone,
		Role:        string(user.Role),
	}
}

func toUserDTOs(users []persistence.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	return out
}

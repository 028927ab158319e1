package application

import (
	"strings"

	"github.com/cmc-edu/room-booking/internal/persistence"
)

// Principal represents the user invoking a service method, as asserted by the
// web layer.
type Principal struct {
	Email string
	Code  string
	Name  string
	Role  persistence.Role
}

// CanDecideBookings reports whether the principal may approve or reject bookings.
func (p Principal) CanDecideBookings() bool {
	return p.Role == persistence.RolePCTSV || p.Role == persistence.RoleAdmin
}

// CanManageRooms reports whether the principal may edit the room catalog.
func (p Principal) CanManageRooms() bool {
	return p.Role == persistence.RolePCTSV || p.Role == persistence.RoleAdmin
}

// CanListUsers reports whether the principal may see every account.
func (p Principal) CanListUsers() bool {
	return p.Role == persistence.RoleAdmin || p.Role == persistence.RolePCTSV || p.Role == persistence.RoleSecurity
}

// Is reports whether the principal is the account with the given email.
func (p Principal) Is(email string) bool {
	return p.Email != "" && strings.EqualFold(strings.TrimSpace(email), p.Email)
}

// PrincipalFromUser builds a principal from a stored account.
func PrincipalFromUser(user persistence.User) Principal {
	return Principal{Email: user.Email, Code: user.Code, Name: user.Name, Role: user.Role}
}

// ConflictPolicy decides what CreateBooking does when the slot is taken.
type ConflictPolicy string

const (
	// ConflictReject refuses the request with ErrConflict.
	ConflictReject ConflictPolicy = "reject"
	// ConflictQueue stores the request as pending for staff to resolve.
	ConflictQueue ConflictPolicy = "queue"
)

// Valid reports whether the policy is one of the known policies.
func (p ConflictPolicy) Valid() bool {
	return p == ConflictReject || p == ConflictQueue
}

// CreateBookingParams wraps the data required to request a room.
type CreateBookingParams struct {
	Principal Principal
	RoomCode  string `field:"Ma_phong" validate:"required,max=64"`
	Date      string `field:"Ngay" validate:"required,ddmmyyyy"`
	Slot      string `field:"Ca" validate:"required,max=64"`
	Reason    string `field:"Ly_do" validate:"max=500"`
	// Requester fields default to the principal when empty.
	Email    string `field:"Email" validate:"omitempty,email"`
	UserCode string `field:"Ma_nguoi_dung" validate:"max=64"`
	UserName string `field:"Ten_nguoi_dung" validate:"max=200"`
}

// ApproveParams identifies the booking a staff member approves.
type ApproveParams struct {
	Principal Principal
	BookingID string
}

// RejectParams identifies the booking a staff member rejects and why.
type RejectParams struct {
	Principal Principal
	BookingID string
	Reason    string `field:"Ly_do_tu_choi" validate:"required,max=500"`
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Code        string  `field:"Ma_phong" validate:"required,max=64"`
	Number      int     `field:"So_phong" validate:"gte=0"`
	Campus      string  `field:"Co_so" validate:"required,max=64"`
	AreaM2      float64 `field:"Dien_tich" validate:"gte=0"`
	Equipment   string  `field:"Co_so_vat_chat" validate:"max=1000"`
	Capacity    int     `field:"Suc_chua" validate:"gt=0"`
	Description string  `field:"Mo_ta" validate:"max=2000"`
	Rules       string  `field:"Quy_dinh" validate:"max=2000"`
	Status      persistence.RoomStatus
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to patch a room.
type UpdateRoomParams struct {
	Principal Principal
	Code      string
	Patch     persistence.RoomPatch
}

// UserInput captures caller provided account fields at registration.
type UserInput struct {
	Code        string           `field:"ma_nguoi_dung" validate:"required,max=64"`
	Name        string           `field:"ten_nguoi_dung" validate:"required,max=200"`
	DateOfBirth string           `field:"ngay_sinh"`
	Sex         string           `field:"gioi_tinh" validate:"max=16"`
	Email       string           `field:"email" validate:"required,email"`
	Phone       string           `field:"so_dien_thoai"`
	Password    string           `field:"mat_khau" validate:"required,min=6,max=128"`
	Role        persistence.Role `field:"vai_tro"`
}

// CreateUserParams wraps the data required to register an account. Principal
// may be empty for self registration.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdatePasswordParams changes the password of the principal's own account.
type UpdatePasswordParams struct {
	Principal   Principal
	NewPassword string `field:"mat_khau" validate:"required,min=6,max=128"`
}

package persistence

import (
	"strings"
	"time"
)

// Role identifies what a user account is allowed to do.
type Role string

const (
	RoleStudent  Role = "student"
	RoleTeacher  Role = "teacher"
	RoleAdmin    Role = "admin"
	RolePCTSV    Role = "pctsv"
	RoleSecurity Role = "security"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RolePCTSV, RoleSecurity:
		return true
	}
	return false
}

// RoomStatus is informational only; availability is derived from bookings.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomBooked      RoomStatus = "booked"
	RoomMaintenance RoomStatus = "maintenance"
)

// Valid reports whether the status is one of the known room states.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomBooked, RoomMaintenance:
		return true
	}
	return false
}

// BookingStatus tracks where a booking is in the approval workflow.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Active reports whether the booking still occupies its slot.
func (s BookingStatus) Active() bool {
	return s != BookingCancelled
}

// Valid reports whether the status is one of the known booking states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

// User represents a student, teacher or staff account.
type User struct {
	ID           string
	Code         string
	Name         string
	DateOfBirth  string
	Sex          string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable room on one of the campuses.
type Room struct {
	ID          string
	Code        string
	Number      int
	Campus      string
	AreaM2      float64
	Equipment   string
	Capacity    int
	Description string
	Rules       string
	Status      RoomStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Booking is a request to use a room on a date during a time slot. Requester
// fields are copies taken at booking time.
type Booking struct {
	ID              string
	RoomCode        string
	Date            string
	Email           string
	UserCode        string
	UserName        string
	Reason          string
	Slot            string
	BookedOn        string
	Status          BookingStatus
	RejectionReason string
	DecidedBy       string
	DecidedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ScheduleSlot maps a teaching period to its wall-clock interval.
type ScheduleSlot struct {
	ID        string
	Period    int
	Start     string
	End       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPatch carries a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Name         *string
	DateOfBirth  *string
	Sex          *string
	Phone        *string
	PasswordHash *string
	Role         *Role
}

// RoomPatch carries a partial room update.
type RoomPatch struct {
	Number      *int
	Campus      *string
	AreaM2      *float64
	Equipment   *string
	Capacity    *int
	Description *string
	Rules       *string
	Status      *RoomStatus
}

// BookingPatch carries a partial booking update.
type BookingPatch struct {
	Reason          *string
	Status          *BookingStatus
	RejectionReason *string
	DecidedBy       *string
	DecidedAt       *time.Time
}

// SlotPatch carries a partial schedule slot update.
type SlotPatch struct {
	Start *string
	End   *string
}

// BookingFilter narrows booking listings. Empty fields match everything.
type BookingFilter struct {
	RoomCode string
	UserCode string
	Email    string
	Date     string
	Slot     string
	Status   BookingStatus
}

// Matches reports whether the booking satisfies every non-empty filter field.
func (f BookingFilter) Matches(b Booking) bool {
	if f.RoomCode != "" && b.RoomCode != f.RoomCode {
		return false
	}
	if f.UserCode != "" && b.UserCode != f.UserCode {
		return false
	}
	if f.Email != "" && !strings.EqualFold(b.Email, f.Email) {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.Slot != "" && b.Slot != f.Slot {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

// Counts reports the number of records held for each entity kind.
type Counts struct {
	Users    int
	Rooms    int
	Bookings int
	Slots    int
}

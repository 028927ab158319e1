package persistence

import "context"

// UserRepository exposes keyed CRUD for users. Email is the natural key and is
// compared case-insensitively.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByCode(ctx context.Context, code string) (User, error)
	UpdateUser(ctx context.Context, email string, patch UserPatch) error
	DeleteUser(ctx context.Context, email string) error
	ListUsers(ctx context.Context) ([]User, error)
}

// RoomRepository exposes keyed CRUD for rooms, keyed by room code.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, code string) (Room, error)
	UpdateRoom(ctx context.Context, code string, patch RoomPatch) error
	DeleteRoom(ctx context.Context, code string) error
	ListRooms(ctx context.Context) ([]Room, error)
}

// BookingRepository exposes keyed CRUD for bookings, keyed by booking ID.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, id string, patch BookingPatch) error
	DeleteBooking(ctx context.Context, id string) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// SlotRepository exposes keyed CRUD for the schedule table, keyed by period.
type SlotRepository interface {
	CreateSlot(ctx context.Context, slot ScheduleSlot) (ScheduleSlot, error)
	GetSlot(ctx context.Context, period int) (ScheduleSlot, error)
	UpdateSlot(ctx context.Context, period int, patch SlotPatch) error
	DeleteSlot(ctx context.Context, period int) error
	ListSlots(ctx context.Context) ([]ScheduleSlot, error)
}

// BookingTx is the view of the store available inside WithinTx. Every call
// made through it belongs to the same atomic unit.
type BookingTx interface {
	GetRoom(code string) (Room, error)
	GetBooking(id string) (Booking, error)
	ListBookings(filter BookingFilter) ([]Booking, error)
	CreateBooking(booking Booking) (Booking, error)
	UpdateBooking(id string, patch BookingPatch) error
}

// Store aggregates every repository together with the transactional entry point.
type Store interface {
	UserRepository
	RoomRepository
	BookingRepository
	SlotRepository

	// WithinTx runs fn as one atomic unit with respect to every other write.
	WithinTx(ctx context.Context, fn func(tx BookingTx) error) error
	Counts(ctx context.Context) (Counts, error)
	Close() error
}

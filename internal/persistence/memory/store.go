package memory

import (
	"context"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cmc-edu/room-booking/internal/persistence"
)

// Store keeps every entity in process memory behind a single lock. Listing
// preserves insertion order.
type Store struct {
	mu sync.RWMutex

	users     map[string]persistence.User
	userOrder []string

	rooms     map[string]persistence.Room
	roomOrder []string

	bookings     map[string]persistence.Booking
	bookingOrder []string

	slots     map[int]persistence.ScheduleSlot
	slotOrder []int

	newID      func() string
	now        func() time.Time
	minLatency time.Duration
	maxLatency time.Duration
}

// Option customises a Store.
type Option func(*Store)

// WithIDGenerator overrides the record id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides the clock used for CreatedAt/UpdatedAt.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLatency makes every call wait a random duration in [min, max] before
// touching the data, the way a remote document store would.
func WithLatency(min, max time.Duration) Option {
	return func(s *Store) {
		if min < 0 {
			min = 0
		}
		if max < min {
			max = min
		}
		s.minLatency = min
		s.maxLatency = max
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		users:    make(map[string]persistence.User),
		rooms:    make(map[string]persistence.Room),
		bookings: make(map[string]persistence.Booking),
		slots:    make(map[int]persistence.ScheduleSlot),
		newID:    persistence.NewObjectID,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ persistence.Store = (*Store)(nil)

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) delay(ctx context.Context) error {
	if s.maxLatency <= 0 {
		return ctx.Err()
	}
	wait := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		wait += time.Duration(rand.Int64N(int64(span) + 1))
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithinTx runs fn while holding the write lock, so nothing else can observe
// or change the store until fn returns. Booking writes made by fn are undone
// when it returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(tx persistence.BookingTx) error) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := maps.Clone(s.bookings)
	savedOrder := slices.Clone(s.bookingOrder)
	if err := fn(lockedTx{s: s}); err != nil {
		s.bookings = saved
		s.bookingOrder = savedOrder
		return err
	}
	return nil
}

// Counts reports how many records of each kind are held.
func (s *Store) Counts(ctx context.Context) (persistence.Counts, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.Counts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return persistence.Counts{
		Users:    len(s.users),
		Rooms:    len(s.rooms),
		Bookings: len(s.bookings),
		Slots:    len(s.slots),
	}, nil
}

// --- users ---

func userKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user. Email and code must be unused.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(user.Email)
	if key == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}
	if _, ok := s.users[key]; ok {
		return persistence.User{}, persistence.ErrDuplicate
	}
	if user.Code != "" {
		for _, existing := range s.users {
			if existing.Code == user.Code {
				return persistence.User{}, persistence.ErrDuplicate
			}
		}
	}

	if user.ID == "" {
		user.ID = s.newID()
	}
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[key] = user
	s.userOrder = append(s.userOrder, key)
	return user, nil
}

// GetUserByEmail looks a user up by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userKey(email)]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByCode looks a user up by ma_nguoi_dung.
func (s *Store) GetUserByCode(ctx context.Context, code string) (persistence.User, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.userOrder {
		if s.users[key].Code == code {
			return s.users[key], nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// UpdateUser merges the patch into the user identified by email.
func (s *Store) UpdateUser(ctx context.Context, email string, patch persistence.UserPatch) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(email)
	user, ok := s.users[key]
	if !ok {
		return persistence.ErrNotFound
	}
	patch.Apply(&user)
	user.UpdatedAt = s.now()
	s.users[key] = user
	return nil
}

// DeleteUser removes the user identified by email.
func (s *Store) DeleteUser(ctx context.Context, email string) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(email)
	if _, ok := s.users[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, key)
	s.userOrder = removeKey(s.userOrder, key)
	return nil
}

// ListUsers returns every user in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.userOrder))
	for _, key := range s.userOrder {
		users = append(users, s.users[key])
	}
	return users, nil
}

// --- rooms ---

// CreateRoom stores a new room. The code must be unused.
func (s *Store) CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.Room{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if room.Code == "" {
		return persistence.Room{}, persistence.ErrConstraintViolation
	}
	if _, ok := s.rooms[room.Code]; ok {
		return persistence.Room{}, persistence.ErrDuplicate
	}
	if room.ID == "" {
		room.ID = s.newID()
	}
	now := s.now()
	room.CreatedAt = now
	room.UpdatedAt = now

	s.rooms[room.Code] = room
	s.roomOrder = append(s.roomOrder, room.Code)
	return room, nil
}

// GetRoom looks a room up by code.
func (s *Store) GetRoom(ctx context.Context, code string) (persistence.Room, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.Room{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRoomLocked(code)
}

func (s *Store) getRoomLocked(code string) (persistence.Room, error) {
	room, ok := s.rooms[code]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

// UpdateRoom merges the patch into the room identified by code.
func (s *Store) UpdateRoom(ctx context.Context, code string, patch persistence.RoomPatch) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return persistence.ErrNotFound
	}
	patch.Apply(&room)
	room.UpdatedAt = s.now()
	s.rooms[code] = room
	return nil
}

// DeleteRoom removes the room identified by code. Bookings are kept.
func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[code]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.rooms, code)
	s.roomOrder = removeKey(s.roomOrder, code)
	return nil
}

// ListRooms returns every room in insertion order.
func (s *Store) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.roomOrder))
	for _, code := range s.roomOrder {
		rooms = append(rooms, s.rooms[code])
	}
	return rooms, nil
}

// --- bookings ---

// CreateBooking stores a new booking. A second confirmed booking for the same
// room, date and slot is refused with persistence.ErrConflict.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createBookingLocked(booking)
}

func (s *Store) createBookingLocked(booking persistence.Booking) (persistence.Booking, error) {
	if booking.RoomCode == "" || booking.Date == "" || booking.Slot == "" {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}
	if booking.Status == "" {
		booking.Status = persistence.BookingPending
	}
	if booking.ID == "" {
		booking.ID = s.newID()
	}
	if _, ok := s.bookings[booking.ID]; ok {
		return persistence.Booking{}, persistence.ErrDuplicate
	}
	if booking.Status == persistence.BookingConfirmed && s.confirmedClashLocked(booking) {
		return persistence.Booking{}, persistence.ErrConflict
	}

	now := s.now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking = booking.Clone()

	s.bookings[booking.ID] = booking
	s.bookingOrder = append(s.bookingOrder, booking.ID)
	return booking.Clone(), nil
}

func (s *Store) confirmedClashLocked(booking persistence.Booking) bool {
	for id, other := range s.bookings {
		if id != booking.ID && other.Status == persistence.BookingConfirmed && other.SameSlot(booking) {
			return true
		}
	}
	return false
}

// GetBooking looks a booking up by id.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.Booking{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBookingLocked(id)
}

func (s *Store) getBookingLocked(id string) (persistence.Booking, error) {
	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking.Clone(), nil
}

// UpdateBooking merges the patch into the booking identified by id.
func (s *Store) UpdateBooking(ctx context.Context, id string, patch persistence.BookingPatch) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateBookingLocked(id, patch)
}

func (s *Store) updateBookingLocked(id string, patch persistence.BookingPatch) error {
	booking, ok := s.bookings[id]
	if !ok {
		return persistence.ErrNotFound
	}
	patch.Apply(&booking)
	if booking.Status == persistence.BookingConfirmed && s.confirmedClashLocked(booking) {
		return persistence.ErrConflict
	}
	booking.UpdatedAt = s.now()
	s.bookings[id] = booking
	return nil
}

// DeleteBooking removes the booking identified by id.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	s.bookingOrder = removeKey(s.bookingOrder, id)
	return nil
}

// ListBookings returns the bookings matching filter in insertion order.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listBookingsLocked(filter), nil
}

func (s *Store) listBookingsLocked(filter persistence.BookingFilter) []persistence.Booking {
	bookings := make([]persistence.Booking, 0)
	for _, id := range s.bookingOrder {
		booking := s.bookings[id]
		if filter.Matches(booking) {
			bookings = append(bookings, booking.Clone())
		}
	}
	return bookings
}

// --- schedule slots ---

// CreateSlot stores a schedule period. The period number must be unused.
func (s *Store) CreateSlot(ctx context.Context, slot persistence.ScheduleSlot) (persistence.ScheduleSlot, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.ScheduleSlot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot.Period <= 0 {
		return persistence.ScheduleSlot{}, persistence.ErrConstraintViolation
	}
	if _, ok := s.slots[slot.Period]; ok {
		return persistence.ScheduleSlot{}, persistence.ErrDuplicate
	}
	if slot.ID == "" {
		slot.ID = s.newID()
	}
	now := s.now()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	s.slots[slot.Period] = slot
	s.slotOrder = append(s.slotOrder, slot.Period)
	return slot, nil
}

// GetSlot looks a schedule period up by number.
func (s *Store) GetSlot(ctx context.Context, period int) (persistence.ScheduleSlot, error) {
	if err := s.delay(ctx); err != nil {
		return persistence.ScheduleSlot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[period]
	if !ok {
		return persistence.ScheduleSlot{}, persistence.ErrNotFound
	}
	return slot, nil
}

// UpdateSlot merges the patch into the period.
func (s *Store) UpdateSlot(ctx context.Context, period int, patch persistence.SlotPatch) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[period]
	if !ok {
		return persistence.ErrNotFound
	}
	patch.Apply(&slot)
	slot.UpdatedAt = s.now()
	s.slots[period] = slot
	return nil
}

// DeleteSlot removes a schedule period.
func (s *Store) DeleteSlot(ctx context.Context, period int) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[period]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.slots, period)
	s.slotOrder = removeKey(s.slotOrder, period)
	return nil
}

// ListSlots returns every schedule period in insertion order.
func (s *Store) ListSlots(ctx context.Context) ([]persistence.ScheduleSlot, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]persistence.ScheduleSlot, 0, len(s.slotOrder))
	for _, period := range s.slotOrder {
		slots = append(slots, s.slots[period])
	}
	return slots, nil
}

// lockedTx is handed to WithinTx callbacks; the caller already holds s.mu.
type lockedTx struct {
	s *Store
}

func (t lockedTx) GetRoom(code string) (persistence.Room, error) {
	return t.s.getRoomLocked(code)
}

func (t lockedTx) GetBooking(id string) (persistence.Booking, error) {
	return t.s.getBookingLocked(id)
}

func (t lockedTx) ListBookings(filter persistence.BookingFilter) ([]persistence.Booking, error) {
	return t.s.listBookingsLocked(filter), nil
}

func (t lockedTx) CreateBooking(booking persistence.Booking) (persistence.Booking, error) {
	return t.s.createBookingLocked(booking)
}

func (t lockedTx) UpdateBooking(id string, patch persistence.BookingPatch) error {
	return t.s.updateBookingLocked(id, patch)
}

// --- helpers ---

func removeKey[K comparable](keys []K, target K) []K {
	if i := slices.Index(keys, target); i >= 0 {
		return slices.Delete(keys, i, i+1)
	}
	return keys
}

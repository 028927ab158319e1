package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmc-edu/room-booking/internal/persistence"
	_ "modernc.org/sqlite"
)

// DefaultDSN keeps the database in memory for the lifetime of the process.
const DefaultDSN = ":memory:"

// Store implements persistence.Store on SQLite through database/sql. A single
// connection is used, so transactions are serialized.
type Store struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
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

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: apply schema: %w", err)
		}
	}

	s := &Store{
		db:    db,
		newID: persistence.NewObjectID,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ persistence.Store = (*Store)(nil)

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// WithinTx runs fn inside one database transaction. The transaction is
// rolled back when fn returns an error or panics, or when ctx is done before
// commit. Cancelling ctx never closes the connection, which for an in-memory
// database holds all data.
func (s *Store) WithinTx(ctx context.Context, fn func(tx persistence.BookingTx) error) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.tx.Rollback()
			panic(p)
		}
	}()
	return tx.finish(fn(txView{s: s, ctx: tx.detached, q: tx}))
}

// Counts reports how many records of each kind are held.
func (s *Store) Counts(ctx context.Context) (persistence.Counts, error) {
	var counts persistence.Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM rooms),
		(SELECT COUNT(*) FROM bookings),
		(SELECT COUNT(*) FROM schedule_slots)`).
		Scan(&counts.Users, &counts.Rooms, &counts.Bookings, &counts.Slots)
	if err != nil {
		return persistence.Counts{}, mapError(err)
	}
	return counts, nil
}

// --- users ---

const userColumns = `id, code, name, date_of_birth, sex, email, phone, password_hash, role, created_at, updated_at`

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a user. Email and code must be unused.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	if emailKey(user.Email) == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}
	if user.ID == "" {
		user.ID = s.newID()
	}
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO users
		(id, code, name, date_of_birth, sex, email, email_key, phone, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Code, user.Name, user.DateOfBirth, user.Sex, user.Email, emailKey(user.Email),
		user.Phone, user.PasswordHash, string(user.Role), formatTime(user.CreatedAt), formatTime(user.UpdatedAt),
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

// GetUserByEmail looks a user up by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email_key = ?`, emailKey(email))
	return scanUser(row)
}

// GetUserByCode looks a user up by ma_nguoi_dung.
func (s *Store) GetUserByCode(ctx context.Context, code string) (persistence.User, error) {
	if code == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE code = ?`, code)
	return scanUser(row)
}

// UpdateUser merges the patch into the user identified by email.
func (s *Store) UpdateUser(ctx context.Context, email string, patch persistence.UserPatch) error {
	return s.inTx(ctx, func(q querier) error {
		row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email_key = ?`, emailKey(email))
		user, err := scanUser(row)
		if err != nil {
			return err
		}
		patch.Apply(&user)
		_, err = q.ExecContext(ctx, `UPDATE users SET
			name = ?, date_of_birth = ?, sex = ?, phone = ?, password_hash = ?, role = ?, updated_at = ?
			WHERE id = ?`,
			user.Name, user.DateOfBirth, user.Sex, user.Phone, user.PasswordHash, string(user.Role),
			formatTime(s.now()), user.ID,
		)
		return mapError(err)
	})
}

// DeleteUser removes the user identified by email.
func (s *Store) DeleteUser(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE email_key = ?`, emailKey(email))
	return affectedOne(res, err)
}

// ListUsers returns every user in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY rowid`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, mapError(rows.Err())
}

func scanUser(row scanner) (persistence.User, error) {
	var (
		user                 persistence.User
		role                 string
		createdAt, updatedAt string
	)
	err := row.Scan(&user.ID, &user.Code, &user.Name, &user.DateOfBirth, &user.Sex, &user.Email,
		&user.Phone, &user.PasswordHash, &role, &createdAt, &updatedAt)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	user.Role = persistence.Role(role)
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// --- rooms ---

const roomColumns = `id, code, number, campus, area_m2, equipment, capacity, description, rules, status, created_at, updated_at`

// CreateRoom inserts a room. The code must be unused.
func (s *Store) CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	if room.Code == "" {
		return persistence.Room{}, persistence.ErrConstraintViolation
	}
	if room.ID == "" {
		room.ID = s.newID()
	}
	now := s.now()
	room.CreatedAt = now
	room.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.Code, room.Number, room.Campus, room.AreaM2, room.Equipment, room.Capacity,
		room.Description, room.Rules, string(room.Status), formatTime(room.CreatedAt), formatTime(room.UpdatedAt),
	)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	return room, nil
}

// GetRoom looks a room up by code.
func (s *Store) GetRoom(ctx context.Context, code string) (persistence.Room, error) {
	return getRoom(ctx, s.db, code)
}

func getRoom(ctx context.Context, q querier, code string) (persistence.Room, error) {
	row := q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = ?`, code)
	return scanRoom(row)
}

// UpdateRoom merges the patch into the room identified by code.
func (s *Store) UpdateRoom(ctx context.Context, code string, patch persistence.RoomPatch) error {
	return s.inTx(ctx, func(q querier) error {
		room, err := getRoom(ctx, q, code)
		if err != nil {
			return err
		}
		patch.Apply(&room)
		_, err = q.ExecContext(ctx, `UPDATE rooms SET
			number = ?, campus = ?, area_m2 = ?, equipment = ?, capacity = ?, description = ?,
			rules = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			room.Number, room.Campus, room.AreaM2, room.Equipment, room.Capacity, room.Description,
			room.Rules, string(room.Status), formatTime(s.now()), room.ID,
		)
		return mapError(err)
	})
}

// DeleteRoom removes the room identified by code. Bookings are kept.
func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code)
	return affectedOne(res, err)
}

// ListRooms returns every room in insertion order.
func (s *Store) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY rowid`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	rooms := make([]persistence.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, mapError(rows.Err())
}

func scanRoom(row scanner) (persistence.Room, error) {
	var (
		room                 persistence.Room
		status               string
		createdAt, updatedAt string
	)
	err := row.Scan(&room.ID, &room.Code, &room.Number, &room.Campus, &room.AreaM2, &room.Equipment,
		&room.Capacity, &room.Description, &room.Rules, &status, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	room.Status = persistence.RoomStatus(status)
	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

// --- bookings ---

const bookingColumns = `id, room_code, date, email, user_code, user_name, reason, slot, booked_on, status,
	rejection_reason, decided_by, decided_at, created_at, updated_at`

// CreateBooking inserts a booking. The partial unique index refuses a second
// confirmed booking for the same room, date and slot.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	return s.createBooking(ctx, s.db, booking)
}

func (s *Store) createBooking(ctx context.Context, q querier, booking persistence.Booking) (persistence.Booking, error) {
	if booking.RoomCode == "" || booking.Date == "" || booking.Slot == "" {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}
	if booking.Status == "" {
		booking.Status = persistence.BookingPending
	}
	if booking.ID == "" {
		booking.ID = s.newID()
	}
	now := s.now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking = booking.Clone()

	_, err := q.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.RoomCode, booking.Date, booking.Email, booking.UserCode, booking.UserName,
		booking.Reason, booking.Slot, booking.BookedOn, string(booking.Status), booking.RejectionReason,
		booking.DecidedBy, nullableTime(booking.DecidedAt), formatTime(booking.CreatedAt), formatTime(booking.UpdatedAt),
	)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return booking, nil
}

// GetBooking looks a booking up by id.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	return getBooking(ctx, s.db, id)
}

func getBooking(ctx context.Context, q querier, id string) (persistence.Booking, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// UpdateBooking merges the patch into the booking identified by id.
func (s *Store) UpdateBooking(ctx context.Context, id string, patch persistence.BookingPatch) error {
	return s.inTx(ctx, func(q querier) error {
		return s.updateBooking(ctx, q, id, patch)
	})
}

func (s *Store) updateBooking(ctx context.Context, q querier, id string, patch persistence.BookingPatch) error {
	booking, err := getBooking(ctx, q, id)
	if err != nil {
		return err
	}
	patch.Apply(&booking)
	_, err = q.ExecContext(ctx, `UPDATE bookings SET
		reason = ?, status = ?, rejection_reason = ?, decided_by = ?, decided_at = ?, updated_at = ?
		WHERE id = ?`,
		booking.Reason, string(booking.Status), booking.RejectionReason, booking.DecidedBy,
		nullableTime(booking.DecidedAt), formatTime(s.now()), booking.ID,
	)
	return mapError(err)
}

// DeleteBooking removes the booking identified by id.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return affectedOne(res, err)
}

// ListBookings returns the bookings matching filter in insertion order.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	return listBookings(ctx, s.db, filter)
}

func listBookings(ctx context.Context, q querier, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause, value string) {
		if value != "" {
			clauses = append(clauses, clause)
			args = append(args, value)
		}
	}
	add("room_code = ?", filter.RoomCode)
	add("user_code = ?", filter.UserCode)
	add("lower(email) = lower(?)", filter.Email)
	add("date = ?", filter.Date)
	add("slot = ?", filter.Slot)
	add("status = ?", string(filter.Status))

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY rowid`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	bookings := make([]persistence.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, mapError(rows.Err())
}

func scanBooking(row scanner) (persistence.Booking, error) {
	var (
		booking              persistence.Booking
		status               string
		decidedAt            sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&booking.ID, &booking.RoomCode, &booking.Date, &booking.Email, &booking.UserCode,
		&booking.UserName, &booking.Reason, &booking.Slot, &booking.BookedOn, &status,
		&booking.RejectionReason, &booking.DecidedBy, &decidedAt, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	booking.Status = persistence.BookingStatus(status)
	if decidedAt.Valid {
		at, err := parseTime(decidedAt.String)
		if err != nil {
			return persistence.Booking{}, err
		}
		booking.DecidedAt = &at
	}
	if booking.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

// --- schedule slots ---

const slotColumns = `id, period, start_time, end_time, created_at, updated_at`

// CreateSlot inserts a schedule period. The period number must be unused.
func (s *Store) CreateSlot(ctx context.Context, slot persistence.ScheduleSlot) (persistence.ScheduleSlot, error) {
	if slot.Period <= 0 {
		return persistence.ScheduleSlot{}, persistence.ErrConstraintViolation
	}
	if slot.ID == "" {
		slot.ID = s.newID()
	}
	now := s.now()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO schedule_slots (`+slotColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.Period, slot.Start, slot.End, formatTime(slot.CreatedAt), formatTime(slot.UpdatedAt))
	if err != nil {
		return persistence.ScheduleSlot{}, mapError(err)
	}
	return slot, nil
}

// GetSlot looks a schedule period up by number.
func (s *Store) GetSlot(ctx context.Context, period int) (persistence.ScheduleSlot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM schedule_slots WHERE period = ?`, period)
	return scanSlot(row)
}

// UpdateSlot merges the patch into the period.
func (s *Store) UpdateSlot(ctx context.Context, period int, patch persistence.SlotPatch) error {
	return s.inTx(ctx, func(q querier) error {
		row := q.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM schedule_slots WHERE period = ?`, period)
		slot, err := scanSlot(row)
		if err != nil {
			return err
		}
		patch.Apply(&slot)
		_, err = q.ExecContext(ctx, `UPDATE schedule_slots SET start_time = ?, end_time = ?, updated_at = ? WHERE id = ?`,
			slot.Start, slot.End, formatTime(s.now()), slot.ID)
		return mapError(err)
	})
}

// DeleteSlot removes a schedule period.
func (s *Store) DeleteSlot(ctx context.Context, period int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedule_slots WHERE period = ?`, period)
	return affectedOne(res, err)
}

// ListSlots returns every schedule period in insertion order.
func (s *Store) ListSlots(ctx context.Context) ([]persistence.ScheduleSlot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+slotColumns+` FROM schedule_slots ORDER BY rowid`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	slots := make([]persistence.ScheduleSlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, mapError(rows.Err())
}

func scanSlot(row scanner) (persistence.ScheduleSlot, error) {
	var (
		slot                 persistence.ScheduleSlot
		createdAt, updatedAt string
	)
	err := row.Scan(&slot.ID, &slot.Period, &slot.Start, &slot.End, &createdAt, &updatedAt)
	if err != nil {
		return persistence.ScheduleSlot{}, mapError(err)
	}
	if slot.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.ScheduleSlot{}, err
	}
	if slot.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.ScheduleSlot{}, err
	}
	return slot, nil
}

// txView adapts a *sql.Tx to persistence.BookingTx.
type txView struct {
	s   *Store
	ctx context.Context
	q   querier
}

func (t txView) GetRoom(code string) (persistence.Room, error) {
	return getRoom(t.ctx, t.q, code)
}

func (t txView) GetBooking(id string) (persistence.Booking, error) {
	return getBooking(t.ctx, t.q, id)
}

func (t txView) ListBookings(filter persistence.BookingFilter) ([]persistence.Booking, error) {
	return listBookings(t.ctx, t.q, filter)
}

func (t txView) CreateBooking(booking persistence.Booking) (persistence.Booking, error) {
	return t.s.createBooking(t.ctx, t.q, booking)
}

func (t txView) UpdateBooking(id string, patch persistence.BookingPatch) error {
	return t.s.updateBooking(t.ctx, t.q, id, patch)
}

// inTx wraps read-modify-write updates so a missing row leaves the table untouched.
func (s *Store) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	return tx.finish(fn(tx))
}

// guardedTx runs statements under a context detached from the caller, so
// database/sql never discards the connection on cancellation. Each statement
// first checks the caller's context.
type guardedTx struct {
	tx       *sql.Tx
	parent   context.Context
	detached context.Context
}

func (s *Store) begin(ctx context.Context) (*guardedTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	detached := context.WithoutCancel(ctx)
	tx, err := s.db.BeginTx(detached, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	return &guardedTx{tx: tx, parent: ctx, detached: detached}, nil
}

// stmtCtx hands a done caller context to database/sql, which then fails the
// statement before it touches the connection.
func (g *guardedTx) stmtCtx(ctx context.Context) context.Context {
	if g.parent.Err() != nil {
		return g.parent
	}
	return ctx
}

func (g *guardedTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return g.tx.ExecContext(g.stmtCtx(ctx), query, args...)
}

func (g *guardedTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return g.tx.QueryContext(g.stmtCtx(ctx), query, args...)
}

func (g *guardedTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return g.tx.QueryRowContext(g.stmtCtx(ctx), query, args...)
}

// finish commits when fnErr is nil and the caller is still waiting, and rolls
// back otherwise.
func (g *guardedTx) finish(fnErr error) error {
	if fnErr == nil {
		if err := g.parent.Err(); err != nil {
			fnErr = fmt.Errorf("sqlite: commit: %w", err)
		}
	}
	if fnErr != nil {
		if err := g.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return fmt.Errorf("sqlite: rollback (%v): %w", err, fnErr)
		}
		return fnErr
	}
	if err := g.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// --- helpers ---

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// mapError translates driver errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: bookings.room_code"):
		return fmt.Errorf("%w: %v", persistence.ErrConflict, err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(msg, "constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return fmt.Errorf("sqlite: %w", err)
}

package sqlite

// schema is applied on every Open. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		code          TEXT NOT NULL DEFAULT '',
		name          TEXT NOT NULL DEFAULT '',
		date_of_birth TEXT NOT NULL DEFAULT '',
		sex           TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL,
		email_key     TEXT NOT NULL UNIQUE,
		phone         TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_code_idx ON users(code) WHERE code <> ''`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id          TEXT PRIMARY KEY,
		code        TEXT NOT NULL UNIQUE,
		number      INTEGER NOT NULL DEFAULT 0,
		campus      TEXT NOT NULL DEFAULT '',
		area_m2     REAL NOT NULL DEFAULT 0,
		equipment   TEXT NOT NULL DEFAULT '',
		capacity    INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		rules       TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id               TEXT PRIMARY KEY,
		room_code        TEXT NOT NULL,
		date             TEXT NOT NULL,
		email            TEXT NOT NULL DEFAULT '',
		user_code        TEXT NOT NULL DEFAULT '',
		user_name        TEXT NOT NULL DEFAULT '',
		reason           TEXT NOT NULL DEFAULT '',
		slot             TEXT NOT NULL,
		booked_on        TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled')),
		rejection_reason TEXT NOT NULL DEFAULT '',
		decided_by       TEXT NOT NULL DEFAULT '',
		decided_at       TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_room_idx ON bookings(room_code, date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS bookings_confirmed_slot_idx
		ON bookings(room_code, date, slot) WHERE status = 'confirmed'`,
	`CREATE TABLE IF NOT EXISTS schedule_slots (
		id         TEXT PRIMARY KEY,
		period     INTEGER NOT NULL UNIQUE,
		start_time TEXT NOT NULL DEFAULT '',
		end_time   TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
}

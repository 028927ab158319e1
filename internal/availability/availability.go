// Package availability decides whether a room is free for a date and time
// slot. It works on booking snapshots and has no side effects.
package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/cmc-edu/room-booking/internal/persistence"
)

// DateLayout is the canonical dd/mm/yyyy form stored on bookings.
const DateLayout = "02/01/2006"

var dateLayouts = []string{"2/1/2006", "2006-01-02", "2-1-2006", "2.1.2006"}

// SlotKey identifies one bookable unit: a room on a date during a slot.
type SlotKey struct {
	Room string
	Date string
	Slot string
}

// NewSlotKey builds a normalized key. Dates that parse are rewritten to
// dd/mm/yyyy; everything else is trimmed and NFC-normalized.
func NewSlotKey(room, date, slot string) SlotKey {
	return SlotKey{
		Room: Normalize(room),
		Date: CanonicalDate(date),
		Slot: Normalize(slot),
	}
}

// KeyOf returns the normalized key a booking occupies.
func KeyOf(b persistence.Booking) SlotKey {
	return NewSlotKey(b.RoomCode, b.Date, b.Slot)
}

// String renders the key for logs and error messages.
func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Room, k.Date, k.Slot)
}

// Normalize trims s, collapses inner whitespace and applies Unicode NFC.
func Normalize(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// ParseDate accepts d/m/yyyy, dd/mm/yyyy and yyyy-mm-dd.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("availability: unrecognised date %q", s)
}

// CanonicalDate rewrites a parseable date as dd/mm/yyyy and otherwise returns
// the normalized input unchanged.
func CanonicalDate(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return Normalize(s)
	}
	return t.Format(DateLayout)
}

// ParseSlotPeriod extracts N from labels such as "Ca1", "Ca 1" or "ca1".
// Labels in any other form report ok=false.
func ParseSlotPeriod(label string) (period int, ok bool) {
	label = strings.TrimSpace(label)
	if len(label) < 3 || !strings.EqualFold(label[:2], "ca") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(label[2:]))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsAvailable reports whether no active booking occupies key. Room.Status is
// never consulted.
func IsAvailable(bookings []persistence.Booking, key SlotKey) bool {
	for _, b := range bookings {
		if b.Status.Active() && KeyOf(b) == key {
			return false
		}
	}
	return true
}

// Occupants returns the active bookings that hold key.
func Occupants(bookings []persistence.Booking, key SlotKey) []persistence.Booking {
	var out []persistence.Booking
	for _, b := range bookings {
		if b.Status.Active() && KeyOf(b) == key {
			out = append(out, b)
		}
	}
	return out
}

// ConfirmedOccupant returns the confirmed booking holding key, ignoring the
// booking with excludeID.
func ConfirmedOccupant(bookings []persistence.Booking, key SlotKey, excludeID string) (persistence.Booking, bool) {
	for _, b := range bookings {
		if b.ID == excludeID || b.Status != persistence.BookingConfirmed {
			continue
		}
		if KeyOf(b) == key {
			return b, true
		}
	}
	return persistence.Booking{}, false
}

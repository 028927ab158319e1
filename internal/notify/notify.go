// Package notify tells requesters about booking decisions. Delivery is best
// effort and never blocks the booking workflow.
package notify

import (
	"context"
	"log/slog"
)

// Notice carries the details shown to the requester.
type Notice struct {
	BookingID   string `json:"booking_id"`
	RoomCode    string `json:"room_code"`
	RoomName    string `json:"room_name"`
	BookerName  string `json:"booker_name"`
	BookerEmail string `json:"booker_email"`
	Date        string `json:"date"`
	Slot        string `json:"slot"`
	Purpose     string `json:"purpose"`
}

// Notifier delivers booking decisions.
type Notifier interface {
	BookingConfirmed(ctx context.Context, notice Notice) error
	BookingRejected(ctx context.Context, notice Notice, reason string) error
}

// LogNotifier writes notices to a structured logger instead of sending mail.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs through logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) BookingConfirmed(ctx context.Context, notice Notice) error {
	n.logger.InfoContext(ctx, "booking confirmation sent", noticeAttrs(notice)...)
	return nil
}

func (n *LogNotifier) BookingRejected(ctx context.Context, notice Notice, reason string) error {
	n.logger.InfoContext(ctx, "booking rejection sent", append(noticeAttrs(notice), "reason", reason)...)
	return nil
}

func noticeAttrs(n Notice) []any {
	return []any{
		"booking_id", n.BookingID,
		"room", n.RoomName,
		"to", n.BookerEmail,
		"date", n.Date,
		"slot", n.Slot,
	}
}

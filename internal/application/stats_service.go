package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cmc-edu/room-booking/internal/availability"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

// DashboardStats summarises rooms and bookings for the staff dashboard.
type DashboardStats struct {
	TotalRooms        int
	RoomsByStatus     map[persistence.RoomStatus]int
	TotalBookings     int
	BookingsByStatus  map[persistence.BookingStatus]int
	BookingsThisMonth int
}

// StatsReader captures the listings needed to build dashboard statistics.
type StatsReader interface {
	ListRooms(ctx context.Context) ([]persistence.Room, error)
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
}

// StatsService computes dashboard counters.
type StatsService struct {
	reader StatsReader
	now    func() time.Time
}

// NewStatsService constructs a stats service.
func NewStatsService(reader StatsReader, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{reader: reader, now: now}
}

// Dashboard counts rooms by informational status and bookings by workflow
// status. A booking counts toward the current month when its date falls in it.
func (s *StatsService) Dashboard(ctx context.Context) (DashboardStats, error) {
	if s == nil || s.reader == nil {
		return DashboardStats{}, fmt.Errorf("StatsService is not configured")
	}

	rooms, err := s.reader.ListRooms(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list rooms: %w", err)
	}
	bookings, err := s.reader.ListBookings(ctx, persistence.BookingFilter{})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list bookings: %w", err)
	}

	stats := DashboardStats{
		TotalRooms:       len(rooms),
		RoomsByStatus:    make(map[persistence.RoomStatus]int),
		TotalBookings:    len(bookings),
		BookingsByStatus: make(map[persistence.BookingStatus]int),
	}
	for _, room := range rooms {
		stats.RoomsByStatus[room.Status]++
	}

	now := s.now()
	for _, b := range bookings {
		stats.BookingsByStatus[b.Status]++
		date, err := availability.ParseDate(b.Date)
		if err != nil {
			continue
		}
		if date.Year() == now.Year() && date.Month() == now.Month() {
			stats.BookingsThisMonth++
		}
	}
	return stats, nil
}

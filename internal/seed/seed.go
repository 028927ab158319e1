// Package seed holds the reference dataset and loads it into an empty store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cmc-edu/room-booking/internal/persistence"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// User is a seed account. Password is plaintext and hashed on insert.
type User struct {
	ID          string `yaml:"_id,omitempty" json:"_id,omitempty"`
	Code        string `yaml:"ma_nguoi_dung" json:"ma_nguoi_dung"`
	Name        string `yaml:"ten_nguoi_dung" json:"ten_nguoi_dung"`
	DateOfBirth string `yaml:"ngay_sinh" json:"ngay_sinh"`
	Sex         string `yaml:"gioi_tinh" json:"gioi_tinh"`
	Email       string `yaml:"email" json:"email"`
	Phone       string `yaml:"so_dien_thoai" json:"so_dien_thoai"`
	Password    string `yaml:"mat_khau,omitempty" json:"-"`
	Role        string `yaml:"vai_tro" json:"vai_tro"`
}

// Room is a seed room.
type Room struct {
	ID          string  `yaml:"_id,omitempty" json:"_id,omitempty"`
	Code        string  `yaml:"Ma_phong" json:"Ma_phong"`
	Number      int     `yaml:"So_phong" json:"So_phong"`
	Campus      string  `yaml:"Co_so" json:"Co_so"`
	AreaM2      float64 `yaml:"Dien_tich (m2)" json:"Dien_tich (m2)"`
	Equipment   string  `yaml:"Co_so_vat_chat" json:"Co_so_vat_chat"`
	Capacity    int     `yaml:"Suc_chua" json:"Suc_chua"`
	Description string  `yaml:"Mo_ta" json:"Mo_ta"`
	Rules       string  `yaml:"Quy_dinh" json:"Quy_dinh"`
	Status      string  `yaml:"trang_thai" json:"trang_thai"`
}

// Booking is a seed booking.
type Booking struct {
	ID       string `yaml:"_id,omitempty" json:"_id,omitempty"`
	RoomCode string `yaml:"Ma_phong" json:"Ma_phong"`
	Date     string `yaml:"Ngay" json:"Ngay"`
	Email    string `yaml:"Email" json:"Email"`
	UserCode string `yaml:"Ma_nguoi_dung" json:"Ma_nguoi_dung"`
	UserName string `yaml:"Ten_nguoi_dung" json:"Ten_nguoi_dung"`
	Reason   string `yaml:"Ly_do" json:"Ly_do"`
	Slot     string `yaml:"Ca" json:"Ca"`
	BookedOn string `yaml:"Ngay_dat" json:"Ngay_dat"`
	Status   string `yaml:"trang_thai" json:"trang_thai"`
}

// Slot is a seed schedule period.
type Slot struct {
	ID     string `yaml:"_id,omitempty" json:"_id,omitempty"`
	Period int    `yaml:"Ca" json:"Ca"`
	Start  string `yaml:"Giờ bắt đầu" json:"Giờ bắt đầu"`
	End    string `yaml:"Giờ kết thúc" json:"Giờ kết thúc"`
}

// Dataset is the full reference data.
type Dataset struct {
	Users    []User    `yaml:"users" json:"users"`
	Rooms    []Room    `yaml:"rooms" json:"rooms"`
	Bookings []Booking `yaml:"bookings" json:"bookings"`
	Slots    []Slot    `yaml:"slots" json:"slots"`
}

// Default returns the embedded reference dataset.
func Default() (Dataset, error) {
	return Decode(bytes.NewReader(defaultsYAML))
}

// LoadFile reads a dataset from a YAML file.
func LoadFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML dataset. Unknown keys are rejected.
func Decode(r io.Reader) (Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, nil
		}
		return Dataset{}, fmt.Errorf("seed: decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Validate checks the natural keys and enumerations of every record.
func (ds Dataset) Validate() error {
	var errs []error
	for i, u := range ds.Users {
		if u.Email == "" || u.Code == "" {
			errs = append(errs, fmt.Errorf("users[%d]: email and ma_nguoi_dung are required", i))
		}
		if !persistence.Role(u.Role).Valid() {
			errs = append(errs, fmt.Errorf("users[%d]: unknown role %q", i, u.Role))
		}
	}
	for i, r := range ds.Rooms {
		if r.Code == "" {
			errs = append(errs, fmt.Errorf("rooms[%d]: Ma_phong is required", i))
		}
		if r.Status != "" && !persistence.RoomStatus(r.Status).Valid() {
			errs = append(errs, fmt.Errorf("rooms[%d]: unknown status %q", i, r.Status))
		}
	}
	for i, b := range ds.Bookings {
		if b.RoomCode == "" || b.Date == "" || b.Slot == "" {
			errs = append(errs, fmt.Errorf("bookings[%d]: Ma_phong, Ngay and Ca are required", i))
		}
		if b.Status != "" && !persistence.BookingStatus(b.Status).Valid() {
			errs = append(errs, fmt.Errorf("bookings[%d]: unknown status %q", i, b.Status))
		}
	}
	for i, s := range ds.Slots {
		if s.Period <= 0 {
			errs = append(errs, fmt.Errorf("slots[%d]: Ca must be positive", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("seed: invalid dataset: %w", errors.Join(errs...))
	}
	return nil
}

// Snapshot reads the store contents back into dataset form. Passwords are
// never exported.
func Snapshot(ctx context.Context, store Store) (Dataset, error) {
	var ds Dataset

	users, err := store.ListUsers(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("seed: list users: %w", err)
	}
	for _, u := range users {
		ds.Users = append(ds.Users, User{
			ID: u.ID, Code: u.Code, Name: u.Name, DateOfBirth: u.DateOfBirth,
			Sex: u.Sex, Email: u.Email, Phone: u.Phone, Role: string(u.Role),
		})
	}

	rooms, err := store.ListRooms(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("seed: list rooms: %w", err)
	}
	for _, r := range rooms {
		ds.Rooms = append(ds.Rooms, Room{
			ID: r.ID, Code: r.Code, Number: r.Number, Campus: r.Campus, AreaM2: r.AreaM2,
			Equipment: r.Equipment, Capacity: r.Capacity, Description: r.Description,
			Rules: r.Rules, Status: string(r.Status),
		})
	}

	bookings, err := store.ListBookings(ctx, persistence.BookingFilter{})
	if err != nil {
		return Dataset{}, fmt.Errorf("seed: list bookings: %w", err)
	}
	for _, b := range bookings {
		ds.Bookings = append(ds.Bookings, Booking{
			ID: b.ID, RoomCode: b.RoomCode, Date: b.Date, Email: b.Email, UserCode: b.UserCode,
			UserName: b.UserName, Reason: b.Reason, Slot: b.Slot, BookedOn: b.BookedOn,
			Status: string(b.Status),
		})
	}

	slots, err := store.ListSlots(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("seed: list slots: %w", err)
	}
	for _, s := range slots {
		ds.Slots = append(ds.Slots, Slot{ID: s.ID, Period: s.Period, Start: s.Start, End: s.End})
	}
	return ds, nil
}

package model

import (
	"context"
	"errors"
	"time"
)

// ErrSlotTaken is returned by AddBooking when another confirmed booking
// already occupies the requested date-time.
var ErrSlotTaken = errors.New("slot taken")

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Booking is a stored reservation. UserID is 0 for bookings entered by an
// administrator on behalf of a walk-in client. ServiceName is a denormalized
// copy of the catalog name at booking time.
type Booking struct {
	ID          int64
	UserID      int64
	UserName    string
	UserPhone   string
	ServiceName string
	BookingAt   time.Time
	Status      string
}

// Service is one catalog entry. The catalog is static configuration.
type Service struct {
	ID          string `yaml:"id" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	Price       int    `yaml:"price" validate:"gt=0"`
	DurationMin int    `yaml:"duration_min" validate:"gt=0"`
}

type Repo interface {
	// Бронирования
	AddBooking(ctx context.Context, b Booking) (int64, error)
	UserBookings(ctx context.Context, userID int64) ([]Booking, error)
	CancelBooking(ctx context.Context, id int64) error
	DailyBookings(ctx context.Context, date string) ([]Booking, error)
	BookedTimes(ctx context.Context, date string) ([]string, error)

	// Слоты, открытые администратором вручную
	AdminSlotTimes(ctx context.Context, date string) ([]string, error)
	AddAdminSlot(ctx context.Context, at time.Time) error
	RemoveAdminSlot(ctx context.Context, at time.Time) error
}

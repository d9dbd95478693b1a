package storage

import (
	"context"

	"github.com/chris/bus-ticket-booking/pkg/models"
)

// BookingReader defines the interface for reading booking records.
type BookingReader interface {
	// GetBooking retrieves a booking by its ID.
	// It returns ErrBookingNotFound if the booking does not exist.
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)

	// ListBookingsByUserID retrieves all bookings for a user, newest first.
	ListBookingsByUserID(ctx context.Context, userID string) ([]models.Booking, error)
}

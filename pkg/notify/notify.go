package notify

import (
	"context"

	"github.com/chris/bus-ticket-booking/pkg/models"
)

//go:generate mockery --name Publisher --output ./mocks --outpkg mocks

// Publisher defines the interface for announcing a committed settlement to
// downstream consumers. Publishing is best-effort: the settlement has already
// committed by the time an event goes out, and a publish failure never rolls
// it back.
type Publisher interface {
	// BookingConfirmed enqueues a booking-confirmed event.
	BookingConfirmed(ctx context.Context, event *models.BookingEvent) error
}

package storage

import (
	"context"

	"github.com/chris/bus-ticket-booking/pkg/models"
)

// BusFilter narrows a bus listing by origin and destination city.
// Empty fields match everything.
type BusFilter struct {
	FromCity string
	ToCity   string
}

// BusStore defines the read-only interface to the bus catalog.
// The settlement core never writes to it.
type BusStore interface {
	// GetBus retrieves a bus by its ID.
	// It returns ErrBusNotFound if the bus does not exist.
	GetBus(ctx context.Context, busID string) (*models.Bus, error)

	// ListBuses retrieves buses matching the filter.
	ListBuses(ctx context.Context, filter BusFilter) ([]models.Bus, error)
}

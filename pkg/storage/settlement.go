package storage

import (
	"context"

	"github.com/chris/bus-ticket-booking/pkg/models"
)

// SettlementStore defines the privileged interface for committing a booking
// together with its wallet debit. The two writes land as one atomic unit:
// either both the booking row and the debit are durable, or neither is.
type SettlementStore interface {
	// SettleBooking inserts the booking and debits booking.Amount from the
	// owner's wallet in a single transaction. The debit is conditioned on
	// the wallet's live balance and version, never on a caller snapshot.
	//
	// It returns the wallet state after the debit, or:
	//   - ErrInsufficientFunds if the live balance cannot cover the amount
	//   - ErrVersionConflict if another writer raced the wallet update
	//   - ErrDuplicateBooking if the booking ID already exists
	// In every error case zero durable changes occur.
	SettleBooking(ctx context.Context, booking *models.Booking) (*models.Wallet, error)
}

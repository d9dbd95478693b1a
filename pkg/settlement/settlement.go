package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/bus-ticket-booking/pkg/bookingid"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/storage"
)

// ErrInvalidRequest is returned when a booking request fails precondition
// checks. No store interaction happens for an invalid request.
var ErrInvalidRequest = errors.New("invalid booking request")

// maxAttempts bounds how often a settlement is retried after losing an
// optimistic-concurrency race. Each attempt re-reads the wallet and uses a
// fresh booking identity.
const maxAttempts = 3

// OutcomeKind classifies the result of a settlement attempt.
type OutcomeKind string

const (
	KindSuccess           OutcomeKind = "Success"
	KindInsufficientFunds OutcomeKind = "InsufficientFunds"
	KindTransactionFailed OutcomeKind = "TransactionFailed"
)

// Request carries everything the settlement needs: the paying user, a
// snapshot of the bus taken at selection time, and the wallet balance as the
// caller last observed it. The snapshot only gates admission; the committed
// debit is conditioned on the live balance in the store.
type Request struct {
	UserID          string
	Bus             models.Bus
	BalanceSnapshot int64
}

// Outcome is the result of a settlement attempt.
//
// Success carries the booking ID, the amount charged and the resulting
// balance. InsufficientFunds carries the shortfall and is user-recoverable.
// TransactionFailed carries the underlying cause; the whole operation is safe
// to retry with a fresh balance snapshot because nothing was committed and
// booking identities are never reused.
type Outcome struct {
	Kind          OutcomeKind
	BookingID     string
	AmountCharged int64
	NewBalance    int64
	Shortfall     int64
	Reason        string
}

// Store is the slice of the data layer the settlement depends on.
type Store interface {
	storage.SettlementStore
	// GetWallet is used to report an exact shortfall when a live debit is
	// refused after admission.
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
}

// Service decides whether a booking is admissible and applies the fare debit
// plus booking record as one atomic unit. It holds no state across calls and
// no in-process locks; all serialization of concurrent debits against the
// same wallet is delegated to the store's conditional write.
type Service struct {
	store Store
}

// NewService creates a new settlement Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Execute runs the booking-and-settlement operation.
//
// The error return is non-nil only for precondition failures (wraps
// ErrInvalidRequest). Everything past admission is expressed as an Outcome:
// either exactly one booking row and one debit of Bus.Fare became durable
// (KindSuccess), or nothing did.
func (s *Service) Execute(ctx context.Context, req Request) (*Outcome, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// Admission is checked against the caller's snapshot so the common
	// "visibly broke" case never reaches the store.
	if req.BalanceSnapshot < req.Bus.Fare {
		return &Outcome{
			Kind:      KindInsufficientFunds,
			Shortfall: req.Bus.Fare - req.BalanceSnapshot,
		}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		booking := &models.Booking{
			ID:        bookingid.New(),
			UserID:    req.UserID,
			BusID:     req.Bus.ID,
			Amount:    req.Bus.Fare,
			Status:    models.BookingSuccess,
			CreatedAt: time.Now(),
		}

		wallet, err := s.store.SettleBooking(ctx, booking)
		switch {
		case err == nil:
			slog.Log(ctx, slog.LevelInfo, "booking settled",
				"bookingId", booking.ID, "userId", req.UserID, "amount", booking.Amount, "newBalance", wallet.Balance)
			return &Outcome{
				Kind:          KindSuccess,
				BookingID:     booking.ID,
				AmountCharged: booking.Amount,
				NewBalance:    wallet.Balance,
			}, nil

		case errors.Is(err, storage.ErrWalletNotFound):
			// The user has no wallet at all; a precondition failure, not a
			// transient fault.
			return nil, fmt.Errorf("%w: no wallet for user %q: %w", ErrInvalidRequest, req.UserID, err)

		case errors.Is(err, storage.ErrInsufficientFunds):
			// Admission passed on a stale snapshot but the live balance
			// could not cover the fare. Nothing was written.
			return s.insufficientOutcome(ctx, req)

		case errors.Is(err, storage.ErrVersionConflict), errors.Is(err, storage.ErrDuplicateBooking):
			// Raced another writer, or the fresh identity collided. Both
			// are retryable with new state and a new identity.
			lastErr = err
			slog.Log(ctx, slog.LevelDebug, "settlement attempt lost race, retrying",
				"userId", req.UserID, "attempt", attempt, "error", err)

		default:
			return &Outcome{
				Kind:   KindTransactionFailed,
				Reason: err.Error(),
			}, nil
		}
	}

	return &Outcome{
		Kind:   KindTransactionFailed,
		Reason: fmt.Sprintf("settlement conflict retries exhausted: %v", lastErr),
	}, nil
}

// insufficientOutcome reports the exact shortfall against the live balance,
// which by now is known to be lower than the caller's snapshot.
func (s *Service) insufficientOutcome(ctx context.Context, req Request) (*Outcome, error) {
	wallet, err := s.store.GetWallet(ctx, req.UserID)
	if err != nil {
		return &Outcome{
			Kind:   KindTransactionFailed,
			Reason: fmt.Sprintf("debit refused and wallet re-read failed: %v", err),
		}, nil
	}
	return &Outcome{
		Kind:      KindInsufficientFunds,
		Shortfall: req.Bus.Fare - wallet.Balance,
	}, nil
}

func validate(req Request) error {
	switch {
	case req.UserID == "":
		return fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	case req.Bus.ID == "":
		return fmt.Errorf("%w: missing bus id", ErrInvalidRequest)
	case req.Bus.Fare < 0:
		return fmt.Errorf("%w: negative fare", ErrInvalidRequest)
	case req.BalanceSnapshot < 0:
		return fmt.Errorf("%w: negative balance snapshot", ErrInvalidRequest)
	}
	return nil
}

package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/storage"
	"github.com/chris/bus-ticket-booking/pkg/storage/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExecuteValidation(t *testing.T) {
	svc := NewService(new(mocks.Storage))

	cases := []struct {
		name string
		req  Request
	}{
		{"Missing User", Request{Bus: models.Bus{ID: "bus-1", Fare: 100}, BalanceSnapshot: 500}},
		{"Missing Bus", Request{UserID: "user-1", BalanceSnapshot: 500}},
		{"Negative Fare", Request{UserID: "user-1", Bus: models.Bus{ID: "bus-1", Fare: -1}, BalanceSnapshot: 500}},
		{"Negative Snapshot", Request{UserID: "user-1", Bus: models.Bus{ID: "bus-1", Fare: 100}, BalanceSnapshot: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, err := svc.Execute(context.Background(), tc.req)
			assert.Nil(t, outcome)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestExecuteAdmission(t *testing.T) {
	t.Run("Snapshot Below Fare", func(t *testing.T) {
		// No store expectations: an inadmissible request must not touch storage.
		mockStore := new(mocks.Storage)
		svc := NewService(mockStore)

		outcome, err := svc.Execute(context.Background(), Request{
			UserID:          "user-1",
			Bus:             models.Bus{ID: "bus-1", Fare: 500},
			BalanceSnapshot: 499,
		})

		require.NoError(t, err)
		assert.Equal(t, KindInsufficientFunds, outcome.Kind)
		assert.Equal(t, int64(1), outcome.Shortfall)
		mockStore.AssertExpectations(t)
	})

	t.Run("Snapshot Equals Fare", func(t *testing.T) {
		mockStore := new(mocks.Storage)
		mockStore.On("SettleBooking", mock.Anything, mock.Anything).Once().
			Return(&models.Wallet{UserID: "user-1", Balance: 0, Version: 2}, nil)
		svc := NewService(mockStore)

		outcome, err := svc.Execute(context.Background(), Request{
			UserID:          "user-1",
			Bus:             models.Bus{ID: "bus-1", Fare: 500},
			BalanceSnapshot: 500,
		})

		require.NoError(t, err)
		assert.Equal(t, KindSuccess, outcome.Kind)
		assert.Equal(t, int64(500), outcome.AmountCharged)
		assert.Equal(t, int64(0), outcome.NewBalance)
		assert.NotEmpty(t, outcome.BookingID)
		mockStore.AssertExpectations(t)
	})
}

func TestExecuteSuccess(t *testing.T) {
	mockStore := new(mocks.Storage)
	var settled *models.Booking
	mockStore.On("SettleBooking", mock.Anything, mock.Anything).Once().
		Run(func(args mock.Arguments) { settled = args.Get(1).(*models.Booking) }).
		Return(&models.Wallet{UserID: "user-1", Balance: 700, Version: 5}, nil)
	svc := NewService(mockStore)

	outcome, err := svc.Execute(context.Background(), Request{
		UserID:          "user-1",
		Bus:             models.Bus{ID: "bus-1", Fare: 300},
		BalanceSnapshot: 1000,
	})

	require.NoError(t, err)
	assert.Equal(t, KindSuccess, outcome.Kind)
	assert.Equal(t, settled.ID, outcome.BookingID)
	assert.Equal(t, "user-1", settled.UserID)
	assert.Equal(t, "bus-1", settled.BusID)
	assert.Equal(t, int64(300), settled.Amount)
	assert.Equal(t, models.BookingSuccess, settled.Status)
	assert.Equal(t, int64(700), outcome.NewBalance)
	mockStore.AssertExpectations(t)
}

func TestExecuteStaleSnapshot(t *testing.T) {
	// Admission passes on the caller's snapshot, but the live balance has
	// already been drained by a concurrent spender.
	mockStore := new(mocks.Storage)
	mockStore.On("SettleBooking", mock.Anything, mock.Anything).Once().
		Return(nil, storage.ErrInsufficientFunds)
	mockStore.On("GetWallet", mock.Anything, "user-1").Once().
		Return(&models.Wallet{UserID: "user-1", Balance: 200}, nil)
	svc := NewService(mockStore)

	outcome, err := svc.Execute(context.Background(), Request{
		UserID:          "user-1",
		Bus:             models.Bus{ID: "bus-1", Fare: 300},
		BalanceSnapshot: 500,
	})

	require.NoError(t, err)
	assert.Equal(t, KindInsufficientFunds, outcome.Kind)
	assert.Equal(t, int64(100), outcome.Shortfall)
	mockStore.AssertExpectations(t)
}

func TestExecuteVersionConflictRetry(t *testing.T) {
	t.Run("Retries With Fresh Identity", func(t *testing.T) {
		mockStore := new(mocks.Storage)
		var ids []string
		record := func(args mock.Arguments) { ids = append(ids, args.Get(1).(*models.Booking).ID) }
		mockStore.On("SettleBooking", mock.Anything, mock.Anything).Once().
			Run(record).Return(nil, storage.ErrVersionConflict)
		mockStore.On("SettleBooking", mock.Anything, mock.Anything).Once().
			Run(record).Return(&models.Wallet{UserID: "user-1", Balance: 100, Version: 3}, nil)
		svc := NewService(mockStore)

		outcome, err := svc.Execute(context.Background(), Request{
			UserID:          "user-1",
			Bus:             models.Bus{ID: "bus-1", Fare: 400},
			BalanceSnapshot: 500,
		})

		require.NoError(t, err)
		assert.Equal(t, KindSuccess, outcome.Kind)
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1], "a lost attempt must never reuse its booking identity")
		mockStore.AssertExpectations(t)
	})

	t.Run("Conflict Exhaustion", func(t *testing.T) {
		mockStore := new(mocks.Storage)
		mockStore.On("SettleBooking", mock.Anything, mock.Anything).Times(maxAttempts).
			Return(nil, storage.ErrVersionConflict)
		svc := NewService(mockStore)

		outcome, err := svc.Execute(context.Background(), Request{
			UserID:          "user-1",
			Bus:             models.Bus{ID: "bus-1", Fare: 400},
			BalanceSnapshot: 500,
		})

		require.NoError(t, err)
		assert.Equal(t, KindTransactionFailed, outcome.Kind)
		assert.Contains(t, outcome.Reason, "retries exhausted")
		mockStore.AssertExpectations(t)
	})
}

func TestExecuteStoreFailure(t *testing.T) {
	mockStore := new(mocks.Storage)
	mockStore.On("SettleBooking", mock.Anything, mock.Anything).Once().
		Return(nil, errors.New("dynamodb unavailable"))
	svc := NewService(mockStore)

	outcome, err := svc.Execute(context.Background(), Request{
		UserID:          "user-1",
		Bus:             models.Bus{ID: "bus-1", Fare: 400},
		BalanceSnapshot: 500,
	})

	require.NoError(t, err)
	assert.Equal(t, KindTransactionFailed, outcome.Kind)
	assert.Contains(t, outcome.Reason, "dynamodb unavailable")
}

func TestExecuteUnknownWallet(t *testing.T) {
	// A user without a wallet is a precondition failure, not a retryable
	// store fault, even when the store only discovers it mid-settlement.
	mockStore := new(mocks.Storage)
	mockStore.On("SettleBooking", mock.Anything, mock.Anything).Once().
		Return(nil, fmt.Errorf("failed to get wallet for settlement: %w", storage.ErrWalletNotFound))
	svc := NewService(mockStore)

	outcome, err := svc.Execute(context.Background(), Request{
		UserID:          "ghost-user",
		Bus:             models.Bus{ID: "bus-1", Fare: 400},
		BalanceSnapshot: 500,
	})

	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, storage.ErrWalletNotFound)
	mockStore.AssertExpectations(t)
}

// fakeLedger is an in-memory stand-in for the conditional-write store. It
// enforces the same semantics the DynamoDB transaction does: the debit is
// checked against the live balance under a lock, and a booking row commits if
// and only if its debit commits.
type fakeLedger struct {
	mu       sync.Mutex
	wallet   models.Wallet
	bookings map[string]models.Booking
	failures int // injected transient SettleBooking failures
}

func newFakeLedger(userID string, balance int64) *fakeLedger {
	return &fakeLedger{
		wallet:   models.Wallet{UserID: userID, Balance: balance, OpeningBalance: balance, Version: 1},
		bookings: make(map[string]models.Booking),
	}
}

func (f *fakeLedger) GetWallet(_ context.Context, _ string) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.wallet
	return &w, nil
}

func (f *fakeLedger) SettleBooking(_ context.Context, booking *models.Booking) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("injected store failure")
	}
	if _, exists := f.bookings[booking.ID]; exists {
		return nil, storage.ErrDuplicateBooking
	}
	if f.wallet.Balance < booking.Amount {
		return nil, storage.ErrInsufficientFunds
	}
	f.wallet.Balance -= booking.Amount
	f.wallet.Version++
	f.bookings[booking.ID] = *booking
	w := f.wallet
	return &w, nil
}

func TestConcurrentSettlement(t *testing.T) {
	t.Run("Two Calls One Affordable", func(t *testing.T) {
		// Balance 500, two concurrent bookings of 300 each: exactly one may
		// win, and the loser's shortfall is measured against the post-debit
		// balance (300 - 200 = 100).
		ledger := newFakeLedger("user-1", 500)
		svc := NewService(ledger)

		req := Request{UserID: "user-1", Bus: models.Bus{ID: "bus-1", Fare: 300}, BalanceSnapshot: 500}
		outcomes := make([]*Outcome, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcome, err := svc.Execute(context.Background(), req)
				require.NoError(t, err)
				outcomes[i] = outcome
			}(i)
		}
		wg.Wait()

		var successes, rejections int
		for _, outcome := range outcomes {
			switch outcome.Kind {
			case KindSuccess:
				successes++
				assert.Equal(t, int64(200), outcome.NewBalance)
			case KindInsufficientFunds:
				rejections++
				assert.Equal(t, int64(100), outcome.Shortfall)
			default:
				t.Fatalf("unexpected outcome kind %q", outcome.Kind)
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, 1, rejections)
		assert.Equal(t, int64(200), ledger.wallet.Balance)
		assert.Len(t, ledger.bookings, 1)
	})

	t.Run("No Negative Balance Under Load", func(t *testing.T) {
		// 20 concurrent bookings of 100 against a balance of 500: exactly 5
		// commit, and the final balance is initial minus the sum of the
		// successful fares.
		ledger := newFakeLedger("user-1", 500)
		svc := NewService(ledger)

		req := Request{UserID: "user-1", Bus: models.Bus{ID: "bus-1", Fare: 100}, BalanceSnapshot: 500}
		var wg sync.WaitGroup
		var mu sync.Mutex
		var debited int64
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, err := svc.Execute(context.Background(), req)
				require.NoError(t, err)
				if outcome.Kind == KindSuccess {
					mu.Lock()
					debited += outcome.AmountCharged
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(500), debited)
		assert.Equal(t, int64(0), ledger.wallet.Balance)
		assert.GreaterOrEqual(t, ledger.wallet.Balance, int64(0))
		assert.Len(t, ledger.bookings, 5)
	})

	t.Run("Retry After Transient Failure Debits Once", func(t *testing.T) {
		ledger := newFakeLedger("user-1", 500)
		ledger.failures = 1
		svc := NewService(ledger)

		req := Request{UserID: "user-1", Bus: models.Bus{ID: "bus-1", Fare: 300}, BalanceSnapshot: 500}

		first, err := svc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, KindTransactionFailed, first.Kind)
		assert.Len(t, ledger.bookings, 0, "a failed attempt must leave no booking behind")

		second, err := svc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, KindSuccess, second.Kind)
		assert.Equal(t, int64(200), ledger.wallet.Balance)
		assert.Len(t, ledger.bookings, 1)
	})
}

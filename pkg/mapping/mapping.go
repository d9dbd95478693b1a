package mapping

import (
	"github.com/chris/bus-ticket-booking/pkg/api"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/settlement"
)

// defaultOpeningBalance seeds wallets created without an explicit balance.
const defaultOpeningBalance = 1000

// ToApiBooking converts a domain Booking model to an API Booking model.
func ToApiBooking(booking *models.Booking) api.Booking {
	return api.Booking{
		BookingId: booking.ID,
		UserId:    booking.UserID,
		BusId:     booking.BusID,
		Amount:    booking.Amount,
		Status:    string(booking.Status),
		CreatedAt: booking.CreatedAt,
	}
}

// ToApiWallet converts a domain Wallet model to an API Wallet model.
func ToApiWallet(wallet *models.Wallet) *api.Wallet {
	return &api.Wallet{
		UserId:  wallet.UserID,
		Name:    wallet.Name,
		Balance: wallet.Balance,
		Version: wallet.Version,
	}
}

// ToApiBus converts a domain Bus model to an API Bus model.
func ToApiBus(bus *models.Bus) api.Bus {
	return api.Bus{
		Id:             bus.ID,
		Code:           bus.Code,
		Name:           bus.Name,
		FromCity:       bus.FromCity,
		ToCity:         bus.ToCity,
		Fare:           bus.Fare,
		SeatsAvailable: bus.SeatsAvailable,
	}
}

// ToDomainNewWallet converts an API NewWallet model to a domain Wallet model.
func ToDomainNewWallet(newWallet *api.NewWallet) *models.Wallet {
	balance := newWallet.Balance
	if balance <= 0 {
		balance = defaultOpeningBalance
	}
	return &models.Wallet{
		UserID:  newWallet.UserId.String(),
		Name:    newWallet.Name,
		Balance: balance,
	}
}

// ToBookingResult converts a settlement outcome to the API result shape.
// Only the fields belonging to the outcome's kind are populated.
func ToBookingResult(outcome *settlement.Outcome) api.BookingResult {
	result := api.BookingResult{Kind: api.BookingResultKind(outcome.Kind)}
	switch outcome.Kind {
	case settlement.KindSuccess:
		result.BookingId = &outcome.BookingID
		result.AmountCharged = &outcome.AmountCharged
		result.NewBalance = &outcome.NewBalance
	case settlement.KindInsufficientFunds:
		result.Shortfall = &outcome.Shortfall
	case settlement.KindTransactionFailed:
		result.Reason = &outcome.Reason
	}
	return result
}

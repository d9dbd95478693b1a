package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// BookingResultKind enumerates the kinds of a booking settlement result.
type BookingResultKind string

const (
	ResultSuccess           BookingResultKind = "Success"
	ResultInsufficientFunds BookingResultKind = "InsufficientFunds"
	ResultTransactionFailed BookingResultKind = "TransactionFailed"
)

// NewBooking is the request body for creating a booking. WalletBalance is the
// balance as the client last observed it; the server re-validates against the
// live balance before committing anything.
type NewBooking struct {
	UserId        openapi_types.UUID `json:"user_id"`
	BusId         string             `json:"bus_id"`
	WalletBalance int64              `json:"wallet_balance"`
}

// BookingResult is the response body for a booking attempt. Exactly the
// fields for its kind are set: Success carries bookingId/amountCharged/
// newBalance, InsufficientFunds carries shortfall, TransactionFailed carries
// reason.
type BookingResult struct {
	Kind          BookingResultKind `json:"kind"`
	BookingId     *string           `json:"bookingId,omitempty"`
	AmountCharged *int64            `json:"amountCharged,omitempty"`
	NewBalance    *int64            `json:"newBalance,omitempty"`
	Shortfall     *int64            `json:"shortfall,omitempty"`
	Reason        *string           `json:"reason,omitempty"`
}

// Booking is the API representation of a booking record.
type Booking struct {
	BookingId string    `json:"booking_id"`
	UserId    string    `json:"user_id"`
	BusId     string    `json:"bus_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingPage is one page of a user's booking history, newest first.
type BookingPage struct {
	Bookings   []Booking `json:"bookings"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
	Total      int       `json:"total"`
}

// UserStats aggregates a user's booking history.
type UserStats struct {
	TotalBookings int   `json:"total_bookings"`
	TotalSpent    int64 `json:"total_spent"`
}

// NewWallet is the request body for creating a wallet.
type NewWallet struct {
	UserId  openapi_types.UUID `json:"user_id"`
	Name    string             `json:"name"`
	Balance int64              `json:"balance,omitempty"`
}

// Wallet is the API representation of a wallet.
type Wallet struct {
	UserId  string `json:"user_id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	Version int64  `json:"version"`
}

// Bus is the API representation of a bus route entry.
type Bus struct {
	Id             string `json:"id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	FromCity       string `json:"from_city"`
	ToCity         string `json:"to_city"`
	Fare           int64  `json:"fare"`
	SeatsAvailable int32  `json:"seats_available"`
}

package models

import (
	"time"
)

// BookingStatus defines the possible states of a booking record.
type BookingStatus string

const (
	// BookingSuccess marks a booking whose fare debit committed atomically with it.
	BookingSuccess BookingStatus = "Success"
	// BookingFailed exists for rows written by pre-migration clients that
	// recorded failed attempts; the settlement path never produces one.
	BookingFailed BookingStatus = "Failed"
)

// Booking represents a single booking of a bus seat, paid from the owner's
// wallet. Rows are immutable once written: there is no update or delete path.
type Booking struct {
	ID        string        `json:"booking_id" dynamodbav:"booking_id"`
	UserID    string        `json:"user_id" dynamodbav:"user_id"`
	BusID     string        `json:"bus_id" dynamodbav:"bus_id"`
	Amount    int64         `json:"amount" dynamodbav:"amount"`
	Status    BookingStatus `json:"status" dynamodbav:"status"`
	CreatedAt time.Time     `json:"created_at" dynamodbav:"created_at"`
}

// Wallet represents a user's stored balance in minor currency units.
// Balance is never negative. Version implements optimistic locking: every
// conditional write is predicated on it and increments it. OpeningBalance is
// fixed at creation and lets the reconciliation job check that
// opening_balance - sum(successful booking amounts) == balance.
type Wallet struct {
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Name           string    `json:"name" dynamodbav:"name"`
	Balance        int64     `json:"balance" dynamodbav:"balance"`
	OpeningBalance int64     `json:"opening_balance" dynamodbav:"opening_balance"`
	Version        int64     `json:"version" dynamodbav:"version"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Bus represents a bus route entry. The settlement core treats it as a
// read-only snapshot taken at booking time; seat inventory is display-only
// and is not decremented on booking.
type Bus struct {
	ID             string `json:"id" dynamodbav:"id"`
	Code           string `json:"code" dynamodbav:"code"`
	Name           string `json:"name" dynamodbav:"name"`
	FromCity       string `json:"from_city" dynamodbav:"from_city"`
	ToCity         string `json:"to_city" dynamodbav:"to_city"`
	Fare           int64  `json:"fare" dynamodbav:"fare"`
	SeatsAvailable int32  `json:"seats_available" dynamodbav:"seats_available"`
}

// BookingEvent is published after a settlement commits. Consumers use it to
// fan out wallet updates to connected clients.
type BookingEvent struct {
	EventID    string    `json:"event_id"`
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	BusID      string    `json:"bus_id"`
	Amount     int64     `json:"amount"`
	NewBalance int64     `json:"new_balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

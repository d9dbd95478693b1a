package storage

import "errors"

// ErrInsufficientFunds is returned when a wallet's live balance cannot cover the fare being settled.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrVersionConflict is returned when a conditional write lost a race against another writer.
// The caller may re-read the wallet and retry the whole settlement.
var ErrVersionConflict = errors.New("wallet version conflict")

// ErrDuplicateBooking is returned when a booking insert collides with an existing booking ID.
var ErrDuplicateBooking = errors.New("duplicate booking id")

// ErrWalletNotFound is returned when no wallet exists for the given user ID.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrBusNotFound is returned when no bus exists for the given ID.
var ErrBusNotFound = errors.New("bus not found")

// ErrBookingNotFound is returned when no booking exists for the given ID.
var ErrBookingNotFound = errors.New("booking not found")

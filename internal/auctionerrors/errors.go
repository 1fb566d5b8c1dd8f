package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrCarNotFound      = errors.New("car not found")
	ErrNoBids           = errors.New("no bids found for auction")
	ErrStoreUnavailable = errors.New("auction store unavailable")
)

// business logic errors
var (
	ErrValidation   = errors.New("invalid input")
	ErrOwnership    = errors.New("caller does not own this car")
	ErrConflict     = errors.New("car already has an active auction")
	ErrAuctionEnded = errors.New("auction has ended")
	ErrBidTooLow    = errors.New("bid amount too low")
)

package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("Your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput       = errors.New("Given Param is not valid")
	ErrInvalidNumberFormat = errors.New("invalid number format")
	ErrInvalidAddress      = errors.New("Invalid address")

	// auction state machine
	ErrAuctionNotOpen    = errors.New("auction not open")
	ErrAuctionExpired    = errors.New("auction expired")
	ErrAuctionNotExpired = errors.New("auction not expired")
	ErrBidTooLow         = errors.New("bid too low")
	ErrBidsAlreadyPlaced = errors.New("bids already placed")
	ErrUnauthorized      = errors.New("unauthorized")

	// escrow and asset boundary
	ErrNotOwner           = errors.New("not owner")
	ErrTransferRejected   = errors.New("transfer rejected")
	ErrValueMismatch      = errors.New("value mismatch")
	ErrInsufficientEscrow = errors.New("insufficient escrow")
	ErrNothingEscrowed    = errors.New("nothing escrowed")

	// price oracle
	ErrStaleOrInvalidPrice = errors.New("stale or invalid price")
)

package domain

import "errors"

// Business rejections are reported to the caller verbatim and never
// retried. ErrStoreUnavailable is the only error a caller may safely
// retry: the transaction boundary guarantees no partial effect
// occurred.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrAuctionNotStarted = errors.New("auction has not started yet")
	ErrAuctionEnded      = errors.New("auction has ended")
	ErrBidTooLow         = errors.New("bid must be higher than current highest bid")
	ErrStoreUnavailable  = errors.New("store unavailable")

	// ErrTxConflict is surfaced by the store when the database detects
	// a write conflict between serializable transactions. The gate
	// retries the whole transaction on it.
	ErrTxConflict = errors.New("transaction conflict")
)

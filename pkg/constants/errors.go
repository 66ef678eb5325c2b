package constants

import "errors"

// Input errors are returned before any optimistic mutation takes place.
var (
	ErrEmptyIdentity = errors.New("identity is required")
	ErrEmptyShelfID  = errors.New("shelf id is required")
	ErrUnknownShelf  = errors.New("shelf is not loaded")
	ErrInvalidOrder  = errors.New("order is not a permutation of the loaded collection")
)

// ErrRemoteFailure matches every error produced by a rejected or failed remote call.
var ErrRemoteFailure = errors.New("remote call failed")

var (
	ErrIDInUse         = errors.New("id already in use")
	ErrTimeout         = errors.New("timeout")
	ErrNoBaseURL       = errors.New("base url not set")
	ErrNoMarshaler     = errors.New("marshaler is not set")
	ErrNoUnmarshaler   = errors.New("unmarshaler is not set")
	ErrInvalidResponse = errors.New("invalid response from shelf service") //nolint:stylecheck
	ErrClosed          = errors.New("connection closed")
)

package surety

import "errors"

var (
	ErrNotOperational       = errors.New("ledger is not operational")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFunded            = errors.New("airline is not funded")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrInsufficientFee      = errors.New("insufficient fee")
	ErrZeroPayment          = errors.New("zero payment")
	ErrDuplicateResponse    = errors.New("duplicate oracle response")
	ErrAlreadyInsured       = errors.New("already insured")
	ErrAlreadyRegistered    = errors.New("already registered")
	ErrNotRegistered        = errors.New("not registered")
	ErrFlightNotRegistered  = errors.New("flight is not registered")
	ErrNothingOwed          = errors.New("nothing owed")
	ErrInvalidStatus        = errors.New("invalid status code")
	ErrFlightClosed         = errors.New("flight status is final")
	ErrInsufficientReserves = errors.New("insufficient reserves")
)

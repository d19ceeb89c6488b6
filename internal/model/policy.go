package model

import "github.com/ethereum/go-ethereum/common"

// Policy is a passenger's insurance on one flight.
type Policy struct {
	Passenger     common.Address
	Flight        FlightKey
	AmountPaid    Amount
	AmountInsured Amount
	PaidOut       bool
}

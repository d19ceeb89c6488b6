package model

import "github.com/ethereum/go-ethereum/common"

// Oracle is a registered reporting party with its assigned index triple.
type Oracle struct {
	Address common.Address
	Indexes [3]uint8
}

// HasIndex reports whether the oracle was assigned idx.
func (o Oracle) HasIndex(idx uint8) bool {
	return o.Indexes[0] == idx || o.Indexes[1] == idx || o.Indexes[2] == idx
}

// RoundState is the consensus state of a flight-status round.
type RoundState string

var (
	RoundNoRequest RoundState = "no_request"
	RoundRequested RoundState = "requested"
	RoundFinalized RoundState = "finalized"
)

// Round tracks the oracle responses collected for one flight.
type Round struct {
	Key       FlightKey
	Index     uint8
	State     RoundState
	Responses map[StatusCode]map[common.Address]struct{}
	Status    StatusCode
}

// Supporters returns how many distinct oracles reported status.
func (r Round) Supporters(status StatusCode) int {
	return len(r.Responses[status])
}

package model

import "github.com/ethereum/go-ethereum/common"

// Airline is a participant that can register flights once funded.
type Airline struct {
	Address      common.Address
	Name         string
	IsRegistered bool
	IsFunded     bool
	// Funds is the cumulative contribution credited to the airline.
	Funds  Amount
	Voters map[common.Address]struct{}
}

// Votes returns the number of distinct airlines that voted for this one.
func (a Airline) Votes() int {
	return len(a.Voters)
}

package surety

import "github.com/ethereum/go-ethereum/common"

// gate is the process-wide operational switch plus the list of callers
// allowed to perform privileged registry mutations.
type gate struct {
	owner       common.Address
	operational bool
	authorized  map[common.Address]struct{}
}

func newGate(owner common.Address) *gate {
	return &gate{
		owner:       owner,
		operational: true,
		authorized:  make(map[common.Address]struct{}),
	}
}

func (g *gate) requireOperational() error {
	if !g.operational {
		return ErrNotOperational
	}
	return nil
}

func (g *gate) requireOwner(caller common.Address) error {
	if caller != g.owner {
		return ErrUnauthorized
	}
	return nil
}

func (g *gate) isAuthorized(caller common.Address) bool {
	_, ok := g.authorized[caller]
	return ok
}

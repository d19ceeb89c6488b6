package surety

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/pkg/safe"
)

type airlineRegistry struct {
	airlines   map[common.Address]*model.Airline
	registered int
	funded     int
}

func newAirlineRegistry(genesis common.Address, name string) *airlineRegistry {
	r := &airlineRegistry{airlines: make(map[common.Address]*model.Airline)}
	r.airlines[genesis] = &model.Airline{
		Address:      genesis,
		Name:         name,
		IsRegistered: true,
		Voters:       make(map[common.Address]struct{}),
	}
	r.registered = 1
	return r
}

func (r *airlineRegistry) isRegistered(addr common.Address) bool {
	a, ok := r.airlines[addr]
	return ok && a.IsRegistered
}

func (r *airlineRegistry) isFunded(addr common.Address) bool {
	a, ok := r.airlines[addr]
	return ok && a.IsRegistered && a.IsFunded
}

// votesRequired is half of the funded airlines, rounded up.
func (r *airlineRegistry) votesRequired() int {
	return (r.funded + 1) / 2
}

func (r *airlineRegistry) register(caller, candidate common.Address, name string) (RegistrationResult, []model.Event, error) {
	if !r.isFunded(caller) {
		return RegistrationResult{}, nil, fmt.Errorf("%w: %s is not a funded airline", ErrUnauthorized, caller.Hex())
	}
	if r.isRegistered(candidate) {
		return RegistrationResult{}, nil, fmt.Errorf("airline %s: %w", candidate.Hex(), ErrAlreadyRegistered)
	}

	a, ok := r.airlines[candidate]
	if !ok {
		a = &model.Airline{
			Address: candidate,
			Name:    name,
			Voters:  make(map[common.Address]struct{}),
		}
		r.airlines[candidate] = a
	}

	if r.registered < directRegistrationLimit {
		r.markRegistered(a)
		return RegistrationResult{Registered: true, Votes: a.Votes()}, []model.Event{
			{Type: model.EventAirlineRegistered, Caller: caller, Actor: candidate},
		}, nil
	}

	var events []model.Event
	if _, voted := a.Voters[caller]; !voted {
		a.Voters[caller] = struct{}{}
		events = append(events, model.Event{Type: model.EventAirlineVoted, Caller: caller, Actor: candidate})
	}
	if a.Votes() < r.votesRequired() {
		return RegistrationResult{Votes: a.Votes()}, events, nil
	}

	r.markRegistered(a)
	events = append(events, model.Event{Type: model.EventAirlineRegistered, Caller: caller, Actor: candidate})
	return RegistrationResult{Registered: true, Votes: a.Votes()}, events, nil
}

func (r *airlineRegistry) markRegistered(a *model.Airline) {
	a.IsRegistered = true
	r.registered++
}

// fund credits amount to a registered airline. It reports whether the
// contribution was accepted and whether it made the airline funded.
func (r *airlineRegistry) fund(caller common.Address, amount model.Amount) (accepted, becameFunded bool, err error) {
	a, ok := r.airlines[caller]
	if !ok || !a.IsRegistered {
		return false, false, nil
	}
	total, err := safe.Add(a.Funds, amount)
	if err != nil {
		return false, false, fmt.Errorf("credit airline %s: %w", caller.Hex(), err)
	}
	a.Funds = total
	if !a.IsFunded && a.Funds >= FundingThreshold {
		a.IsFunded = true
		r.funded++
		becameFunded = true
	}
	return true, becameFunded, nil
}

func (r *airlineRegistry) get(addr common.Address) (model.Airline, bool) {
	a, ok := r.airlines[addr]
	if !ok {
		return model.Airline{}, false
	}
	cp := *a
	cp.Voters = make(map[common.Address]struct{}, len(a.Voters))
	for v := range a.Voters {
		cp.Voters[v] = struct{}{}
	}
	return cp, true
}

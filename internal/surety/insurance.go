package surety

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/pkg/safe"
)

type insuranceBook struct {
	policies map[model.FlightKey]map[common.Address]*model.Policy
	owed     map[common.Address]model.Amount
}

// credit is a planned settlement for one policy.
type credit struct {
	passenger common.Address
	payout    model.Amount
	balance   model.Amount
}

func newInsuranceBook() *insuranceBook {
	return &insuranceBook{
		policies: make(map[model.FlightKey]map[common.Address]*model.Policy),
		owed:     make(map[common.Address]model.Amount),
	}
}

func (b *insuranceBook) policy(passenger common.Address, key model.FlightKey) (*model.Policy, bool) {
	p, ok := b.policies[key][passenger]
	return p, ok
}

func (b *insuranceBook) checkPurchase(passenger common.Address, key model.FlightKey, payment model.Amount) error {
	if _, ok := b.policy(passenger, key); ok {
		return fmt.Errorf("passenger %s on flight %s: %w", passenger.Hex(), key, ErrAlreadyInsured)
	}
	if payment == 0 {
		return ErrZeroPayment
	}
	return nil
}

func (b *insuranceBook) buy(passenger common.Address, key model.FlightKey, payment model.Amount) model.Policy {
	insured := payment
	if insured > InsuranceCap {
		insured = InsuranceCap
	}
	p := &model.Policy{
		Passenger:     passenger,
		Flight:        key,
		AmountPaid:    payment,
		AmountInsured: insured,
	}
	if b.policies[key] == nil {
		b.policies[key] = make(map[common.Address]*model.Policy)
	}
	b.policies[key][passenger] = p
	return *p
}

// planSettlement computes the credits owed once key is finalized with status.
// Nothing is mutated, so a failed plan leaves the book untouched.
func (b *insuranceBook) planSettlement(key model.FlightKey, status model.StatusCode) ([]credit, error) {
	if status != model.StatusLateAirline {
		return nil, nil
	}
	var plan []credit
	for passenger, p := range b.policies[key] {
		if p.PaidOut {
			continue
		}
		payout, err := safe.MulDiv(p.AmountInsured, payoutNumerator, payoutDenominator)
		if err != nil {
			return nil, fmt.Errorf("payout for %s: %w", passenger.Hex(), err)
		}
		// one policy per passenger and flight, so each passenger appears once
		balance, err := safe.Add(b.owed[passenger], payout)
		if err != nil {
			return nil, fmt.Errorf("credit %s: %w", passenger.Hex(), err)
		}
		plan = append(plan, credit{passenger: passenger, payout: payout, balance: balance})
	}
	return plan, nil
}

func (b *insuranceBook) applySettlement(key model.FlightKey, plan []credit) {
	for _, c := range plan {
		p := b.policies[key][c.passenger]
		p.PaidOut = true
		p.AmountInsured = 0
		b.owed[c.passenger] = c.balance
	}
}

func (b *insuranceBook) insured(passenger common.Address, key model.FlightKey) model.Amount {
	if p, ok := b.policy(passenger, key); ok {
		return p.AmountInsured
	}
	return 0
}

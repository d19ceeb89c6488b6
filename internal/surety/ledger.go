// Package surety implements the flight-delay insurance ledger: airline
// registration, flight registry, oracle consensus and the insurance escrow.
//
// Every exported operation runs to completion under a single lock, so the
// ledger behaves as if operations were applied one at a time by a
// transaction-ordered substrate. Operations either fully apply or return an
// error without changing state.
package surety

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/flightsurety-backend/internal/clock"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/pkg/safe"
)

// Config holds ledger construction parameters.
type Config struct {
	Owner          common.Address
	GenesisAirline common.Address
	GenesisName    string
	Clock          clock.Clock
	Settlement     Settlement
}

// Ledger owns all registries and serializes every operation on them.
type Ledger struct {
	mu sync.RWMutex

	gate      *gate
	airlines  *airlineRegistry
	flights   *flightRegistry
	consensus *consensusEngine
	insurance *insuranceBook
	reserves  model.Amount

	clock      clock.Clock
	settlement Settlement
	publisher  EventPublisher
	metrics    Metrics
	logger     *zap.Logger
}

// NewLedger builds a Ledger with the genesis airline registered and unfunded.
func NewLedger(cfg Config, publisher EventPublisher, metrics Metrics, logger *zap.Logger) (*Ledger, error) {
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if metrics == nil {
		return nil, errors.New("ledger metrics is required")
	}
	if cfg.Owner == (common.Address{}) {
		return nil, errors.New("owner address is required")
	}
	if cfg.GenesisAirline == (common.Address{}) {
		return nil, errors.New("genesis airline address is required")
	}
	if cfg.GenesisName == "" {
		cfg.GenesisName = defaultGenesisName
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Settlement == nil {
		cfg.Settlement = noopSettlement{}
	}

	return &Ledger{
		gate:       newGate(cfg.Owner),
		airlines:   newAirlineRegistry(cfg.GenesisAirline, cfg.GenesisName),
		flights:    newFlightRegistry(),
		consensus:  newConsensusEngine(),
		insurance:  newInsuranceBook(),
		clock:      cfg.Clock,
		settlement: cfg.Settlement,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger.Named("ledger"),
	}, nil
}

func (l *Ledger) emit(events ...model.Event) {
	if len(events) == 0 {
		return
	}
	now := l.clock.Now()
	for i := range events {
		events[i].Time = now
	}
	l.publisher.Publish(events...)
}

// SetOperatingStatus enables or disables every mutating operation. Owner only.
func (l *Ledger) SetOperatingStatus(caller common.Address, operational bool) (err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("set_operating_status", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOwner(caller); err != nil {
		return err
	}
	if l.gate.operational == operational {
		return nil
	}
	l.gate.operational = operational
	l.emit(model.Event{Type: model.EventOperatingStatusChanged, Caller: caller, Operational: operational})
	l.logger.Warn("operating status changed", zap.Bool("operational", operational))
	return nil
}

// IsOperational reports whether mutating operations are enabled.
func (l *Ledger) IsOperational() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gate.operational
}

// AuthorizeCaller records addr as an authorized application caller. Owner only.
func (l *Ledger) AuthorizeCaller(caller, addr common.Address) (err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("authorize_caller", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return err
	}
	if err = l.gate.requireOwner(caller); err != nil {
		return err
	}
	l.gate.authorized[addr] = struct{}{}
	return nil
}

// DeauthorizeCaller revokes a previous AuthorizeCaller.
func (l *Ledger) DeauthorizeCaller(caller, addr common.Address) (err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("deauthorize_caller", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return err
	}
	if err = l.gate.requireOwner(caller); err != nil {
		return err
	}
	delete(l.gate.authorized, addr)
	return nil
}

// IsCallerAuthorized reports whether addr is an authorized application caller.
func (l *Ledger) IsCallerAuthorized(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gate.isAuthorized(addr)
}

// RegisterAirline registers newAddress directly while fewer than four airlines
// exist, and by multi-party vote of funded airlines afterwards.
func (l *Ledger) RegisterAirline(caller, newAddress common.Address, name string) (res RegistrationResult, err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("register_airline", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return RegistrationResult{}, err
	}
	res, events, err := l.airlines.register(caller, newAddress, name)
	if err != nil {
		return RegistrationResult{}, err
	}
	l.emit(events...)
	l.logger.Info("airline registration",
		zap.String("caller", caller.Hex()),
		zap.String("airline", newAddress.Hex()),
		zap.Bool("registered", res.Registered),
		zap.Int("votes", res.Votes),
	)
	return res, nil
}

// FundAirline credits amount to the caller's airline. Unregistered callers are ignored.
func (l *Ledger) FundAirline(caller common.Address, amount model.Amount) (err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("fund_airline", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return err
	}
	if !l.airlines.isRegistered(caller) {
		l.logger.Debug("ignoring funds from unregistered airline", zap.String("caller", caller.Hex()))
		return nil
	}
	reserves, err := safe.Add(l.reserves, amount)
	if err != nil {
		return fmt.Errorf("add reserves: %w", err)
	}
	accepted, becameFunded, err := l.airlines.fund(caller, amount)
	if err != nil {
		return err
	}
	if !accepted {
		return nil
	}
	l.reserves = reserves
	if becameFunded {
		a, _ := l.airlines.get(caller)
		l.emit(model.Event{Type: model.EventAirlineFunded, Caller: caller, Actor: caller, Amount: a.Funds})
		l.logger.Info("airline funded", zap.String("airline", caller.Hex()), zap.Stringer("funds", a.Funds))
	}
	return nil
}

// IsRegistered reports whether addr is a registered airline and how many are registered.
func (l *Ledger) IsRegistered(addr common.Address) (bool, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.airlines.isRegistered(addr), l.airlines.registered
}

// IsFunded reports whether addr is a funded airline and how many are funded.
func (l *Ledger) IsFunded(addr common.Address) (bool, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.airlines.isFunded(addr), l.airlines.funded
}

// VotesCount returns the registration votes recorded for addr.
func (l *Ledger) VotesCount(addr common.Address) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, _ := l.airlines.get(addr)
	return a.Votes()
}

// Airline returns the airline record for addr.
func (l *Ledger) Airline(addr common.Address) (model.Airline, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.airlines.get(addr)
	if !ok {
		return model.Airline{}, fmt.Errorf("airline %s: %w", addr.Hex(), ErrNotFound)
	}
	return a, nil
}

// RegisterFlight registers a flight for the caller's funded airline.
func (l *Ledger) RegisterFlight(caller common.Address, name string, timestamp uint64, from, to string) (f model.Flight, err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("register_flight", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return model.Flight{}, err
	}
	if !l.airlines.isFunded(caller) {
		return model.Flight{}, fmt.Errorf("airline %s: %w", caller.Hex(), ErrNotFunded)
	}
	key := model.FlightKey{Airline: caller, Name: name, Timestamp: timestamp}
	f, err = l.flights.register(key, from, to)
	if err != nil {
		return model.Flight{}, err
	}
	l.emit(model.Event{Type: model.EventFlightRegistered, Caller: caller, Actor: caller, Flight: key})
	l.logger.Info("flight registered", zap.Stringer("flight", key))
	return f, nil
}

// SetFlightStatus is the external entry point of the flight registry's status
// write. Statuses are written only when an oracle round finalizes, so every
// direct call fails with ErrUnauthorized once the gate is open.
func (l *Ledger) SetFlightStatus(caller common.Address, key model.FlightKey, status model.StatusCode) (err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("set_flight_status", err, started) }()

	l.mu.RLock()
	defer l.mu.RUnlock()

	if err = l.gate.requireOperational(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s may not set the status of %s to %s, only oracle consensus does",
		ErrUnauthorized, caller.Hex(), key, status)
}

// Flight returns the flight registered under key.
func (l *Ledger) Flight(key model.FlightKey) (model.Flight, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.flights.get(key)
}

// Flights lists registered flights in registration order.
func (l *Ledger) Flights() []model.Flight {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.flights.list()
}

// RegisterOracle registers the caller as an oracle and assigns its index triple.
func (l *Ledger) RegisterOracle(caller common.Address, payment model.Amount) (o model.Oracle, err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("register_oracle", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return model.Oracle{}, err
	}
	reserves, err := safe.Add(l.reserves, payment)
	if err != nil {
		return model.Oracle{}, fmt.Errorf("add reserves: %w", err)
	}
	o, err = l.consensus.register(caller, payment)
	if err != nil {
		return model.Oracle{}, err
	}
	l.reserves = reserves
	l.emit(model.Event{Type: model.EventOracleRegistered, Caller: caller, Actor: caller, Amount: payment})
	l.logger.Debug("oracle registered", zap.String("oracle", caller.Hex()), zap.Uint8s("indexes", o.Indexes[:]))
	return o, nil
}

// OracleIndexes returns the index triple assigned to caller.
func (l *Ledger) OracleIndexes(caller common.Address) ([3]uint8, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.consensus.indexes(caller)
}

// RequestStatus opens an oracle round for the flight. An open round is
// returned as is; a finalized round returns the agreed status without
// starting a new one.
func (l *Ledger) RequestStatus(caller common.Address, key model.FlightKey) (req StatusRequest, err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("request_status", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return StatusRequest{}, err
	}
	if !l.flights.exists(key) {
		return StatusRequest{}, fmt.Errorf("flight %s: %w", key, ErrNotFound)
	}
	r, opened := l.consensus.request(caller, key, l.clock.Now())
	if opened {
		l.emit(model.Event{Type: model.EventOracleRequest, Caller: caller, Flight: key, Index: r.Index})
		l.logger.Info("flight status requested", zap.Stringer("flight", key), zap.Uint8("index", r.Index))
	}
	return StatusRequest{Index: r.Index, State: r.State, Status: r.Status, Opened: opened}, nil
}

// SubmitOracleResponse records an oracle's status report. The response that
// brings a status to Quorum supporters finalizes the round, writes the flight
// status and settles the flight's policies in the same step.
func (l *Ledger) SubmitOracleResponse(
	caller common.Address,
	index uint8,
	key model.FlightKey,
	status model.StatusCode,
) (res ResponseResult, err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("submit_oracle_response", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return ResponseResult{}, err
	}
	supporters, err := l.consensus.checkResponse(caller, index, key, status)
	if err != nil {
		return ResponseResult{}, err
	}

	var plan []credit
	if supporters >= Quorum {
		if plan, err = l.insurance.planSettlement(key, status); err != nil {
			return ResponseResult{}, fmt.Errorf("plan settlement: %w", err)
		}
	}

	supporters, finalized := l.consensus.record(caller, key, status)
	events := []model.Event{{Type: model.EventOracleReport, Caller: caller, Actor: caller, Flight: key, Index: index, Status: status}}
	if finalized {
		if err = l.flights.setStatus(key, status); err != nil {
			// the round only opens once for registered flights, so this is unreachable
			return ResponseResult{}, fmt.Errorf("finalize flight status: %w", err)
		}
		l.insurance.applySettlement(key, plan)
		events = append(events, model.Event{Type: model.EventFlightStatusInfo, Caller: caller, Flight: key, Index: index, Status: status})
		for _, c := range plan {
			events = append(events, model.Event{Type: model.EventInsureeCredited, Caller: caller, Actor: c.passenger, Flight: key, Amount: c.payout})
		}
		l.metrics.ObserveFinalized(status)
		l.logger.Info("flight status finalized",
			zap.Stringer("flight", key),
			zap.Stringer("status", status),
			zap.Int("credited_policies", len(plan)),
		)
	}
	l.emit(events...)
	return ResponseResult{Supporters: supporters, Finalized: finalized}, nil
}

// Round returns the consensus round for key; State is RoundNoRequest when none exists.
func (l *Ledger) Round(key model.FlightKey) model.Round {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, _ := l.consensus.round(key)
	return r
}

// OpenRounds lists flights whose round is still collecting responses.
func (l *Ledger) OpenRounds() []model.FlightKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.consensus.openRounds()
}

// BuyInsurance insures passenger on the flight for min(payment, InsuranceCap).
// The whole payment is kept by the ledger.
func (l *Ledger) BuyInsurance(passenger common.Address, key model.FlightKey, payment model.Amount) (p model.Policy, err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("buy_insurance", err, started) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.gate.requireOperational(); err != nil {
		return model.Policy{}, err
	}
	if !l.flights.exists(key) {
		return model.Policy{}, fmt.Errorf("flight %s: %w", key, ErrFlightNotRegistered)
	}
	if err = l.insurance.checkPurchase(passenger, key, payment); err != nil {
		return model.Policy{}, err
	}
	if r, ok := l.consensus.round(key); ok && r.State == model.RoundFinalized {
		return model.Policy{}, fmt.Errorf("flight %s is %s: %w", key, r.Status, ErrFlightClosed)
	}
	reserves, err := safe.Add(l.reserves, payment)
	if err != nil {
		return model.Policy{}, fmt.Errorf("add reserves: %w", err)
	}
	l.reserves = reserves
	p = l.insurance.buy(passenger, key, payment)
	l.emit(model.Event{Type: model.EventInsurancePurchased, Caller: passenger, Actor: passenger, Flight: key, Amount: p.AmountInsured})
	l.logger.Info("insurance purchased",
		zap.String("passenger", passenger.Hex()),
		zap.Stringer("flight", key),
		zap.Stringer("insured", p.AmountInsured),
	)
	return p, nil
}

// InsuredAmount returns the unsettled insured amount of the passenger's policy.
func (l *Ledger) InsuredAmount(passenger common.Address, key model.FlightKey) model.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.insurance.insured(passenger, key)
}

// Policy returns the passenger's policy on the flight.
func (l *Ledger) Policy(passenger common.Address, key model.FlightKey) (model.Policy, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.insurance.policy(passenger, key)
	if !ok {
		return model.Policy{}, fmt.Errorf("policy %s on %s: %w", passenger.Hex(), key, ErrNotFound)
	}
	return *p, nil
}

// OwedBalance returns the withdrawable balance credited to passenger.
func (l *Ledger) OwedBalance(passenger common.Address) model.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.insurance.owed[passenger]
}

// Reserves returns the value held by the ledger.
func (l *Ledger) Reserves() model.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reserves
}

// PayInsuree transfers the caller's whole owed balance. The balance is
// debited before the transfer runs and restored if the transfer fails.
func (l *Ledger) PayInsuree(ctx context.Context, caller common.Address) (paid model.Amount, err error) {
	started := time.Now()
	defer func() { l.metrics.Observe("pay_insuree", err, started) }()

	amount, err := l.debit(caller)
	if err != nil {
		return 0, err
	}

	if err = l.settlement.Transfer(ctx, caller, amount); err != nil {
		l.mu.Lock()
		l.insurance.owed[caller] += amount
		l.reserves += amount
		l.mu.Unlock()
		l.logger.Error("insuree transfer failed", zap.String("passenger", caller.Hex()), zap.Error(err))
		return 0, fmt.Errorf("transfer payout: %w", err)
	}

	l.mu.Lock()
	l.emit(model.Event{Type: model.EventPaidInsuree, Caller: caller, Actor: caller, Amount: amount})
	l.mu.Unlock()
	l.metrics.ObservePayout(amount)
	l.logger.Info("insuree paid", zap.String("passenger", caller.Hex()), zap.Stringer("payout", amount))
	return amount, nil
}

func (l *Ledger) debit(caller common.Address) (model.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.gate.requireOperational(); err != nil {
		return 0, err
	}
	amount := l.insurance.owed[caller]
	if amount == 0 {
		return 0, fmt.Errorf("passenger %s: %w", caller.Hex(), ErrNothingOwed)
	}
	reserves, err := safe.Sub(l.reserves, amount)
	if err != nil {
		return 0, fmt.Errorf("%w: owed %s, holding %s", ErrInsufficientReserves, amount, l.reserves)
	}
	l.insurance.owed[caller] = 0
	l.reserves = reserves
	return amount, nil
}

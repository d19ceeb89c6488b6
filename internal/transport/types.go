package transport

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/internal/surety"
)

type (
	// Ledger is the ledger surface exposed over HTTP.
	Ledger interface {
		SetOperatingStatus(caller common.Address, operational bool) error
		IsOperational() bool
		AuthorizeCaller(caller, addr common.Address) error
		DeauthorizeCaller(caller, addr common.Address) error
		IsCallerAuthorized(addr common.Address) bool

		RegisterAirline(caller, newAddress common.Address, name string) (surety.RegistrationResult, error)
		FundAirline(caller common.Address, amount model.Amount) error
		IsRegistered(addr common.Address) (bool, int)
		IsFunded(addr common.Address) (bool, int)
		Airline(addr common.Address) (model.Airline, error)

		RegisterFlight(caller common.Address, name string, timestamp uint64, from, to string) (model.Flight, error)
		Flight(key model.FlightKey) (model.Flight, error)
		Flights() []model.Flight

		RegisterOracle(caller common.Address, payment model.Amount) (model.Oracle, error)
		OracleIndexes(caller common.Address) ([3]uint8, error)
		RequestStatus(caller common.Address, key model.FlightKey) (surety.StatusRequest, error)
		SubmitOracleResponse(caller common.Address, index uint8, key model.FlightKey, status model.StatusCode) (surety.ResponseResult, error)
		Round(key model.FlightKey) model.Round
		OpenRounds() []model.FlightKey

		BuyInsurance(passenger common.Address, key model.FlightKey, payment model.Amount) (model.Policy, error)
		Policy(passenger common.Address, key model.FlightKey) (model.Policy, error)
		OwedBalance(passenger common.Address) model.Amount
		Reserves() model.Amount
		PayInsuree(ctx context.Context, caller common.Address) (model.Amount, error)
	}

	// Events is the ordered ledger event feed.
	Events interface {
		Since(seq uint64, limit int) []model.Event
		Wait(ctx context.Context, seq uint64) error
		LastSeq() uint64
	}

	// History serves archived per-flight event history.
	History interface {
		FlightEvents(ctx context.Context, key model.FlightKey) ([]model.Event, error)
	}

	// Seeder bootstraps demo data. Each step returns a trace of what it did.
	Seeder interface {
		Airlines(ctx context.Context) ([]string, error)
		Flights(ctx context.Context) ([]string, error)
		Oracles(ctx context.Context) ([]string, error)
	}
)

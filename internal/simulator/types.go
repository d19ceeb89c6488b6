package simulator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/internal/surety"
)

type (
	// OracleLedger is the part of the ledger a simulated oracle talks to.
	OracleLedger interface {
		RegisterOracle(caller common.Address, payment model.Amount) (model.Oracle, error)
		OracleIndexes(caller common.Address) ([3]uint8, error)
		SubmitOracleResponse(caller common.Address, index uint8, key model.FlightKey, status model.StatusCode) (surety.ResponseResult, error)
	}

	// SeedLedger is the part of the ledger used to bootstrap demo data.
	SeedLedger interface {
		IsRegistered(addr common.Address) (bool, int)
		IsFunded(addr common.Address) (bool, int)
		RegisterAirline(caller, newAddress common.Address, name string) (surety.RegistrationResult, error)
		FundAirline(caller common.Address, amount model.Amount) error
		RegisterFlight(caller common.Address, name string, timestamp uint64, from, to string) (model.Flight, error)
		Flight(key model.FlightKey) (model.Flight, error)
	}

	// Feed delivers ledger events in order.
	Feed interface {
		Since(seq uint64, limit int) []model.Event
		Wait(ctx context.Context, seq uint64) error
	}

	Metrics interface {
		ObserveResponse(err error)
	}

	// StatusPicker chooses the status a simulated oracle reports for a flight.
	StatusPicker interface {
		Pick(oracle common.Address, key model.FlightKey) model.StatusCode
	}
)

package surety

import "github.com/goodnatureofminers/flightsurety-backend/internal/model"

const (
	FundingThreshold      = 10 * model.Ether
	InsuranceCap          = 1 * model.Ether
	OracleRegistrationFee = 1 * model.Ether

	payoutNumerator   = 3
	payoutDenominator = 2

	// Quorum is the number of distinct oracles that must agree on a status.
	Quorum = 3
	// IndexSpace bounds oracle and request indexes to 0..IndexSpace-1.
	IndexSpace = 10

	// directRegistrationLimit is the registered-airline count below which
	// a funded airline may register another one without a vote.
	directRegistrationLimit = 4

	defaultGenesisName = "Genesis Airline"
)

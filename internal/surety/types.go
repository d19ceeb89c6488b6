package surety

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	EventPublisher interface {
		Publish(events ...model.Event)
	}
	Metrics interface {
		Observe(operation string, err error, started time.Time)
		ObserveFinalized(status model.StatusCode)
		ObservePayout(amount model.Amount)
	}
	// Settlement moves value out of the ledger to an external account.
	Settlement interface {
		Transfer(ctx context.Context, to common.Address, amount model.Amount) error
	}
)

// RegistrationResult reports the outcome of RegisterAirline.
type RegistrationResult struct {
	Registered bool
	Votes      int
}

// StatusRequest reports the round opened (or found) by RequestStatus.
type StatusRequest struct {
	Index  uint8
	State  model.RoundState
	Status model.StatusCode
	// Opened is true when this call started a new round.
	Opened bool
}

// ResponseResult reports the effect of an accepted oracle response.
type ResponseResult struct {
	Supporters int
	Finalized  bool
}

type noopSettlement struct{}

func (noopSettlement) Transfer(context.Context, common.Address, model.Amount) error {
	return nil
}

package simulator

import (
	"math/rand/v2"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

// RandomPicker reports a uniformly random status code.
type RandomPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomPicker(seed uint64) *RandomPicker {
	return &RandomPicker{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPicker) Pick(common.Address, model.FlightKey) model.StatusCode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.StatusCodes[p.rnd.IntN(len(model.StatusCodes))]
}

// FixedPicker always reports Status.
type FixedPicker struct {
	Status model.StatusCode
}

func (p FixedPicker) Pick(common.Address, model.FlightKey) model.StatusCode {
	return p.Status
}

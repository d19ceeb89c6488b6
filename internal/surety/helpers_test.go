package surety

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/flightsurety-backend/internal/clock"
	"github.com/goodnatureofminers/flightsurety-backend/internal/eventlog"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

var (
	owner   = testAddress(1)
	genesis = testAddress(2)
)

func testAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(i)))
}

type fixture struct {
	ledger     *Ledger
	log        *eventlog.Log
	clock      *clock.Manual
	nextOracle int
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	metrics := NewMockMetrics(ctrl)
	metrics.EXPECT().Observe(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	metrics.EXPECT().ObserveFinalized(gomock.Any()).AnyTimes()
	metrics.EXPECT().ObservePayout(gomock.Any()).AnyTimes()

	log := eventlog.New()
	clk := clock.NewManual(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	cfg := Config{Owner: owner, GenesisAirline: genesis, Clock: clk}
	for _, opt := range opts {
		opt(&cfg)
	}

	l, err := NewLedger(cfg, log, metrics, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	return &fixture{ledger: l, log: log, clock: clk, nextOracle: 1000}
}

func (f *fixture) fund(t *testing.T, airline common.Address) {
	t.Helper()
	if err := f.ledger.FundAirline(airline, FundingThreshold); err != nil {
		t.Fatalf("FundAirline(%s) error = %v", airline.Hex(), err)
	}
}

// fundedAirlines funds the genesis airline, registers and funds up to three more
// and returns all of them, genesis first.
func (f *fixture) fundedAirlines(t *testing.T, extra int) []common.Address {
	t.Helper()
	f.fund(t, genesis)
	airlines := []common.Address{genesis}
	for i := 0; i < extra; i++ {
		a := testAddress(100 + i)
		res, err := f.ledger.RegisterAirline(genesis, a, "Airline")
		if err != nil || !res.Registered {
			t.Fatalf("RegisterAirline(%s) = %+v, %v", a.Hex(), res, err)
		}
		f.fund(t, a)
		airlines = append(airlines, a)
	}
	return airlines
}

func (f *fixture) flight(t *testing.T, airline common.Address, name string) model.FlightKey {
	t.Helper()
	fl, err := f.ledger.RegisterFlight(airline, name, 1_700_000_000, "RYD", "DAM")
	if err != nil {
		t.Fatalf("RegisterFlight(%s) error = %v", name, err)
	}
	return fl.Key
}

// oraclesHolding registers fresh oracles until n of them hold index.
func (f *fixture) oraclesHolding(t *testing.T, index uint8, n int) []common.Address {
	t.Helper()
	var holders []common.Address
	for attempts := 0; len(holders) < n; attempts++ {
		if attempts > 1000 {
			t.Fatalf("could not find %d oracles holding index %d", n, index)
		}
		addr := testAddress(f.nextOracle)
		f.nextOracle++
		o, err := f.ledger.RegisterOracle(addr, OracleRegistrationFee)
		if err != nil {
			t.Fatalf("RegisterOracle() error = %v", err)
		}
		if o.HasIndex(index) {
			holders = append(holders, addr)
		}
	}
	return holders
}

// finalize requests the flight status and has Quorum oracles report status.
func (f *fixture) finalize(t *testing.T, key model.FlightKey, status model.StatusCode) {
	t.Helper()
	req, err := f.ledger.RequestStatus(testAddress(7), key)
	if err != nil {
		t.Fatalf("RequestStatus() error = %v", err)
	}
	for _, o := range f.oraclesHolding(t, req.Index, Quorum) {
		if _, err := f.ledger.SubmitOracleResponse(o, req.Index, key, status); err != nil {
			t.Fatalf("SubmitOracleResponse() error = %v", err)
		}
	}
	if r := f.ledger.Round(key); r.State != model.RoundFinalized {
		t.Fatalf("round state = %s, want finalized", r.State)
	}
}

func (f *fixture) events(typ model.EventType) []model.Event {
	return eventlog.Filter(f.log.Since(0, 0), typ)
}

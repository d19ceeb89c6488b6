package simulator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/flightsurety-backend/internal/clock"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/internal/surety"
	"github.com/goodnatureofminers/flightsurety-backend/pkg/workerpool"
)

var airports = []string{"RYD", "DAM", "SAM", "COLL", "ASB"}

// AirlineAddress derives the deterministic address of the i-th demo airline.
func AirlineAddress(i int) common.Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(i))
	return common.BytesToAddress(crypto.Keccak256([]byte("flightsurety/demo-airline"), buf[:]))
}

// SeedConfig describes the demo data set.
type SeedConfig struct {
	Genesis           common.Address
	Airlines          int
	FlightsPerAirline int
	Workers           int
}

// Seeder bootstraps demo airlines, flights and oracles. Every step skips what
// already exists, so running it twice is harmless.
type Seeder struct {
	ledger  SeedLedger
	oracles *Oracles
	clock   clock.Clock
	logger  *zap.Logger
	cfg     SeedConfig

	mu       sync.Mutex
	airlines []common.Address
}

func NewSeeder(ledger SeedLedger, oracles *Oracles, clk clock.Clock, logger *zap.Logger, cfg SeedConfig) *Seeder {
	return &Seeder{
		ledger:  ledger,
		oracles: oracles,
		clock:   clk,
		logger:  logger.Named("seed"),
		cfg:     cfg,
	}
}

// All runs airlines, flights and oracles in order.
func (s *Seeder) All(ctx context.Context) ([]string, error) {
	var trace []string
	for _, step := range []func(context.Context) ([]string, error){s.Airlines, s.Flights, s.Oracles} {
		lines, err := step(ctx)
		trace = append(trace, lines...)
		if err != nil {
			return trace, err
		}
	}
	s.logger.Info("demo data ready", zap.Int("steps", len(trace)))
	return trace, nil
}

// Airlines funds the genesis airline, then registers and funds the demo airlines.
func (s *Seeder) Airlines(ctx context.Context) ([]string, error) {
	var trace []string

	line, err := s.ensureFunded(s.cfg.Genesis, "genesis airline")
	if err != nil {
		return trace, err
	}
	trace = append(trace, line)
	airlines := []common.Address{s.cfg.Genesis}

	for i := 1; i <= s.cfg.Airlines; i++ {
		if err := ctx.Err(); err != nil {
			return trace, err
		}
		addr := AirlineAddress(i)
		name := fmt.Sprintf("Airline %d", i)

		if registered, _ := s.ledger.IsRegistered(addr); registered {
			trace = append(trace, fmt.Sprintf("%s is already registered under address %s", name, addr.Hex()))
		} else {
			res, err := s.ledger.RegisterAirline(s.cfg.Genesis, addr, name)
			if err != nil {
				return trace, fmt.Errorf("register %s: %w", name, err)
			}
			if !res.Registered {
				// past the direct registration limit a single vote is not enough
				return trace, fmt.Errorf("register %s: pending with %d votes", name, res.Votes)
			}
			trace = append(trace, fmt.Sprintf("registered %s under address %s", name, addr.Hex()))
		}

		line, err := s.ensureFunded(addr, name)
		if err != nil {
			return trace, err
		}
		trace = append(trace, line)
		airlines = append(airlines, addr)
	}

	s.mu.Lock()
	s.airlines = airlines
	s.mu.Unlock()
	return trace, nil
}

func (s *Seeder) ensureFunded(addr common.Address, name string) (string, error) {
	if funded, _ := s.ledger.IsFunded(addr); funded {
		return fmt.Sprintf("%s is already funded", name), nil
	}
	if err := s.ledger.FundAirline(addr, surety.FundingThreshold); err != nil {
		return "", fmt.Errorf("fund %s: %w", name, err)
	}
	if funded, _ := s.ledger.IsFunded(addr); !funded {
		return "", fmt.Errorf("fund %s: airline is still unfunded", name)
	}
	return fmt.Sprintf("funded %s under address %s", name, addr.Hex()), nil
}

type demoFlight struct {
	airline   common.Address
	name      string
	timestamp uint64
	from, to  string
}

// Flights registers FlightsPerAirline flights for every seeded airline.
// Departures are spread over the hours following the start of the current day.
func (s *Seeder) Flights(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	airlines := append([]common.Address(nil), s.airlines...)
	s.mu.Unlock()
	if len(airlines) == 0 {
		return nil, errors.New("seed airlines before flights")
	}

	day := s.clock.Now().UTC().Truncate(24 * time.Hour)
	var flights []demoFlight
	for a, airline := range airlines {
		for n := 0; n < s.cfg.FlightsPerAirline; n++ {
			from := airports[(a+n)%len(airports)]
			to := airports[(a+n+1+n%3)%len(airports)]
			flights = append(flights, demoFlight{
				airline:   airline,
				name:      fmt.Sprintf("FS%d%02d", a, n+1),
				timestamp: uint64(day.Add(time.Duration(n+1) * time.Hour).Unix()),
				from:      from,
				to:        to,
			})
		}
	}

	var (
		mu    sync.Mutex
		trace []string
	)
	err := workerpool.Process(ctx, s.cfg.Workers, flights, func(_ context.Context, f demoFlight) error {
		key := model.FlightKey{Airline: f.airline, Name: f.name, Timestamp: f.timestamp}
		msg := fmt.Sprintf("flight %s is already registered", key)
		if _, err := s.ledger.Flight(key); errors.Is(err, surety.ErrNotFound) {
			if _, err := s.ledger.RegisterFlight(f.airline, f.name, f.timestamp, f.from, f.to); err != nil {
				return fmt.Errorf("register flight %s: %w", key, err)
			}
			msg = fmt.Sprintf("registered flight %s from %s to %s", key, f.from, f.to)
		}
		mu.Lock()
		trace = append(trace, msg)
		mu.Unlock()
		return nil
	}, nil)
	return trace, err
}

// Oracles registers the simulated oracle panel.
func (s *Seeder) Oracles(ctx context.Context) ([]string, error) {
	return s.oracles.Register(ctx)
}

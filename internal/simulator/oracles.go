// Package simulator stands in for the external oracle processes and the demo
// bootstrap that a full deployment runs next to the ledger.
package simulator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/internal/surety"
	"github.com/goodnatureofminers/flightsurety-backend/pkg/workerpool"
)

const feedPageSize = 256

// OracleAddress derives the deterministic address of the i-th simulated oracle.
func OracleAddress(i int) common.Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(i))
	return common.BytesToAddress(crypto.Keccak256([]byte("flightsurety/simulated-oracle"), buf[:]))
}

// Oracles simulates a panel of oracle nodes answering status requests.
type Oracles struct {
	ledger  OracleLedger
	feed    Feed
	picker  StatusPicker
	metrics Metrics
	logger  *zap.Logger
	workers int

	mu      sync.RWMutex
	members []model.Oracle
	count   int
}

func NewOracles(ledger OracleLedger, feed Feed, picker StatusPicker, metrics Metrics, logger *zap.Logger, count, workers int) *Oracles {
	return &Oracles{
		ledger:  ledger,
		feed:    feed,
		picker:  picker,
		metrics: metrics,
		logger:  logger.Named("oracle_simulator"),
		workers: workers,
		count:   count,
	}
}

// Register registers every simulated oracle that the ledger does not know yet
// and loads the index triples of all of them. It returns one line per action taken.
func (o *Oracles) Register(ctx context.Context) ([]string, error) {
	addrs := make([]common.Address, o.count)
	for i := range addrs {
		addrs[i] = OracleAddress(i)
	}

	var (
		mu      sync.Mutex
		members = make([]model.Oracle, 0, o.count)
		trace   []string
	)
	err := workerpool.Process(ctx, o.workers, addrs, func(_ context.Context, addr common.Address) error {
		indexes, err := o.ledger.OracleIndexes(addr)
		msg := fmt.Sprintf("oracle %s already registered", addr.Hex())
		if errors.Is(err, surety.ErrNotRegistered) {
			oracle, regErr := o.ledger.RegisterOracle(addr, surety.OracleRegistrationFee)
			if regErr != nil {
				return fmt.Errorf("register oracle %s: %w", addr.Hex(), regErr)
			}
			indexes, err = oracle.Indexes, nil
			msg = fmt.Sprintf("registered oracle %s", addr.Hex())
		}
		if err != nil {
			return fmt.Errorf("oracle %s indexes: %w", addr.Hex(), err)
		}

		mu.Lock()
		members = append(members, model.Oracle{Address: addr, Indexes: indexes})
		trace = append(trace, fmt.Sprintf("%s with indexes %v", msg, indexes))
		mu.Unlock()
		return nil
	}, nil)
	if err != nil {
		return trace, err
	}

	o.mu.Lock()
	o.members = members
	o.mu.Unlock()
	o.logger.Info("simulated oracles ready", zap.Int("oracles", len(members)))
	return trace, nil
}

// Run answers every OracleRequest in the feed, starting from the first event, until ctx is done.
func (o *Oracles) Run(ctx context.Context) error {
	var cursor uint64
	for {
		if err := o.feed.Wait(ctx, cursor); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("wait for oracle requests: %w", err)
		}

		for _, e := range o.feed.Since(cursor, feedPageSize) {
			cursor = e.Seq
			if e.Type != model.EventOracleRequest {
				continue
			}
			o.answer(ctx, e)
		}
	}
}

func (o *Oracles) holders(index uint8) []model.Oracle {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var out []model.Oracle
	for _, m := range o.members {
		if m.HasIndex(index) {
			out = append(out, m)
		}
	}
	return out
}

func (o *Oracles) answer(ctx context.Context, req model.Event) {
	targets := o.holders(req.Index)
	if len(targets) == 0 {
		o.logger.Warn("no simulated oracle holds the requested index",
			zap.Stringer("flight", req.Flight),
			zap.Uint8("index", req.Index),
		)
		return
	}

	err := workerpool.Run(ctx, o.workers, targets, func(_ context.Context, oracle model.Oracle) error {
		status := o.picker.Pick(oracle.Address, req.Flight)
		res, err := o.ledger.SubmitOracleResponse(oracle.Address, req.Index, req.Flight, status)
		o.metrics.ObserveResponse(err)
		if err != nil {
			return fmt.Errorf("oracle %s: %w", oracle.Address.Hex(), err)
		}
		if res.Finalized {
			o.logger.Info("simulated oracle closed the round",
				zap.String("oracle", oracle.Address.Hex()),
				zap.Stringer("flight", req.Flight),
				zap.Stringer("status", status),
			)
		}
		return nil
	})
	if err != nil {
		// late responses after finalization are expected
		o.logger.Debug("some simulated responses were rejected",
			zap.Stringer("flight", req.Flight),
			zap.Error(err),
		)
	}
}

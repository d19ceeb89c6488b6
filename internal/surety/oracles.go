package surety

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

// consensusEngine assigns oracle indexes and tallies oracle responses per flight.
type consensusEngine struct {
	oracles map[common.Address]*model.Oracle
	rounds  map[model.FlightKey]*model.Round
	// responded records which oracles already answered a round.
	responded map[model.FlightKey]map[common.Address]struct{}
	nonce     uint64
}

func newConsensusEngine() *consensusEngine {
	return &consensusEngine{
		oracles:   make(map[common.Address]*model.Oracle),
		rounds:    make(map[model.FlightKey]*model.Round),
		responded: make(map[model.FlightKey]map[common.Address]struct{}),
	}
}

// deriveIndex hashes the current nonce with seed material and reduces it
// into the index space. Every call advances the nonce.
func (e *consensusEngine) deriveIndex(seed ...[]byte) uint8 {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], e.nonce)
	e.nonce++

	data := append([][]byte{nonce[:]}, seed...)
	h := new(big.Int).SetBytes(crypto.Keccak256(data...))
	return uint8(new(big.Int).Mod(h, big.NewInt(IndexSpace)).Uint64())
}

func (e *consensusEngine) assignIndexes(caller common.Address) [3]uint8 {
	var idx [3]uint8
	idx[0] = e.deriveIndex(caller.Bytes())
	idx[1] = idx[0]
	for idx[1] == idx[0] {
		idx[1] = e.deriveIndex(caller.Bytes())
	}
	idx[2] = idx[0]
	for idx[2] == idx[0] || idx[2] == idx[1] {
		idx[2] = e.deriveIndex(caller.Bytes())
	}
	return idx
}

func (e *consensusEngine) register(caller common.Address, payment model.Amount) (model.Oracle, error) {
	if payment < OracleRegistrationFee {
		return model.Oracle{}, fmt.Errorf("%w: paid %s, fee is %s", ErrInsufficientFee, payment, OracleRegistrationFee)
	}
	if _, ok := e.oracles[caller]; ok {
		return model.Oracle{}, fmt.Errorf("oracle %s: %w", caller.Hex(), ErrAlreadyRegistered)
	}
	o := &model.Oracle{Address: caller, Indexes: e.assignIndexes(caller)}
	e.oracles[caller] = o
	return *o, nil
}

func (e *consensusEngine) indexes(caller common.Address) ([3]uint8, error) {
	o, ok := e.oracles[caller]
	if !ok {
		return [3]uint8{}, fmt.Errorf("oracle %s: %w", caller.Hex(), ErrNotRegistered)
	}
	return o.Indexes, nil
}

// request opens a round for key unless one already exists.
func (e *consensusEngine) request(caller common.Address, key model.FlightKey, now time.Time) (*model.Round, bool) {
	if r, ok := e.rounds[key]; ok {
		return r, false
	}

	var ts, at [8]byte
	binary.BigEndian.PutUint64(ts[:], key.Timestamp)
	binary.BigEndian.PutUint64(at[:], uint64(now.UnixNano()))
	r := &model.Round{
		Key:       key,
		Index:     e.deriveIndex(caller.Bytes(), key.Airline.Bytes(), []byte(key.Name), ts[:], at[:]),
		State:     model.RoundRequested,
		Responses: make(map[model.StatusCode]map[common.Address]struct{}),
	}
	e.rounds[key] = r
	e.responded[key] = make(map[common.Address]struct{})
	return r, true
}

// checkResponse validates a response without recording it and returns the
// number of supporters status would have once recorded.
func (e *consensusEngine) checkResponse(caller common.Address, index uint8, key model.FlightKey, status model.StatusCode) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}
	o, ok := e.oracles[caller]
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a registered oracle", ErrUnauthorized, caller.Hex())
	}
	if !o.HasIndex(index) {
		return 0, fmt.Errorf("%w: index %d is not assigned to oracle %s", ErrUnauthorized, index, caller.Hex())
	}
	r, ok := e.rounds[key]
	if !ok {
		return 0, fmt.Errorf("%w: no status request for flight %s", ErrUnauthorized, key)
	}
	if r.State == model.RoundFinalized {
		return 0, fmt.Errorf("%w: round for flight %s is finalized", ErrUnauthorized, key)
	}
	if r.Index != index {
		return 0, fmt.Errorf("%w: round for flight %s was requested for index %d", ErrUnauthorized, key, r.Index)
	}
	if _, dup := e.responded[key][caller]; dup {
		return 0, fmt.Errorf("oracle %s on flight %s: %w", caller.Hex(), key, ErrDuplicateResponse)
	}
	return r.Supporters(status) + 1, nil
}

// record stores a validated response and finalizes the round when status
// reaches the quorum.
func (e *consensusEngine) record(caller common.Address, key model.FlightKey, status model.StatusCode) (int, bool) {
	r := e.rounds[key]
	voters, ok := r.Responses[status]
	if !ok {
		voters = make(map[common.Address]struct{})
		r.Responses[status] = voters
	}
	voters[caller] = struct{}{}
	e.responded[key][caller] = struct{}{}

	if len(voters) < Quorum {
		return len(voters), false
	}
	r.State = model.RoundFinalized
	r.Status = status
	return len(voters), true
}

func (e *consensusEngine) round(key model.FlightKey) (model.Round, bool) {
	r, ok := e.rounds[key]
	if !ok {
		return model.Round{Key: key, State: model.RoundNoRequest}, false
	}
	cp := *r
	cp.Responses = make(map[model.StatusCode]map[common.Address]struct{}, len(r.Responses))
	for status, voters := range r.Responses {
		set := make(map[common.Address]struct{}, len(voters))
		for v := range voters {
			set[v] = struct{}{}
		}
		cp.Responses[status] = set
	}
	return cp, true
}

func (e *consensusEngine) openRounds() []model.FlightKey {
	var keys []model.FlightKey
	for key, r := range e.rounds {
		if r.State == model.RoundRequested {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

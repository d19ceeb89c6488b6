package surety

import (
	"fmt"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

type flightRegistry struct {
	flights map[model.FlightKey]*model.Flight
	final   map[model.FlightKey]struct{}
	order   []model.FlightKey
}

func newFlightRegistry() *flightRegistry {
	return &flightRegistry{
		flights: make(map[model.FlightKey]*model.Flight),
		final:   make(map[model.FlightKey]struct{}),
	}
}

func (r *flightRegistry) register(key model.FlightKey, from, to string) (model.Flight, error) {
	if _, ok := r.flights[key]; ok {
		return model.Flight{}, fmt.Errorf("flight %s: %w", key, ErrAlreadyExists)
	}
	f := &model.Flight{
		Key:          key,
		From:         from,
		To:           to,
		IsRegistered: true,
		Status:       model.StatusUnknown,
	}
	r.flights[key] = f
	r.order = append(r.order, key)
	return *f, nil
}

func (r *flightRegistry) get(key model.FlightKey) (model.Flight, error) {
	f, ok := r.flights[key]
	if !ok {
		return model.Flight{}, fmt.Errorf("flight %s: %w", key, ErrNotFound)
	}
	return *f, nil
}

func (r *flightRegistry) exists(key model.FlightKey) bool {
	_, ok := r.flights[key]
	return ok
}

// setStatus writes the finalized status of a flight. A flight is finalized once.
func (r *flightRegistry) setStatus(key model.FlightKey, status model.StatusCode) error {
	f, ok := r.flights[key]
	if !ok {
		return fmt.Errorf("flight %s: %w", key, ErrNotFound)
	}
	if _, done := r.final[key]; done {
		return fmt.Errorf("flight %s is %s: %w", key, f.Status, ErrFlightClosed)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}
	f.Status = status
	r.final[key] = struct{}{}
	return nil
}

func (r *flightRegistry) list() []model.Flight {
	out := make([]model.Flight, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.flights[key])
	}
	return out
}

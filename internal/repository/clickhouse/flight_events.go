package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

const flightEventsQuery = `
SELECT
	id,
	seq,
	type,
	time,
	caller,
	actor,
	oracle_index,
	status,
	amount
FROM ledger_events FINAL
WHERE airline = ? AND flight = ? AND flight_timestamp = ?
ORDER BY time ASC, seq ASC`

// FlightEvents returns the archived history of a flight across all node runs, oldest first.
func (r *Repository) FlightEvents(ctx context.Context, key model.FlightKey) ([]model.Event, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("flight_events", err, start)
	}()

	rows, err := r.conn.Query(ctx, flightEventsQuery, addressString(key.Airline), key.Name, key.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("query flight events: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	var events []model.Event
	for rows.Next() {
		var (
			e         model.Event
			eventType string
			caller    string
			actor     string
			status    uint8
			amount    uint64
		)
		if err = rows.Scan(
			&e.ID,
			&e.Seq,
			&eventType,
			&e.Time,
			&caller,
			&actor,
			&e.Index,
			&status,
			&amount,
		); err != nil {
			return nil, fmt.Errorf("scan flight event: %w", err)
		}

		e.Type = model.EventType(eventType)
		e.Flight = key
		e.Caller = common.HexToAddress(caller)
		e.Actor = common.HexToAddress(actor)
		e.Status = model.StatusCode(status)
		e.Amount = model.Amount(amount)
		events = append(events, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flight events: %w", err)
	}

	return events, nil
}

func addressString(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

const insertEventsQuery = `
INSERT INTO ledger_events (
	run_id,
	seq,
	id,
	type,
	time,
	airline,
	flight,
	flight_timestamp,
	caller,
	actor,
	oracle_index,
	status,
	amount,
	operational
) VALUES`

// InsertEvents stores events of one node run. Rows are deduplicated by (run_id, seq).
func (r *Repository) InsertEvents(ctx context.Context, runID uuid.UUID, events []model.Event) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_events", err, start)
	}()

	if len(events) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertEventsQuery)
	if err != nil {
		return fmt.Errorf("prepare events batch: %w", err)
	}

	for _, e := range events {
		if err = batch.Append(eventRow(runID, e)...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append event %d: %w", e.Seq, err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	return nil
}

func eventRow(runID uuid.UUID, e model.Event) []any {
	return []any{
		runID,
		e.Seq,
		e.ID,
		string(e.Type),
		e.Time,
		addressString(e.Flight.Airline),
		e.Flight.Name,
		e.Flight.Timestamp,
		addressString(e.Caller),
		addressString(e.Actor),
		e.Index,
		uint8(e.Status),
		uint64(e.Amount),
		e.Operational,
	}
}

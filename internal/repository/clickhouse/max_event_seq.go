package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const maxEventSeqQuery = `
SELECT coalesce(max(seq), toUInt64(0)) AS max_seq
FROM ledger_events
WHERE run_id = ?`

// MaxEventSeq returns the highest archived sequence number of a node run, or 0.
func (r *Repository) MaxEventSeq(ctx context.Context, runID uuid.UUID) (uint64, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("max_event_seq", err, start)
	}()

	rows, err := r.conn.Query(ctx, maxEventSeqQuery, runID)
	if err != nil {
		return 0, fmt.Errorf("query max event seq: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	var seq uint64
	if !rows.Next() {
		err = fmt.Errorf("max event seq not found")
		return 0, err
	}

	if err = rows.Scan(&seq); err != nil {
		return 0, fmt.Errorf("scan max event seq: %w", err)
	}
	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate max event seq: %w", err)
	}

	return seq, nil
}

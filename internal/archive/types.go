//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

type (
	// Source is the ordered event feed being archived.
	Source interface {
		Since(seq uint64, limit int) []model.Event
		Wait(ctx context.Context, seq uint64) error
	}

	Repository interface {
		InsertEvents(ctx context.Context, runID uuid.UUID, events []model.Event) error
		MaxEventSeq(ctx context.Context, runID uuid.UUID) (uint64, error)
	}

	Metrics interface {
		ObserveFlush(err error, events int, started time.Time)
		SetCursor(seq uint64)
	}
)

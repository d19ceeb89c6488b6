// Package archive copies ledger events into long-term storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
	"github.com/goodnatureofminers/flightsurety-backend/pkg/batcher"
)

// Config tunes the archiver.
type Config struct {
	RunID         uuid.UUID
	PageSize      int
	FlushSize     int
	FlushInterval time.Duration
	FlushRPS      int
	FlushAttempts int
	RetryBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 500
	}
	if c.FlushSize <= 0 {
		c.FlushSize = 1000
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 2 * time.Second
	}
	if c.FlushRPS <= 0 {
		c.FlushRPS = 10
	}
	if c.FlushAttempts <= 0 {
		c.FlushAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	return c
}

// Archiver follows a Source and writes its events in batches to a Repository.
type Archiver struct {
	source  Source
	repo    Repository
	metrics Metrics
	logger  *zap.Logger
	cfg     Config
}

func NewArchiver(source Source, repo Repository, metrics Metrics, logger *zap.Logger, cfg Config) *Archiver {
	return &Archiver{
		source:  source,
		repo:    repo,
		metrics: metrics,
		logger:  logger.Named("archive"),
		cfg:     cfg.withDefaults(),
	}
}

// Run archives events until ctx is done. Events queued at shutdown are flushed before Run returns.
func (a *Archiver) Run(ctx context.Context) error {
	cursor, err := a.repo.MaxEventSeq(ctx, a.cfg.RunID)
	if err != nil {
		return fmt.Errorf("load archive cursor: %w", err)
	}
	a.logger.Info("archive started",
		zap.String("run_id", a.cfg.RunID.String()),
		zap.Uint64("cursor", cursor),
	)

	b := batcher.New(a.logger, a.flush, a.cfg.FlushSize, a.cfg.FlushInterval, a.cfg.FlushRPS,
		batcher.WithRetry(a.cfg.FlushAttempts, a.cfg.RetryBackoff))
	b.Start(ctx)
	defer b.Stop()

	for {
		if err := a.source.Wait(ctx, cursor); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("wait for events: %w", err)
		}

		for _, e := range a.source.Since(cursor, a.cfg.PageSize) {
			if err := b.Add(ctx, e); err != nil {
				// the batcher is stopping; whatever was queued is still flushed
				return nil
			}
			cursor = e.Seq
		}
		a.metrics.SetCursor(cursor)
	}
}

func (a *Archiver) flush(ctx context.Context, events []model.Event) error {
	start := time.Now()
	err := a.repo.InsertEvents(ctx, a.cfg.RunID, events)
	a.metrics.ObserveFlush(err, len(events), start)
	return err
}

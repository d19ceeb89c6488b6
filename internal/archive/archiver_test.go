package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/flightsurety-backend/internal/eventlog"
	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

type recordedInserts struct {
	mu   sync.Mutex
	seqs []uint64
}

func (r *recordedInserts) record(_ context.Context, _ uuid.UUID, events []model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.seqs = append(r.seqs, e.Seq)
	}
	return nil
}

func (r *recordedInserts) snapshot() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.seqs...)
}

func TestArchiver_RunArchivesFromCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	runID := uuid.New()
	log := eventlog.New()
	for i := 0; i < 5; i++ {
		log.Publish(model.Event{Type: model.EventFlightRegistered})
	}

	inserts := &recordedInserts{}
	repo := NewMockRepository(ctrl)
	repo.EXPECT().MaxEventSeq(gomock.Any(), runID).Return(uint64(2), nil)
	repo.EXPECT().InsertEvents(gomock.Any(), runID, gomock.Any()).DoAndReturn(inserts.record).AnyTimes()

	metrics := NewMockMetrics(ctrl)
	metrics.EXPECT().ObserveFlush(nil, gomock.Any(), gomock.Any()).AnyTimes()
	metrics.EXPECT().SetCursor(gomock.Any()).AnyTimes()

	a := NewArchiver(log, repo, metrics, zap.NewNop(), Config{
		RunID:         runID,
		FlushSize:     2,
		FlushInterval: 10 * time.Millisecond,
		FlushRPS:      1000,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(inserts.snapshot()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	log.Publish(model.Event{Type: model.EventOracleRequest})
	require.Eventually(t, func() bool {
		return len(inserts.snapshot()) == 4
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, []uint64{3, 4, 5, 6}, inserts.snapshot())
}

func TestArchiver_FlushesQueuedEventsOnShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	runID := uuid.New()
	log := eventlog.New()
	log.Publish(model.Event{Type: model.EventAirlineFunded}, model.Event{Type: model.EventFlightRegistered})

	inserts := &recordedInserts{}
	repo := NewMockRepository(ctrl)
	repo.EXPECT().MaxEventSeq(gomock.Any(), runID).Return(uint64(0), nil)
	repo.EXPECT().InsertEvents(gomock.Any(), runID, gomock.Any()).DoAndReturn(inserts.record).AnyTimes()

	metrics := NewMockMetrics(ctrl)
	metrics.EXPECT().ObserveFlush(nil, gomock.Any(), gomock.Any()).AnyTimes()
	cursorSet := make(chan uint64, 10)
	metrics.EXPECT().SetCursor(gomock.Any()).Do(func(seq uint64) { cursorSet <- seq }).AnyTimes()

	// flush only by size or shutdown
	a := NewArchiver(log, repo, metrics, zap.NewNop(), Config{
		RunID:         runID,
		FlushSize:     100,
		FlushInterval: time.Hour,
		FlushRPS:      1000,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case seq := <-cursorSet:
		require.Equal(t, uint64(2), seq)
	case <-time.After(2 * time.Second):
		t.Fatal("archiver never advanced its cursor")
	}
	require.Empty(t, inserts.snapshot())

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, []uint64{1, 2}, inserts.snapshot())
}

func TestArchiver_CursorLoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	loadErr := errors.New("clickhouse down")
	repo := NewMockRepository(ctrl)
	repo.EXPECT().MaxEventSeq(gomock.Any(), gomock.Any()).Return(uint64(0), loadErr)

	a := NewArchiver(NewMockSource(ctrl), repo, NewMockMetrics(ctrl), zap.NewNop(), Config{})

	err := a.Run(context.Background())
	require.ErrorIs(t, err, loadErr)
}

func TestArchiver_SourceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	waitErr := errors.New("feed closed")
	source := NewMockSource(ctrl)
	source.EXPECT().Wait(gomock.Any(), uint64(0)).Return(waitErr)

	repo := NewMockRepository(ctrl)
	repo.EXPECT().MaxEventSeq(gomock.Any(), gomock.Any()).Return(uint64(0), nil)

	a := NewArchiver(source, repo, NewMockMetrics(ctrl), zap.NewNop(), Config{FlushInterval: time.Hour})

	err := a.Run(context.Background())
	require.ErrorIs(t, err, waitErr)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{FlushSize: 7}.withDefaults()

	require.Equal(t, 7, cfg.FlushSize)
	require.Equal(t, 500, cfg.PageSize)
	require.Equal(t, 3, cfg.FlushAttempts)
	require.Equal(t, 2*time.Second, cfg.FlushInterval)
}

//go:build integration

package clickhouse

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

func newEvent(seq uint64, typ model.EventType, key model.FlightKey, ts time.Time) model.Event {
	return model.Event{
		ID:     uuid.New(),
		Seq:    seq,
		Type:   typ,
		Time:   ts,
		Flight: key,
		Caller: common.HexToAddress("0x00000000000000000000000000000000000000c1"),
	}
}

func (s *RepositorySuite) TestInsertEventsDeduplicatesReplays() {
	runID := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	key := model.FlightKey{Airline: common.HexToAddress("0xa1"), Name: "ND1309", Timestamp: 1}
	events := []model.Event{
		newEvent(1, model.EventFlightRegistered, key, now),
		newEvent(2, model.EventOracleRequest, key, now.Add(time.Second)),
	}

	s.metrics.EXPECT().Observe("insert_events", gomock.Nil(), gomock.Any()).Times(2)

	s.Require().NoError(s.repo.InsertEvents(s.testCtx, runID, events))
	s.Require().NoError(s.repo.InsertEvents(s.testCtx, runID, events[1:]))

	s.Equal(uint64(len(events)), s.countRows("ledger_events"))
}

func (s *RepositorySuite) TestMaxEventSeqPerRun() {
	runID := uuid.New()
	otherRun := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	key := model.FlightKey{Airline: common.HexToAddress("0xa1"), Name: "ND1309", Timestamp: 1}

	s.metrics.EXPECT().Observe("insert_events", gomock.Nil(), gomock.Any()).Times(2)
	s.metrics.EXPECT().Observe("max_event_seq", gomock.Nil(), gomock.Any()).Times(3)

	s.Require().NoError(s.repo.InsertEvents(s.testCtx, runID, []model.Event{
		newEvent(1, model.EventFlightRegistered, key, now),
		newEvent(5, model.EventOracleRequest, key, now),
	}))
	s.Require().NoError(s.repo.InsertEvents(s.testCtx, otherRun, []model.Event{
		newEvent(9, model.EventFlightRegistered, key, now),
	}))

	got, err := s.repo.MaxEventSeq(s.testCtx, runID)
	s.Require().NoError(err)
	s.Equal(uint64(5), got)

	got, err = s.repo.MaxEventSeq(s.testCtx, otherRun)
	s.Require().NoError(err)
	s.Equal(uint64(9), got)

	got, err = s.repo.MaxEventSeq(s.testCtx, uuid.New())
	s.Require().NoError(err)
	s.Equal(uint64(0), got)
}

func (s *RepositorySuite) TestFlightEventsReturnsHistoryInOrder() {
	runID := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	key := model.FlightKey{Airline: common.HexToAddress("0xa1"), Name: "ND1309", Timestamp: 1}
	other := model.FlightKey{Airline: common.HexToAddress("0xa1"), Name: "ND1310", Timestamp: 1}

	status := newEvent(3, model.EventFlightStatusInfo, key, now.Add(2*time.Second))
	status.Status = model.StatusLateAirline
	status.Index = 6

	s.metrics.EXPECT().Observe("insert_events", gomock.Nil(), gomock.Any())
	s.metrics.EXPECT().Observe("flight_events", gomock.Nil(), gomock.Any())

	s.Require().NoError(s.repo.InsertEvents(s.testCtx, runID, []model.Event{
		status,
		newEvent(1, model.EventFlightRegistered, key, now),
		newEvent(2, model.EventFlightRegistered, other, now.Add(time.Second)),
	}))

	got, err := s.repo.FlightEvents(s.testCtx, key)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(model.EventFlightRegistered, got[0].Type)
	s.Equal(model.EventFlightStatusInfo, got[1].Type)
	s.Equal(model.StatusLateAirline, got[1].Status)
	s.Equal(uint8(6), got[1].Index)
	s.Equal(status.ID, got[1].ID)
	s.Equal(key, got[1].Flight)
}

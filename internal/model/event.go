package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// EventType names a ledger event.
type EventType string

var (
	EventOracleRequest          EventType = "OracleRequest"
	EventOracleReport           EventType = "OracleReport"
	EventFlightStatusInfo       EventType = "FlightStatusInfo"
	EventPaidInsuree            EventType = "PaidInsuree"
	EventAirlineRegistered      EventType = "AirlineRegistered"
	EventAirlineVoted           EventType = "AirlineVoted"
	EventAirlineFunded          EventType = "AirlineFunded"
	EventFlightRegistered       EventType = "FlightRegistered"
	EventOracleRegistered       EventType = "OracleRegistered"
	EventInsurancePurchased     EventType = "InsurancePurchased"
	EventInsureeCredited        EventType = "InsureeCredited"
	EventOperatingStatusChanged EventType = "OperatingStatusChanged"
)

// Event is an immutable record emitted by the ledger. Only the fields relevant to Type are set.
type Event struct {
	ID     uuid.UUID
	Seq    uint64
	Type   EventType
	Time   time.Time
	Flight FlightKey
	// Caller is the authenticated identity whose operation produced the event.
	Caller common.Address
	// Actor is the airline, oracle or passenger the event is about.
	Actor       common.Address
	Index       uint8
	Status      StatusCode
	Amount      Amount
	Operational bool
}

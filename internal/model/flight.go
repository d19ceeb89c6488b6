package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// StatusCode is the real-world status of a flight as agreed by the oracles.
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

// Valid reports whether the code is one of the known statuses.
func (s StatusCode) Valid() bool {
	switch s {
	case StatusUnknown, StatusOnTime, StatusLateAirline, StatusLateWeather, StatusLateTechnical, StatusLateOther:
		return true
	default:
		return false
	}
}

func (s StatusCode) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusOnTime:
		return "On Time"
	case StatusLateAirline:
		return "Late (Airline)"
	case StatusLateWeather:
		return "Late (Weather)"
	case StatusLateTechnical:
		return "Late (Technical)"
	case StatusLateOther:
		return "Late (Other)"
	default:
		return fmt.Sprintf("StatusCode(%d)", uint8(s))
	}
}

// StatusCodes lists every status an oracle may report.
var StatusCodes = []StatusCode{
	StatusUnknown,
	StatusOnTime,
	StatusLateAirline,
	StatusLateWeather,
	StatusLateTechnical,
	StatusLateOther,
}

// FlightKey identifies a flight.
type FlightKey struct {
	Airline   common.Address
	Name      string
	Timestamp uint64
}

func (k FlightKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Airline.Hex(), k.Name, k.Timestamp)
}

// Flight is a scheduled flight registered by a funded airline.
type Flight struct {
	Key          FlightKey
	From         string
	To           string
	IsRegistered bool
	Status       StatusCode
}

package transport

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

type (
	operatingStatusRequest struct {
		Operational *bool `json:"operational" validate:"required"`
	}

	registerAirlineRequest struct {
		Address string `json:"address" validate:"required,eth_addr"`
		Name    string `json:"name" validate:"required,max=64"`
	}

	paymentRequest struct {
		Amount string `json:"amount" validate:"required"`
	}

	registerFlightRequest struct {
		Name      string `json:"name" validate:"required,max=64"`
		Timestamp uint64 `json:"timestamp" validate:"required"`
		From      string `json:"from" validate:"required"`
		To        string `json:"to" validate:"required,nefield=From"`
	}

	oracleResponseRequest struct {
		Index     *uint8 `json:"index" validate:"required,lte=9"`
		Airline   string `json:"airline" validate:"required,eth_addr"`
		Flight    string `json:"flight" validate:"required"`
		Timestamp uint64 `json:"timestamp" validate:"required"`
		Status    *uint8 `json:"status" validate:"required"`
	}
)

type amountJSON struct {
	Value string `json:"value"`
	Gwei  uint64 `json:"gwei"`
}

func amountOf(a model.Amount) amountJSON {
	return amountJSON{Value: a.String(), Gwei: uint64(a)}
}

type flightKeyJSON struct {
	Airline   string `json:"airline"`
	Name      string `json:"name"`
	Timestamp uint64 `json:"timestamp"`
}

func flightKeyOf(k model.FlightKey) flightKeyJSON {
	return flightKeyJSON{Airline: k.Airline.Hex(), Name: k.Name, Timestamp: k.Timestamp}
}

type airlineJSON struct {
	Address         string     `json:"address"`
	Name            string     `json:"name"`
	IsRegistered    bool       `json:"is_registered"`
	IsFunded        bool       `json:"is_funded"`
	Funds           amountJSON `json:"funds"`
	Votes           int        `json:"votes"`
	Voters          []string   `json:"voters"`
	RegisteredCount int        `json:"registered_count"`
	FundedCount     int        `json:"funded_count"`
}

func airlineOf(a model.Airline, registered, funded int) airlineJSON {
	voters := make([]string, 0, len(a.Voters))
	for v := range a.Voters {
		voters = append(voters, v.Hex())
	}
	sort.Strings(voters)
	return airlineJSON{
		Address:         a.Address.Hex(),
		Name:            a.Name,
		IsRegistered:    a.IsRegistered,
		IsFunded:        a.IsFunded,
		Funds:           amountOf(a.Funds),
		Votes:           a.Votes(),
		Voters:          voters,
		RegisteredCount: registered,
		FundedCount:     funded,
	}
}

type flightJSON struct {
	Key         flightKeyJSON `json:"key"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Status      uint8         `json:"status"`
	StatusLabel string        `json:"status_label"`
}

func flightOf(f model.Flight) flightJSON {
	return flightJSON{
		Key:         flightKeyOf(f.Key),
		From:        f.From,
		To:          f.To,
		Status:      uint8(f.Status),
		StatusLabel: f.Status.String(),
	}
}

type roundJSON struct {
	Flight flightKeyJSON `json:"flight"`
	Index  uint8         `json:"index"`
	State  string        `json:"state"`
	Status uint8         `json:"status"`
	Tally  map[uint8]int `json:"tally"`
}

func roundOf(key model.FlightKey, r model.Round) roundJSON {
	tally := make(map[uint8]int, len(r.Responses))
	for status, voters := range r.Responses {
		tally[uint8(status)] = len(voters)
	}
	return roundJSON{
		Flight: flightKeyOf(key),
		Index:  r.Index,
		State:  string(r.State),
		Status: uint8(r.Status),
		Tally:  tally,
	}
}

type policyJSON struct {
	Passenger     string        `json:"passenger"`
	Flight        flightKeyJSON `json:"flight"`
	AmountPaid    amountJSON    `json:"amount_paid"`
	AmountInsured amountJSON    `json:"amount_insured"`
	PaidOut       bool          `json:"paid_out"`
}

func policyOf(p model.Policy) policyJSON {
	return policyJSON{
		Passenger:     p.Passenger.Hex(),
		Flight:        flightKeyOf(p.Flight),
		AmountPaid:    amountOf(p.AmountPaid),
		AmountInsured: amountOf(p.AmountInsured),
		PaidOut:       p.PaidOut,
	}
}

type eventJSON struct {
	ID          string         `json:"id"`
	Seq         uint64         `json:"seq"`
	Type        string         `json:"type"`
	Time        time.Time      `json:"time"`
	Flight      *flightKeyJSON `json:"flight,omitempty"`
	Caller      string         `json:"caller,omitempty"`
	Actor       string         `json:"actor,omitempty"`
	Index       uint8          `json:"index"`
	Status      uint8          `json:"status"`
	Amount      amountJSON     `json:"amount"`
	Operational bool           `json:"operational"`
}

func eventsOf(events []model.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		j := eventJSON{
			ID:          e.ID.String(),
			Seq:         e.Seq,
			Type:        string(e.Type),
			Time:        e.Time,
			Caller:      hexOrEmpty(e.Caller),
			Actor:       hexOrEmpty(e.Actor),
			Index:       e.Index,
			Status:      uint8(e.Status),
			Amount:      amountOf(e.Amount),
			Operational: e.Operational,
		}
		if e.Flight != (model.FlightKey{}) {
			k := flightKeyOf(e.Flight)
			j.Flight = &k
		}
		out = append(out, j)
	}
	return out
}

// indexesOf avoids the base64 encoding json applies to byte slices.
func indexesOf(idx [3]uint8) []int {
	return []int{int(idx[0]), int(idx[1]), int(idx[2])}
}

func hexOrEmpty(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

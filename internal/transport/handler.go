// Package transport exposes the ledger over HTTP and gRPC health checks.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

// CallerHeader carries the address of the authenticated caller.
const CallerHeader = "X-Caller-Address"

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
	maxEventsWait      = 30 * time.Second
	maxBodyBytes       = 1 << 16
)

// Option configures a Handler.
type Option func(*Handler)

// WithHistory serves archived flight history.
func WithHistory(history History) Option {
	return func(h *Handler) { h.history = history }
}

// WithSeeder enables the demo bootstrap routes.
func WithSeeder(seeder Seeder) Option {
	return func(h *Handler) { h.seeder = seeder }
}

// WithHealth serves the health status over HTTP.
func WithHealth(health *Health) Option {
	return func(h *Handler) { h.health = health }
}

// Handler serves the ledger JSON API.
type Handler struct {
	ledger   Ledger
	events   Events
	history  History
	seeder   Seeder
	health   *Health
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(ledger Ledger, events Events, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		ledger:   ledger,
		events:   events,
		validate: validator.New(),
		logger:   logger.Named("transport"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type route struct {
	method  string
	pattern string
	handle  gwruntime.HandlerFunc
}

func (h *Handler) routes() []route {
	const flight = "/v1/flights/{airline}/{name}/{timestamp}"
	return []route{
		{http.MethodGet, "/v1/health", h.getHealth},
		{http.MethodGet, "/v1/operating-status", h.getOperatingStatus},
		{http.MethodPut, "/v1/operating-status", h.setOperatingStatus},
		{http.MethodGet, "/v1/authorized-callers/{address}", h.getAuthorizedCaller},
		{http.MethodPut, "/v1/authorized-callers/{address}", h.authorizeCaller},
		{http.MethodDelete, "/v1/authorized-callers/{address}", h.deauthorizeCaller},

		{http.MethodPost, "/v1/airlines", h.registerAirline},
		{http.MethodPost, "/v1/airlines/funding", h.fundAirline},
		{http.MethodGet, "/v1/airlines/{address}", h.getAirline},

		{http.MethodPost, "/v1/flights", h.registerFlight},
		{http.MethodGet, "/v1/flights", h.listFlights},
		{http.MethodGet, flight, h.getFlight},
		{http.MethodPost, flight + "/status-requests", h.requestStatus},
		{http.MethodGet, flight + "/round", h.getRound},
		{http.MethodGet, flight + "/history", h.getHistory},
		{http.MethodPost, flight + "/policies", h.buyInsurance},
		{http.MethodGet, flight + "/policies/{passenger}", h.getPolicy},

		{http.MethodPost, "/v1/oracles", h.registerOracle},
		{http.MethodGet, "/v1/oracles/{address}/indexes", h.getOracleIndexes},
		{http.MethodPost, "/v1/oracle-responses", h.submitOracleResponse},
		{http.MethodGet, "/v1/rounds/open", h.listOpenRounds},

		{http.MethodGet, "/v1/passengers/{address}/balance", h.getBalance},
		{http.MethodPost, "/v1/payouts", h.payInsuree},
		{http.MethodGet, "/v1/reserves", h.getReserves},

		{http.MethodGet, "/v1/events", h.listEvents},

		{http.MethodPost, "/v1/demo/airlines", h.seed(func(s Seeder) func(context.Context) ([]string, error) { return s.Airlines })},
		{http.MethodPost, "/v1/demo/flights", h.seed(func(s Seeder) func(context.Context) ([]string, error) { return s.Flights })},
		{http.MethodPost, "/v1/demo/oracles", h.seed(func(s Seeder) func(context.Context) ([]string, error) { return s.Oracles })},
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *gwruntime.ServeMux) error {
	for _, rt := range h.routes() {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handle); err != nil {
			return fmt.Errorf("register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UNKNOWN"})
		return
	}
	status := h.health.Status()
	code := http.StatusOK
	if status != servingStatus {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status.String()})
}

func (h *Handler) getOperatingStatus(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]bool{"operational": h.ledger.IsOperational()})
}

func (h *Handler) setOperatingStatus(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req operatingStatusRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.ledger.SetOperatingStatus(caller, *req.Operational); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"operational": h.ledger.IsOperational()})
}

func (h *Handler) getAuthorizedCaller(w http.ResponseWriter, r *http.Request, params map[string]string) {
	addr, err := addressParam(params, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr.Hex(), "authorized": h.ledger.IsCallerAuthorized(addr)})
}

func (h *Handler) authorizeCaller(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.changeAuthorization(w, r, params, h.ledger.AuthorizeCaller)
}

func (h *Handler) deauthorizeCaller(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.changeAuthorization(w, r, params, h.ledger.DeauthorizeCaller)
}

func (h *Handler) changeAuthorization(w http.ResponseWriter, r *http.Request, params map[string]string, apply func(caller, addr common.Address) error) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	addr, err := addressParam(params, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := apply(caller, addr); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr.Hex(), "authorized": h.ledger.IsCallerAuthorized(addr)})
}

func (h *Handler) registerAirline(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req registerAirlineRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.ledger.RegisterAirline(caller, common.HexToAddress(req.Address), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if res.Registered {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"registered": res.Registered, "votes": res.Votes})
}

func (h *Handler) fundAirline(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := h.decodeAmount(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.ledger.FundAirline(caller, amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeAirline(w, r, caller)
}

func (h *Handler) getAirline(w http.ResponseWriter, r *http.Request, params map[string]string) {
	addr, err := addressParam(params, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeAirline(w, r, addr)
}

func (h *Handler) writeAirline(w http.ResponseWriter, r *http.Request, addr common.Address) {
	a, err := h.ledger.Airline(addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_, registered := h.ledger.IsRegistered(addr)
	_, funded := h.ledger.IsFunded(addr)
	writeJSON(w, http.StatusOK, airlineOf(a, registered, funded))
}

func (h *Handler) registerFlight(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req registerFlightRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := h.ledger.RegisterFlight(caller, req.Name, req.Timestamp, req.From, req.To)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, flightOf(f))
}

func (h *Handler) listFlights(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	flights := h.ledger.Flights()
	out := make([]flightJSON, 0, len(flights))
	for _, f := range flights {
		out = append(out, flightOf(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"flights": out})
}

func (h *Handler) getFlight(w http.ResponseWriter, r *http.Request, params map[string]string) {
	key, err := flightKeyParam(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := h.ledger.Flight(key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flightOf(f))
}

func (h *Handler) requestStatus(w http.ResponseWriter, r *http.Request, params map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	key, err := flightKeyParam(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.ledger.RequestStatus(caller, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if req.Opened {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"flight": flightKeyOf(key),
		"index":  req.Index,
		"state":  string(req.State),
		"status": uint8(req.Status),
		"opened": req.Opened,
	})
}

func (h *Handler) getRound(w http.ResponseWriter, r *http.Request, params map[string]string) {
	key, err := flightKeyParam(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roundOf(key, h.ledger.Round(key)))
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request, params map[string]string) {
	if h.history == nil {
		h.writeError(w, r, errNoHistory)
		return
	}
	key, err := flightKeyParam(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	events, err := h.history.FlightEvents(r.Context(), key)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("load flight history: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": eventsOf(events)})
}

func (h *Handler) buyInsurance(w http.ResponseWriter, r *http.Request, params map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	key, err := flightKeyParam(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := h.decodeAmount(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.ledger.BuyInsurance(caller, key, amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, policyOf(p))
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request, params map[string]string) {
	key, err := flightKeyParam(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	passenger, err := addressParam(params, "passenger")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.ledger.Policy(passenger, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, policyOf(p))
}

func (h *Handler) registerOracle(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := h.decodeAmount(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.ledger.RegisterOracle(caller, amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"address": o.Address.Hex(), "indexes": indexesOf(o.Indexes)})
}

func (h *Handler) getOracleIndexes(w http.ResponseWriter, r *http.Request, params map[string]string) {
	addr, err := addressParam(params, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	indexes, err := h.ledger.OracleIndexes(addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr.Hex(), "indexes": indexesOf(indexes)})
}

func (h *Handler) submitOracleResponse(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req oracleResponseRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	key := model.FlightKey{Airline: common.HexToAddress(req.Airline), Name: req.Flight, Timestamp: req.Timestamp}
	res, err := h.ledger.SubmitOracleResponse(caller, *req.Index, key, model.StatusCode(*req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"supporters": res.Supporters, "finalized": res.Finalized})
}

func (h *Handler) listOpenRounds(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	keys := h.ledger.OpenRounds()
	out := make([]flightKeyJSON, 0, len(keys))
	for _, k := range keys {
		out = append(out, flightKeyOf(k))
	}
	writeJSON(w, http.StatusOK, map[string]any{"flights": out})
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request, params map[string]string) {
	addr, err := addressParam(params, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"passenger": addr.Hex(), "owed": amountOf(h.ledger.OwedBalance(addr))})
}

func (h *Handler) payInsuree(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paid, err := h.ledger.PayInsuree(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"passenger": caller.Hex(), "paid": amountOf(paid)})
}

func (h *Handler) getReserves(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]any{"reserves": amountOf(h.ledger.Reserves())})
}

// listEvents pages through the event log. With wait set it long-polls until
// an event newer than since exists or the wait elapses.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	since, err := uintQuery(q.Get("since"), 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := uintQuery(q.Get("limit"), defaultEventsLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if limit == 0 || limit > maxEventsLimit {
		limit = maxEventsLimit
	}

	if raw := q.Get("wait"); raw != "" {
		wait, err := time.ParseDuration(raw)
		if err != nil || wait < 0 {
			h.writeError(w, r, fmt.Errorf("%w: wait %q", errBadRequest, raw))
			return
		}
		if wait > maxEventsWait {
			wait = maxEventsWait
		}
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		err = h.events.Wait(ctx, since)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			h.writeError(w, r, err)
			return
		}
	}

	events := h.events.Since(since, int(limit))
	writeJSON(w, http.StatusOK, map[string]any{
		"events":   eventsOf(events),
		"last_seq": h.events.LastSeq(),
	})
}

func (h *Handler) seed(step func(Seeder) func(context.Context) ([]string, error)) gwruntime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		if h.seeder == nil {
			h.writeError(w, r, errNoSeeder)
			return
		}
		trace, err := step(h.seeder)(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "okay", "events": trace})
	}
}

func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handler) decodeAmount(r *http.Request) (model.Amount, error) {
	var req paymentRequest
	if err := h.decode(r, &req); err != nil {
		return 0, err
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return amount, nil
}

func callerFrom(r *http.Request) (common.Address, error) {
	raw := r.Header.Get(CallerHeader)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: header %s must carry a hex address", errBadRequest, CallerHeader)
	}
	return common.HexToAddress(raw), nil
}

func addressParam(params map[string]string, name string) (common.Address, error) {
	raw := params[name]
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not a hex address", errBadRequest, name, raw)
	}
	return common.HexToAddress(raw), nil
}

func flightKeyParam(params map[string]string) (model.FlightKey, error) {
	airline, err := addressParam(params, "airline")
	if err != nil {
		return model.FlightKey{}, err
	}
	ts, err := strconv.ParseUint(params["timestamp"], 10, 64)
	if err != nil {
		return model.FlightKey{}, fmt.Errorf("%w: timestamp %q", errBadRequest, params["timestamp"])
	}
	name := params["name"]
	if name == "" {
		return model.FlightKey{}, fmt.Errorf("%w: empty flight name", errBadRequest)
	}
	return model.FlightKey{Airline: airline, Name: name, Timestamp: ts}, nil
}

func uintQuery(raw string, def uint64) (uint64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", errBadRequest, raw)
	}
	return v, nil
}

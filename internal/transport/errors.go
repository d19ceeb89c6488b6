package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"github.com/goodnatureofminers/flightsurety-backend/internal/surety"
)

var (
	errBadRequest = errors.New("bad request")
	errNoHistory  = errors.New("event archive is not configured")
	errNoSeeder   = errors.New("demo seeding is not enabled")
)

// Code maps a ledger error onto the gRPC status code reported to clients.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, surety.ErrNotOperational):
		return codes.Unavailable
	case errors.Is(err, surety.ErrUnauthorized):
		return codes.PermissionDenied
	case errors.Is(err, surety.ErrNotFound),
		errors.Is(err, surety.ErrNotRegistered),
		errors.Is(err, surety.ErrFlightNotRegistered):
		return codes.NotFound
	case errors.Is(err, surety.ErrAlreadyExists),
		errors.Is(err, surety.ErrAlreadyRegistered),
		errors.Is(err, surety.ErrAlreadyInsured),
		errors.Is(err, surety.ErrDuplicateResponse):
		return codes.AlreadyExists
	case errors.Is(err, errBadRequest),
		errors.Is(err, surety.ErrInsufficientFee),
		errors.Is(err, surety.ErrZeroPayment),
		errors.Is(err, surety.ErrInvalidStatus):
		return codes.InvalidArgument
	case errors.Is(err, surety.ErrNotFunded),
		errors.Is(err, surety.ErrNothingOwed),
		errors.Is(err, surety.ErrFlightClosed),
		errors.Is(err, surety.ErrInsufficientReserves):
		return codes.FailedPrecondition
	case errors.Is(err, errNoHistory), errors.Is(err, errNoSeeder):
		return codes.Unimplemented
	default:
		return codes.Internal
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := Code(err)
	if code == codes.Internal {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Stringer("code", code), zap.Error(err))
	}
	writeJSON(w, gwruntime.HTTPStatusFromCode(code), errorBody{Code: code.String(), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

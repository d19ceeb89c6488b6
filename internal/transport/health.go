package transport

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

// ServiceName is the gRPC health service name reported for the ledger.
const ServiceName = "flightsurety.v1.Ledger"

const servingStatus = healthpb.HealthCheckResponse_SERVING

// Health publishes the ledger's operational gate as gRPC health status.
type Health struct {
	server      *health.Server
	operational func() bool
	events      Events
	start       uint64
	logger      *zap.Logger

	mu     sync.RWMutex
	status healthpb.HealthCheckResponse_ServingStatus
}

func NewHealth(operational func() bool, events Events, logger *zap.Logger) *Health {
	h := &Health{
		server:      health.NewServer(),
		operational: operational,
		events:      events,
		start:       events.LastSeq(),
		logger:      logger.Named("health"),
	}
	h.set(operational())
	return h
}

// Server returns the gRPC health service to register on a grpc.Server.
func (h *Health) Server() healthpb.HealthServer {
	return h.server
}

// Status returns the current ledger serving status.
func (h *Health) Status() healthpb.HealthCheckResponse_ServingStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Run follows operating status changes published after NewHealth until ctx is
// done, then marks every service as not serving.
func (h *Health) Run(ctx context.Context) error {
	defer h.server.Shutdown()

	cursor := h.start
	h.set(h.operational())
	for {
		if err := h.events.Wait(ctx, cursor); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		for _, e := range h.events.Since(cursor, 0) {
			cursor = e.Seq
			if e.Type == model.EventOperatingStatusChanged {
				h.set(e.Operational)
			}
		}
	}
}

func (h *Health) set(operational bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if operational {
		status = servingStatus
	}

	h.mu.Lock()
	changed := h.status != status
	h.status = status
	h.mu.Unlock()

	h.server.SetServingStatus(ServiceName, status)
	h.server.SetServingStatus("", status)
	if changed {
		h.logger.Info("health status changed", zap.Stringer("status", status))
	}
}

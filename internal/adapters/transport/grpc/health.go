package grpc

import (
	"context"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/infra/health"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the name clients pass in HealthCheckRequest.Service.
const ServiceName = "gadgets.auth"

type HealthHandler struct {
	healthpb.UnimplementedHealthServer
	checker *health.Checker
	logger  *zap.Logger
}

func NewHealthHandler(checker *health.Checker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, logger: logger}
}

func (h *HealthHandler) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}

	rep := h.checker.Check(ctx)
	if !rep.Healthy {
		h.logger.Warn("health check failed", zap.Any("checks", rep.Checks))
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// Watch sends the current status once and then again every interval while it changes.
func (h *HealthHandler) Watch(req *healthpb.HealthCheckRequest, stream healthpb.Health_WatchServer) error {
	const interval = 5 * time.Second

	var last healthpb.HealthCheckResponse_ServingStatus = -1
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		resp, err := h.Check(stream.Context(), req)
		if err != nil {
			return err
		}
		if resp.Status != last {
			if err := stream.Send(resp); err != nil {
				return err
			}
			last = resp.Status
		}

		select {
		case <-stream.Context().Done():
			return nil
		case <-ticker.C:
		}
	}
}

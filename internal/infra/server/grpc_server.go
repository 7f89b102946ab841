package server

import (
	"context"
	"errors"
	"net"
	"time"

	grpcTransport "github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/grpc"
	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/grpc/middleware"
	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/ratelimit"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/config"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer builds the server with the interceptor chain, health service and reflection.
func NewGRPCServer(cfg *config.Config, healthHandler *grpcTransport.HealthHandler, limiter *ratelimit.PerIP, logger *zap.Logger) (*grpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(logger, limiter)),
	}
	if cfg.TLSEnabled() {
		creds, err := credentials.NewServerTLSFromFile(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(grpcServer, healthHandler)
	grpc_prometheus.Register(grpcServer)
	grpc_prometheus.EnableHandlingTimeHistogram()
	reflection.Register(grpcServer)
	return grpcServer, nil
}

// ServeGRPC runs grpcServer on cfg.GRPCAddress until ctx is cancelled, then stops it gracefully.
func ServeGRPC(ctx context.Context, cfg *config.Config, grpcServer *grpc.Server, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddress))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("ctx cancelled, stopping gRPC server")

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-stopCtx.Done():
		grpcServer.Stop()
	case <-done:
	}
	logger.Info("gRPC server stopped")
	return nil
}

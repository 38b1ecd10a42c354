// Package grpc serves the standard gRPC health service, reporting the
// connection state of the key-value store.
package grpc

import (
	"context"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/atinyakov/kv-url-shortener/internal/intercepters"
)

// ServiceName is the health-check service name reported next to the
// overall ("") status.
const ServiceName = "shortener.URLShortener"

// Server wraps the gRPC server and its health service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *zap.Logger
}

// New creates a server whose services start as NOT_SERVING.
func New(logger *zap.Logger) *Server {
	il := intercepters.InterceptorLogger(logger)
	logOpts := []logging.Option{
		logging.WithLogOnEvents(logging.FinishCall),
		logging.WithFieldsFromContext(intercepters.LogFields),
	}
	recoveryOpts := []recovery.Option{
		recovery.WithRecoveryHandler(func(p any) error {
			logger.Error("grpc handler panicked", zap.Any("panic", p))
			return status.Error(codes.Internal, "internal error")
		}),
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			intercepters.RealIPInterceptor,
			logging.UnaryServerInterceptor(il, logOpts...),
			recovery.UnaryServerInterceptor(recoveryOpts...),
		),
		grpc.ChainStreamInterceptor(
			intercepters.RealIPStreamInterceptor,
			logging.StreamServerInterceptor(il, logOpts...),
			recovery.StreamServerInterceptor(recoveryOpts...),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	srv := &Server{
		grpcServer: s,
		health:     hs,
		logger:     logger,
	}
	srv.SetServing(false)
	return srv
}

// SetServing updates the reported health status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve accepts connections on lis until the server stops.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// Start listens on addr and serves.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("gRPC server failed to listen", zap.Error(err))
		return err
	}
	return s.Serve(lis)
}

// Shutdown stops accepting calls and waits for in-flight ones. When ctx
// expires first the remaining calls are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
		return ctx.Err()
	}
}

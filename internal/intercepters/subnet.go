package intercepters

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const RealIPKey contextKey = "real-ip"

// RealIPInterceptor copies the x-real-ip metadata value into the context.
func RealIPInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	return handler(withRealIP(ctx), req)
}

// RealIPStreamInterceptor is the streaming variant of RealIPInterceptor.
func RealIPStreamInterceptor(
	srv interface{},
	ss grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	return handler(srv, &realIPStream{ServerStream: ss, ctx: withRealIP(ss.Context())})
}

type realIPStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *realIPStream) Context() context.Context {
	return s.ctx
}

func withRealIP(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if ips := md.Get("x-real-ip"); len(ips) > 0 && ips[0] != "" {
			ctx = context.WithValue(ctx, RealIPKey, ips[0])
		}
	}
	return ctx
}

// LogFields adds the client's real IP to gRPC log lines.
func LogFields(ctx context.Context) logging.Fields {
	if ip, ok := ctx.Value(RealIPKey).(string); ok {
		return logging.Fields{"real_ip", ip}
	}
	return nil
}

package sidecar

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultAddress is used when no sidecar address is configured.
const DefaultAddress = "localhost:4001"

// DefaultDialOptions returns the dial options for a local sidecar:
// plaintext transport with OTel client instrumentation, so every call
// propagates trace context when a TracerProvider is registered.
func DefaultDialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Dial creates a client connection to the sidecar at addr. No I/O happens
// until the first call; callers check reachability with Client.Hello.
// Extra options are appended to DefaultDialOptions.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if addr == "" {
		addr = DefaultAddress
	}
	return grpc.NewClient(addr, append(DefaultDialOptions(), opts...)...)
}

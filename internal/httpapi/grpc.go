package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/devflow-project/devflow/internal/obs"
)

const serviceName = "devflow-api"

// OpsGRPC serves the standard gRPC health service on a separate
// listener, for orchestrators that probe over gRPC instead of HTTP.
type OpsGRPC struct {
	server  *grpc.Server
	health  *health.Server
	probe   ReadyProbe
	version string
}

// NewOpsGRPC builds the ops endpoint.
func NewOpsGRPC(probe ReadyProbe, version string) *OpsGRPC {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &OpsGRPC{
		server:  srv,
		health:  hs,
		probe:   probe,
		version: version,
	}
}

// Serve accepts connections until Stop is called. It keeps the health
// status in sync with the readiness probe.
func (o *OpsGRPC) Serve(ctx context.Context, lis net.Listener) error {
	o.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := healthpb.HealthCheckResponse_SERVING
				if err := o.probe.Check(ctx); err != nil {
					status = healthpb.HealthCheckResponse_NOT_SERVING
					obs.SetReady(false)
				} else {
					obs.SetReady(true)
				}
				o.health.SetServingStatus(serviceName, status)
			}
		}
	}()

	return o.server.Serve(lis)
}

// Stop drains in-flight RPCs and shuts the server down.
func (o *OpsGRPC) Stop() {
	o.health.Shutdown()
	o.server.GracefulStop()
}

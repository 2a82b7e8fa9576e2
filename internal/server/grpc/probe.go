// Package grpcserver serves the gRPC health protocol for the time entry service.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name health clients query for the time entry API.
const ServiceName = "timekeeper.v1.TimeEntries"

// DefaultProbeInterval is how often the store is pinged.
const DefaultProbeInterval = 10 * time.Second

// Pinger is the store reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe keeps the health status in line with store reachability.
type Probe struct {
	hs       *health.Server
	store    Pinger
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

// NewProbe constructs a probe. Status is NOT_SERVING until the first successful ping.
func NewProbe(store Pinger, interval time.Duration, log *zap.Logger) *Probe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Probe{
		hs:       hs,
		store:    store,
		interval: interval,
		timeout:  interval / 2,
		log:      log.Named("probe"),
	}
}

// NewServer builds a gRPC server with recovery and logging interceptors and
// the probe's health service registered. Reflection is enabled in dev mode.
func NewServer(p *Probe, log *zap.Logger, dev bool, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
		grpc.ChainStreamInterceptor(
			RecoverStream(log),
			LoggingStream(log),
		),
	)
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, p.hs)
	if dev {
		reflection.Register(s)
	}
	return s
}

// Check pings the store once and publishes the result.
func (p *Probe) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := p.store.Ping(ctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		p.log.Warn("store unreachable", zap.Error(err))
	}
	p.hs.SetServingStatus("", st)
	p.hs.SetServingStatus(ServiceName, st)
	return st
}

// Run checks the store every interval until ctx is done, then marks all
// services NOT_SERVING so Watch clients observe the shutdown.
func (p *Probe) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			p.hs.Shutdown()
			return
		case <-t.C:
			p.Check(ctx)
		}
	}
}

// Package server coordinates the long-running services of the relay
// process: services start in registration order and stop in reverse,
// on termination signal or when any one of them fails.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks for the life of the
// service; Stop asks it to wind down and causes Start to return.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle runs a fixed set of named services as one unit.
type Lifecycle struct {
	log      *zap.Logger
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{log: logger}
}

// Add registers a named service. Registration order is start order.
//
// Precondition: must not be called after Run.
func (l *Lifecycle) Add(name string, svc Service) {
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every registered service and blocks until SIGINT/SIGTERM,
// context cancellation, or the first service failure, then stops all
// services in reverse order.
//
// Postcondition: every service has been stopped; the returned error is
// the failure that triggered shutdown, or nil for a clean exit.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan error, len(l.services))
	for _, ns := range l.services {
		ns := ns
		go func() {
			l.log.Info("starting service", zap.String("service", ns.name))
			if err := ns.service.Start(); err != nil {
				failed <- fmt.Errorf("service %s: %w", ns.name, err)
				cancel()
			}
		}()
	}

	l.log.Info("all services started",
		zap.Int("count", len(l.services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-failed:
		l.log.Error("service failed, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		// A failing service cancels the context right after reporting,
		// so check for its error before calling this a clean exit.
		select {
		case runErr = <-failed:
			l.log.Error("service failed, shutting down", zap.Error(runErr))
		default:
			l.log.Info("context cancelled, shutting down")
		}
	}

	l.stopAll()

	l.log.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return runErr
}

// stopAll stops services in reverse registration order so dependents go
// down before the things they depend on.
func (l *Lifecycle) stopAll() {
	for i := len(l.services) - 1; i >= 0; i-- {
		ns := l.services[i]
		l.log.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
	}
}

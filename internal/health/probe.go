package health

import (
	"context"
	"sync/atomic"

	"github.com/alberthiggs/folio/internal/xerrors"
)

// Probe reports nil when healthy and the failure reason otherwise.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	err := xerrors.New(reason)
	return func(context.Context) error { return err }
}

// All passes when every non-nil probe passes and returns the first failure.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Any passes when at least one probe passes. With no non-nil probes it fails.
func Any(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		var last error
		for _, p := range ps {
			if p == nil {
				continue
			}
			err := p.Check(ctx)
			if err == nil {
				return nil
			}
			last = err
		}
		if last == nil {
			last = xerrors.New("no healthy probes")
		}
		return last
	}
}

// ShutdownGate is a readiness probe that fails once Set is called.
// The zero value is open.
type ShutdownGate struct {
	closed atomic.Bool
	reason atomic.Pointer[string]
}

func (g *ShutdownGate) Set(reason string) {
	g.reason.Store(&reason)
	g.closed.Store(true)
}

func (g *ShutdownGate) Draining() bool { return g.closed.Load() }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if !g.closed.Load() {
			return nil
		}
		reason := "draining"
		if r := g.reason.Load(); r != nil && *r != "" {
			reason = *r
		}
		return xerrors.New(reason)
	}
}

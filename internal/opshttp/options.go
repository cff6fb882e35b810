package opshttp

import (
	"net/http"

	"github.com/alberthiggs/folio/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// AllowPublic disables the private-network guard, e.g. behind a
	// sidecar that already filters scrapes.
	AllowPublic  bool
	UseRecoverMW bool
	OnPanic      func() // called after a panic is recovered, e.g. to count it
}

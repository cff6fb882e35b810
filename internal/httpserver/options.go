package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alberthiggs/folio/internal/health"
	"github.com/alberthiggs/folio/internal/httpmw"
	"github.com/alberthiggs/folio/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    httpmw.Middleware
	RateLimitMW  httpmw.Middleware
	ClientIPOpts httpmw.ClientIPOptions
	// CSP overrides httpmw.DefaultCSP.
	CSP       string
	Health    health.Probe
	Readiness health.Probe
	// APIRoutes registers the application routes.
	APIRoutes func(chi.Router)
	// SiteHandler is the fallback for unmatched paths and methods.
	SiteHandler http.Handler
	// Draining, when it reports true, asks clients to drop keep-alive
	// connections so they reconnect to another instance.
	Draining func() bool
}

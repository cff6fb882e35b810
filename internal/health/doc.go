// Package health holds the liveness and readiness probes shared by the
// public and ops listeners.
//
// Probes compose with [All] and [Any]. [ShutdownGate] turns readiness off
// as soon as shutdown begins so load balancers stop routing to the
// instance before in-flight requests drain. [Handler] exposes a probe as a
// plain-text endpoint.
package health

// Package httpmw holds the middleware stack of the public listener.
//
// httpserver.NewHandler composes it outermost first: security headers,
// panic recovery, request id, client ip, rate limiting, tracing, trace
// response headers, metrics, the request-scoped logger, then the chi
// router with route annotation, access logging and a request body cap.
//
// Query strings, user agents and other client-supplied headers are kept
// out of access logs.
package httpmw

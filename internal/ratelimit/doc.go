// Package ratelimit is a per-client-IP token bucket for the public listener.
//
// It is in-memory and per-instance. It bounds a single address hammering
// the asset and resume relays, each hit of which costs an upstream fetch,
// and gives one log line per offender plus counters for every denial. It
// does not help against distributed floods; that stays with the CDN.
package ratelimit

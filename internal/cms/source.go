package cms

import (
	"bytes"
	"context"
	"encoding/json"
)

// Result is one section's raw payload or the reason it is unavailable.
type Result struct {
	Raw json.RawMessage
	Err error
}

// Source is where section payloads come from.
type Source interface {
	// FetchSection returns one section. A missing section wraps
	// ErrSectionNotFound.
	FetchSection(ctx context.Context, s Section) (json.RawMessage, error)
	// FetchAll returns every section the source has, in one round trip
	// where the backend allows. Sections absent from the map are missing.
	// A non-nil error means nothing could be fetched.
	FetchAll(ctx context.Context) (map[Section]Result, error)
}

var jsonNull = []byte("null")

// isNull reports an empty or JSON null payload.
func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, jsonNull)
}

package httpmw

import (
	"context"
	"sync"

	"github.com/alberthiggs/folio/internal/log"
)

// captureLogger records every call flattened with its persistent fields.
type captureLogger struct {
	mu      *sync.Mutex
	fields  []any
	entries *[]entry
}

type entry struct {
	level string
	msg   string
	err   error
	kv    map[string]any
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{mu: &sync.Mutex{}, entries: &[]entry{}}
}

func (c *captureLogger) With(kv ...any) log.Logger {
	f := append(append([]any{}, c.fields...), kv...)
	return &captureLogger{mu: c.mu, fields: f, entries: c.entries}
}

func (c *captureLogger) record(level, msg string, err error, kv []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := map[string]any{}
	all := append(append([]any{}, c.fields...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		if k, ok := all[i].(string); ok {
			m[k] = all[i+1]
		}
	}
	*c.entries = append(*c.entries, entry{level: level, msg: msg, err: err, kv: m})
}

func (c *captureLogger) Debug(_ context.Context, msg string, kv ...any) {
	c.record("debug", msg, nil, kv)
}
func (c *captureLogger) Info(_ context.Context, msg string, kv ...any) {
	c.record("info", msg, nil, kv)
}
func (c *captureLogger) Warn(_ context.Context, msg string, kv ...any) {
	c.record("warn", msg, nil, kv)
}
func (c *captureLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	c.record("error", msg, err, kv)
}
func (c *captureLogger) Sync() error { return nil }

func (c *captureLogger) all() []entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entry(nil), *c.entries...)
}

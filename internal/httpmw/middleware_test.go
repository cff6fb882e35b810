package httpmw

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/alberthiggs/folio/internal/log"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mk("a"), nil, mk("b"), mk("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b,c" {
		t.Fatalf("order = %v", order)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		remote string
		xff    string
		hops   int
		want   string
		strip  bool
	}{
		{"public peer ignores xff", "8.8.8.8:1234", "1.2.3.4", 1, "8.8.8.8", true},
		{"zero hops ignores xff", "10.0.0.5:1234", "1.2.3.4", 0, "10.0.0.5", true},
		{"one hop rightmost", "10.0.0.5:1234", "9.9.9.9, 1.2.3.4", 1, "1.2.3.4", false},
		{"two hops", "10.0.0.5:1234", "9.9.9.9, 1.2.3.4, 10.0.0.9", 2, "1.2.3.4", false},
		{"too few entries fails closed", "10.0.0.5:1234", "1.2.3.4", 3, "10.0.0.5", true},
		{"garbage entry keeps peer", "10.0.0.5:1234", "not-an-ip", 1, "10.0.0.5", false},
		{"malformed remote", "???", "", 1, "0.0.0.0", true},
		{"ipv6 peer", "[2001:db8::1]:443", "", 0, "2001:db8::1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			var xffAfter string
			h := ClientIP(ClientIPOptions{TrustedHops: tc.hops})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIPFromContext(r.Context())
				xffAfter = r.Header.Get("X-Forwarded-For")
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
			if tc.strip && xffAfter != "" {
				t.Fatal("forwarded header should be stripped")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 20 {
		t.Fatalf("minted id %q should be a 20 char xid", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Fatal("id should be echoed")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("inbound id not propagated: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\nwith newline")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "bad id\nwith newline" {
		t.Fatal("malformed inbound id must be replaced")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatal("empty context should give empty id")
	}
}

func TestRecover(t *testing.T) {
	L := newCaptureLogger()
	panics := 0
	h := Recover(L, func() { panics++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if panics != 1 {
		t.Fatalf("onPanic calls = %d", panics)
	}
	es := L.all()
	if len(es) != 1 || es[0].level != "error" || es[0].err == nil || es[0].err.Error() != "kaboom" {
		t.Fatalf("log entries = %+v", es)
	}
}

func TestRecover_AfterWriteKeepsStatus(t *testing.T) {
	h := Recover(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic(errors.New("late"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want the already written 202", rec.Code)
	}
}

func TestRecover_AbortHandlerRepanics(t *testing.T) {
	h := Recover(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if v := recover(); v != http.ErrAbortHandler { //nolint:errorlint // sentinel identity
			t.Fatalf("recovered %v", v)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestWithLoggerAndAccessLog(t *testing.T) {
	L := newCaptureLogger()
	r := chi.NewRouter()
	r.Use(AccessLog())
	r.Get("/asset/{type}/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "body")
	})
	r.Get("/-/healthy", func(w http.ResponseWriter, r *http.Request) {})

	h := Chain(r, RequestID(""), ClientIP(ClientIPOptions{}), WithLogger(L))

	req := httptest.NewRequest(http.MethodGet, "/asset/project/folio?utm=x", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/-/healthy", nil))

	es := L.all()
	if len(es) != 1 {
		t.Fatalf("entries = %d, health probes must be skipped", len(es))
	}
	kv := es[0].kv
	if kv["http.route"] != "/asset/{type}/{slug}" {
		t.Fatalf("route = %v", kv["http.route"])
	}
	if kv["http.response.status_code"] != http.StatusTeapot {
		t.Fatalf("status = %v", kv["http.response.status_code"])
	}
	if kv["http.response.body.size"] != int64(4) {
		t.Fatalf("size = %v", kv["http.response.body.size"])
	}
	if kv["client.address"] != "203.0.113.7" {
		t.Fatalf("client = %v", kv["client.address"])
	}
	if id, _ := kv["request_id"].(string); id == "" {
		t.Fatal("request id missing")
	}
	for k, v := range kv {
		if s, ok := v.(string); ok && strings.Contains(s, "utm") {
			t.Fatalf("query string leaked into %s", k)
		}
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	if got := RoutePattern(httptest.NewRequest(http.MethodGet, "/raw/path", nil)); got != "unmatched" {
		t.Fatalf("got %q", got)
	}
}

func TestScope(t *testing.T) {
	L := newCaptureLogger()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info(r.Context(), "inside")
	}), WithLogger(L), Scope("relay"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	es := L.all()
	if len(es) != 1 || es[0].kv["handler"] != "relay" {
		t.Fatalf("entries = %+v", es)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders("")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	csp := rec.Header().Get("Content-Security-Policy")
	if csp != DefaultCSP {
		t.Fatalf("csp = %q", csp)
	}
	if !strings.Contains(csp, "https://www.googletagmanager.com") {
		t.Fatal("analytics script host must be allowed")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("hardening headers missing")
	}

	rec = httptest.NewRecorder()
	SecurityHeaders("default-src 'none'")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Content-Security-Policy") != "default-src 'none'" {
		t.Fatal("custom csp ignored")
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	var mbe *http.MaxBytesError
	if !errors.As(readErr, &mbe) {
		t.Fatalf("want MaxBytesError, got %v", readErr)
	}
}

func TestTraceResponseHeaders(t *testing.T) {
	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))

	rec := httptest.NewRecorder()
	TraceResponseHeaders("", "")(okHandler()).ServeHTTP(rec, req)
	if rec.Header().Get("X-Trace-Id") != tid.String() || rec.Header().Get("X-Span-Id") != sid.String() {
		t.Fatalf("headers = %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	TraceResponseHeaders("", "")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("no span, no header")
	}
}

func TestResponseWriter_FlushPassthrough(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, ctx: context.Background()}
	rw.Flush()
	if !rec.Flushed || rw.flushes != 1 {
		t.Fatal("flush should reach the recorder")
	}
	if rw.statusCode() != http.StatusOK {
		t.Fatal("default status is 200")
	}
}

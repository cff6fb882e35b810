package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

var errDown = errors.New("down")

func TestFixed(t *testing.T) {
	ctx := context.Background()
	if err := Fixed(true, "").Check(ctx); err != nil {
		t.Fatalf("ok probe failed: %v", err)
	}
	err := Fixed(false, "").Check(ctx)
	if err == nil || err.Error() != "unhealthy" {
		t.Fatalf("default reason = %v", err)
	}
	if err := Fixed(false, "cms offline").Check(ctx); err.Error() != "cms offline" {
		t.Fatalf("reason = %v", err)
	}
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	fail := CheckFunc(func(context.Context) error { return errDown })

	if err := All().Check(ctx); err != nil {
		t.Fatal("empty All should pass")
	}
	if err := All(Fixed(true, ""), nil, Fixed(true, "")).Check(ctx); err != nil {
		t.Fatalf("all ok: %v", err)
	}
	if err := All(Fixed(true, ""), fail, Fixed(false, "second")).Check(ctx); !errors.Is(err, errDown) {
		t.Fatalf("should return first failure, got %v", err)
	}
}

func TestAll_ShortCircuits(t *testing.T) {
	called := false
	after := CheckFunc(func(context.Context) error { called = true; return nil })
	_ = All(Fixed(false, "x"), after).Check(context.Background())
	if called {
		t.Fatal("probes after a failure should not run")
	}
}

func TestAny(t *testing.T) {
	ctx := context.Background()
	if err := Any().Check(ctx); err == nil || err.Error() != "no healthy probes" {
		t.Fatalf("empty Any = %v", err)
	}
	if err := Any(nil, nil).Check(ctx); err == nil {
		t.Fatal("only nil probes should fail")
	}
	if err := Any(Fixed(false, "a"), Fixed(true, "")).Check(ctx); err != nil {
		t.Fatalf("one ok should pass: %v", err)
	}
	if err := Any(Fixed(false, "a"), Fixed(false, "b")).Check(ctx); err.Error() != "b" {
		t.Fatalf("should return last failure, got %v", err)
	}
}

func TestShutdownGate(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()
	ctx := context.Background()

	if err := p.Check(ctx); err != nil {
		t.Fatal("zero gate should be open")
	}
	g.Set("")
	if err := p.Check(ctx); err == nil || err.Error() != "draining" {
		t.Fatalf("empty reason = %v", err)
	}
	g.Set("shutting down")
	if err := p.Check(ctx); err.Error() != "shutting down" {
		t.Fatalf("reason = %v", err)
	}
	if !g.Draining() {
		t.Fatal("Draining should report true")
	}
}

func TestShutdownGate_ZeroNotDraining(t *testing.T) {
	var g ShutdownGate
	if g.Draining() {
		t.Fatal("zero gate should not be draining")
	}
}

func TestShutdownGate_Concurrent(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); g.Set("x"); _ = g.Draining() }()
		go func() { defer wg.Done(); _ = p.Check(context.Background()) }()
	}
	wg.Wait()
}

func TestHandler(t *testing.T) {
	var g ShutdownGate
	h := Handler(All(Fixed(true, ""), g.Probe()), "ready")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/ready", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ready\n" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("health responses must not be cached")
	}

	g.Set("draining")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "draining") {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandler_NilProbe(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(nil, "ok").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/healthy", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("nil probe = %d", rec.Code)
	}
}

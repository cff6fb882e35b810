package log

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"":        slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	_, err := ParseLevel("verbose")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `"verbose"`) {
		t.Fatalf("error should quote input: %v", err)
	}
}

func TestNop_Safe(t *testing.T) {
	l := Nop().With("k", "v", "odd")
	ctx := context.Background()
	l.Debug(ctx, "d")
	l.Info(ctx, "i")
	l.Warn(ctx, "w")
	l.Error(ctx, nil, "e")
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background()).(nopLogger); !ok {
		t.Fatal("empty context should give Nop")
	}
	//nolint:staticcheck // nil context is handled explicitly
	if _, ok := FromContext(nil).(nopLogger); !ok {
		t.Fatal("nil context should give Nop")
	}

	l, err := New(Options{App: "folio"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("expected stored logger")
	}

	var typedNil Logger
	ctx = WithContext(context.Background(), typedNil)
	if _, ok := FromContext(ctx).(nopLogger); !ok {
		t.Fatal("nil logger should give Nop")
	}
}

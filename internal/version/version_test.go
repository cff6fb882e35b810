package version_test

import (
	"strings"
	"testing"

	v "github.com/alberthiggs/folio/internal/version"
)

func TestGet_ExplicitVCSDirtyWins(t *testing.T) {
	t.Cleanup(func() { v.VCSDirty = nil })

	trueVal := true
	v.VCSDirty = &trueVal
	info := v.Get()
	if info.VCSDirty == nil || !*info.VCSDirty {
		t.Fatalf("VCSDirty = %v, want true", info.VCSDirty)
	}

	falseVal := false
	v.VCSDirty = &falseVal
	info = v.Get()
	if info.VCSDirty == nil || *info.VCSDirty {
		t.Fatalf("VCSDirty = %v, want false", info.VCSDirty)
	}
}

func TestGet_AppName(t *testing.T) {
	if got := v.Get().AppName; got != v.AppName {
		t.Fatalf("AppName = %q, want %q", got, v.AppName)
	}
}

func TestGet_LdflagsVersion(t *testing.T) {
	prev := v.Version
	t.Cleanup(func() { v.Version = prev })

	v.Version = "1.4.0"
	if got := v.Get().Version; got != "1.4.0" {
		t.Fatalf("Version = %q, want 1.4.0", got)
	}
}

func TestInfo_String(t *testing.T) {
	info := v.Info{AppName: "folio", Version: "1.0.0", Commit: "abc123", GoVersion: "go1.24"}
	s := info.String()
	for _, want := range []string{"folio 1.0.0", "commit=abc123", "go=go1.24", "dirty=false"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

package sitehandler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
)

func testStaticFS() fstest.MapFS {
	return fstest.MapFS{
		"robots.txt":          &fstest.MapFile{Data: []byte("User-agent: *")},
		"favicon.svg":         &fstest.MapFile{Data: []byte("<svg/>")},
		"static/site.css":     &fstest.MapFile{Data: []byte("body{}")},
		"static/analytics.js": &fstest.MapFile{Data: []byte("(function(){})()")},
		".env":                &fstest.MapFile{Data: []byte("SECRET=1")},
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := New(&Options{
		Static: testStaticFS(),
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("themed 404"))
		}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestNew_RequiresStatic(t *testing.T) {
	_, err := New(&Options{})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestServe_Files(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		path   string
		status int
		cc     string
		body   string
	}{
		{"/robots.txt", http.StatusOK, "public, max-age=3600", "User-agent: *"},
		{"/favicon.svg", http.StatusOK, "public, max-age=86400", "<svg/>"},
		{"/static/site.css", http.StatusOK, "public, max-age=86400", "body{}"},
		{"/static/analytics.js", http.StatusOK, "public, max-age=86400", "(function(){})()"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Cache-Control"); got != tt.cc {
				t.Errorf("Cache-Control = %q, want %q", got, tt.cc)
			}
			if rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestServe_MissesUseNotFound(t *testing.T) {
	h := newTestHandler(t)
	for _, p := range []string{"/nope", "/static/", "/static", "/.env", "/static/../robots.txt", "/a\\b"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = p
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%q: status = %d, want 404", p, rec.Code)
		}
		if rec.Body.String() != "themed 404" {
			t.Errorf("%q: body = %q", p, rec.Body.String())
		}
	}
}

func TestServe_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/robots.txt", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if rec.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("Allow = %q", rec.Header().Get("Allow"))
	}
}

func TestServe_DefaultNotFound(t *testing.T) {
	h, err := New(&Options{Static: testStaticFS()})
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound || rec.Body.String() != "404 page not found" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCacheControlForFile(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	tests := []struct {
		file string
		want string
	}{
		{"static/site.css", opts.AssetCacheControl},
		{"static/app.mjs", opts.AssetCacheControl},
		{"favicon.svg", opts.AssetCacheControl},
		{"favicon.ico", opts.AssetCacheControl},
		{"IMG.PNG", opts.AssetCacheControl},
		{"fonts/a.woff2", opts.AssetCacheControl},
		{"robots.txt", opts.OtherCacheControl},
		{"site.webmanifest", opts.OtherCacheControl},
		{"noext", opts.OtherCacheControl},
	}
	for _, tt := range tests {
		if got := cacheControlForFile(tt.file, opts); got != tt.want {
			t.Errorf("cacheControlForFile(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	fsys := testStaticFS()
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/robots.txt", "robots.txt", true},
		{"robots.txt", "robots.txt", true},
		{"/static/site.css", "static/site.css", true},
		{"/static//site.css", "static/site.css", true},
		{"/", "", false},
		{"", "", false},
		{"/static", "", false},
		{"/.env", "", false},
		{"/x\x00", "", false},
	}
	for _, tt := range tests {
		got, ok := resolvePath(tt.path, fsys)
		if got != tt.want || ok != tt.ok {
			t.Errorf("resolvePath(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

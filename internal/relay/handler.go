package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alberthiggs/folio/internal/log"
)

// AssetHandler serves GET /asset/{type}/{slug}.
func (r *Relay) AssetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		kind := chi.URLParam(req, "type")
		s := chi.URLParam(req, "slug")

		a, err := r.Asset(req.Context(), kind, s)
		label := kindLabel(kind)
		if err != nil {
			r.fail(w, req, label, err, "kind", kind, "slug", s)
			return
		}
		r.stream(w, req, label, a)
	}
}

// ResumeHandler serves GET /resume.
func (r *Relay) ResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		a, err := r.Resume(req.Context())
		if err != nil {
			r.fail(w, req, "resume", err)
			return
		}
		r.stream(w, req, "resume", a)
	}
}

func (r *Relay) stream(w http.ResponseWriter, req *http.Request, label string, a *Asset) {
	defer a.Close()

	h := w.Header()
	h.Set("Content-Type", a.ContentType)
	h.Set("Cache-Control", a.CacheControl)
	h.Set("X-Content-Type-Options", "nosniff")
	if a.ContentDisposition != "" {
		h.Set("Content-Disposition", a.ContentDisposition)
	}
	if a.ContentLength > 0 {
		h.Set("Content-Length", strconv.FormatInt(a.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	r.obs.ObserveRelay(label, "ok")

	if req.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, a.Body); err != nil && !errors.Is(err, context.Canceled) {
		log.FromContext(req.Context()).Warn(req.Context(), "relay stream interrupted",
			"relay.kind", label,
			"error", err.Error(),
		)
	}
}

// fail maps err to its status. Every relay failure is a client-visible
// outcome and logs at warn.
func (r *Relay) fail(w http.ResponseWriter, req *http.Request, label string, err error, kv ...any) {
	kind := KindOf(err)
	status := kind.Status()
	body := "Internal Server Error"

	var re *Error
	switch {
	case errors.As(err, &re):
		body = re.Public
	case kind == UpstreamUnavailable:
		body = "Content not available"
	}

	outcome := kind.String()
	if kind == 0 {
		outcome = "error"
	}
	r.obs.ObserveRelay(label, outcome)

	L := log.FromContext(req.Context())
	fields := append([]any{"relay.kind", label, "relay.outcome", outcome, "http.response.status_code", status}, kv...)
	if kind == 0 {
		L.Error(req.Context(), err, "relay failed", fields...)
	} else {
		L.Warn(req.Context(), "relay rejected", append(fields, "error", err.Error())...)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// kindLabel bounds metric cardinality for the free-form type segment.
func kindLabel(kind string) string {
	switch kind {
	case "experience", "project", "testimonial":
		return kind
	}
	return "other"
}

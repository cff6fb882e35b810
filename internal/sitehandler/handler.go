package sitehandler

import (
	"net/http"
)

// Handler serves embedded static files and hands every miss to NotFound.
// It is registered as the router fallback.
type Handler struct {
	opts Options
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: *opts}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// only allow GET/HEAD
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	file, ok := resolvePath(r.URL.Path, h.opts.Static)
	if !ok {
		h.opts.NotFound.ServeHTTP(w, r)
		return
	}

	w.Header().Set("Cache-Control", cacheControlForFile(file, h.opts))
	http.ServeFileFS(w, r, h.opts.Static, file)
}

package site

import (
	"net/http"

	"github.com/alberthiggs/folio/internal/log"
)

// ErrorPage writes the full-page error response with status.
func (s *Site) ErrorPage(w http.ResponseWriter, r *http.Request, status int) {
	pd := s.page(nil)
	pd.Status = status
	s.writePage(w, r, status, "error_page", pd)
}

// NotFound renders the 404 page. It is the router's fallback.
func (s *Site) NotFound(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, r, http.StatusNotFound, "not_found_page", s.page(nil))
}

func (s *Site) writePage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if err := s.render(w, name, data); err != nil {
		log.FromContext(r.Context()).Error(r.Context(), err, "page render failed", "block", name)
	}
}

package site

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alberthiggs/folio/internal/cms"
	"github.com/alberthiggs/folio/internal/log"
)

type apiError struct {
	Error   string `json:"error"`
	Section string `json:"section,omitempty"`
}

// ContentAPI serves GET /api/content: the whole aggregate as JSON.
func (s *Site) ContentAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, err := s.content.Fetch(ctx)
	if err != nil {
		s.apiFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// SectionAPI serves GET /api/content/{section}.
func (s *Site) SectionAPI(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "section")
	sec, ok := cms.ParseSection(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "unknown section", Section: name})
		return
	}
	v, err := s.content.Section(r.Context(), sec)
	if err != nil {
		s.apiFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Site) apiFailure(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var cfe *cms.ContentFetchError
	section := ""
	if errors.As(err, &cfe) {
		section = string(cfe.Section)
	}
	if errors.Is(err, cms.ErrSectionNotFound) {
		log.FromContext(ctx).Warn(ctx, "content section missing", "section", section)
		writeJSON(w, http.StatusNotFound, apiError{Error: "section not found", Section: section})
		return
	}
	log.FromContext(ctx).Error(ctx, err, "content fetch failed", "section", section)
	writeJSON(w, http.StatusBadGateway, apiError{Error: "content unavailable", Section: section})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

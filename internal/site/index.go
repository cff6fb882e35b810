package site

import (
	"context"
	"net/http"

	"github.com/alberthiggs/folio/internal/cms"
	"github.com/alberthiggs/folio/internal/log"
)

type projectsData struct {
	Projects  []cms.Project
	GithubURL string
}

// Index streams the single page. Personal info gates the first byte; every
// later section is written and flushed in page order as soon as its handle
// resolves. A failed required section ends the page with an error fragment.
func (s *Site) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	L := log.FromContext(ctx)
	d := s.content.Defer(ctx)

	personal, err := d.Personal.Await(ctx)
	if err != nil {
		L.Error(ctx, err, "personal section unavailable")
		s.ErrorPage(w, r, http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	pd := s.page(&personal)
	st := &stream{s: s, w: w, rc: rc, ctx: ctx, L: L}

	st.emit("head", pd)
	st.emit("hero", personal)
	st.flush()

	if exp, ok := await(st, d.Experience, cms.SectionExperience); ok {
		st.emit("experience", exp)
		st.flush()
	}
	if projects, ok := await(st, d.Projects, cms.SectionProjects); ok {
		st.emit("projects", projectsData{Projects: projects, GithubURL: personal.GithubURL})
		st.flush()
	}
	if skills, ok := await(st, d.Skills, cms.SectionSkills); ok {
		st.emit("skills", skills)
		st.flush()
	}
	if ts, ok := await(st, d.Testimonials, cms.SectionTestimonials); ok {
		st.emit("testimonials", ts)
	}
	if !st.failed {
		st.emit("contact", personal)
	}
	st.emit("foot", pd)
	st.flush()
}

// stream tracks the first failure. Once failed, await reports every
// remaining section as skipped.
type stream struct {
	s      *Site
	w      http.ResponseWriter
	rc     *http.ResponseController
	ctx    context.Context
	L      log.Logger
	failed bool
	broken bool
}

func await[T any](st *stream, h *cms.Handle[T], sec cms.Section) (T, bool) {
	var zero T
	if st.failed {
		return zero, false
	}
	v, err := h.Await(st.ctx)
	if err != nil {
		st.failed = true
		if st.ctx.Err() == nil {
			st.L.Error(st.ctx, err, "section unavailable, page truncated", "section", string(sec))
			st.emit("section_error", string(sec))
		}
		return zero, false
	}
	return v, true
}

func (st *stream) emit(name string, data any) {
	if st.broken {
		return
	}
	if err := st.s.render(st.w, name, data); err != nil {
		// the client is gone or a template failed; either way stop writing
		st.broken = true
		if st.ctx.Err() == nil {
			st.L.Error(st.ctx, err, "page render failed", "block", name)
		}
	}
}

func (st *stream) flush() {
	if st.broken {
		return
	}
	_ = st.rc.Flush()
}

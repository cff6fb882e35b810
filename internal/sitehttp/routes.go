// Package sitehttp mounts the public site routes on a chi router.
package sitehttp

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/alberthiggs/folio/internal/httpmw"
)

// Pages is the rendered half of the site.
type Pages interface {
	Index(http.ResponseWriter, *http.Request)
	Sitemap(http.ResponseWriter, *http.Request)
	ContentAPI(http.ResponseWriter, *http.Request)
	SectionAPI(http.ResponseWriter, *http.Request)
}

// Relay streams CMS hosted binaries.
type Relay interface {
	AssetHandler() http.HandlerFunc
	ResumeHandler() http.HandlerFunc
}

type Routes struct {
	Pages Pages
	Relay Relay
	// Static serves embedded files and renders the 404 page for anything
	// else. It receives every request no explicit route claims.
	Static http.Handler
}

func New(pages Pages, relay Relay, static http.Handler) *Routes {
	return &Routes{Pages: pages, Relay: relay, Static: static}
}

// RegisterRoutes mounts the site on r. Pass it as httpserver.Options.APIRoutes
// so health routes registered earlier keep precedence.
func (rt *Routes) RegisterRoutes(r chi.Router) {
	if rt.Pages != nil {
		pages := r.With(httpmw.Scope("site"))
		getHead(pages, "/", rt.Pages.Index)
		getHead(pages, "/sitemap.xml", rt.Pages.Sitemap)

		api := r.With(httpmw.Scope("content_api"))
		api.Get("/api/content", rt.Pages.ContentAPI)
		api.Get("/api/content/{section}", rt.Pages.SectionAPI)
	}

	if rt.Relay != nil {
		relay := r.With(httpmw.Scope("relay"))
		relay.Get("/asset/{type}/{slug}", rt.Relay.AssetHandler())
		relay.Get("/resume", rt.Relay.ResumeHandler())
	}

	r.Get("/testimonial-avatar/{slug}", legacyAvatar)

	// NotFound rather than a wildcard route so registrars mounted before
	// this one are not shadowed.
	if rt.Static != nil {
		r.NotFound(rt.Static.ServeHTTP)
		r.MethodNotAllowed(rt.Static.ServeHTTP)
	}
}

func getHead(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Head(pattern, h)
}

// legacyAvatar keeps old avatar links working by sending them through the
// validated relay.
func legacyAvatar(w http.ResponseWriter, r *http.Request) {
	target := "/asset/testimonial/" + url.PathEscape(chi.URLParam(r, "slug"))
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
}

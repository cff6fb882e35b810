package site

import (
	"encoding/xml"
	"net/http"
)

const SitemapCacheControl = "public, max-age=86400, s-maxage=604800"

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Sitemap lists the canonical page. It is static for the process lifetime.
func (s *Site) Sitemap(w http.ResponseWriter, r *http.Request) {
	body, err := xml.MarshalIndent(urlset{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  []sitemapURL{{Loc: s.siteURL, ChangeFreq: "monthly", Priority: "1.0"}},
	}, "", "  ")
	if err != nil {
		s.ErrorPage(w, r, http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/xml; charset=utf-8")
	h.Set("Cache-Control", SitemapCacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

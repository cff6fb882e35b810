package site

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/alberthiggs/folio/internal/cms"
	"github.com/alberthiggs/folio/internal/slug"
	"github.com/alberthiggs/folio/internal/xerrors"
)

// Content is what the pages need from the aggregator.
type Content interface {
	Defer(ctx context.Context) *cms.Deferred
	Fetch(ctx context.Context) (*cms.SiteContent, error)
	Section(ctx context.Context, s cms.Section) (any, error)
}

type Options struct {
	Content   Content
	Templates fs.FS
	// SiteURL is the canonical origin used in the sitemap and og:url.
	SiteURL string
	// GAMeasurementID enables the analytics script when it looks like a
	// G- or UA- id. Anything else is ignored.
	GAMeasurementID string
	// Description is the meta description when personal info has no tagline.
	Description string
	// Name labels the error pages before personal info is known.
	Name string
}

type Site struct {
	content     Content
	tmpl        *template.Template
	md          goldmark.Markdown
	siteURL     string
	gaID        string
	description string
	name        string
	now         func() time.Time
}

var gaIDPattern = regexp.MustCompile(`(?i)^(G|UA)-[A-Z0-9-]+$`)

func New(opts Options) (*Site, error) {
	if opts.Content == nil {
		return nil, xerrors.New("site: content is required")
	}
	if opts.Templates == nil {
		return nil, xerrors.New("site: templates are required")
	}
	s := &Site{
		content:     opts.Content,
		md:          newMarkdown(),
		siteURL:     strings.TrimRight(opts.SiteURL, "/"),
		description: opts.Description,
		name:        opts.Name,
		now:         time.Now,
	}
	if gaIDPattern.MatchString(opts.GAMeasurementID) {
		s.gaID = opts.GAMeasurementID
	}

	tmpl, err := template.New("site").Funcs(template.FuncMap{
		"markdown": s.markdown,
		"icon":     icon,
		"slug":     slug.Make,
	}).ParseFS(opts.Templates, "*.html")
	if err != nil {
		return nil, xerrors.Wrap(err, "parse site templates")
	}
	for _, name := range []string{"head", "foot", "hero", "experience", "projects", "skills", "testimonials", "contact", "section_error", "error_page", "not_found_page"} {
		if tmpl.Lookup(name) == nil {
			return nil, xerrors.Newf("site: template %q not defined", name)
		}
	}
	s.tmpl = tmpl
	return s, nil
}

type pageData struct {
	Title       string
	Description string
	SiteURL     string
	GAID        string
	Name        string
	Year        int
	Status      int
}

// AnalyticsEnabled reports whether a valid measurement id was configured.
func (s *Site) AnalyticsEnabled() bool { return s.gaID != "" }

func (s *Site) page(p *cms.PersonalInfo) pageData {
	d := pageData{
		Title:       s.name,
		Description: s.description,
		SiteURL:     s.siteURL,
		GAID:        s.gaID,
		Name:        s.name,
		Year:        s.now().Year(),
	}
	if p != nil {
		d.Name = p.Name
		d.Title = p.Name
		if p.Title != "" {
			d.Title = p.Name + " | " + p.Title
		}
		if p.HeroTagline != "" {
			d.Description = p.HeroTagline
		}
	}
	return d
}

// render executes one block into memory so a failing template never
// leaves a half-written fragment on the wire.
func (s *Site) render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return xerrors.Wrapf(err, "render %s", name)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

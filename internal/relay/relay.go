package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alberthiggs/folio/internal/cms"
	"github.com/alberthiggs/folio/internal/slug"
	"github.com/alberthiggs/folio/internal/xerrors"
)

const (
	DefaultAssetTimeout   = 5 * time.Second
	DefaultResumeTimeout  = 10 * time.Second
	DefaultResumeFilename = "Alberto_Moreno-Resume.pdf"

	AssetCacheControl  = "public, max-age=86400, s-maxage=604800"
	ResumeCacheControl = "public, max-age=3600, s-maxage=86400"
)

// Content is the subset of the aggregator the relay resolves URLs from.
type Content interface {
	Personal(ctx context.Context) (cms.PersonalInfo, error)
	Experience(ctx context.Context) ([]cms.Experience, error)
	Projects(ctx context.Context) ([]cms.Project, error)
	Testimonials(ctx context.Context) []cms.Testimonial
}

// Observer gets one ObserveRelay call per request and one
// ObserveRelayUpstream call per upstream round trip.
type Observer interface {
	ObserveRelay(kind, outcome string)
	ObserveRelayUpstream(kind string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRelay(string, string)                {}
func (nopObserver) ObserveRelayUpstream(string, time.Duration) {}

type Options struct {
	Content Content
	// HTTPClient defaults to a traced client that refuses redirects off
	// the allowed hosts. Its Timeout is ignored in favour of the per-kind
	// timeouts below.
	HTTPClient     *http.Client
	AssetTimeout   time.Duration
	ResumeTimeout  time.Duration
	ResumeFilename string
	Observer       Observer
}

type Relay struct {
	content        Content
	client         *http.Client
	assetTimeout   time.Duration
	resumeTimeout  time.Duration
	resumeFilename string
	obs            Observer
}

func New(opts Options) (*Relay, error) {
	if opts.Content == nil {
		return nil, errors.New("relay: content is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Transport:     otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: checkRedirect,
		}
	}
	if opts.AssetTimeout <= 0 {
		opts.AssetTimeout = DefaultAssetTimeout
	}
	if opts.ResumeTimeout <= 0 {
		opts.ResumeTimeout = DefaultResumeTimeout
	}
	if opts.ResumeFilename == "" {
		opts.ResumeFilename = DefaultResumeFilename
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Relay{
		content:        opts.Content,
		client:         opts.HTTPClient,
		assetTimeout:   opts.AssetTimeout,
		resumeTimeout:  opts.ResumeTimeout,
		resumeFilename: opts.ResumeFilename,
		obs:            opts.Observer,
	}, nil
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 5 {
		return errors.New("too many redirects")
	}
	_, err := ValidateURL(req.URL.String())
	return err
}

// Asset is an upstream body ready to stream. Close releases the upstream
// connection and its timeout.
type Asset struct {
	ContentType        string
	ContentLength      int64
	CacheControl       string
	ContentDisposition string
	Body               io.ReadCloser
}

func (a *Asset) Close() error { return a.Body.Close() }

// Resolve maps kind and slug to the asset URL recorded in content. It does
// not validate the URL.
func (r *Relay) Resolve(ctx context.Context, kind, s string) (string, error) {
	switch kind {
	case "experience":
		list, err := r.content.Experience(ctx)
		if err != nil {
			return "", err
		}
		for _, e := range list {
			if slug.Make(e.Company) == s {
				return nonEmpty(e.ImageURL)
			}
		}
	case "project":
		list, err := r.content.Projects(ctx)
		if err != nil {
			return "", err
		}
		for _, p := range list {
			if p.Slug == s {
				return nonEmpty(p.ImageURL)
			}
		}
	case "testimonial":
		for _, t := range r.content.Testimonials(ctx) {
			if slug.Make(t.Name) == s {
				return nonEmpty(t.AvatarURL)
			}
		}
	}
	return "", newError(NotFound, "Asset not found", nil)
}

func nonEmpty(u string) (string, error) {
	if u == "" {
		return "", newError(NotFound, "Asset not found", nil)
	}
	return u, nil
}

// Asset resolves, validates and opens the image for kind/slug.
func (r *Relay) Asset(ctx context.Context, kind, s string) (*Asset, error) {
	raw, err := r.Resolve(ctx, kind, s)
	if err != nil {
		return nil, err
	}
	u, err := ValidateURL(raw)
	if err != nil {
		return nil, err
	}
	resp, err := r.fetch(ctx, kind, u, r.assetTimeout)
	if err != nil {
		return nil, err
	}
	ct := resp.Header.Get("Content-Type")
	if !matchContentType(ct, ImageContentTypes) {
		resp.Body.Close()
		return nil, newError(InvalidContentType, "Invalid content type", xerrors.Newf("upstream content type %q", ct))
	}
	return &Asset{
		ContentType:   ct,
		ContentLength: resp.ContentLength,
		CacheControl:  AssetCacheControl,
		Body:          resp.Body,
	}, nil
}

// Resume opens the PDF linked from personal info.
func (r *Relay) Resume(ctx context.Context) (*Asset, error) {
	p, err := r.content.Personal(ctx)
	if err != nil {
		return nil, err
	}
	if p.ResumeURL == "" {
		return nil, newError(NotFound, "Resume not available", nil)
	}
	u, err := ValidateURL(p.ResumeURL)
	if err != nil {
		return nil, newError(InvalidAssetURL, "Invalid resume URL", errors.Unwrap(err))
	}
	resp, err := r.fetch(ctx, "resume", u, r.resumeTimeout)
	if err != nil {
		var re *Error
		if errors.As(err, &re) && re.Kind == UpstreamUnavailable {
			re.Public = "Resume not available"
		}
		return nil, err
	}
	ct := resp.Header.Get("Content-Type")
	if !matchContentType(ct, []string{PDFContentType}) {
		resp.Body.Close()
		return nil, newError(InvalidContentType, "Invalid content type", xerrors.Newf("upstream content type %q", ct))
	}
	return &Asset{
		ContentType:        PDFContentType,
		ContentLength:      resp.ContentLength,
		CacheControl:       ResumeCacheControl,
		ContentDisposition: `inline; filename="` + r.resumeFilename + `"`,
		Body:               resp.Body,
	}, nil
}

// fetch makes exactly one request. On success the returned body owns the
// timeout and cancels it on Close.
func (r *Relay) fetch(ctx context.Context, kind string, u *url.URL, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, newError(UpstreamUnavailable, "Asset not available", err)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	r.obs.ObserveRelayUpstream(kind, time.Since(start))
	if err != nil {
		cancel()
		return nil, newError(UpstreamUnavailable, "Asset not available", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		cancel()
		return nil, newError(UpstreamUnavailable, "Asset not available", xerrors.Newf("upstream status %d", resp.StatusCode))
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

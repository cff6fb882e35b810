package cms

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/alberthiggs/folio/internal/log"
	"github.com/alberthiggs/folio/internal/xerrors"
)

type Strategy string

const (
	// StrategyCombined asks the source for every section in one round trip.
	StrategyCombined Strategy = "combined"
	// StrategySections issues one concurrent request per section.
	StrategySections Strategy = "sections"
)

// ParseStrategy maps the config value to a Strategy. Empty means combined.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyCombined, "":
		return StrategyCombined, nil
	case StrategySections:
		return StrategySections, nil
	}
	return "", xerrors.Newf("unknown fetch strategy %q", s)
}

// Observer receives one call per section fetch. result is ok, error or not_found.
type Observer interface {
	ObserveSectionFetch(section, result string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveSectionFetch(string, string, time.Duration) {}

type Options struct {
	Source   Source
	Strategy Strategy
	Observer Observer
	Logger   log.Logger
}

// Aggregator turns source payloads into SiteContent. It holds no content
// between calls; every method fetches.
type Aggregator struct {
	src      Source
	strategy Strategy
	obs      Observer
	logger   log.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func New(opts Options) (*Aggregator, error) {
	if opts.Source == nil {
		return nil, xerrors.New("cms: source is required")
	}
	switch opts.Strategy {
	case "":
		opts.Strategy = StrategyCombined
	case StrategyCombined, StrategySections:
	default:
		return nil, xerrors.Newf("cms: unknown strategy %q", opts.Strategy)
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Aggregator{
		src:      opts.Source,
		strategy: opts.Strategy,
		obs:      opts.Observer,
		logger:   opts.Logger,
		tracer:   otel.Tracer("folio/cms"),
		now:      time.Now,
	}, nil
}

func (a *Aggregator) Strategy() Strategy { return a.strategy }

// Fetch builds the full aggregate. A required section failure is returned
// as a *ContentFetchError; testimonials degrade to an empty list.
func (a *Aggregator) Fetch(ctx context.Context) (*SiteContent, error) {
	ctx, span := a.tracer.Start(ctx, "cms.fetch",
		trace.WithAttributes(attribute.String("cms.strategy", string(a.strategy))))
	defer span.End()

	results := a.fetch(ctx, Sections)
	if r := results[SectionTestimonials]; r.Err != nil {
		a.degraded(ctx, SectionTestimonials, r.Err)
	}
	sc, err := combine(results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "content fetch failed")
		return nil, err
	}
	return sc, nil
}

// Personal fetches and validates the personal section alone.
func (a *Aggregator) Personal(ctx context.Context) (PersonalInfo, error) {
	return decodePersonal(a.fetchOne(ctx, SectionPersonal))
}

func (a *Aggregator) Experience(ctx context.Context) ([]Experience, error) {
	return decodeList[Experience](SectionExperience, a.fetchOne(ctx, SectionExperience))
}

func (a *Aggregator) Projects(ctx context.Context) ([]Project, error) {
	return decodeList[Project](SectionProjects, a.fetchOne(ctx, SectionProjects))
}

func (a *Aggregator) Skills(ctx context.Context) ([]SkillCategory, error) {
	return decodeList[SkillCategory](SectionSkills, a.fetchOne(ctx, SectionSkills))
}

// Testimonials never fails: an unavailable section is an empty list.
func (a *Aggregator) Testimonials(ctx context.Context) []Testimonial {
	v, err := decodeList[Testimonial](SectionTestimonials, a.fetchOne(ctx, SectionTestimonials))
	if err != nil {
		a.degraded(ctx, SectionTestimonials, err)
		return []Testimonial{}
	}
	return v
}

// Section returns one section decoded into its typed value, with the
// section policy applied.
func (a *Aggregator) Section(ctx context.Context, s Section) (any, error) {
	switch s {
	case SectionPersonal:
		return a.Personal(ctx)
	case SectionExperience:
		return a.Experience(ctx)
	case SectionProjects:
		return a.Projects(ctx)
	case SectionSkills:
		return a.Skills(ctx)
	case SectionTestimonials:
		return a.Testimonials(ctx), nil
	}
	return nil, notFound(s)
}

func (a *Aggregator) degraded(ctx context.Context, s Section, err error) {
	a.logger.Warn(ctx, "optional section unavailable, rendering empty",
		"section", string(s),
		"error", err.Error(),
	)
}

func (a *Aggregator) fetchOne(ctx context.Context, s Section) Result {
	start := a.now()
	raw, err := a.src.FetchSection(ctx, s)
	r := Result{Raw: raw}
	if err != nil {
		r.Err = fetchError(s, err)
	} else if isNull(raw) {
		r.Err = notFound(s)
	}
	a.observe(s, r, a.now().Sub(start))
	return r
}

// fetch returns a Result for every section in secs. Missing sections carry
// a not-found error.
func (a *Aggregator) fetch(ctx context.Context, secs []Section) map[Section]Result {
	out := make(map[Section]Result, len(secs))

	if a.strategy == StrategySections {
		// sections fail independently, so no shared cancellation
		results := make([]Result, len(secs))
		var g errgroup.Group
		for i, s := range secs {
			g.Go(func() error {
				results[i] = a.fetchOne(ctx, s)
				return nil
			})
		}
		_ = g.Wait()
		for i, s := range secs {
			out[s] = results[i]
		}
		return out
	}

	start := a.now()
	all, err := a.src.FetchAll(ctx)
	d := a.now().Sub(start)
	for _, s := range secs {
		var r Result
		switch {
		case err != nil:
			r.Err = fetchError(s, err)
		default:
			got, ok := all[s]
			switch {
			case !ok:
				r.Err = notFound(s)
			case got.Err != nil:
				r.Err = fetchError(s, got.Err)
			case isNull(got.Raw):
				r.Err = notFound(s)
			default:
				r.Raw = got.Raw
			}
		}
		a.observe(s, r, d)
		out[s] = r
	}
	return out
}

func (a *Aggregator) observe(s Section, r Result, d time.Duration) {
	a.obs.ObserveSectionFetch(string(s), resultLabel(r.Err), d)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSectionNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// combine applies the section policy to per-section results. It does no I/O.
func combine(results map[Section]Result) (*SiteContent, error) {
	personal, err := decodePersonal(results[SectionPersonal])
	if err != nil {
		return nil, err
	}
	experience, err := decodeList[Experience](SectionExperience, results[SectionExperience])
	if err != nil {
		return nil, err
	}
	projects, err := decodeList[Project](SectionProjects, results[SectionProjects])
	if err != nil {
		return nil, err
	}
	skills, err := decodeList[SkillCategory](SectionSkills, results[SectionSkills])
	if err != nil {
		return nil, err
	}
	testimonials, err := decodeList[Testimonial](SectionTestimonials, results[SectionTestimonials])
	if err != nil {
		testimonials = []Testimonial{}
	}
	return &SiteContent{
		Personal:     personal,
		Experience:   experience,
		Projects:     projects,
		Skills:       skills,
		Testimonials: testimonials,
	}, nil
}

func decodeSection[T any](s Section, r Result) (T, error) {
	var v T
	if r.Err != nil {
		return v, fetchError(s, r.Err)
	}
	if isNull(r.Raw) {
		return v, notFound(s)
	}
	if err := json.Unmarshal(r.Raw, &v); err != nil {
		return v, &ContentFetchError{Section: s, Message: "decode section payload", Err: xerrors.WithStack(err)}
	}
	return v, nil
}

func decodeList[T any](s Section, r Result) ([]T, error) {
	v, err := decodeSection[[]T](s, r)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []T{}
	}
	return v, nil
}

func decodePersonal(r Result) (PersonalInfo, error) {
	p, err := decodeSection[PersonalInfo](SectionPersonal, r)
	if err != nil {
		return PersonalInfo{}, err
	}
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return PersonalInfo{}, &ContentFetchError{
			Section: SectionPersonal,
			Message: "missing required fields: " + strings.Join(missing, ", "),
		}
	}
	if p.HeroStats == nil {
		p.HeroStats = []HeroStat{}
	}
	if p.Bio == nil {
		p.Bio = []string{}
	}
	if p.Highlights == nil {
		p.Highlights = []string{}
	}
	return p, nil
}

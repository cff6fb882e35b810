package cms

import "context"

// Handle is a section value that resolves once. Await may be called any
// number of times from any goroutine.
type Handle[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newHandle[T any]() *Handle[T] { return &Handle[T]{done: make(chan struct{})} }

func (h *Handle[T]) resolve(v T, err error) {
	h.val, h.err = v, err
	close(h.done)
}

// Done is closed once the value is available.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.val, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Deferred holds one handle per section. Handles resolve independently
// and in no particular order.
type Deferred struct {
	Personal     *Handle[PersonalInfo]
	Experience   *Handle[[]Experience]
	Projects     *Handle[[]Project]
	Skills       *Handle[[]SkillCategory]
	Testimonials *Handle[[]Testimonial]
}

// Defer starts every section fetch and returns immediately. With the
// combined strategy all handles resolve from the same round trip. The
// Testimonials handle never carries an error.
func (a *Aggregator) Defer(ctx context.Context) *Deferred {
	d := &Deferred{
		Personal:     newHandle[PersonalInfo](),
		Experience:   newHandle[[]Experience](),
		Projects:     newHandle[[]Project](),
		Skills:       newHandle[[]SkillCategory](),
		Testimonials: newHandle[[]Testimonial](),
	}

	if a.strategy == StrategySections {
		for _, s := range Sections {
			go func() { a.settle(ctx, d, s, a.fetchOne(ctx, s)) }()
		}
		return d
	}

	go func() {
		results := a.fetch(ctx, Sections)
		for _, s := range Sections {
			a.settle(ctx, d, s, results[s])
		}
	}()
	return d
}

func (a *Aggregator) settle(ctx context.Context, d *Deferred, s Section, r Result) {
	switch s {
	case SectionPersonal:
		d.Personal.resolve(decodePersonal(r))
	case SectionExperience:
		d.Experience.resolve(decodeList[Experience](s, r))
	case SectionProjects:
		d.Projects.resolve(decodeList[Project](s, r))
	case SectionSkills:
		d.Skills.resolve(decodeList[SkillCategory](s, r))
	case SectionTestimonials:
		v, err := decodeList[Testimonial](s, r)
		if err != nil {
			a.degraded(ctx, s, err)
			v = []Testimonial{}
		}
		d.Testimonials.resolve(v, nil)
	}
}

// Wait blocks until every handle has resolved or ctx is done.
func (d *Deferred) Wait(ctx context.Context) error {
	for _, ch := range []<-chan struct{}{
		d.Personal.Done(), d.Experience.Done(), d.Projects.Done(), d.Skills.Done(), d.Testimonials.Done(),
	} {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}


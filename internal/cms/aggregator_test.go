package cms

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(t *testing.T, src Source, strategy Strategy) (*Aggregator, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	a, err := New(Options{Source: src, Strategy: strategy, Observer: obs})
	require.NoError(t, err)
	return a, obs
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	_, err = New(Options{Source: newFakeSource(), Strategy: "bogus"})
	require.Error(t, err)

	a, err := New(Options{Source: newFakeSource()})
	require.NoError(t, err)
	assert.Equal(t, StrategyCombined, a.Strategy())
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyCombined, s)

	s, err = ParseStrategy(" Sections ")
	require.NoError(t, err)
	assert.Equal(t, StrategySections, s)

	_, err = ParseStrategy("parallel")
	require.Error(t, err)
}

func TestFetch_BothStrategies(t *testing.T) {
	for _, strategy := range []Strategy{StrategyCombined, StrategySections} {
		t.Run(string(strategy), func(t *testing.T) {
			src := newFakeSource()
			a, obs := newTestAggregator(t, src, strategy)

			sc, err := a.Fetch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "Alberto Moreno", sc.Personal.Name)
			require.Len(t, sc.Experience, 1)
			assert.Equal(t, "Acme Corp", sc.Experience[0].Company)
			require.Len(t, sc.Projects, 1)
			assert.Equal(t, "folio", sc.Projects[0].Slug)
			require.Len(t, sc.Skills, 1)
			require.Len(t, sc.Testimonials, 1)
			assert.Equal(t, "ok", obs.get("personal"))

			if strategy == StrategyCombined {
				assert.EqualValues(t, 1, src.allCalls.Load())
				assert.EqualValues(t, 0, src.sectionCalls.Load())
			} else {
				assert.EqualValues(t, 0, src.allCalls.Load())
				assert.EqualValues(t, len(Sections), src.sectionCalls.Load())
			}
		})
	}
}

func TestFetch_TestimonialsFailureDegradesToEmpty(t *testing.T) {
	for _, strategy := range []Strategy{StrategyCombined, StrategySections} {
		t.Run(string(strategy), func(t *testing.T) {
			src := newFakeSource()
			src.errs[SectionTestimonials] = &ContentFetchError{Status: 500, Message: "boom"}
			a, obs := newTestAggregator(t, src, strategy)

			sc, err := a.Fetch(context.Background())
			require.NoError(t, err)
			require.NotNil(t, sc.Testimonials)
			assert.Empty(t, sc.Testimonials)
			assert.Equal(t, "error", obs.get("testimonials"))
		})
	}
}

func TestFetch_MissingTestimonialsIsEmpty(t *testing.T) {
	src := newFakeSource()
	delete(src.payloads, SectionTestimonials)
	a, obs := newTestAggregator(t, src, StrategyCombined)

	sc, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sc.Testimonials)
	assert.Equal(t, "not_found", obs.get("testimonials"))
}

func TestFetch_RequiredFailureFailsAggregate(t *testing.T) {
	for _, strategy := range []Strategy{StrategyCombined, StrategySections} {
		t.Run(string(strategy), func(t *testing.T) {
			src := newFakeSource()
			src.errs[SectionExperience] = errors.New("connection reset")
			a, _ := newTestAggregator(t, src, strategy)

			sc, err := a.Fetch(context.Background())
			require.Error(t, err)
			assert.Nil(t, sc)

			var cfe *ContentFetchError
			require.ErrorAs(t, err, &cfe)
			assert.Equal(t, SectionExperience, cfe.Section)
			assert.Contains(t, cfe.Error(), "connection reset")
		})
	}
}

func TestFetch_SectionsFailIndependently(t *testing.T) {
	src := newFakeSource()
	src.errs[SectionExperience] = errors.New("connection reset")
	src.delay[SectionSkills] = 50 * time.Millisecond
	src.delay[SectionProjects] = 50 * time.Millisecond
	a, obs := newTestAggregator(t, src, StrategySections)

	_, err := a.Fetch(context.Background())
	require.Error(t, err)

	// the early failure must not cancel the slower siblings
	assert.Equal(t, "error", obs.get("experience"))
	assert.Equal(t, "ok", obs.get("skills"))
	assert.Equal(t, "ok", obs.get("projects"))
	assert.Equal(t, int32(len(Sections)), src.sectionCalls.Load())
}

func TestFetch_SectionsRunConcurrently(t *testing.T) {
	src := newFakeSource()
	for _, s := range Sections {
		src.delay[s] = 80 * time.Millisecond
	}
	a, _ := newTestAggregator(t, src, StrategySections)

	start := time.Now()
	_, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 80*time.Millisecond*time.Duration(len(Sections)-1))
}

func TestFetch_MissingRequiredSectionIsNotFound(t *testing.T) {
	src := newFakeSource()
	delete(src.payloads, SectionSkills)
	a, obs := newTestAggregator(t, src, StrategyCombined)

	_, err := a.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSectionNotFound)

	var cfe *ContentFetchError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, SectionSkills, cfe.Section)
	assert.Equal(t, "not_found", obs.get("skills"))
}

func TestFetch_SourceErrorAttributedToSection(t *testing.T) {
	src := newFakeSource()
	src.allErr = &ContentFetchError{Status: 503, Message: "Contentful GraphQL error: 503"}
	a, _ := newTestAggregator(t, src, StrategyCombined)

	_, err := a.Fetch(context.Background())
	var cfe *ContentFetchError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, SectionPersonal, cfe.Section)
	assert.Equal(t, 503, cfe.Status)
	assert.Equal(t, "Contentful GraphQL error: 503", cfe.Message)
}

func TestFetch_NullContentIsNotFound(t *testing.T) {
	src := newFakeSource()
	src.payloads[SectionProjects] = "null"
	a, _ := newTestAggregator(t, src, StrategyCombined)

	_, err := a.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestFetch_UndecodablePayload(t *testing.T) {
	src := newFakeSource()
	src.payloads[SectionProjects] = `{"not":"a list"}`
	a, _ := newTestAggregator(t, src, StrategyCombined)

	_, err := a.Fetch(context.Background())
	var cfe *ContentFetchError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, SectionProjects, cfe.Section)
	assert.Equal(t, "decode section payload", cfe.Message)
}

func TestCombine_Pure(t *testing.T) {
	results := map[Section]Result{}
	for s, p := range fullPayloads() {
		results[s] = Result{Raw: json.RawMessage(p)}
	}
	sc, err := combine(results)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", sc.Personal.Email)

	results[SectionTestimonials] = Result{Err: errors.New("down")}
	sc, err = combine(results)
	require.NoError(t, err)
	assert.Empty(t, sc.Testimonials)

	results[SectionPersonal] = Result{Err: errors.New("down")}
	_, err = combine(results)
	var cfe *ContentFetchError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, SectionPersonal, cfe.Section)
}

func TestCombine_EmptyListsAreNonNil(t *testing.T) {
	results := map[Section]Result{
		SectionPersonal:   {Raw: json.RawMessage(`{"name":"A","email":"a@b.c"}`)},
		SectionExperience: {Raw: json.RawMessage(`[]`)},
		SectionProjects:   {Raw: json.RawMessage(`[]`)},
		SectionSkills:     {Raw: json.RawMessage(`[]`)},
	}
	sc, err := combine(results)
	require.NoError(t, err)
	assert.NotNil(t, sc.Experience)
	assert.NotNil(t, sc.Personal.Bio)
	assert.NotNil(t, sc.Personal.HeroStats)
	assert.NotNil(t, sc.Testimonials)
}

func TestPersonal_RequiresNameAndEmail(t *testing.T) {
	src := newFakeSource()
	src.payloads[SectionPersonal] = `{"name":"","title":"x"}`
	a, _ := newTestAggregator(t, src, StrategySections)

	_, err := a.Personal(context.Background())
	var cfe *ContentFetchError
	require.ErrorAs(t, err, &cfe)
	assert.Contains(t, cfe.Message, "name")
	assert.Contains(t, cfe.Message, "email")
}

func TestGetters_UseSingleSectionFetch(t *testing.T) {
	src := newFakeSource()
	a, _ := newTestAggregator(t, src, StrategyCombined)
	ctx := context.Background()

	p, err := a.Personal(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alberto Moreno", p.Name)

	exp, err := a.Experience(ctx)
	require.NoError(t, err)
	assert.Len(t, exp, 1)

	proj, err := a.Projects(ctx)
	require.NoError(t, err)
	assert.Len(t, proj, 1)

	sk, err := a.Skills(ctx)
	require.NoError(t, err)
	assert.Len(t, sk, 1)

	assert.Len(t, a.Testimonials(ctx), 1)

	assert.EqualValues(t, 0, src.allCalls.Load())
	assert.EqualValues(t, 5, src.sectionCalls.Load())
}

func TestTestimonials_NeverFails(t *testing.T) {
	src := newFakeSource()
	src.errs[SectionTestimonials] = errors.New("down")
	a, _ := newTestAggregator(t, src, StrategyCombined)

	got := a.Testimonials(context.Background())
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSection_Dispatch(t *testing.T) {
	a, _ := newTestAggregator(t, newFakeSource(), StrategyCombined)

	v, err := a.Section(context.Background(), SectionSkills)
	require.NoError(t, err)
	assert.IsType(t, []SkillCategory{}, v)

	_, err = a.Section(context.Background(), Section("contact"))
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestDefer_ResolvesIndependently(t *testing.T) {
	src := newFakeSource()
	src.delay[SectionExperience] = 200 * time.Millisecond
	a, _ := newTestAggregator(t, src, StrategySections)
	ctx := context.Background()

	d := a.Defer(ctx)

	p, err := d.Personal.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alberto Moreno", p.Name)

	select {
	case <-d.Experience.Done():
		t.Fatal("experience resolved before its delay")
	default:
	}

	exp, err := d.Experience.Await(ctx)
	require.NoError(t, err)
	assert.Len(t, exp, 1)

	require.NoError(t, d.Wait(ctx))
}

func TestDefer_CombinedSingleRoundTrip(t *testing.T) {
	src := newFakeSource()
	a, _ := newTestAggregator(t, src, StrategyCombined)
	ctx := context.Background()

	d := a.Defer(ctx)
	require.NoError(t, d.Wait(ctx))

	sk, err := d.Skills.Await(ctx)
	require.NoError(t, err)
	assert.Len(t, sk, 1)
	assert.EqualValues(t, 1, src.allCalls.Load())
}

func TestDefer_TestimonialsHandleNeverErrors(t *testing.T) {
	src := newFakeSource()
	src.errs[SectionTestimonials] = errors.New("down")
	src.errs[SectionProjects] = errors.New("down")
	a, _ := newTestAggregator(t, src, StrategySections)
	ctx := context.Background()

	d := a.Defer(ctx)
	ts, err := d.Testimonials.Await(ctx)
	require.NoError(t, err)
	assert.Empty(t, ts)

	_, err = d.Projects.Await(ctx)
	var cfe *ContentFetchError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, SectionProjects, cfe.Section)
}

func TestHandle_AwaitHonoursContext(t *testing.T) {
	h := newHandle[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := h.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	h.resolve(7, nil)
	v, err := h.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

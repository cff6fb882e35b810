package cms

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

const (
	personalJSON     = `{"name":"Alberto Moreno","title":"Senior Software Engineer","email":"a@example.com","githubUrl":"https://github.com/am","bio":["Hello **world**"],"heroStats":[{"value":"13+","label":"years"}]}`
	experienceJSON   = `[{"company":"Acme Corp","role":"Lead","period":"2020-2024","description":"d","imageUrl":"https://images.ctfassets.net/a.png","achievements":[],"technologies":["go"]}]`
	projectsJSON     = `[{"name":"Folio","slug":"folio","shortDescription":"s","longDescription":"l","technologies":[],"highlights":[],"featured":true}]`
	skillsJSON       = `[{"title":"Backend","iconId":"server","skills":["Go"]}]`
	testimonialsJSON = `[{"name":"Jane Doe","role":"CTO","company":"Acme","quote":"great","avatarUrl":"https://images.ctfassets.net/j.png"}]`
)

func fullPayloads() map[Section]string {
	return map[Section]string{
		SectionPersonal:     personalJSON,
		SectionExperience:   experienceJSON,
		SectionProjects:     projectsJSON,
		SectionSkills:       skillsJSON,
		SectionTestimonials: testimonialsJSON,
	}
}

// fakeSource serves payloads from memory. errs overrides per-section results.
type fakeSource struct {
	mu       sync.Mutex
	payloads map[Section]string
	errs     map[Section]error
	allErr   error
	delay    map[Section]time.Duration

	allCalls     atomic.Int32
	sectionCalls atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{payloads: fullPayloads(), errs: map[Section]error{}, delay: map[Section]time.Duration{}}
}

func (f *fakeSource) FetchSection(ctx context.Context, s Section) (json.RawMessage, error) {
	f.sectionCalls.Add(1)
	f.mu.Lock()
	d := f.delay[s]
	err := f.errs[s]
	p, ok := f.payloads[s]
	f.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(s)
	}
	return json.RawMessage(p), nil
}

func (f *fakeSource) FetchAll(ctx context.Context) (map[Section]Result, error) {
	f.allCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allErr != nil {
		return nil, f.allErr
	}
	out := map[Section]Result{}
	for s, p := range f.payloads {
		out[s] = Result{Raw: json.RawMessage(p), Err: f.errs[s]}
	}
	return out, nil
}

type recordingObserver struct {
	mu    sync.Mutex
	calls map[string]string
}

func (r *recordingObserver) ObserveSectionFetch(section, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]string{}
	}
	r.calls[section] = result
}

func (r *recordingObserver) get(section string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[section]
}

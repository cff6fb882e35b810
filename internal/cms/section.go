package cms

// Section is the CMS section id.
type Section string

const (
	SectionPersonal     Section = "personal"
	SectionExperience   Section = "experience"
	SectionProjects     Section = "projects"
	SectionSkills       Section = "skills"
	SectionTestimonials Section = "testimonials"
)

// Sections lists every section in page order.
var Sections = []Section{
	SectionPersonal,
	SectionExperience,
	SectionProjects,
	SectionSkills,
	SectionTestimonials,
}

type Policy int

const (
	// Required sections fail the aggregate when unavailable.
	Required Policy = iota
	// Optional sections become empty lists when unavailable.
	Optional
)

func (p Policy) String() string {
	if p == Optional {
		return "optional"
	}
	return "required"
}

var policies = map[Section]Policy{
	SectionPersonal:     Required,
	SectionExperience:   Required,
	SectionProjects:     Required,
	SectionSkills:       Required,
	SectionTestimonials: Optional,
}

// Policy returns the section's policy. Unknown sections are required.
func (s Section) Policy() Policy {
	if p, ok := policies[s]; ok {
		return p
	}
	return Required
}

// ParseSection accepts the exact lower-case section id.
func ParseSection(s string) (Section, bool) {
	sec := Section(s)
	_, ok := policies[sec]
	return sec, ok
}

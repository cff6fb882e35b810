package cms

// SiteContent is the full aggregate. Lists keep source order and are never
// nil once produced by this package.
type SiteContent struct {
	Personal     PersonalInfo    `json:"personal"`
	Experience   []Experience    `json:"experience"`
	Projects     []Project       `json:"projects"`
	Skills       []SkillCategory `json:"skills"`
	Testimonials []Testimonial   `json:"testimonials"`
}

type HeroStat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type PersonalInfo struct {
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	GithubURL   string     `json:"githubUrl,omitempty"`
	LinkedinURL string     `json:"linkedinUrl,omitempty"`
	Location    string     `json:"location,omitempty"`
	HeroTagline string     `json:"heroTagline,omitempty"`
	HeroStats   []HeroStat `json:"heroStats"`
	Bio         []string   `json:"bio"`
	Highlights  []string   `json:"highlights"`
	Education   string     `json:"education,omitempty"`
	ResumeURL   string     `json:"resumeUrl,omitempty"`
}

type Achievement struct {
	Text   string `json:"text"`
	Metric string `json:"metric"`
}

// Experience entries have no slug field; the asset relay derives one from Company.
type Experience struct {
	Company      string        `json:"company"`
	Role         string        `json:"role"`
	Period       string        `json:"period"`
	Description  string        `json:"description"`
	Website      string        `json:"website,omitempty"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	Achievements []Achievement `json:"achievements"`
	Technologies []string      `json:"technologies"`
}

type Project struct {
	Name             string   `json:"name"`
	Slug             string   `json:"slug"`
	ShortDescription string   `json:"shortDescription"`
	LongDescription  string   `json:"longDescription"`
	GithubURL        string   `json:"githubUrl,omitempty"`
	LiveURL          string   `json:"liveUrl,omitempty"`
	ImageURL         string   `json:"imageUrl,omitempty"`
	Technologies     []string `json:"technologies"`
	Highlights       []string `json:"highlights"`
	Featured         bool     `json:"featured"`
	Category         string   `json:"category,omitempty"`
}

type Testimonial struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Company     string `json:"company"`
	Quote       string `json:"quote"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	LinkedInURL string `json:"linkedInUrl,omitempty"`
}

type SkillCategory struct {
	Title  string   `json:"title"`
	IconID string   `json:"iconId"`
	Skills []string `json:"skills"`
}

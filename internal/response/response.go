// Package response decodes the structured replies the assistant is asked to
// produce.
package response

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// Reply types.
const (
	TypeJobList = "job_list"
	TypeImages  = "images"
	TypeText    = "text"
)

var (
	openJSONFence = regexp.MustCompile("^```json\\s*")
	openFence     = regexp.MustCompile("^```\\s*")
	closeFence    = regexp.MustCompile("\\s*```$")
)

// Reply is a decoded answer.
type Reply struct {
	Type     string   `json:"type"`
	Items    []Job    `json:"items,omitempty"`
	Query    string   `json:"query,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Content  string   `json:"content,omitempty"`

	// Structured is false when the answer was not valid JSON and Content
	// holds the cleaned raw text.
	Structured bool `json:"-"`
}

// Clean removes the code fences models like to wrap JSON in.
func Clean(raw string) string {
	s := openJSONFence.ReplaceAllString(raw, "")
	s = openFence.ReplaceAllString(s, "")
	s = closeFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse decodes raw into a Reply. Anything that is not a known structured
// reply becomes a plain text reply.
func Parse(raw string) Reply {
	cleaned := Clean(raw)
	text := Reply{Type: TypeText, Content: cleaned}

	var reply Reply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return text
	}
	reply.Structured = true
	switch reply.Type {
	case TypeJobList, TypeImages:
		return reply
	case TypeText:
		return reply
	default:
		if reply.Content != "" {
			reply.Type = TypeText
			return reply
		}
		return text
	}
}

// Job is an offer listed in a job_list reply.
type Job struct {
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Salary          string   `json:"salary"`
	Duration        string   `json:"duration"`
	ContractType    string   `json:"contract_type"`
	Location        string   `json:"location"`
	Source          string   `json:"source"`
	Description     string   `json:"description"`
	DescriptionLong string   `json:"description_long"`
	Missions        []string `json:"missions"`
	LogoURL         string   `json:"logo_url"`
	URL             string   `json:"url"`
}

// SearchPlaceholder is the url the assistant uses when it has no real link.
const SearchPlaceholder = "SEARCH"

// Link returns the offer url, or a web search for the offer when the url is
// missing or a placeholder.
func (j Job) Link() string {
	u := j.URL
	if u == "" || strings.Contains(u, "fake-link") || u == "#" || u == SearchPlaceholder {
		q := url.QueryEscape(j.Title + " " + j.Company + " emploi")
		return "https://www.google.com/search?q=" + q
	}
	return u
}

// Logo returns the logo url or a generated avatar.
func (j Job) Logo() string {
	if j.LogoURL != "" && j.LogoURL != "null" {
		return j.LogoURL
	}
	name := j.Company
	if name == "" {
		name = "Job"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random&color=fff&size=128"
}

// Initials returns the two letter badge shown in place of a logo.
func (j Job) Initials() string {
	if j.Company == "" {
		return "JO"
	}
	r := []rune(j.Company)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// WithDefaults returns a copy of the job with display defaults filled in.
func (j Job) WithDefaults() Job {
	j.Title = or(j.Title, "Titre non spécifié")
	j.Company = or(j.Company, "Entreprise confidentielle")
	j.Location = or(j.Location, "Non spécifié")
	j.Salary = or(j.Salary, "N.C.")
	j.ContractType = or(j.ContractType, "Freelance")
	j.Duration = or(j.Duration, "Indéterminée")
	j.Source = or(j.Source, "Web")
	j.DescriptionLong = or(j.DescriptionLong, or(j.Description, "Pas de description détaillée."))
	if len(j.Missions) == 0 {
		j.Missions = []string{"Détails non fournis."}
	}
	return j
}

// ImageURL returns an illustration url for keyword.
func ImageURL(keyword string) string {
	return "https://source.unsplash.com/400x300/?" + url.QueryEscape(keyword)
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

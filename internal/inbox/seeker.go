package inbox

import "strings"

// Seeker is a candidate profile.
type Seeker struct {
	ID                       int64        `json:"id" mapstructure:"id"`
	Position                 string       `json:"position,omitempty" mapstructure:"position"`
	PrimaryKeyword           string       `json:"primary_keyword,omitempty" mapstructure:"primary_keyword"`
	SecondaryKeyword         string       `json:"secondary_keyword,omitempty" mapstructure:"secondary_keyword"`
	ExperienceYears          float64      `json:"experience_years,omitempty" mapstructure:"experience_years"`
	EnglishLevel             EnglishLevel `json:"english_level,omitempty" mapstructure:"english_level"`
	SalaryMin                int          `json:"salary_min,omitempty" mapstructure:"salary_min"`
	Location                 string       `json:"location,omitempty" mapstructure:"location"`
	CountryCode              string       `json:"country_code,omitempty" mapstructure:"country_code"`
	City                     string       `json:"city,omitempty" mapstructure:"city"`
	CanRelocate              bool         `json:"can_relocate,omitempty" mapstructure:"can_relocate"`
	DomainZones              []string     `json:"domain_zones,omitempty" mapstructure:"domain_zones"`
	UninterestedCompanyTypes []string     `json:"uninterested_company_types,omitempty" mapstructure:"uninterested_company_types"`
	Skills                   []string     `json:"skills,omitempty" mapstructure:"skills"`
	MoreInfo                 string       `json:"more_info,omitempty" mapstructure:"more_info"`
	LookingFor               string       `json:"looking_for,omitempty" mapstructure:"looking_for"`
	Highlights               string       `json:"highlights,omitempty" mapstructure:"highlights"`
}

// FreeText joins the seeker's free-text fields in a fixed order.
func (s *Seeker) FreeText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.MoreInfo, s.LookingFor, s.Highlights} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Seekers is a list of candidate profiles.
type Seekers struct {
	Items []*Seeker
}

func (s *Seekers) Len() int {
	return len(s.Items)
}

func (s *Seekers) FindByID(id int64) *Seeker {
	for _, seeker := range s.Items {
		if seeker.ID == id {
			return seeker
		}
	}

	return nil
}

func (s *Seekers) IDs() []int64 {
	ids := make([]int64, 0, len(s.Items))
	for _, seeker := range s.Items {
		ids = append(ids, seeker.ID)
	}
	return ids
}

package inbox

import "strings"

// Opportunity is a job posting.
type Opportunity struct {
	ID                int64        `json:"id" mapstructure:"id"`
	Position          string       `json:"position,omitempty" mapstructure:"position"`
	PrimaryKeyword    string       `json:"primary_keyword,omitempty" mapstructure:"primary_keyword"`
	SecondaryKeyword  string       `json:"secondary_keyword,omitempty" mapstructure:"secondary_keyword"`
	ExtraKeywords     []string     `json:"extra_keywords,omitempty" mapstructure:"extra_keywords"`
	Experience        Experience   `json:"exp_years,omitempty" mapstructure:"exp_years"`
	EnglishLevel      EnglishLevel `json:"english_level,omitempty" mapstructure:"english_level"`
	SalaryMin         int          `json:"salary_min,omitempty" mapstructure:"salary_min"`
	SalaryMax         int          `json:"salary_max,omitempty" mapstructure:"salary_max"`
	Location          string       `json:"location,omitempty" mapstructure:"location"`
	Country           string       `json:"country,omitempty" mapstructure:"country"`
	AcceptRegion      AcceptRegion `json:"accept_region,omitempty" mapstructure:"accept_region"`
	Domain            string       `json:"domain,omitempty" mapstructure:"domain"`
	CompanyType       string       `json:"company_type,omitempty" mapstructure:"company_type"`
	RemoteType        RemoteType   `json:"remote_type,omitempty" mapstructure:"remote_type"`
	RelocateType      RelocateType `json:"relocate_type,omitempty" mapstructure:"relocate_type"`
	LongDescription   string       `json:"long_description,omitempty" mapstructure:"long_description"`
	ApplicationsCount int          `json:"applications_count,omitempty" mapstructure:"applications_count"`
}

// HasSalaryRange reports whether the posting defines a usable salary range.
func (o *Opportunity) HasSalaryRange() bool {
	return o.SalaryMax > 0 && o.SalaryMax >= o.SalaryMin
}

// Keywords returns the non-empty primary, secondary and extra keywords.
func (o *Opportunity) Keywords() []string {
	out := make([]string, 0, 2+len(o.ExtraKeywords))
	for _, k := range append([]string{o.PrimaryKeyword, o.SecondaryKeyword}, o.ExtraKeywords...) {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

type Opportunities struct {
	Items []*Opportunity
}

func (o *Opportunities) Len() int {
	return len(o.Items)
}

func (o *Opportunities) FindByID(id int64) *Opportunity {
	for _, opp := range o.Items {
		if opp.ID == id {
			return opp
		}
	}

	return nil
}

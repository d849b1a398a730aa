package scoring

import (
	"sort"
	"strings"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

const (
	ValidatorAlways             = "always"
	ValidatorSalaryRangeDefined = "salary_range_defined"
	ValidatorEnglishRequired    = "english_required"
	ValidatorExperienceRequired = "experience_required"
	ValidatorKeywordRequired    = "keyword_required"
)

// Validator decides whether a rule applies to the pair at all.
type Validator func(*inbox.Seeker, *inbox.Opportunity) bool

var validators = map[string]Validator{
	ValidatorAlways: func(*inbox.Seeker, *inbox.Opportunity) bool { return true },
	ValidatorSalaryRangeDefined: func(_ *inbox.Seeker, o *inbox.Opportunity) bool {
		return o.HasSalaryRange()
	},
	ValidatorEnglishRequired: func(_ *inbox.Seeker, o *inbox.Opportunity) bool {
		return strings.TrimSpace(string(o.EnglishLevel)) != ""
	},
	ValidatorExperienceRequired: func(_ *inbox.Seeker, o *inbox.Opportunity) bool {
		return strings.TrimSpace(string(o.Experience)) != ""
	},
	ValidatorKeywordRequired: func(_ *inbox.Seeker, o *inbox.Opportunity) bool {
		return strings.TrimSpace(o.PrimaryKeyword) != ""
	},
}

// ValidatorNames lists the registered validators.
func ValidatorNames() []string {
	names := make([]string, 0, len(validators))
	for name := range validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupValidator(rule, name string) (Validator, error) {
	if name == "" {
		name = ValidatorAlways
	}
	v, ok := validators[name]
	if !ok {
		return nil, configErr(rule, "unknown validator %q", name)
	}
	return v, nil
}

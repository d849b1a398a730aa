package scoring

func one(field, adapter string) Selector {
	return Selector{Fields: []string{field}, Adapter: adapter}
}

// DefaultRules is the canonical rule set used when no rules file is
// configured. Weights follow the Fibonacci scale of the threshold analyzer so
// that a perfect english or experience match is comparable to a keyword hit.
// A company type the seeker opted out of is a negative contribution.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			Name:      "salary",
			Query:     Selector{Fields: []string{"salary_min", "salary_max"}},
			Vector:    one("salary_min", ""),
			Analyzer:  RangeMatch,
			Weight:    8,
			MinWeight: -2,
			Validator: ValidatorSalaryRangeDefined,
		},
		{
			Name:           "experience",
			Query:          one("exp_years", AdapterExperience),
			Vector:         one("experience_years", ""),
			Analyzer:       Threshold,
			Weight:         5,
			PenaltyPerStep: 1.5,
			Validator:      ValidatorExperienceRequired,
		},
		{
			Name:           "english",
			Query:          one("english_level", AdapterEnglishLevel),
			Vector:         one("english_level", AdapterEnglishLevel),
			Analyzer:       Threshold,
			Weight:         8,
			PenaltyPerStep: 2,
			Validator:      ValidatorEnglishRequired,
		},
		{
			Name:     "position",
			Query:    one("position", AdapterLower),
			Vector:   one("position", AdapterLower),
			Analyzer: StringEquality,
			Weight:   5,
		},
		{
			Name:      "primary_keyword",
			Query:     one("primary_keyword", AdapterLower),
			Vector:    one("primary_keyword", AdapterLower),
			Analyzer:  StringEquality,
			Weight:    5,
			MinWeight: -2,
			Validator: ValidatorKeywordRequired,
		},
		{
			Name:     "secondary_keyword",
			Query:    one("secondary_keyword", AdapterLower),
			Vector:   one("secondary_keyword", AdapterLower),
			Analyzer: StringEquality,
			Weight:   3,
		},
		{
			Name:     "skills",
			Query:    one("primary_keyword", AdapterLower),
			Vector:   one("skills", AdapterLower),
			Analyzer: Membership,
			Weight:   2,
		},
		{
			Name:     "location",
			Query:    one("location", AdapterLower),
			Vector:   one("location", AdapterLower),
			Analyzer: StringEquality,
			Weight:   3,
		},
		{
			Name:     "domain",
			Query:    one("domain", AdapterLower),
			Vector:   one("domain_zones", AdapterLower),
			Analyzer: Membership,
			Weight:   3,
		},
		{
			Name:     "uninterested_company_type",
			Query:    one("company_type", AdapterLower),
			Vector:   one("uninterested_company_types", AdapterLower),
			Analyzer: Membership,
			Weight:   -8,
		},
	}
}

// DefaultConfig wraps DefaultRules in a Config.
func DefaultConfig() *Config {
	return &Config{Mode: ModeSum, Rules: DefaultRules()}
}

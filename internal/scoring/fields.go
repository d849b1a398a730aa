package scoring

import (
	"sort"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

type seekerField struct {
	kind    ValueKind
	resolve func(*inbox.Seeker) Value
}

type opportunityField struct {
	kind    ValueKind
	resolve func(*inbox.Opportunity) Value
}

var seekerFields = map[string]seekerField{
	"position":          {KindString, func(s *inbox.Seeker) Value { return String(s.Position) }},
	"primary_keyword":   {KindString, func(s *inbox.Seeker) Value { return String(s.PrimaryKeyword) }},
	"secondary_keyword": {KindString, func(s *inbox.Seeker) Value { return String(s.SecondaryKeyword) }},
	"experience_years":  {KindNumber, func(s *inbox.Seeker) Value { return Number(s.ExperienceYears) }},
	"english_level":     {KindString, func(s *inbox.Seeker) Value { return String(string(s.EnglishLevel)) }},
	"salary_min":        {KindNumber, func(s *inbox.Seeker) Value { return Number(float64(s.SalaryMin)) }},
	"location":          {KindString, func(s *inbox.Seeker) Value { return String(s.Location) }},
	"country_code":      {KindString, func(s *inbox.Seeker) Value { return String(s.CountryCode) }},
	"city":              {KindString, func(s *inbox.Seeker) Value { return String(s.City) }},
	"domain_zones":      {KindList, func(s *inbox.Seeker) Value { return List(s.DomainZones) }},
	"skills":            {KindList, func(s *inbox.Seeker) Value { return List(s.Skills) }},
	"uninterested_company_types": {KindList, func(s *inbox.Seeker) Value {
		return List(s.UninterestedCompanyTypes)
	}},
}

var opportunityFields = map[string]opportunityField{
	"position":          {KindString, func(o *inbox.Opportunity) Value { return String(o.Position) }},
	"primary_keyword":   {KindString, func(o *inbox.Opportunity) Value { return String(o.PrimaryKeyword) }},
	"secondary_keyword": {KindString, func(o *inbox.Opportunity) Value { return String(o.SecondaryKeyword) }},
	"extra_keywords":    {KindList, func(o *inbox.Opportunity) Value { return List(o.ExtraKeywords) }},
	"exp_years":         {KindString, func(o *inbox.Opportunity) Value { return String(string(o.Experience)) }},
	"english_level":     {KindString, func(o *inbox.Opportunity) Value { return String(string(o.EnglishLevel)) }},
	"salary_min":        {KindNumber, func(o *inbox.Opportunity) Value { return Number(float64(o.SalaryMin)) }},
	"salary_max":        {KindNumber, func(o *inbox.Opportunity) Value { return Number(float64(o.SalaryMax)) }},
	"location":          {KindString, func(o *inbox.Opportunity) Value { return String(o.Location) }},
	"country":           {KindString, func(o *inbox.Opportunity) Value { return String(o.Country) }},
	"accept_region":     {KindString, func(o *inbox.Opportunity) Value { return String(string(o.AcceptRegion)) }},
	"domain":            {KindString, func(o *inbox.Opportunity) Value { return String(o.Domain) }},
	"company_type":      {KindString, func(o *inbox.Opportunity) Value { return String(o.CompanyType) }},
	"remote_type":       {KindString, func(o *inbox.Opportunity) Value { return String(string(o.RemoteType)) }},
	"relocate_type":     {KindString, func(o *inbox.Opportunity) Value { return String(string(o.RelocateType)) }},
}

// SeekerFieldNames lists the selectable seeker fields.
func SeekerFieldNames() []string {
	names := make([]string, 0, len(seekerFields))
	for name := range seekerFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpportunityFieldNames lists the selectable opportunity fields.
func OpportunityFieldNames() []string {
	names := make([]string, 0, len(opportunityFields))
	for name := range opportunityFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// pair folds two numeric values into a range.
func pair(lo, hi Value) Value {
	return Range(lo.Num, hi.Num)
}

func compileSeekerSelector(rule string, fields []string) (ValueKind, func(*inbox.Seeker) Value, error) {
	switch len(fields) {
	case 1:
		f, ok := seekerFields[fields[0]]
		if !ok {
			return KindMissing, nil, configErr(rule, "unknown seeker field %q", fields[0])
		}
		return f.kind, f.resolve, nil
	case 2:
		lo, okLo := seekerFields[fields[0]]
		hi, okHi := seekerFields[fields[1]]
		if !okLo || !okHi {
			return KindMissing, nil, configErr(rule, "unknown seeker field in pair %v", fields)
		}
		if lo.kind != KindNumber || hi.kind != KindNumber {
			return KindMissing, nil, configErr(rule, "paired seeker fields %v must be numeric", fields)
		}
		return KindRange, func(s *inbox.Seeker) Value { return pair(lo.resolve(s), hi.resolve(s)) }, nil
	default:
		return KindMissing, nil, configErr(rule, "vector selector needs one or two fields, got %d", len(fields))
	}
}

func compileOpportunitySelector(rule string, fields []string) (ValueKind, func(*inbox.Opportunity) Value, error) {
	switch len(fields) {
	case 1:
		f, ok := opportunityFields[fields[0]]
		if !ok {
			return KindMissing, nil, configErr(rule, "unknown opportunity field %q", fields[0])
		}
		return f.kind, f.resolve, nil
	case 2:
		lo, okLo := opportunityFields[fields[0]]
		hi, okHi := opportunityFields[fields[1]]
		if !okLo || !okHi {
			return KindMissing, nil, configErr(rule, "unknown opportunity field in pair %v", fields)
		}
		if lo.kind != KindNumber || hi.kind != KindNumber {
			return KindMissing, nil, configErr(rule, "paired opportunity fields %v must be numeric", fields)
		}
		return KindRange, func(o *inbox.Opportunity) Value { return pair(lo.resolve(o), hi.resolve(o)) }, nil
	default:
		return KindMissing, nil, configErr(rule, "query selector needs one or two fields, got %d", len(fields))
	}
}

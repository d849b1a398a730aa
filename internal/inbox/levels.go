package inbox

import "strings"

// EnglishLevel is the label stored on seekers and opportunities.
type EnglishLevel string

const (
	EnglishNone         EnglishLevel = "no_english"
	EnglishBasic        EnglishLevel = "basic"
	EnglishPre          EnglishLevel = "pre"
	EnglishIntermediate EnglishLevel = "intermediate"
	EnglishUpper        EnglishLevel = "upper"
	EnglishFluent       EnglishLevel = "fluent"
)

// EnglishLevels lists the known labels in ascending order. The position of a
// label is its ordinal.
var EnglishLevels = []EnglishLevel{
	EnglishNone,
	EnglishBasic,
	EnglishPre,
	EnglishIntermediate,
	EnglishUpper,
	EnglishFluent,
}

// Ordinal returns the 0..5 rank of the level and whether the label is known.
func (l EnglishLevel) Ordinal() (int, bool) {
	label := EnglishLevel(strings.ToLower(strings.TrimSpace(string(l))))
	for i, known := range EnglishLevels {
		if known == label {
			return i, true
		}
	}
	return 0, false
}

// Experience is the bucketed experience requirement of an opportunity.
type Experience string

const (
	ExperienceNone  Experience = "no_exp"
	ExperienceOne   Experience = "1y"
	ExperienceTwo   Experience = "2y"
	ExperienceThree Experience = "3y"
	ExperienceFive  Experience = "5y"
)

var experienceYears = map[Experience]float64{
	ExperienceNone:  0,
	ExperienceOne:   1,
	ExperienceTwo:   2,
	ExperienceThree: 3,
	ExperienceFive:  5,
}

// Years converts the bucket to a year count and reports whether it is known.
func (e Experience) Years() (float64, bool) {
	years, ok := experienceYears[Experience(strings.ToLower(strings.TrimSpace(string(e))))]
	return years, ok
}

type RelocateType string

const (
	RelocateNone          RelocateType = "no_relocate"
	RelocateCandidatePaid RelocateType = "candidate_paid"
	RelocateCompanyPaid   RelocateType = "company_paid"
)

type AcceptRegion string

const (
	RegionWorldwide  AcceptRegion = ""
	RegionEurope     AcceptRegion = "europe"
	RegionEuropeOnly AcceptRegion = "europe_only"
	RegionUkraine    AcceptRegion = "ukraine"
)

type RemoteType string

const (
	RemoteOffice          RemoteType = "office"
	RemotePartly          RemoteType = "partly_remote"
	RemoteFull            RemoteType = "full_remote"
	RemoteCandidateChoice RemoteType = "candidate_choice"
)

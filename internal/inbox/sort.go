package inbox

import (
	"fmt"
	"sort"
)

// SortKey identifies an inbox ordering.
type SortKey string

const (
	SortRecent            SortKey = "recent"
	SortSalaryLowHigh     SortKey = "sal-lh"
	SortSalaryHighLow     SortKey = "sal-hl"
	SortExperienceLowHigh SortKey = "exp-lh"
	SortExperienceHighLow SortKey = "exp-hl"
	SortAdvanced          SortKey = "adv"
	DefaultSortKey                = SortRecent
)

// SortPairings orders pairings in place. SortAdvanced uses the provided score
// lookup; every ordering falls back to ascending pairing id on ties.
func SortPairings(pairings []*Pairing, key SortKey, score func(id int64) float64) error {
	var less func(a, b *Pairing) (bool, bool)

	switch key {
	case SortRecent, "":
		less = func(a, b *Pairing) (bool, bool) {
			return a.UpdatedAt.After(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		}
	case SortSalaryLowHigh:
		less = func(a, b *Pairing) (bool, bool) {
			return a.Seeker.SalaryMin < b.Seeker.SalaryMin, a.Seeker.SalaryMin == b.Seeker.SalaryMin
		}
	case SortSalaryHighLow:
		less = func(a, b *Pairing) (bool, bool) {
			return a.Seeker.SalaryMin > b.Seeker.SalaryMin, a.Seeker.SalaryMin == b.Seeker.SalaryMin
		}
	case SortExperienceLowHigh:
		less = func(a, b *Pairing) (bool, bool) {
			return a.Seeker.ExperienceYears < b.Seeker.ExperienceYears, a.Seeker.ExperienceYears == b.Seeker.ExperienceYears
		}
	case SortExperienceHighLow:
		less = func(a, b *Pairing) (bool, bool) {
			return a.Seeker.ExperienceYears > b.Seeker.ExperienceYears, a.Seeker.ExperienceYears == b.Seeker.ExperienceYears
		}
	case SortAdvanced:
		if score == nil {
			return fmt.Errorf("sort %q requires scores", key)
		}
		less = func(a, b *Pairing) (bool, bool) {
			sa, sb := score(a.ID), score(b.ID)
			return sa > sb, sa == sb
		}
	default:
		return fmt.Errorf("unknown sort key: %s", key)
	}

	sort.SliceStable(pairings, func(i, j int) bool {
		lt, eq := less(pairings[i], pairings[j])
		if eq {
			return pairings[i].ID < pairings[j].ID
		}
		return lt
	})

	return nil
}

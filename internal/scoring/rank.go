package scoring

import (
	"sort"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

// Ranked pairs an entity id with its match result.
type Ranked struct {
	ID     int64
	Result *MatchResult
}

// Rank scores every seeker against the opportunity and orders them by
// descending score, breaking ties by ascending seeker id.
func (r *Registry) Rank(o *inbox.Opportunity, seekers []*inbox.Seeker) []Ranked {
	out := make([]Ranked, 0, len(seekers))
	for _, s := range seekers {
		if s == nil {
			continue
		}
		out = append(out, Ranked{ID: s.ID, Result: r.Score(s, o)})
	}
	SortRanked(out)
	return out
}

// RankOpportunities is the seeker-side view: opportunities ordered for one seeker.
func (r *Registry) RankOpportunities(s *inbox.Seeker, opportunities []*inbox.Opportunity) []Ranked {
	out := make([]Ranked, 0, len(opportunities))
	for _, o := range opportunities {
		if o == nil {
			continue
		}
		out = append(out, Ranked{ID: o.ID, Result: r.Score(s, o)})
	}
	SortRanked(out)
	return out
}

func SortRanked(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := items[i].Result.Score, items[j].Result.Score
		if si != sj {
			return si > sj
		}
		return items[i].ID < items[j].ID
	})
}

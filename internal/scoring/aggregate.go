package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

// MatchResult is the outcome of scoring one seeker against one opportunity.
type MatchResult struct {
	Breakdown map[string]float64
	// Sum is the unrounded sum of the breakdown.
	Sum   float64
	Score float64
	Mode  Mode
}

// Names returns the breakdown keys in a stable order.
func (m *MatchResult) Names() []string {
	names := make([]string, 0, len(m.Breakdown))
	for name := range m.Breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToScore converts the result into the persisted form.
func (m *MatchResult) ToScore(pairingID int64, at time.Time) *inbox.Score {
	breakdown := make(map[string]float64, len(m.Breakdown))
	for k, v := range m.Breakdown {
		breakdown[k] = v
	}
	return &inbox.Score{
		PairingID:  pairingID,
		Value:      m.Score,
		Breakdown:  breakdown,
		Mode:       string(m.Mode),
		ComputedAt: at,
	}
}

func (r *Registry) aggregate(sum float64) float64 {
	if r.mode == ModeNormalized {
		sum = Normalize(sum, r.lo, r.hi)
	}
	return Round(sum, r.precision)
}

// Normalize maps sum onto [0,1] given the theoretical bounds. A degenerate
// span yields 0.
func Normalize(sum, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return 0
	}
	return Clamp((sum-lo)/span, 0, 1)
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	rounded := math.Round(v*p) / p
	if rounded == 0 {
		return 0
	}
	return rounded
}

package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

// AnalyzerKind selects the comparison a rule applies.
type AnalyzerKind string

const (
	NumericEquality AnalyzerKind = "numeric_equality"
	StringEquality  AnalyzerKind = "string_equality"
	RangeMatch      AnalyzerKind = "range"
	Membership      AnalyzerKind = "membership"
	Threshold       AnalyzerKind = "threshold"
)

// AnalyzerKinds lists every supported analyzer.
var AnalyzerKinds = []AnalyzerKind{NumericEquality, StringEquality, RangeMatch, Membership, Threshold}

// fib drives the threshold analyzer; steps past the end reuse the last element.
var fib = [...]float64{1, 2, 3, 5, 8, 13}

// bonusSpan is the exclusive upper bound of delta/scale.
const bonusSpan = 10

// Weights carries the numeric parameters shared by every analyzer.
type Weights struct {
	Weight             float64
	MinWeight          float64
	ExtraWeight        bool
	ExtraWeightPerUnit float64
	PenaltyPerStep     float64
}

// accepts reports whether the analyzer can compare the given adapted kinds.
func (k AnalyzerKind) accepts(query, vector ValueKind) bool {
	switch k {
	case NumericEquality, Threshold:
		return query == KindNumber && vector == KindNumber
	case StringEquality:
		return query == KindString && vector == KindString
	case RangeMatch:
		return query == KindRange && vector == KindNumber
	case Membership:
		return query == KindString && (vector == KindList || vector == KindString)
	default:
		return false
	}
}

func (k AnalyzerKind) valid() bool {
	for _, known := range AnalyzerKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Analyze scores an adapted query value against an adapted vector value.
func Analyze(kind AnalyzerKind, w Weights, query, vector Value) (float64, error) {
	if !kind.accepts(query.Kind, vector.Kind) {
		return w.MinWeight, fmt.Errorf("analyzer %s cannot compare %s with %s", kind, query.Kind, vector.Kind)
	}

	switch kind {
	case NumericEquality:
		return numericEquality(w, query.Num, vector.Num), nil
	case StringEquality:
		return stringEquality(w, query.Str, vector.Str), nil
	case RangeMatch:
		return rangeMatch(w, query.Lo, query.Hi, vector.Num), nil
	case Membership:
		items := vector.List
		if vector.Kind == KindString {
			items = inbox.SplitList(vector.Str)
		}
		return membership(w, query.Str, items), nil
	case Threshold:
		return threshold(w, query.Num, vector.Num), nil
	}

	return w.MinWeight, fmt.Errorf("unknown analyzer %q", kind)
}

func numericEquality(w Weights, q, v float64) float64 {
	switch {
	case q == v:
		return w.Weight
	case q > v:
		return w.MinWeight
	case w.ExtraWeight:
		return withBonus(w.Weight, w.ExtraWeightPerUnit, v-q)
	default:
		return w.Weight
	}
}

func stringEquality(w Weights, q, v string) float64 {
	if strings.EqualFold(strings.TrimSpace(q), strings.TrimSpace(v)) {
		return w.Weight
	}
	return w.MinWeight
}

func rangeMatch(w Weights, lo, hi, v float64) float64 {
	if v >= lo && v <= hi {
		return w.Weight
	}
	if !w.ExtraWeight {
		return w.MinWeight
	}
	if v < lo {
		return withBonus(w.MinWeight, w.ExtraWeightPerUnit, lo-v)
	}
	return withBonus(w.MinWeight, w.ExtraWeightPerUnit, v-hi)
}

func membership(w Weights, q string, items []string) float64 {
	q = strings.TrimSpace(q)
	for _, item := range items {
		if strings.EqualFold(q, strings.TrimSpace(item)) {
			return w.Weight
		}
	}
	return w.MinWeight
}

// threshold rewards a vector at or above the query with Weight divided by a
// growing Fibonacci step and penalises a shortfall by PenaltyPerStep times
// the step. The difference is truncated toward zero.
func threshold(w Weights, q, v float64) float64 {
	diff := int(v - q)
	if diff >= 0 {
		return w.Weight / fib[min(diff, len(fib)-1)]
	}
	return -w.PenaltyPerStep * fib[min(-diff-1, len(fib)-1)]
}

// withBonus adds perUnit for every leading unit of delta within its decade.
// A zero delta returns base unchanged.
func withBonus(base, perUnit, delta float64) float64 {
	delta = math.Abs(delta)
	if delta == 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return base
	}

	scale := math.Pow(10, math.Floor(math.Log10(delta)))
	// Log10 may land one ulp short of an exact power of ten.
	for delta/scale >= bonusSpan {
		scale *= 10
	}
	for delta/scale < 1 {
		scale /= 10
	}

	return base + delta/scale*perUnit
}

// bounds returns the lowest and highest contribution the analyzer can emit,
// including the minimum recorded for a skipped rule.
func bounds(kind AnalyzerKind, w Weights) (float64, float64) {
	candidates := []float64{w.MinWeight, w.Weight}
	switch kind {
	case NumericEquality:
		if w.ExtraWeight {
			candidates = append(candidates, w.Weight+bonusSpan*w.ExtraWeightPerUnit)
		}
	case RangeMatch:
		if w.ExtraWeight {
			candidates = append(candidates, w.MinWeight+bonusSpan*w.ExtraWeightPerUnit)
		}
	case Threshold:
		last := fib[len(fib)-1]
		candidates = append(candidates, w.Weight/last, -w.PenaltyPerStep, -w.PenaltyPerStep*last)
	}

	lo, hi := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	return lo, hi
}

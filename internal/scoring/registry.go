package scoring

import (
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
)

// Mode selects how rule contributions are aggregated.
type Mode string

const (
	// ModeSum reports the plain sum of contributions.
	ModeSum Mode = "sum"
	// ModeNormalized maps the sum onto [0,1] using the theoretical bounds
	// of the registry.
	ModeNormalized Mode = "normalized"
)

const (
	DefaultPrecision = 4
	maxPrecision     = 12
)

// Registry holds the rules used for one process. It is read-only after New
// and safe for concurrent use.
type Registry struct {
	rules     []*Rule
	mode      Mode
	precision int
	lo, hi    float64
	logger    *zap.Logger
}

// Option customises a Registry.
type Option func(*Registry)

func WithMode(mode Mode) Option {
	return func(r *Registry) { r.mode = mode }
}

func WithPrecision(precision int) Option {
	return func(r *Registry) { r.precision = precision }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New compiles the rules into a registry. Rules are kept sorted by name so
// the aggregate does not depend on configuration order.
func New(configs []RuleConfig, opts ...Option) (*Registry, error) {
	r := &Registry{
		mode:      ModeSum,
		precision: DefaultPrecision,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	switch r.mode {
	case ModeSum, ModeNormalized:
	case "":
		r.mode = ModeSum
	default:
		return nil, configErr("", "unknown aggregate mode %q", r.mode)
	}
	if r.precision < 0 || r.precision > maxPrecision {
		return nil, configErr("", "precision must be within [0,%d], got %d", maxPrecision, r.precision)
	}
	if len(configs) == 0 {
		return nil, configErr("", "at least one rule is required")
	}

	seen := make(map[string]struct{}, len(configs))
	for _, c := range configs {
		rule, err := Compile(c)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[rule.Name()]; dup {
			return nil, configErr(rule.Name(), "duplicate rule name")
		}
		seen[rule.Name()] = struct{}{}
		r.rules = append(r.rules, rule)
	}

	sort.Slice(r.rules, func(i, j int) bool { return r.rules[i].Name() < r.rules[j].Name() })
	for _, rule := range r.rules {
		lo, hi := rule.Bounds()
		r.lo += lo
		r.hi += hi
	}

	return r, nil
}

// Mode reports the active aggregate mode.
func (r *Registry) Mode() Mode { return r.mode }

func (r *Registry) Precision() int { return r.precision }

// Bounds returns the theoretical minimum and maximum sum.
func (r *Registry) Bounds() (float64, float64) { return r.lo, r.hi }

// Rules returns the compiled rules in evaluation order.
func (r *Registry) Rules() []*Rule {
	return append([]*Rule(nil), r.rules...)
}

// Score evaluates every rule for the pair. It never fails: missing values
// and failed validators record the rule minimum, adapter fallbacks are logged.
func (r *Registry) Score(s *inbox.Seeker, o *inbox.Opportunity) *MatchResult {
	breakdown := make(map[string]float64, len(r.rules))
	sum := 0.0

	for _, rule := range r.rules {
		value, soft := rule.Evaluate(s, o)
		for _, err := range soft {
			fields := append(logger.RuleFields(rule.Name()), pairFields(s, o)...)
			r.logger.Warn("rule value fell back to default", append(fields, zap.Error(err))...)
		}
		breakdown[rule.Name()] = value
		sum += value
	}

	return &MatchResult{
		Breakdown: breakdown,
		Sum:       sum,
		Score:     r.aggregate(sum),
		Mode:      r.mode,
	}
}

func pairFields(s *inbox.Seeker, o *inbox.Opportunity) []zap.Field {
	var seekerID, opportunityID int64
	if s != nil {
		seekerID = s.ID
	}
	if o != nil {
		opportunityID = o.ID
	}
	return logger.PairingFields(0, seekerID, opportunityID)
}

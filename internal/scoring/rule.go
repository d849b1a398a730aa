package scoring

import (
	"math"
	"strings"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

// Selector picks one field, or a numeric (min, max) pair, from one side of a
// pairing and names the adapter applied to it.
type Selector struct {
	Fields  []string `yaml:"fields" mapstructure:"fields"`
	Adapter string   `yaml:"adapter,omitempty" mapstructure:"adapter"`
}

// RuleConfig is the declarative form of a scoring rule. Query reads the
// opportunity, Vector reads the seeker.
type RuleConfig struct {
	Name               string       `yaml:"name" mapstructure:"name"`
	Query              Selector     `yaml:"query" mapstructure:"query"`
	Vector             Selector     `yaml:"vector" mapstructure:"vector"`
	Analyzer           AnalyzerKind `yaml:"analyzer" mapstructure:"analyzer"`
	Weight             float64      `yaml:"weight" mapstructure:"weight"`
	MinWeight          float64      `yaml:"min_weight,omitempty" mapstructure:"min_weight"`
	ExtraWeight        bool         `yaml:"extra_weight,omitempty" mapstructure:"extra_weight"`
	ExtraWeightPerUnit float64      `yaml:"extra_weight_per_unit,omitempty" mapstructure:"extra_weight_per_unit"`
	PenaltyPerStep     float64      `yaml:"penalty_per_step,omitempty" mapstructure:"penalty_per_step"`
	Validator          string       `yaml:"validator,omitempty" mapstructure:"validator"`
}

func (c RuleConfig) weights() Weights {
	return Weights{
		Weight:             c.Weight,
		MinWeight:          c.MinWeight,
		ExtraWeight:        c.ExtraWeight,
		ExtraWeightPerUnit: c.ExtraWeightPerUnit,
		PenaltyPerStep:     c.PenaltyPerStep,
	}
}

// Rule is a compiled, immutable RuleConfig.
type Rule struct {
	config   RuleConfig
	weights  Weights
	query    func(*inbox.Opportunity) Value
	vector   func(*inbox.Seeker) Value
	adaptQ   Adapter
	adaptV   Adapter
	validate Validator
	lo, hi   float64
}

// Compile checks a rule configuration and resolves its selectors, adapters
// and validator. Any problem is a *ConfigurationError.
func Compile(c RuleConfig) (*Rule, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, configErr("", "rule name is required")
	}
	if !c.Analyzer.valid() {
		return nil, configErr(c.Name, "unknown analyzer %q", c.Analyzer)
	}
	for key, v := range map[string]float64{
		"weight":                c.Weight,
		"min_weight":            c.MinWeight,
		"extra_weight_per_unit": c.ExtraWeightPerUnit,
		"penalty_per_step":      c.PenaltyPerStep,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, configErr(c.Name, "%s must be finite", key)
		}
	}

	qKind, query, err := compileOpportunitySelector(c.Name, c.Query.Fields)
	if err != nil {
		return nil, err
	}
	vKind, vector, err := compileSeekerSelector(c.Name, c.Vector.Fields)
	if err != nil {
		return nil, err
	}

	adaptQ, qOut, err := lookupAdapter(c.Name, c.Query.Adapter, qKind)
	if err != nil {
		return nil, err
	}
	adaptV, vOut, err := lookupAdapter(c.Name, c.Vector.Adapter, vKind)
	if err != nil {
		return nil, err
	}
	if !c.Analyzer.accepts(qOut, vOut) {
		return nil, configErr(c.Name, "analyzer %s cannot compare %s with %s", c.Analyzer, qOut, vOut)
	}

	validate, err := lookupValidator(c.Name, c.Validator)
	if err != nil {
		return nil, err
	}

	w := c.weights()
	lo, hi := bounds(c.Analyzer, w)

	return &Rule{
		config:   c,
		weights:  w,
		query:    query,
		vector:   vector,
		adaptQ:   adaptQ,
		adaptV:   adaptV,
		validate: validate,
		lo:       lo,
		hi:       hi,
	}, nil
}

func (r *Rule) Name() string { return r.config.Name }

// Config returns a copy of the configuration the rule was compiled from.
func (r *Rule) Config() RuleConfig {
	c := r.config
	c.Query.Fields = append([]string(nil), c.Query.Fields...)
	c.Vector.Fields = append([]string(nil), c.Vector.Fields...)
	return c
}

// Bounds returns the theoretical minimum and maximum contribution.
func (r *Rule) Bounds() (float64, float64) { return r.lo, r.hi }

// Evaluate returns the rule's contribution for the pair. The second return
// collects soft problems (adapter fallbacks) that did not stop scoring.
func (r *Rule) Evaluate(s *inbox.Seeker, o *inbox.Opportunity) (float64, []error) {
	if s == nil || o == nil || !r.validate(s, o) {
		return r.weights.MinWeight, nil
	}

	q, v := r.query(o), r.vector(s)
	if q.Empty() || v.Empty() {
		return r.weights.MinWeight, nil
	}

	var soft []error
	q, err := r.adaptQ(q)
	if err != nil {
		soft = append(soft, err)
	}
	v, err = r.adaptV(v)
	if err != nil {
		soft = append(soft, err)
	}

	score, err := Analyze(r.config.Analyzer, r.weights, q, v)
	if err != nil {
		soft = append(soft, err)
	}
	return score, soft
}

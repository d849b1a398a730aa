package scoring

import (
	"sort"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/utils"
)

const (
	AdapterIdentity     = "identity"
	AdapterLower        = "lower"
	AdapterEnglishLevel = "english_level"
	AdapterExperience   = "experience"
)

// Adapter converts a raw value into a comparable one. It never fails: an
// unknown input yields the neutral default together with an *AdapterError
// meant for the log.
type Adapter func(Value) (Value, error)

type adapterDef struct {
	adapt Adapter
	// out maps the accepted input kinds to the produced kind.
	out map[ValueKind]ValueKind
}

var adapters = map[string]adapterDef{
	AdapterIdentity: {
		adapt: func(v Value) (Value, error) { return v, nil },
		out: map[ValueKind]ValueKind{
			KindNumber: KindNumber,
			KindString: KindString,
			KindList:   KindList,
			KindRange:  KindRange,
		},
	},
	AdapterLower: {
		adapt: lower,
		out:   map[ValueKind]ValueKind{KindString: KindString, KindList: KindList},
	},
	AdapterEnglishLevel: {
		adapt: englishLevel,
		out:   map[ValueKind]ValueKind{KindString: KindNumber},
	},
	AdapterExperience: {
		adapt: experience,
		out:   map[ValueKind]ValueKind{KindString: KindNumber},
	},
}

// AdapterNames lists the registered adapters.
func AdapterNames() []string {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupAdapter(rule, name string, in ValueKind) (Adapter, ValueKind, error) {
	if name == "" {
		name = AdapterIdentity
	}
	def, ok := adapters[name]
	if !ok {
		return nil, KindMissing, configErr(rule, "unknown adapter %q", name)
	}
	out, ok := def.out[in]
	if !ok {
		return nil, KindMissing, configErr(rule, "adapter %q cannot take a %s value", name, in)
	}
	return def.adapt, out, nil
}

func lower(v Value) (Value, error) {
	switch v.Kind {
	case KindString:
		return String(utils.CleanText(v.Str)), nil
	case KindList:
		items := make([]string, 0, len(v.List))
		for _, item := range v.List {
			if cleaned := utils.CleanText(item); cleaned != "" {
				items = append(items, cleaned)
			}
		}
		return List(items), nil
	default:
		return v, nil
	}
}

func englishLevel(v Value) (Value, error) {
	ordinal, ok := inbox.EnglishLevel(v.Str).Ordinal()
	if !ok {
		return Number(0), &AdapterError{Adapter: AdapterEnglishLevel, Input: v.Str}
	}
	return Number(float64(ordinal)), nil
}

func experience(v Value) (Value, error) {
	years, ok := inbox.Experience(v.Str).Years()
	if !ok {
		return Number(0), &AdapterError{Adapter: AdapterExperience, Input: v.Str}
	}
	return Number(years), nil
}

package scoring

import (
	"fmt"
	"strings"
)

// ValueKind tags the payload carried by a Value.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindNumber
	KindString
	KindList
	KindRange
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRange:
		return "range"
	default:
		return "missing"
	}
}

// Value is a resolved field value. Only the payload matching Kind is set.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	List []string
	Lo   float64
	Hi   float64
}

func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func List(items []string) Value { return Value{Kind: KindList, List: items} }

func Range(lo, hi float64) Value { return Value{Kind: KindRange, Lo: lo, Hi: hi} }

// Empty reports whether the value carries nothing to compare. Zero numbers
// and a range with both bounds at zero count as empty.
func (v Value) Empty() bool {
	switch v.Kind {
	case KindNumber:
		return v.Num == 0
	case KindString:
		return strings.TrimSpace(v.Str) == ""
	case KindList:
		for _, item := range v.List {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case KindRange:
		return v.Lo == 0 && v.Hi == 0
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case KindString:
		return v.Str
	case KindList:
		return strings.Join(v.List, ",")
	case KindRange:
		return fmt.Sprintf("[%g,%g]", v.Lo, v.Hi)
	default:
		return ""
	}
}

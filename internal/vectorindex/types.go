package vectorindex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Metric selects the distance used for ranking neighbours.
type Metric string

const (
	// MetricL2 is the squared Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricCosine is 1 - cosine similarity.
	MetricCosine Metric = "cosine"
)

func (m Metric) valid() bool {
	return m == MetricL2 || m == MetricCosine
}

// State is the lifecycle stage of an index.
type State int32

const (
	Unbuilt State = iota
	Building
	Ready
	Extending
)

func (s State) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case Building:
		return "building"
	case Ready:
		return "ready"
	case Extending:
		return "extending"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Searchable reports whether queries are answered in this state.
func (s State) Searchable() bool {
	return s == Ready || s == Extending
}

// Document is one corpus item. ID is the caller's stable identity.
type Document struct {
	ID   int64
	Text string
}

// Neighbor is one search hit.
type Neighbor struct {
	ID       int64   `json:"id"`
	Distance float64 `json:"distance"`
}

// BuildStats summarises a Build call.
type BuildStats struct {
	Documents int
	Encoded   int
	Reused    int
}

// TextHash returns the hex sha256 of a document text.
func TextHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/embedding"
	"github.com/spigell/inbox-ranker/internal/logger"
)

const DefaultBatchSize = 64

// Options configures an Index.
type Options struct {
	Metric    Metric
	BatchSize int
	Logger    *zap.Logger
}

// snapshot is an immutable view of the index. Rows are sorted by id.
type snapshot struct {
	dim     int
	ids     []int64
	hashes  []string
	vectors []float32
	pos     map[int64]int
}

func (s *snapshot) len() int { return len(s.ids) }

func (s *snapshot) row(i int) []float32 {
	return s.vectors[i*s.dim : (i+1)*s.dim]
}

// Index maps caller-assigned ids to embedding vectors. Reads work on an
// atomically published snapshot and take no lock. Build and Add are
// serialised by the builder lock and publish a new snapshot when done.
type Index struct {
	enc    embedding.Encoder
	metric Metric
	batch  int
	logger *zap.Logger

	mu    sync.Mutex
	state atomic.Int32
	snap  atomic.Pointer[snapshot]
}

func New(enc embedding.Encoder, opts Options) (*Index, error) {
	if enc == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if opts.Metric == "" {
		opts.Metric = MetricL2
	}
	if !opts.Metric.valid() {
		return nil, fmt.Errorf("unknown metric %q", opts.Metric)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	l := logger.WithEncoderFields(opts.Logger, enc.Name(), enc.ModelID())
	return &Index{enc: enc, metric: opts.Metric, batch: opts.BatchSize, logger: l}, nil
}

func (ix *Index) State() State { return State(ix.state.Load()) }

func (ix *Index) Metric() Metric { return ix.metric }

func (ix *Index) ModelID() string { return ix.enc.ModelID() }

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	if s := ix.snap.Load(); s != nil {
		return s.len()
	}
	return 0
}

// IDs returns the indexed ids in ascending order.
func (ix *Index) IDs() []int64 {
	if s := ix.snap.Load(); s != nil {
		return append([]int64(nil), s.ids...)
	}
	return nil
}

// Build encodes the corpus and replaces the index content. Documents whose
// text hash matches the current content keep their vectors. On failure the
// previous content stays published.
func (ix *Index) Build(ctx context.Context, docs []Document) (BuildStats, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	seen := make(map[int64]struct{}, len(docs))
	for _, d := range docs {
		if _, dup := seen[d.ID]; dup {
			return BuildStats{}, fmt.Errorf("build: %w: %d", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	prev := ix.snap.Load()
	restore := ix.State()
	ix.state.Store(int32(Building))

	sorted := append([]Document(nil), docs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	dim := ix.enc.Dim()
	next := &snapshot{
		dim:     dim,
		ids:     make([]int64, len(sorted)),
		hashes:  make([]string, len(sorted)),
		vectors: make([]float32, len(sorted)*dim),
		pos:     make(map[int64]int, len(sorted)),
	}

	stats := BuildStats{Documents: len(sorted)}
	pending := make([]int, 0, len(sorted))
	for i, d := range sorted {
		h := TextHash(d.Text)
		next.ids[i], next.hashes[i], next.pos[d.ID] = d.ID, h, i

		if prev != nil && prev.dim == dim {
			if j, ok := prev.pos[d.ID]; ok && prev.hashes[j] == h {
				copy(next.row(i), prev.row(j))
				stats.Reused++
				continue
			}
		}
		pending = append(pending, i)
	}

	started := time.Now()
	for start := 0; start < len(pending); start += ix.batch {
		rows := pending[start:min(start+ix.batch, len(pending))]
		texts := make([]string, len(rows))
		for k, i := range rows {
			texts[k] = sorted[i].Text
		}

		vectors, err := ix.enc.Encode(ctx, texts)
		if err == nil && len(vectors) != len(rows) {
			err = fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(rows))
		}
		if err != nil {
			ix.state.Store(int32(restore))
			return BuildStats{}, fmt.Errorf("build: encode batch at %d: %w", start, err)
		}

		for k, i := range rows {
			if len(vectors[k]) != dim {
				ix.state.Store(int32(restore))
				return BuildStats{}, fmt.Errorf("build: %w: document %d has %d values", ErrDimMismatch, sorted[i].ID, len(vectors[k]))
			}
			copy(next.row(i), vectors[k])
		}
		stats.Encoded += len(rows)
	}

	ix.snap.Store(next)
	ix.state.Store(int32(Ready))

	ix.logger.Info("index built",
		zap.Int("documents", stats.Documents),
		zap.Int("encoded", stats.Encoded),
		zap.Int("reused", stats.Reused),
		zap.Duration("took", time.Since(started)),
	)

	return stats, nil
}

// Add inserts one document into a ready index. Queries keep being answered
// from the previous snapshot until the insert is published.
func (ix *Index) Add(ctx context.Context, id int64, text string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if st := ix.State(); st != Ready {
		return &IndexStateError{Op: "add", State: st}
	}

	prev := ix.snap.Load()
	if _, dup := prev.pos[id]; dup {
		return fmt.Errorf("add: %w: %d", ErrDuplicateID, id)
	}

	ix.state.Store(int32(Extending))
	defer ix.state.Store(int32(Ready))

	vec, err := embedding.EncodeOne(ctx, ix.enc, text)
	if err != nil {
		return fmt.Errorf("add: encode: %w", err)
	}
	if len(vec) != prev.dim {
		return fmt.Errorf("add: %w: got %d want %d", ErrDimMismatch, len(vec), prev.dim)
	}

	at := sort.Search(prev.len(), func(i int) bool { return prev.ids[i] > id })

	next := &snapshot{
		dim:     prev.dim,
		ids:     make([]int64, 0, prev.len()+1),
		hashes:  make([]string, 0, prev.len()+1),
		vectors: make([]float32, 0, len(prev.vectors)+prev.dim),
		pos:     make(map[int64]int, prev.len()+1),
	}
	next.ids = append(append(append(next.ids, prev.ids[:at]...), id), prev.ids[at:]...)
	next.hashes = append(append(append(next.hashes, prev.hashes[:at]...), TextHash(text)), prev.hashes[at:]...)
	next.vectors = append(append(append(next.vectors, prev.vectors[:at*prev.dim]...), vec...), prev.vectors[at*prev.dim:]...)
	for i, docID := range next.ids {
		next.pos[docID] = i
	}

	ix.snap.Store(next)
	return nil
}

// Search encodes text and returns its k nearest documents.
func (ix *Index) Search(ctx context.Context, text string, k int) ([]Neighbor, error) {
	if st := ix.State(); !st.Searchable() {
		return nil, &IndexStateError{Op: "search", State: st}
	}

	vec, err := embedding.EncodeOne(ctx, ix.enc, text)
	if err != nil {
		return nil, fmt.Errorf("search: encode query: %w", err)
	}
	return ix.Nearest(vec, k)
}

// Nearest returns up to k documents ordered by ascending distance to vec,
// ties broken by ascending id.
func (ix *Index) Nearest(vec []float32, k int) ([]Neighbor, error) {
	st := ix.State()
	snap := ix.snap.Load()
	if !st.Searchable() || snap == nil {
		return nil, &IndexStateError{Op: "nearest", State: st}
	}
	if len(vec) != snap.dim {
		return nil, fmt.Errorf("nearest: %w: got %d want %d", ErrDimMismatch, len(vec), snap.dim)
	}
	if k <= 0 || snap.len() == 0 {
		return []Neighbor{}, nil
	}

	hits := make([]Neighbor, snap.len())
	for i, id := range snap.ids {
		hits[i] = Neighbor{ID: id, Distance: ix.distance(vec, snap.row(i))}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Vector returns a copy of the stored vector for id.
func (ix *Index) Vector(id int64) ([]float32, bool) {
	snap := ix.snap.Load()
	if snap == nil {
		return nil, false
	}
	i, ok := snap.pos[id]
	if !ok {
		return nil, false
	}
	return append([]float32(nil), snap.row(i)...), true
}

func (ix *Index) distance(a, b []float32) float64 {
	if ix.metric == MetricCosine {
		return 1 - embedding.Cosine(a, b)
	}
	return embedding.SquaredL2(a, b)
}

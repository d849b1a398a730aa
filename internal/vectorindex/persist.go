package vectorindex

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/embedding"
)

// IndexVersion is the on-disk format written by Persist.
const IndexVersion = 1

const (
	manifestFile  = "index_manifest.json"
	entriesFile   = "entries.jsonl"
	vectorFile    = "vectors.f32"
	lockRetry     = 100 * time.Millisecond
	dirPermission = 0o755
)

// Manifest describes a persisted index and how to interpret it.
type Manifest struct {
	IndexVersion int    `json:"index_version"`
	CreatedAt    string `json:"created_at"`
	ModelID      string `json:"model_id"`
	Dim          int    `json:"dim"`
	Metric       Metric `json:"metric"`
	Count        int    `json:"count"`
	VectorFile   string `json:"vector_file"`
	EntriesFile  string `json:"entries_file"`
}

// Entry is one row of entries.jsonl. Row order matches the vector file.
type Entry struct {
	ID       int64  `json:"id"`
	TextHash string `json:"text_hash"`
}

// Persist writes the current snapshot to dir. The files are written to a
// temporary sibling directory and swapped in, under an exclusive file lock.
func (ix *Index) Persist(ctx context.Context, dir string) error {
	st := ix.State()
	snap := ix.snap.Load()
	if !st.Searchable() || snap == nil {
		return &IndexStateError{Op: "persist", State: st}
	}

	unlock, err := lockDir(ctx, dir, true)
	if err != nil {
		return err
	}
	defer unlock()

	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, dirPermission); err != nil {
		return fmt.Errorf("persist: create parent dir: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".tmp-*")
	if err != nil {
		return fmt.Errorf("persist: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	manifest := Manifest{
		IndexVersion: IndexVersion,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		ModelID:      ix.enc.ModelID(),
		Dim:          snap.dim,
		Metric:       ix.metric,
		Count:        snap.len(),
		VectorFile:   vectorFile,
		EntriesFile:  entriesFile,
	}
	if err := writeFiles(tmp, manifest, snap); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	if err := AtomicSwap(tmp, dir); err != nil {
		return fmt.Errorf("persist: swap into %s: %w", dir, err)
	}

	ix.logger.Info("index persisted", zap.String("dir", dir), zap.Int("documents", snap.len()))
	return nil
}

// Load reads an index persisted by Persist. The encoder must report the
// model id the index was built with.
func Load(ctx context.Context, dir string, enc embedding.Encoder, opts Options) (*Index, error) {
	ix, err := New(enc, opts)
	if err != nil {
		return nil, err
	}

	unlock, err := lockDir(ctx, dir, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	if manifest.ModelID != enc.ModelID() {
		return nil, fmt.Errorf("load %s: %w: index %q, encoder %q", dir, ErrModelMismatch, manifest.ModelID, enc.ModelID())
	}
	if manifest.Dim != enc.Dim() {
		return nil, fmt.Errorf("load %s: %w: index %d, encoder %d", dir, ErrDimMismatch, manifest.Dim, enc.Dim())
	}
	if opts.Metric == "" && manifest.Metric.valid() {
		ix.metric = manifest.Metric
	}

	entries, err := readEntries(filepath.Join(dir, manifest.EntriesFile))
	if err != nil {
		return nil, err
	}
	if len(entries) != manifest.Count {
		return nil, fmt.Errorf("load %s: manifest lists %d entries, found %d", dir, manifest.Count, len(entries))
	}
	vectors, err := readVectors(filepath.Join(dir, manifest.VectorFile), len(entries), manifest.Dim)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		dim:     manifest.Dim,
		ids:     make([]int64, len(entries)),
		hashes:  make([]string, len(entries)),
		vectors: vectors,
		pos:     make(map[int64]int, len(entries)),
	}
	for i, e := range entries {
		if _, dup := snap.pos[e.ID]; dup {
			return nil, fmt.Errorf("load %s: %w: %d", dir, ErrDuplicateID, e.ID)
		}
		if i > 0 && e.ID < entries[i-1].ID {
			return nil, fmt.Errorf("load %s: entries are not sorted by id", dir)
		}
		snap.ids[i], snap.hashes[i], snap.pos[e.ID] = e.ID, e.TextHash, i
	}

	ix.snap.Store(snap)
	ix.state.Store(int32(Ready))
	return ix, nil
}

// AtomicSwap replaces destDir with srcDir by renaming.
func AtomicSwap(srcDir, destDir string) error {
	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, dirPermission); err != nil {
		return err
	}
	backup := destDir + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(srcDir, destDir); err != nil {
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, destDir)
		}
		return err
	}
	_ = os.RemoveAll(backup)
	return nil
}

// lockDir takes a lock on a file next to dir so the lock survives the swap.
func lockDir(ctx context.Context, dir string, exclusive bool) (func(), error) {
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(filepath.Dir(clean), dirPermission); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	l := flock.New(clean + ".lock")
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = l.TryLockContext(ctx, lockRetry)
	} else {
		locked, err = l.TryRLockContext(ctx, lockRetry)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, dir)
	}
	return func() { _ = l.Unlock() }, nil
}

func writeFiles(dir string, manifest Manifest, snap *snapshot) error {
	mb, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), mb, 0o644); err != nil {
		return fmt.Errorf("cannot write manifest: %w", err)
	}

	ef, err := os.Create(filepath.Join(dir, manifest.EntriesFile))
	if err != nil {
		return fmt.Errorf("cannot create entries file: %w", err)
	}
	bw := bufio.NewWriter(ef)
	enc := json.NewEncoder(bw)
	for i, id := range snap.ids {
		if err := enc.Encode(Entry{ID: id, TextHash: snap.hashes[i]}); err != nil {
			_ = ef.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = ef.Close()
		return err
	}
	if err := ef.Close(); err != nil {
		return err
	}

	vf, err := os.Create(filepath.Join(dir, manifest.VectorFile))
	if err != nil {
		return fmt.Errorf("cannot create vectors file: %w", err)
	}
	if err := binary.Write(vf, binary.LittleEndian, snap.vectors); err != nil {
		_ = vf.Close()
		return fmt.Errorf("cannot write vectors: %w", err)
	}
	return vf.Close()
}

func readManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, manifestFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("cannot read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest JSON %s: %w", path, err)
	}
	if m.IndexVersion != IndexVersion {
		return Manifest{}, fmt.Errorf("unsupported index version %d in %s", m.IndexVersion, path)
	}
	if m.Dim <= 0 {
		return Manifest{}, fmt.Errorf("invalid dim in manifest: %d", m.Dim)
	}
	if m.VectorFile == "" {
		m.VectorFile = vectorFile
	}
	if m.EntriesFile == "" {
		m.EntriesFile = entriesFile
	}
	return m, nil
}

func readEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open entries file %s: %w", path, err)
	}
	defer f.Close()

	var out []Entry
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var e Entry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid entries JSONL %s: %w", path, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func readVectors(path string, n, dim int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open vector file %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat vector file %s: %w", path, err)
	}
	expected := int64(n * dim * 4)
	if expected != st.Size() {
		return nil, fmt.Errorf("vector file size mismatch: got %d want %d (entries=%d dim=%d)", st.Size(), expected, n, dim)
	}

	out := make([]float32, n*dim)
	if err := binary.Read(io.LimitReader(f, expected), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("cannot read vectors from %s: %w", path, err)
	}
	return out, nil
}

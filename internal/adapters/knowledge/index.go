package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/PabloGalante/minidxo/internal/domain"
)

// Embedder turns texts into vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type entry struct {
	text   string
	vector []float32
}

// VectorIndex is an in-memory cosine-similarity index over corpus chunks.
type VectorIndex struct {
	embedder Embedder
	minScore float64

	mu      sync.RWMutex
	entries []entry
}

// NewVectorIndex creates an empty index. Passages scoring below minScore
// are dropped; 0 keeps every top-k passage.
func NewVectorIndex(embedder Embedder, minScore float64) *VectorIndex {
	return &VectorIndex{embedder: embedder, minScore: minScore}
}

// Add embeds and stores texts.
func (x *VectorIndex) Add(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embed corpus: got %d vectors for %d texts", len(vectors), len(texts))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i, t := range texts {
		x.entries = append(x.entries, entry{text: t, vector: vectors[i]})
	}
	return nil
}

func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Query implements domain.KnowledgeIndex.
func (x *VectorIndex) Query(ctx context.Context, text string, k int) ([]domain.Passage, error) {
	x.mu.RLock()
	empty := len(x.entries) == 0
	x.mu.RUnlock()
	if empty || k < 1 {
		return nil, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, errors.New("embed query: no vector returned")
	}
	q := vectors[0]

	x.mu.RLock()
	scored := make([]domain.Passage, 0, len(x.entries))
	for _, e := range x.entries {
		score := cosine(q, e.vector)
		if score < x.minScore {
			continue
		}
		scored = append(scored, domain.Passage{
			Text:   e.text,
			Source: domain.ProvenanceTrusted,
			Score:  score,
		})
	}
	x.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Build loads the corpus at path into a new index.
func Build(ctx context.Context, path string, embedder Embedder, minScore float64) (*VectorIndex, error) {
	chunks, err := LoadCorpus(path)
	if err != nil {
		return nil, err
	}

	idx := NewVectorIndex(embedder, minScore)
	if err := idx.Add(ctx, chunks); err != nil {
		return nil, err
	}
	return idx, nil
}

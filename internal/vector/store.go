package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/storage/models"
	"github.com/nba-insights/backend/pkg/logger"
)

// Embedder produces fixed-length vectors for text. Implementations must
// be deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is a flat, exhaustive nearest-neighbor index over normalized
// embeddings, scored by inner product. It is append-only within a
// process lifetime; a rebuild discards the whole structure via Reset
// and re-adds from scratch. Exhaustive search is fine here: the corpus
// is at most tens of thousands of documents.
type Store struct {
	embedder Embedder

	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	ids       []string
	documents map[string]*models.Document
}

func NewStore(embedder Embedder, dimension int) *Store {
	return &Store{
		embedder:  embedder,
		dimension: dimension,
		documents: make(map[string]*models.Document),
	}
}

// AddDocuments embeds every document lacking an embedding (one batch
// call) and appends all of them to the index.
func (s *Store) AddDocuments(ctx context.Context, docs []*models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var pending []int
	var texts []string
	for i, doc := range docs {
		if doc.Embedding == nil {
			pending = append(pending, i)
			texts = append(texts, doc.Content)
		}
	}

	if len(texts) > 0 {
		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(texts))
		}
		for j, i := range pending {
			docs[i].Embedding = embeddings[j]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if s.dimension > 0 && len(doc.Embedding) != s.dimension {
			return fmt.Errorf("document %s: vector dimension %d, index expects %d", doc.ID, len(doc.Embedding), s.dimension)
		}
		s.vectors = append(s.vectors, doc.Embedding)
		s.ids = append(s.ids, doc.ID)
		s.documents[doc.ID] = doc
	}

	logger.Info("Documents added to vector store", zap.Int("count", len(docs)), zap.Int("total", len(s.vectors)))
	return nil
}

// Search returns up to k matches ordered by descending similarity,
// unique per document id. An empty index yields an empty result, not an
// error.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.EvidenceMatch, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	if s.Len() == 0 {
		return []models.EvidenceMatch{}, nil
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]float32, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = dot(v, queryEmbedding)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// Stable keeps insertion order among equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	matches := make([]models.EvidenceMatch, 0, k)
	seen := make(map[string]bool, k)
	for _, i := range order {
		id := s.ids[i]
		if seen[id] {
			continue
		}
		seen[id] = true
		matches = append(matches, models.EvidenceMatch{
			Document: s.documents[id],
			Score:    scores[i],
		})
		if len(matches) == k {
			break
		}
	}

	return matches, nil
}

// Reset discards every vector and document. Used by a full rebuild.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.ids = nil
	s.documents = make(map[string]*models.Document)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

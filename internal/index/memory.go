package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"studyrag/internal/models"
)

// Memory is a brute-force in-memory vector index. It backs tests and
// deployments without an external store.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	entries   map[string]models.IndexEntry
}

var _ Index = (*Memory)(nil)

// NewMemory creates an empty in-memory index.
func NewMemory(dimension int, metric Metric) *Memory {
	return &Memory{
		dimension: dimension,
		metric:    metric,
		entries:   make(map[string]models.IndexEntry),
	}
}

// Upsert stores the entry, overwriting any entry with the same id.
func (m *Memory) Upsert(_ context.Context, entry models.IndexEntry) error {
	if len(entry.Vector) != m.dimension {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(entry.Vector), m.dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return nil
}

// Query returns the topK nearest entries to the vector, nearest-first.
func (m *Memory) Query(_ context.Context, vector []float32, topK int) ([]models.Match, error) {
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query vector dimension %d does not match index dimension %d", len(vector), m.dimension)
	}
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]models.Match, 0, len(m.entries))
	for _, entry := range m.entries {
		matches = append(matches, models.Match{
			Entry:    entry,
			Distance: m.metric.distance(entry.Vector, vector),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Entry.ID < matches[j].Entry.ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Reset discards all entries. Calling it twice in a row succeeds both
// times.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]models.IndexEntry)
	return nil
}

// Close is a no-op for the in-memory index.
func (m *Memory) Close() {}

// distance mirrors the pgvector operators: smaller is nearer for every
// metric, with inner product negated like <#>.
func (m Metric) distance(a, b []float32) float64 {
	switch m {
	case MetricCosine:
		return 1 - dot(a, b)/(norm(a)*norm(b))
	case MetricDot:
		return -dot(a, b)
	default:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	return math.Sqrt(dot(a, a))
}

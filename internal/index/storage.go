package index

import (
	"context"
	"fmt"

	"studyrag/internal/models"
)

// Index stores vectors with their source text and answers
// nearest-neighbor queries. All entries and query vectors submitted to
// one index must share the same dimensionality.
type Index interface {
	// Upsert inserts the entry or overwrites the entry with the same id.
	Upsert(ctx context.Context, entry models.IndexEntry) error
	// Query returns up to topK matches ordered nearest-first by the
	// index's distance metric.
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)
	// Reset deletes and recreates the index, losing all entries. It is
	// destructive and idempotent.
	Reset(ctx context.Context) error
	Close()
}

// Metric is the distance metric an index ranks matches by.
type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
	MetricDot       Metric = "dot"
)

// ParseMetric validates a configured metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricEuclidean, MetricCosine, MetricDot:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown distance metric %q", s)
}

// operator returns the pgvector distance operator for the metric.
func (m Metric) operator() string {
	switch m {
	case MetricCosine:
		return "<=>"
	case MetricDot:
		return "<#>"
	default:
		return "<->"
	}
}

// opclass returns the pgvector ivfflat operator class for the metric.
func (m Metric) opclass() string {
	switch m {
	case MetricCosine:
		return "vector_cosine_ops"
	case MetricDot:
		return "vector_ip_ops"
	default:
		return "vector_l2_ops"
	}
}

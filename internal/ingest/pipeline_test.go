package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyrag/internal/index"
	"studyrag/internal/models"
)

// --- Fakes ---

type fakeExtractor struct {
	pages []models.Page
	err   error
}

func (f *fakeExtractor) ExtractPages(_ []byte) ([]models.Page, error) {
	return f.pages, f.err
}

type fakeEmbedder struct {
	vector  []float32
	failFor map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failFor[text] {
		return nil, errors.New("embedding service down")
	}
	return f.vector, nil
}

type fakeGenerator struct {
	questions []string
	gotText   string
	calls     int
}

func (f *fakeGenerator) Generate(_ context.Context, documentText string) []string {
	f.calls++
	f.gotText = documentText
	return f.questions
}

type passthroughFilter struct {
	gotQuestions []string
}

func (f *passthroughFilter) Filter(_ context.Context, questions []string, _ string) []string {
	f.gotQuestions = questions
	return questions
}

func newTestPipeline(extractor Extractor, embedder Embedder, idx index.Index, generator Generator, filter Filter) *Pipeline {
	return NewPipeline(extractor, embedder, idx, generator, filter, 2)
}

func entryIDs(t *testing.T, idx index.Index, probe []float32) []string {
	t.Helper()
	matches, err := idx.Query(context.Background(), probe, 100)
	require.NoError(t, err)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Entry.ID)
	}
	return ids
}

// --- Tests ---

func TestIngestEmptyFilename(t *testing.T) {
	idx := index.NewMemory(3, index.MetricEuclidean)
	extractor := &fakeExtractor{pages: []models.Page{{Index: 1, Text: "text"}}}
	p := newTestPipeline(extractor, &fakeEmbedder{vector: []float32{1, 0, 0}}, idx, &fakeGenerator{}, &passthroughFilter{})

	_, err := p.Ingest(context.Background(), "   ", []byte("pdf"))
	assert.ErrorIs(t, err, ErrNoSelectedFile)
	assert.Empty(t, entryIDs(t, idx, []float32{1, 0, 0}))
}

func TestIngestSkipsTextlessPages(t *testing.T) {
	idx := index.NewMemory(3, index.MetricEuclidean)
	extractor := &fakeExtractor{pages: []models.Page{
		{Index: 1, Text: "Water boils at 100°C."},
		{Index: 2, Text: ""},
	}}
	generator := &fakeGenerator{questions: []string{"At what temperature does water boil?"}}
	filter := &passthroughFilter{}
	p := newTestPipeline(extractor, &fakeEmbedder{vector: []float32{1, 0, 0}}, idx, generator, filter)

	result, err := p.Ingest(context.Background(), "notes.pdf", []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, []string{"page-1"}, entryIDs(t, idx, []float32{1, 0, 0}))
	assert.Equal(t, 1, result.PagesIndexed)
	assert.Equal(t, "Water boils at 100°C.", generator.gotText)
	assert.Equal(t, generator.questions, result.Questions)
	assert.NotEmpty(t, result.SessionID)
}

func TestIngestEntryIDUsesOriginalPageIndex(t *testing.T) {
	idx := index.NewMemory(3, index.MetricEuclidean)
	extractor := &fakeExtractor{pages: []models.Page{
		{Index: 1, Text: ""},
		{Index: 2, Text: "only this page has text"},
	}}
	p := newTestPipeline(extractor, &fakeEmbedder{vector: []float32{1, 0, 0}}, idx, &fakeGenerator{}, &passthroughFilter{})

	_, err := p.Ingest(context.Background(), "notes.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page-2"}, entryIDs(t, idx, []float32{1, 0, 0}))
}

func TestIngestNoExtractableText(t *testing.T) {
	idx := index.NewMemory(3, index.MetricEuclidean)
	extractor := &fakeExtractor{pages: []models.Page{
		{Index: 1, Text: ""},
		{Index: 2, Text: "   \n"},
	}}
	generator := &fakeGenerator{questions: []string{"unused"}}
	p := newTestPipeline(extractor, &fakeEmbedder{vector: []float32{1, 0, 0}}, idx, generator, &passthroughFilter{})

	_, err := p.Ingest(context.Background(), "blank.pdf", []byte("pdf"))
	assert.ErrorIs(t, err, ErrNoExtractableText)
	assert.Zero(t, generator.calls)
	assert.Empty(t, entryIDs(t, idx, []float32{1, 0, 0}))
}

func TestIngestExtractionFailure(t *testing.T) {
	idx := index.NewMemory(3, index.MetricEuclidean)
	extractor := &fakeExtractor{err: errors.New("not a pdf")}
	p := newTestPipeline(extractor, &fakeEmbedder{vector: []float32{1, 0, 0}}, idx, &fakeGenerator{}, &passthroughFilter{})

	_, err := p.Ingest(context.Background(), "broken.pdf", []byte("garbage"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSelectedFile)
}

func TestIngestEmbeddingFailureSkipsPageOnly(t *testing.T) {
	idx := index.NewMemory(3, index.MetricEuclidean)
	extractor := &fakeExtractor{pages: []models.Page{
		{Index: 1, Text: "first page"},
		{Index: 2, Text: "second page"},
	}}
	embedder := &fakeEmbedder{
		vector:  []float32{1, 0, 0},
		failFor: map[string]bool{"second page": true},
	}
	generator := &fakeGenerator{}
	p := newTestPipeline(extractor, embedder, idx, generator, &passthroughFilter{})

	result, err := p.Ingest(context.Background(), "notes.pdf", []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, []string{"page-1"}, entryIDs(t, idx, []float32{1, 0, 0}))
	assert.Equal(t, 1, result.PagesIndexed)
	// The document text still carries every page with text, in order.
	assert.Equal(t, "first pagesecond page", generator.gotText)
}

func TestIngestUpsertFailureSkipsPageOnly(t *testing.T) {
	failing := &failingIndex{Index: index.NewMemory(3, index.MetricEuclidean), failID: "page-2"}
	extractor := &fakeExtractor{pages: []models.Page{
		{Index: 1, Text: "first page"},
		{Index: 2, Text: "second page"},
	}}
	p := newTestPipeline(extractor, &fakeEmbedder{vector: []float32{1, 0, 0}}, failing, &fakeGenerator{}, &passthroughFilter{})

	result, err := p.Ingest(context.Background(), "notes.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.PagesIndexed)
}

// failingIndex wraps an Index and fails upserts for one id.
type failingIndex struct {
	index.Index
	failID string
}

func (f *failingIndex) Upsert(ctx context.Context, entry models.IndexEntry) error {
	if entry.ID == f.failID {
		return errors.New("index unavailable")
	}
	return f.Index.Upsert(ctx, entry)
}

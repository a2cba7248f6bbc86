// Package ingest orchestrates one document upload: page extraction,
// per-page embedding and indexing, then question generation and
// filtering.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"studyrag/internal/index"
	"studyrag/internal/models"
)

var (
	// ErrNoSelectedFile means the upload carried a missing or empty
	// filename. Nothing is indexed in that case.
	ErrNoSelectedFile = errors.New("ingest: no selected file")
	// ErrNoExtractableText means no page in the document yielded any
	// text.
	ErrNoExtractableText = errors.New("ingest: no extractable text")
)

// Extractor produces per-page text for an uploaded document.
type Extractor interface {
	ExtractPages(data []byte) ([]models.Page, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces candidate questions from document text.
type Generator interface {
	Generate(ctx context.Context, documentText string) []string
}

// Filter keeps the acceptable subset of candidate questions.
type Filter interface {
	Filter(ctx context.Context, questions []string, documentText string) []string
}

// Pipeline runs one upload end to end.
type Pipeline struct {
	Extractor     Extractor
	Embedder      Embedder
	Index         index.Index
	Generator     Generator
	Filter        Filter
	MaxConcurrent int
}

// NewPipeline creates an ingestion pipeline. maxConcurrent bounds the
// number of pages embedded and indexed in parallel.
func NewPipeline(extractor Extractor, embedder Embedder, idx index.Index, generator Generator, filter Filter, maxConcurrent int) *Pipeline {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pipeline{
		Extractor:     extractor,
		Embedder:      embedder,
		Index:         idx,
		Generator:     generator,
		Filter:        filter,
		MaxConcurrent: maxConcurrent,
	}
}

// Ingest processes one uploaded document and returns the accepted
// questions, possibly none. A page that cannot be embedded or stored
// is skipped and logged; only a document with no text at all fails.
func (p *Pipeline) Ingest(ctx context.Context, filename string, data []byte) (*models.IngestResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, ErrNoSelectedFile
	}

	session := uuid.NewString()
	log.Printf("[%s] ingesting %q (%d bytes)", session, filename, len(data))

	pages, err := p.Extractor.ExtractPages(data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract pages: %w", err)
	}

	indexed := p.indexPages(ctx, session, pages)

	// Concatenate page texts in page order, skipped pages excluded.
	var documentBuilder strings.Builder
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		documentBuilder.WriteString(page.Text)
	}
	documentText := documentBuilder.String()
	if documentText == "" {
		return nil, ErrNoExtractableText
	}

	questions := p.Generator.Generate(ctx, documentText)
	log.Printf("[%s] generated %d candidate questions", session, len(questions))

	accepted := p.Filter.Filter(ctx, questions, documentText)
	log.Printf("[%s] accepted %d of %d questions", session, len(accepted), len(questions))

	return &models.IngestResult{
		SessionID:    session,
		PagesIndexed: indexed,
		Questions:    accepted,
	}, nil
}

// indexPages embeds and upserts every page with text, in parallel up
// to MaxConcurrent. Entries are keyed by the page's original 1-based
// index, so concurrent upserts are commutative.
func (p *Pipeline) indexPages(ctx context.Context, session string, pages []models.Page) int {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.MaxConcurrent)

	var mu sync.Mutex
	indexed := 0

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			log.Printf("[%s] warning: page %d has no extractable text", session, page.Index)
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(page models.Page) {
			defer wg.Done()
			defer func() { <-semaphore }()

			vector, err := p.Embedder.Embed(ctx, page.Text)
			if err != nil {
				log.Printf("[%s] skipping page %d: embedding failed: %v", session, page.Index, err)
				return
			}

			entry := models.IndexEntry{
				ID:     fmt.Sprintf("page-%d", page.Index),
				Vector: vector,
				Text:   page.Text,
			}
			if err := p.Index.Upsert(ctx, entry); err != nil {
				log.Printf("[%s] skipping page %d: upsert failed: %v", session, page.Index, err)
				return
			}

			mu.Lock()
			indexed++
			mu.Unlock()
		}(page)
	}

	wg.Wait()
	return indexed
}

package slidesmith

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tsawler/slidesmith/format"
	"github.com/tsawler/slidesmith/pptx"
	"github.com/tsawler/slidesmith/report"
	"github.com/tsawler/slidesmith/schema"
	"github.com/tsawler/slidesmith/store"
)

// ErrNoStore is returned when a pipeline runs without a store or embedder.
var ErrNoStore = errors.New("slidesmith: store and embedder are required")

// IngestResult is the outcome of ingesting one deck.
type IngestResult struct {
	Presentation *store.Presentation
	Slides       []*store.SlideRecord
	Warnings     []report.Warning
}

// Ingest reads the deck at path, copies it into StorageDir under a unique
// name and stores one record per slide with its model, metadata and
// embedding. An empty title falls back to the deck's document title, then
// to the file name.
func (s *Service) Ingest(ctx context.Context, path, title string) (*IngestResult, error) {
	if s.Store == nil || s.Embedder == nil {
		return nil, ErrNoStore
	}
	log := s.logger()
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := format.DetectBytes(data)
	if err != nil {
		return nil, &report.ParseError{Source: path, Err: err}
	}
	if !f.Supported() {
		return nil, &report.ParseError{Source: path, Err: fmt.Errorf("unsupported format %s", f)}
	}
	pkg, err := pptx.OpenBytes(data)
	if err != nil {
		return nil, err
	}

	extracted, err := s.extractor().Extract(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}

	records := make([]*store.SlideRecord, len(extracted.Slides))
	texts := make([]string, len(extracted.Slides))
	categories := make([]string, len(extracted.Slides))
	for i, m := range extracted.Slides {
		meta := schema.Describe(m)
		records[i] = &store.SlideRecord{
			Index:     m.Index,
			Title:     meta.Title,
			Category:  meta.Category,
			SlideType: meta.SlideType,
			Purpose:   meta.Purpose,
			Tags:      meta.Tags,
			Schema:    m,
		}
		texts[i] = meta.SemanticText()
		categories[i] = meta.Category
	}

	vectors, err := s.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		records[i].Embedding = v
	}

	storagePath, err := s.storeDeck(data, f)
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = pkg.Properties().Title
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	pres := &store.Presentation{Title: title, StoragePath: storagePath}
	if err := s.Store.CreateDeck(ctx, pres, records); err != nil {
		os.Remove(storagePath)
		return nil, fmt.Errorf("saving %s: %w", path, err)
	}

	s.Metrics.ObserveIngest(categories, time.Since(start))
	s.Metrics.ObserveWarnings(extracted.Warnings)
	log.Info("ingested deck",
		"path", path,
		"presentation", pres.ID,
		"slides", len(records),
		"warnings", len(extracted.Warnings),
		"elapsed", time.Since(start))

	return &IngestResult{Presentation: pres, Slides: records, Warnings: extracted.Warnings}, nil
}

func (s *Service) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if b, ok := s.Embedder.(BatchEmbedder); ok && len(texts) > 0 {
		vecs, err := b.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding slides: %w", err)
		}
		return vecs, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embedder.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding slide %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// storeDeck writes data into StorageDir under a time-ordered unique name.
func (s *Service) storeDeck(data []byte, f format.Format) (string, error) {
	dir := s.StorageDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating storage directory: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating storage name: %w", err)
	}
	path := filepath.Join(dir, id.String()+f.Extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storing deck: %w", err)
	}
	return path, nil
}

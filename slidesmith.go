// Package slidesmith ingests slide decks into a searchable library and
// builds new decks from it.
//
// Ingesting a deck extracts a normalized model of every slide, derives its
// title, purpose, category and tags, embeds that description and stores
// the lot:
//
//	svc := &slidesmith.Service{Store: db, Embedder: emb, Completer: llm, StorageDir: "storage"}
//	res, err := svc.Ingest(ctx, "q3-review.pptx", "")
//
// Generating a deck turns a brief into an outline, picks the stored slide
// that best fits each outline section, rewrites its text for the brief and
// assembles the result. Only text changes; shapes, pictures, charts and
// tables are carried over from the source slides:
//
//	out, err := svc.Generate(ctx, brief, assemble.ModeSubset)
//	fmt.Println(out.Path, report.FormatWarnings(out.Warnings))
//
// The lower-level packages (schema, match, substitute, assemble, generate)
// can be used on their own.
package slidesmith

import (
	"context"
	"io"
	"log/slog"

	"github.com/tsawler/slidesmith/assemble"
	"github.com/tsawler/slidesmith/generate"
	"github.com/tsawler/slidesmith/match"
	"github.com/tsawler/slidesmith/metrics"
	"github.com/tsawler/slidesmith/schema"
	"github.com/tsawler/slidesmith/store"
)

// BatchEmbedder is implemented by embedders that can embed several texts
// in one request.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Service wires the pipeline together. Store and Embedder are required by
// both pipelines, Completer by Generate. Nil optional fields use defaults.
type Service struct {
	Store     store.Store
	Embedder  match.Embedder
	Completer generate.Completer

	Extractor *schema.Extractor
	Matcher   *match.Matcher
	Writer    *generate.Writer
	Assembler *assemble.Assembler
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	StorageDir string // Where ingested decks are copied
	OutputDir  string // Where generated decks are written
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

func (s *Service) extractor() *schema.Extractor {
	x := s.Extractor
	if x == nil {
		x = schema.New()
	}
	if s.Logger != nil {
		x = x.WithLogger(s.Logger)
	}
	return x
}

func (s *Service) matcher() *match.Matcher {
	if s.Matcher != nil {
		return s.Matcher
	}
	m := match.New()
	m.Logger = s.Logger
	return m
}

func (s *Service) writer() *generate.Writer {
	if s.Writer != nil {
		return s.Writer
	}
	w := generate.NewWriter()
	w.Logger = s.Logger
	return w
}

func (s *Service) assembler() *assemble.Assembler {
	if s.Assembler != nil {
		return s.Assembler
	}
	return &assemble.Assembler{Logger: s.Logger}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

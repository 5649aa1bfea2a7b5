// Package store defines persistence for ingested decks and their slide
// records. Drivers live in the sqlite and postgres subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tsawler/slidesmith/match"
	"github.com/tsawler/slidesmith/model"
)

// ErrNotFound is returned when a presentation or slide does not exist.
var ErrNotFound = errors.New("store: not found")

// Presentation is an ingested deck.
type Presentation struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	StoragePath string    `json:"storage_path"`
	SlideCount  int       `json:"slide_count"` // Set by ListPresentations
	CreatedAt   time.Time `json:"created_at"`
}

// SlideRecord is the persisted form of one slide.
type SlideRecord struct {
	ID             int64        `json:"id"`
	PresentationID int64        `json:"presentation_id"`
	Index          int          `json:"index"` // 0-indexed position in the source deck
	Title          string       `json:"title"`
	Category       string       `json:"category"`
	SlideType      string       `json:"slide_type"`
	Purpose        string       `json:"purpose"`
	Tags           []string     `json:"tags"`
	Audience       string       `json:"audience,omitempty"`
	SalesStage     string       `json:"sales_stage,omitempty"`
	Embedding      []float32    `json:"-"`
	Schema         *model.Slide `json:"schema,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// MetadataUpdate holds editable slide metadata. Nil fields are left as is.
type MetadataUpdate struct {
	Title      *string
	Purpose    *string
	Audience   *string
	SalesStage *string
	Tags       []string // Nil keeps the current tags
}

// IsEmpty reports whether the update changes nothing.
func (u MetadataUpdate) IsEmpty() bool {
	return u.Title == nil && u.Purpose == nil && u.Audience == nil && u.SalesStage == nil && u.Tags == nil
}

// Store persists presentations and slide records.
type Store interface {
	// Migrate creates the schema if needed.
	Migrate(ctx context.Context) error
	// CreateDeck inserts a presentation and its slide records atomically,
	// setting their IDs.
	CreateDeck(ctx context.Context, p *Presentation, slides []*SlideRecord) error
	// ListPresentations returns every presentation with its SlideCount,
	// ordered by ID.
	ListPresentations(ctx context.Context) ([]*Presentation, error)
	// ListCandidates returns every slide that has an embedding, without
	// its Schema, ordered by ID.
	ListCandidates(ctx context.Context) ([]*SlideRecord, error)
	GetSlide(ctx context.Context, id int64) (*SlideRecord, error)
	// ListSlides returns the slides of a presentation in deck order.
	ListSlides(ctx context.Context, presentationID int64) ([]*SlideRecord, error)
	GetPresentation(ctx context.Context, id int64) (*Presentation, error)
	UpdateSlideMetadata(ctx context.Context, id int64, update MetadataUpdate) error
	Close() error
}

// Candidates converts records into matcher candidates. Each candidate's Ref
// is its record.
func Candidates(records []*SlideRecord) []match.Candidate {
	out := make([]match.Candidate, 0, len(records))
	for _, r := range records {
		out = append(out, match.Candidate{
			ID:        r.ID,
			Category:  r.Category,
			Embedding: r.Embedding,
			Ref:       r,
		})
	}
	return out
}

// Apply copies the non-nil fields of u onto r.
func (u MetadataUpdate) Apply(r *SlideRecord) {
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Purpose != nil {
		r.Purpose = *u.Purpose
	}
	if u.Audience != nil {
		r.Audience = *u.Audience
	}
	if u.SalesStage != nil {
		r.SalesStage = *u.SalesStage
	}
	if u.Tags != nil {
		r.Tags = append([]string(nil), u.Tags...)
	}
}

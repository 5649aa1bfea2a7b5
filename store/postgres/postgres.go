// Package postgres implements store.Store on PostgreSQL with the pgvector
// extension.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/store"
)

const slideColumns = `id, presentation_id, slide_index, title, category, slide_type, purpose, tags, audience, sales_stage, embedding, created_ts`

// DB is a PostgreSQL-backed store.
type DB struct {
	db         *sql.DB
	dimensions int
}

var _ store.Store = (*DB)(nil)

// Open connects to dsn. dimensions fixes the size of the embedding column;
// 0 leaves it unconstrained.
func Open(dsn string, dimensions int) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	return &DB{db: db, dimensions: dimensions}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the extension and tables.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations(d.dimensions) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate")
		}
	}
	return nil
}

func migrations(dimensions int) []string {
	vector := "vector"
	if dimensions > 0 {
		vector = fmt.Sprintf("vector(%d)", dimensions)
	}
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS presentation (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			storage_path TEXT NOT NULL,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS slide (
			id BIGSERIAL PRIMARY KEY,
			presentation_id BIGINT NOT NULL REFERENCES presentation(id),
			slide_index INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			slide_type TEXT NOT NULL DEFAULT '',
			purpose TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			audience TEXT NOT NULL DEFAULT '',
			sales_stage TEXT NOT NULL DEFAULT '',
			embedding ` + vector + `,
			schema_json JSONB,
			created_ts BIGINT NOT NULL,
			UNIQUE (presentation_id, slide_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slide_presentation ON slide (presentation_id)`,
	}
}

// CreateDeck inserts p and its slides in one transaction, setting their
// IDs. Nothing is written when any insert fails.
func (d *DB) CreateDeck(ctx context.Context, p *store.Presentation, slides []*store.SlideRecord) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO presentation (title, storage_path, created_ts) VALUES (`+placeholders(3)+`) RETURNING id`,
		p.Title, p.StoragePath, p.CreatedAt.Unix()).Scan(&id)
	if err != nil {
		return errors.Wrap(err, "failed to create presentation")
	}
	if err := insertSlides(ctx, tx, id, slides); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit deck")
	}
	p.ID = id
	return nil
}

// ListPresentations returns every presentation, oldest first.
func (d *DB) ListPresentations(ctx context.Context) ([]*store.Presentation, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.storage_path, p.created_ts, COUNT(s.id)
		FROM presentation p LEFT JOIN slide s ON s.presentation_id = p.id
		GROUP BY p.id
		ORDER BY p.id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list presentations")
	}
	defer rows.Close()

	list := []*store.Presentation{}
	for rows.Next() {
		var (
			p  store.Presentation
			ts int64
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.StoragePath, &ts, &p.SlideCount); err != nil {
			return nil, errors.Wrap(err, "failed to scan presentation")
		}
		p.CreatedAt = time.Unix(ts, 0)
		list = append(list, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// GetPresentation returns the presentation with id.
func (d *DB) GetPresentation(ctx context.Context, id int64) (*store.Presentation, error) {
	var (
		p  store.Presentation
		ts int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, title, storage_path, created_ts FROM presentation WHERE id = `+placeholder(1), id).
		Scan(&p.ID, &p.Title, &p.StoragePath, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(store.ErrNotFound, "presentation %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get presentation")
	}
	p.CreatedAt = time.Unix(ts, 0)
	return &p, nil
}

func insertSlides(ctx context.Context, tx *sql.Tx, presentationID int64, slides []*store.SlideRecord) error {
	stmt := `
		INSERT INTO slide (presentation_id, slide_index, title, category, slide_type, purpose, tags,
			audience, sales_stage, embedding, schema_json, created_ts)
		VALUES (` + placeholders(12) + `)
		RETURNING id`

	now := time.Now()
	for _, s := range slides {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		doc, err := encodeSchema(s.Schema)
		if err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx, stmt,
			presentationID, s.Index, s.Title, s.Category, s.SlideType, s.Purpose, pq.Array(tags(s.Tags)),
			s.Audience, s.SalesStage, vectorArg(s.Embedding), doc, s.CreatedAt.Unix()).Scan(&s.ID)
		if err != nil {
			return errors.Wrapf(err, "failed to insert slide %d", s.Index)
		}
		s.PresentationID = presentationID
	}
	return nil
}

// ListCandidates returns every slide with an embedding.
func (d *DB) ListCandidates(ctx context.Context) ([]*store.SlideRecord, error) {
	return d.list(ctx, `SELECT `+slideColumns+` FROM slide WHERE embedding IS NOT NULL ORDER BY id`, false)
}

// ListSlides returns the slides of a presentation in deck order.
func (d *DB) ListSlides(ctx context.Context, presentationID int64) ([]*store.SlideRecord, error) {
	return d.list(ctx,
		`SELECT `+slideColumns+`, schema_json FROM slide WHERE presentation_id = `+placeholder(1)+` ORDER BY slide_index`,
		true, presentationID)
}

func (d *DB) list(ctx context.Context, query string, withSchema bool, args ...any) ([]*store.SlideRecord, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list slides")
	}
	defer rows.Close()

	list := []*store.SlideRecord{}
	for rows.Next() {
		s, err := scanSlide(rows, withSchema)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// GetSlide returns the slide with id, including its schema.
func (d *DB) GetSlide(ctx context.Context, id int64) (*store.SlideRecord, error) {
	return getSlide(ctx, d.db, id, false)
}

// UpdateSlideMetadata applies update to the slide with id.
func (d *DB) UpdateSlideMetadata(ctx context.Context, id int64, update store.MetadataUpdate) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	s, err := getSlide(ctx, tx, id, true)
	if err != nil {
		return err
	}
	update.Apply(s)

	set := []string{"title", "purpose", "audience", "sales_stage", "tags"}
	for i := range set {
		set[i] += " = " + placeholder(i+1)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE slide SET `+strings.Join(set, ", ")+` WHERE id = `+placeholder(len(set)+1),
		s.Title, s.Purpose, s.Audience, s.SalesStage, pq.Array(tags(s.Tags)), id)
	if err != nil {
		return errors.Wrap(err, "failed to update slide metadata")
	}
	return errors.Wrap(tx.Commit(), "failed to commit slide metadata")
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSlide(ctx context.Context, q queryer, id int64, lock bool) (*store.SlideRecord, error) {
	query := `SELECT ` + slideColumns + `, schema_json FROM slide WHERE id = ` + placeholder(1)
	if lock {
		query += ` FOR UPDATE`
	}
	s, err := scanSlide(q.QueryRowContext(ctx, query, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(store.ErrNotFound, "slide %d", id)
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSlide(sc scanner, withSchema bool) (*store.SlideRecord, error) {
	var (
		s   store.SlideRecord
		vec pgvector.Vector
		ts  int64
		doc []byte
	)
	dest := []any{
		&s.ID, &s.PresentationID, &s.Index, &s.Title, &s.Category, &s.SlideType, &s.Purpose,
		pq.Array(&s.Tags), &s.Audience, &s.SalesStage, &nullVector{v: &vec}, &ts,
	}
	if withSchema {
		dest = append(dest, &doc)
	}
	if err := sc.Scan(dest...); err != nil {
		return nil, errors.Wrap(err, "failed to scan slide")
	}
	s.Embedding = vec.Slice()
	s.CreatedAt = time.Unix(ts, 0)
	if len(doc) > 0 {
		m, err := model.Decode(doc)
		if err != nil {
			return nil, errors.Wrapf(err, "slide %d: invalid schema", s.ID)
		}
		s.Schema = m
	}
	return &s, nil
}

// nullVector scans a nullable vector column.
type nullVector struct {
	v *pgvector.Vector
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		*n.v = pgvector.Vector{}
		return nil
	}
	return n.v.Scan(src)
}

func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func tags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func encodeSchema(s *model.Slide) (any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode slide schema")
	}
	return string(b), nil
}

func placeholder(n int) string {
	return "$" + fmt.Sprint(n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}

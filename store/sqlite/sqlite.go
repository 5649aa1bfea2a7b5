// Package sqlite implements store.Store on SQLite. Embeddings are stored as
// little-endian float32 BLOBs; tags and slide schemas as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS presentation (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS slide (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	presentation_id INTEGER NOT NULL REFERENCES presentation(id),
	slide_index INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	slide_type TEXT NOT NULL DEFAULT '',
	purpose TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	audience TEXT NOT NULL DEFAULT '',
	sales_stage TEXT NOT NULL DEFAULT '',
	embedding BLOB,
	schema_json TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL,
	UNIQUE (presentation_id, slide_index)
);
CREATE INDEX IF NOT EXISTS idx_slide_presentation ON slide (presentation_id);
`

const slideColumns = `id, presentation_id, slide_index, title, category, slide_type, purpose, tags, audience, sales_stage, embedding`

// DB is a SQLite-backed store.
type DB struct {
	db *sql.DB
}

var _ store.Store = (*DB)(nil)

// Open opens the database file at path.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the tables.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}
	return nil
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
	res, err := tx.ExecContext(ctx,
		`INSERT INTO presentation (title, storage_path, created_ts) VALUES (?, ?, ?)`,
		p.Title, p.StoragePath, p.CreatedAt.Unix())
	if err != nil {
		return errors.Wrap(err, "failed to create presentation")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to read presentation id")
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

// GetPresentation returns the presentation with id.
func (d *DB) GetPresentation(ctx context.Context, id int64) (*store.Presentation, error) {
	var (
		p  store.Presentation
		ts int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, title, storage_path, created_ts FROM presentation WHERE id = ?`, id).
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
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO slide (presentation_id, slide_index, title, category, slide_type, purpose, tags,
			audience, sales_stage, embedding, schema_json, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare slide insert")
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range slides {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		tags, err := encodeTags(s.Tags)
		if err != nil {
			return err
		}
		doc, err := encodeSchema(s.Schema)
		if err != nil {
			return err
		}
		res, err := stmt.ExecContext(ctx,
			presentationID, s.Index, s.Title, s.Category, s.SlideType, s.Purpose, tags,
			s.Audience, s.SalesStage, EncodeVector(s.Embedding), doc, s.CreatedAt.Unix())
		if err != nil {
			return errors.Wrapf(err, "failed to insert slide %d", s.Index)
		}
		if s.ID, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "failed to read slide id")
		}
		s.PresentationID = presentationID
	}
	return nil
}

// ListPresentations returns every presentation, oldest first.
func (d *DB) ListPresentations(ctx context.Context) ([]*store.Presentation, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.storage_path, p.created_ts, COUNT(s.id)
		FROM presentation p LEFT JOIN slide s ON s.presentation_id = p.id
		GROUP BY p.id, p.title, p.storage_path, p.created_ts
		ORDER BY p.id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list presentations")
	}
	defer rows.Close()

	var list []*store.Presentation
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
	return list, rows.Err()
}

// ListCandidates returns every slide with an embedding.
func (d *DB) ListCandidates(ctx context.Context) ([]*store.SlideRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+slideColumns+`, created_ts FROM slide WHERE embedding IS NOT NULL AND length(embedding) > 0 ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list candidates")
	}
	defer rows.Close()

	var list []*store.SlideRecord
	for rows.Next() {
		s, err := scanSlide(rows, false)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ListSlides returns the slides of a presentation in deck order.
func (d *DB) ListSlides(ctx context.Context, presentationID int64) ([]*store.SlideRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+slideColumns+`, created_ts, schema_json FROM slide WHERE presentation_id = ? ORDER BY slide_index`,
		presentationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list slides")
	}
	defer rows.Close()

	var list []*store.SlideRecord
	for rows.Next() {
		s, err := scanSlide(rows, true)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetSlide returns the slide with id, including its schema.
func (d *DB) GetSlide(ctx context.Context, id int64) (*store.SlideRecord, error) {
	return getSlide(ctx, d.db, id)
}

// UpdateSlideMetadata applies update to the slide with id.
func (d *DB) UpdateSlideMetadata(ctx context.Context, id int64, update store.MetadataUpdate) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	s, err := getSlide(ctx, tx, id)
	if err != nil {
		return err
	}
	update.Apply(s)
	tags, err := encodeTags(s.Tags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE slide SET title = ?, purpose = ?, audience = ?, sales_stage = ?, tags = ? WHERE id = ?`,
		s.Title, s.Purpose, s.Audience, s.SalesStage, tags, id)
	if err != nil {
		return errors.Wrap(err, "failed to update slide metadata")
	}
	return errors.Wrap(tx.Commit(), "failed to commit slide metadata")
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSlide(ctx context.Context, q queryer, id int64) (*store.SlideRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+slideColumns+`, created_ts, schema_json FROM slide WHERE id = ?`, id)
	s, err := scanSlide(row, true)
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
		s    store.SlideRecord
		tags string
		vec  []byte
		ts   int64
		doc  string
	)
	dest := []any{
		&s.ID, &s.PresentationID, &s.Index, &s.Title, &s.Category, &s.SlideType, &s.Purpose,
		&tags, &s.Audience, &s.SalesStage, &vec, &ts,
	}
	if withSchema {
		dest = append(dest, &doc)
	}
	if err := sc.Scan(dest...); err != nil {
		return nil, errors.Wrap(err, "failed to scan slide")
	}
	if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
		return nil, errors.Wrapf(err, "slide %d: invalid tags", s.ID)
	}
	emb, err := DecodeVector(vec)
	if err != nil {
		return nil, errors.Wrapf(err, "slide %d", s.ID)
	}
	s.Embedding = emb
	s.CreatedAt = time.Unix(ts, 0)
	if doc != "" {
		m, err := model.Decode([]byte(doc))
		if err != nil {
			return nil, errors.Wrapf(err, "slide %d: invalid schema", s.ID)
		}
		s.Schema = m
	}
	return &s, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode tags")
	}
	return string(b), nil
}

func encodeSchema(s *model.Slide) (string, error) {
	if s == nil {
		return "", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode slide schema")
	}
	return string(b), nil
}

// EncodeVector packs v as little-endian float32 values. A nil or empty
// vector encodes as nil.
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector reverses EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

package postgres

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/slidesmith/store"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", placeholder(1))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
}

func TestMigrationsVectorColumn(t *testing.T) {
	stmts := strings.Join(migrations(1536), "\n")
	assert.Contains(t, stmts, "embedding vector(1536)")
	assert.Contains(t, stmts, "CREATE EXTENSION IF NOT EXISTS vector")

	stmts = strings.Join(migrations(0), "\n")
	assert.Contains(t, stmts, "embedding vector,")
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("", 0)
	assert.Error(t, err)
}

// TestRoundTrip runs against a live database named by
// SLIDESMITH_TEST_POSTGRES_DSN.
func TestRoundTrip(t *testing.T) {
	dsn := os.Getenv("SLIDESMITH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SLIDESMITH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(dsn, 3)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	p := &store.Presentation{Title: "Deck", StoragePath: "/decks/a.pptx"}
	slides := []*store.SlideRecord{
		{Index: 0, Title: "One", Category: "content", Tags: []string{"text"}, Embedding: []float32{1, 0, 0}},
		{Index: 1, Title: "Two"},
	}
	require.NoError(t, db.CreateDeck(ctx, p, slides))

	decks, err := db.ListPresentations(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, decks)
	last := decks[len(decks)-1]
	assert.Equal(t, p.ID, last.ID)
	assert.Equal(t, 2, last.SlideCount)

	before := len(decks)
	dup := []*store.SlideRecord{{Index: 0}, {Index: 0}}
	assert.Error(t, db.CreateDeck(ctx, &store.Presentation{StoragePath: "/decks/b.pptx"}, dup))
	decks, err = db.ListPresentations(ctx)
	require.NoError(t, err)
	assert.Len(t, decks, before)

	got, err := db.GetSlide(ctx, slides[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, got.Embedding)
	assert.Equal(t, []string{"text"}, got.Tags)

	list, err := db.ListSlides(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[1].Embedding)

	stage := "Discovery"
	require.NoError(t, db.UpdateSlideMetadata(ctx, slides[1].ID, store.MetadataUpdate{SalesStage: &stage}))
	got, err = db.GetSlide(ctx, slides[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Discovery", got.SalesStage)

	_, err = db.GetSlide(ctx, -1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/slidesmith/internal/testdeck"
	"github.com/tsawler/slidesmith/pptx"
	"github.com/tsawler/slidesmith/store"
	"github.com/tsawler/slidesmith/store/sqlite"
	"github.com/tsawler/slidesmith/substitute"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestParseIndices(t *testing.T) {
	got, err := parseIndices("3, 1,5-6")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 4, 5}, got)

	for _, bad := range []string{"", "0", "a", "3-1", "2x", "1-b"} {
		_, err := parseIndices(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadReplacements(t *testing.T) {
	repl, err := loadReplacements("")
	require.NoError(t, err)
	assert.Nil(t, repl)

	path := writeFile(t, "map.json", []byte(`{"Old": "New"}`))
	repl, err = loadReplacements(path)
	require.NoError(t, err)
	assert.Equal(t, substitute.Replacements{"Old": "New"}, repl)

	path = writeFile(t, "generated.json", []byte(`[
		{"slide_id": 2, "content": {"A": "1", "B": "2"}},
		{"slide_id": 0, "content": {"A": "3"}}
	]`))
	repl, err = loadReplacements(path)
	require.NoError(t, err)
	assert.Equal(t, substitute.Replacements{"A": "3", "B": "2"}, repl)

	_, err = loadReplacements(writeFile(t, "bad.json", []byte(`{"A": 1}`)))
	assert.Error(t, err)
}

func TestLoadBrief(t *testing.T) {
	path := writeFile(t, "brief.yaml", []byte(`
title: Q3 Review
description: Results for the quarter
key_messages:
  - Growth
num_slides: 5
`))
	b, err := loadBrief(path)
	require.NoError(t, err)
	assert.Equal(t, "Q3 Review", b.Title)
	assert.Equal(t, []string{"Growth"}, b.KeyMessages)
	assert.Equal(t, 5, b.NumSlides)

	path = writeFile(t, "brief.json", []byte(`{"title": "T", "description": "D", "tone": "Casual"}`))
	b, err = loadBrief(path)
	require.NoError(t, err)
	assert.Equal(t, "Casual", b.Tone)

	_, err = loadBrief(writeFile(t, "empty.yaml", []byte("industry: Retail\n")))
	assert.Error(t, err)
}

func TestAssembleCommand(t *testing.T) {
	deck := writeFile(t, "deck.pptx", testdeck.Numbered(4).Bytes())
	repl := writeFile(t, "map.json", []byte(`{"Body 3": "Third body"}`))
	out := filepath.Join(t.TempDir(), "out.pptx")

	stdout, err := run(t, "assemble", deck, "--keep", "3,1", "--replacements", repl, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out+" (2 slides)")
	assert.Contains(t, stdout, "element 3 paragraph 0:")

	pkg, err := pptx.Open(out)
	require.NoError(t, err)
	require.Equal(t, 2, pkg.SlideCount())
	assert.Equal(t, "Slide 1", pkg.Slides()[0].Title())
	assert.Equal(t, "Third body", pkg.Slides()[1].Shapes[1].Text())
}

func TestAssembleCommand_Errors(t *testing.T) {
	deck := writeFile(t, "deck.pptx", testdeck.Numbered(2).Bytes())

	_, err := run(t, "assemble", deck, "--keep", "1", "--mode", "merge")
	assert.Error(t, err)

	_, err = run(t, "assemble", deck)
	assert.Error(t, err)

	_, err = run(t, "assemble", deck, "--keep", "9", "-o", filepath.Join(t.TempDir(), "x.pptx"))
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	deck := writeFile(t, "deck.pptx", testdeck.Numbered(3).Bytes())

	stdout, err := run(t, "inspect", deck, "--slides", "2")
	require.NoError(t, err)
	var got inspection
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got.Slides, 1)
	assert.Equal(t, "Slide 2", got.Slides[0].Metadata.Title)
	assert.Equal(t, 1, got.Slides[0].Slide.Index)

	stdout, err = run(t, "inspect", deck, "--format", "yaml", "--slides", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "title: Slide 1")
	assert.Contains(t, stdout, "layout_name: Title and Content")
	assert.True(t, strings.HasPrefix(stdout, "slides:"))

	_, err = run(t, "inspect", deck, "--format", "xml")
	assert.Error(t, err)
}

func TestMetadataCommandNeedsChanges(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "slides.db")
	_, err := run(t, "--dsn", dsn, "metadata", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestPresentationsCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "slides.db")

	out, err := run(t, "--dsn", dsn, "presentations")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.NotContains(t, out, "Q3 Review")

	db, err := sqlite.Open(dsn)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.CreateDeck(ctx,
		&store.Presentation{Title: "Q3 Review", StoragePath: "/decks/q3.pptx"},
		[]*store.SlideRecord{{Index: 0, Title: "Welcome"}, {Index: 1, Title: "Numbers"}}))
	require.NoError(t, db.Close())

	out, err = run(t, "--dsn", dsn, "presentations")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"1", "2"}, strings.Fields(lines[1])[:2])
	assert.Contains(t, lines[1], "Q3 Review")
	assert.Contains(t, lines[1], "/decks/q3.pptx")
}

package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tsawler/slidesmith/match"
	"github.com/tsawler/slidesmith/report"
	"github.com/tsawler/slidesmith/substitute"
)

// DefaultMaxRetries bounds the attempts per slide.
const DefaultMaxRetries = 3

const writerSystemPrompt = `You are an expert presentation content writer.
You rewrite only the text of a slide while its structure stays exactly as it is.

Rules:
1. Only change text where it serves the new presentation.
2. Keep each replacement about as long as the original text.
3. Keep text concise and impactful.
4. Answer with a single JSON object mapping each original text to its replacement, like {"original text": "replacement"}.
5. Use only texts from this slide as keys.`

// SlideContext is the input for generating one slide's replacements.
type SlideContext struct {
	SlideID     string // Identifies the slide in errors
	SourceIndex int    // 0-indexed slide in the source deck
	SlideType   string
	Section     match.Section
	Brief       Brief
	Paragraphs  []string // Original paragraph texts of the slide
}

func (sc SlideContext) prompt() string {
	original, _ := json.Marshal(sc.Paragraphs)
	var sb strings.Builder
	sb.WriteString("Generate new content for this slide with the following context:\n")
	fmt.Fprintf(&sb, "Slide Type: %s\n", sc.SlideType)
	fmt.Fprintf(&sb, "Section: %s\n", sc.Section.Label)
	fmt.Fprintf(&sb, "Purpose: %s\n", sc.Section.Description)
	if len(sc.Section.Keywords) > 0 {
		fmt.Fprintf(&sb, "Keywords: %s\n", strings.Join(sc.Section.Keywords, ", "))
	}
	fmt.Fprintf(&sb, "Presentation: %s\n", sc.Brief.Title)
	fmt.Fprintf(&sb, "Client: %s\n", sc.Brief.ClientName)
	fmt.Fprintf(&sb, "Target Audience: %s\n", sc.Brief.TargetAudience)
	fmt.Fprintf(&sb, "Tone: %s\n", sc.Brief.tone())
	fmt.Fprintf(&sb, "Slide Number: %d\n\n", sc.Section.Number)
	fmt.Fprintf(&sb, "Original slide texts (JSON array):\n%s\n\n", original)
	sb.WriteString("Return only a JSON object mapping original texts to modified texts, no other text.")
	return sb.String()
}

// Writer generates replacement maps for slides.
type Writer struct {
	MaxRetries int
	Logger     *slog.Logger
}

// NewWriter returns a Writer with the default retry bound.
func NewWriter() *Writer {
	return &Writer{MaxRetries: DefaultMaxRetries}
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return w.Logger
}

func (w *Writer) attempts() int {
	if w.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return w.MaxRetries
}

// Replacements asks the completer for a slide's replacement map. Replies
// that cannot be decoded are retried up to MaxRetries attempts, after which
// a *report.GenerationError is returned. Provider errors are returned at
// once.
func (w *Writer) Replacements(ctx context.Context, c Completer, sc SlideContext) (substitute.Replacements, error) {
	log := w.logger()
	prompt := sc.prompt()
	attempts := w.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		reply, err := c.Complete(ctx, writerSystemPrompt, prompt)
		if err != nil {
			return nil, fmt.Errorf("generating content for slide %s: %w", sc.SlideID, err)
		}
		repl, err := parseReplacements(reply)
		if err == nil {
			log.Debug("generated replacements", "slide", sc.SlideID, "attempt", attempt, "entries", len(repl))
			return repl, nil
		}
		lastErr = err
		log.Warn("unusable completion", "slide", sc.SlideID, "attempt", attempt, "error", err)
	}
	return nil, &report.GenerationError{SlideID: sc.SlideID, Attempts: attempts, Err: lastErr}
}

// Generate produces replacement maps for the slides in order, one request
// at a time. The first failure stops the run.
func (w *Writer) Generate(ctx context.Context, c Completer, slides []SlideContext) ([]substitute.Generated, error) {
	out := make([]substitute.Generated, 0, len(slides))
	for _, sc := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		repl, err := w.Replacements(ctx, c, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, substitute.Generated{SlideIndex: sc.SourceIndex, Content: repl})
	}
	return out, nil
}

// parseReplacements decodes a {"original": "modified"} object. A reply of
// the form {"original": x, "modified": y} is read as the single pair x -> y,
// and a list of such objects as one pair per item. Keys are trimmed to match
// paragraph lookup.
func parseReplacements(reply string) (substitute.Replacements, error) {
	var raw any
	if err := decodeJSON(reply, &raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case map[string]any:
		if o, m, ok := pair(v); ok {
			return substitute.Replacements{o: m}, nil
		}
		return objectReplacements(v)
	case []any:
		return pairReplacements(v)
	}
	return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedOutput)
}

// pair reads an {"original": x, "modified": y} object.
func pair(obj map[string]any) (string, string, bool) {
	if len(obj) != 2 {
		return "", "", false
	}
	o, ok1 := obj["original"].(string)
	m, ok2 := obj["modified"].(string)
	return strings.TrimSpace(o), m, ok1 && ok2
}

func objectReplacements(obj map[string]any) (substitute.Replacements, error) {
	repl := make(substitute.Replacements, len(obj))
	for k, v := range obj {
		var text string
		switch v := v.(type) {
		case string:
			text = v
		case float64, bool:
			text = fmt.Sprint(v)
		case nil:
			text = ""
		default:
			return nil, fmt.Errorf("%w: value for %q is not text", ErrMalformedOutput, k)
		}
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		repl[key] = text
	}
	return repl, nil
}

// pairReplacements reads a list of original/modified objects. The first
// pair for an original text wins.
func pairReplacements(items []any) (substitute.Replacements, error) {
	repl := make(substitute.Replacements, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not an object", ErrMalformedOutput, i)
		}
		o, m, ok := pair(obj)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not an original/modified pair", ErrMalformedOutput, i)
		}
		if _, dup := repl[o]; o == "" || dup {
			continue
		}
		repl[o] = m
	}
	return repl, nil
}

// IsMalformed reports whether err comes from undecodable model output.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedOutput)
}

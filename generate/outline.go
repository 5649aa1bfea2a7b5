package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tsawler/slidesmith/match"
)

const outlineSystemPrompt = `You are an expert presentation designer. Produce a presentation outline as a JSON object with a "slides" array.
Each entry has "slide_number" (starting at 1), "section" (a short lower-case label such as introduction, problem, solution, timeline or next_steps), "description" (one sentence describing the slide) and "keywords" (three to five search keywords).`

var outlineSchema = Schema{
	Name:        "presentation_outline",
	Description: "Ordered outline sections of a presentation",
	Definition: json.RawMessage(`{
  "type": "object",
  "properties": {
    "slides": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "slide_number": {"type": "integer"},
          "section": {"type": "string"},
          "description": {"type": "string"},
          "keywords": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["slide_number", "section", "description", "keywords"],
        "additionalProperties": false
      }
    }
  },
  "required": ["slides"],
  "additionalProperties": false
}`),
}

func outlinePrompt(b Brief) string {
	slides := "8-12"
	if b.NumSlides > 0 {
		slides = fmt.Sprint(b.NumSlides)
	}
	extra := b.AdditionalContext
	if extra == "" {
		extra = "N/A"
	}
	var sb strings.Builder
	sb.WriteString("Create a presentation outline for:\n")
	fmt.Fprintf(&sb, "Title: %s\n", b.Title)
	fmt.Fprintf(&sb, "Client: %s\n", b.ClientName)
	fmt.Fprintf(&sb, "Industry: %s\n", b.Industry)
	fmt.Fprintf(&sb, "Description: %s\n", b.Description)
	fmt.Fprintf(&sb, "Target Audience: %s\n", b.TargetAudience)
	fmt.Fprintf(&sb, "Key Messages: %s\n", strings.Join(b.KeyMessages, ", "))
	fmt.Fprintf(&sb, "Number of Slides: %s\n", slides)
	if len(b.PreferredSlideTypes) > 0 {
		fmt.Fprintf(&sb, "Preferred Slide Types: %s\n", strings.Join(b.PreferredSlideTypes, ", "))
	}
	fmt.Fprintf(&sb, "Tone: %s\n", b.tone())
	fmt.Fprintf(&sb, "Additional Context: %s", extra)
	return sb.String()
}

// Outline asks the completer for the outline sections of a presentation.
// Sections come back in presentation order with numbers filled in.
func Outline(ctx context.Context, c Completer, b Brief) ([]match.Section, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	reply, err := c.CompleteStructured(ctx, outlineSystemPrompt, outlinePrompt(b), outlineSchema)
	if err != nil {
		return nil, fmt.Errorf("generating outline: %w", err)
	}

	var resp struct {
		Slides []match.Section `json:"slides"`
	}
	if err := decodeJSON(reply, &resp); err != nil {
		return nil, fmt.Errorf("decoding outline: %w", err)
	}
	if len(resp.Slides) == 0 {
		return nil, fmt.Errorf("decoding outline: %w: no sections", ErrMalformedOutput)
	}

	sections := make([]match.Section, 0, len(resp.Slides))
	for i, s := range resp.Slides {
		s.Label = strings.TrimSpace(s.Label)
		if s.Label == "" {
			continue
		}
		if s.Number == 0 {
			s.Number = i + 1
		}
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("decoding outline: %w: all sections unlabeled", ErrMalformedOutput)
	}
	return sections, nil
}

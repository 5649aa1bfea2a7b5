// Package generate asks a completion provider for presentation outlines and
// for replacement text for matched slides.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Completer is a chat completion provider.
type Completer interface {
	// Complete returns the model's reply as text.
	Complete(ctx context.Context, system, user string) (string, error)
	// CompleteStructured returns JSON text conforming to schema.
	CompleteStructured(ctx context.Context, system, user string, schema Schema) (string, error)
}

// Schema is a named JSON schema for structured completions.
type Schema struct {
	Name        string
	Description string
	Definition  json.RawMessage
}

// ErrMalformedOutput is wrapped by errors for replies that could not be
// decoded even after repair.
var ErrMalformedOutput = errors.New("malformed model output")

// Brief describes the presentation to produce.
type Brief struct {
	Title               string   `json:"title" yaml:"title"`
	ClientName          string   `json:"client_name" yaml:"client_name"`
	Industry            string   `json:"industry" yaml:"industry"`
	Description         string   `json:"description" yaml:"description"`
	TargetAudience      string   `json:"target_audience" yaml:"target_audience"`
	KeyMessages         []string `json:"key_messages" yaml:"key_messages"`
	NumSlides           int      `json:"num_slides,omitempty" yaml:"num_slides,omitempty"`
	PreferredSlideTypes []string `json:"preferred_slide_types,omitempty" yaml:"preferred_slide_types,omitempty"`
	Tone                string   `json:"tone,omitempty" yaml:"tone,omitempty"`
	AdditionalContext   string   `json:"additional_context,omitempty" yaml:"additional_context,omitempty"`
}

// Validate checks the required fields.
func (b Brief) Validate() error {
	var missing []string
	if strings.TrimSpace(b.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(b.Description) == "" {
		missing = append(missing, "description")
	}
	if b.NumSlides < 0 {
		return fmt.Errorf("brief: num_slides must not be negative")
	}
	if len(missing) > 0 {
		return fmt.Errorf("brief: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (b Brief) tone() string {
	if b.Tone == "" {
		return "Professional"
	}
	return b.Tone
}

// decodeJSON unmarshals a model reply into v. Code fences are stripped and
// malformed JSON is repaired once before giving up.
func decodeJSON(reply string, v any) error {
	text := stripFences(reply)
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}
	repaired, rerr := jsonrepair.JSONRepair(text)
	if rerr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // language tag
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

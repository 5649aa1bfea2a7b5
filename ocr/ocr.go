//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Enabled reports whether Tesseract support is compiled in.
const Enabled = true

// Client wraps Tesseract for OCR operations. A Client serializes calls;
// Tesseract handles are not safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a new OCR client for the given languages ("eng" when none are
// given). The client should be closed when no longer needed.
func New(languages ...string) (*Client, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting OCR language: %w", err)
		}
	}
	return &Client{client: client}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// Recognize performs OCR on image data.
// Returns the recognized text with leading/trailing whitespace trimmed.
func (c *Client) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return "", fmt.Errorf("OCR client closed")
	}

	if err := c.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

//go:build !ocr

package ocr

import "context"

// Enabled reports whether Tesseract support is compiled in.
const Enabled = false

// Client is a stub OCR client that returns errors for all operations.
type Client struct{}

// New returns an error indicating OCR support is not enabled.
// To enable OCR, rebuild with: go build -tags ocr
func New(languages ...string) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op for the stub client.
// It is safe to call on a nil client.
func (c *Client) Close() error {
	return nil
}

// Recognize returns an error indicating OCR support is not enabled.
func (c *Client) Recognize(ctx context.Context, image []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

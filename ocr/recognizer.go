// Package ocr recognizes text in slide pictures.
//
// The Tesseract-backed client is compiled in with the "ocr" build tag and
// requires Tesseract to be installed. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
//
// Without the tag, New returns ErrOCRNotEnabled.
package ocr

import (
	"context"
	"errors"
)

// Recognizer extracts text from encoded image data (PNG, JPEG, TIFF, ...).
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// ErrOCRNotEnabled is returned when OCR functions are called but OCR support
// was not compiled in. Rebuild with -tags ocr to enable OCR support.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, image []byte) (string, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

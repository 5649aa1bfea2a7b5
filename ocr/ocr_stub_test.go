//go:build !ocr

package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestNewReturnsError(t *testing.T) {
	client, err := New("eng")
	if err == nil {
		t.Error("Expected error from New() when OCR is disabled")
	}
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Expected ErrOCRNotEnabled, got: %v", err)
	}
	if client != nil {
		t.Error("Expected nil client when OCR is disabled")
	}
	if Enabled {
		t.Error("Enabled must be false without the ocr tag")
	}
}

func TestStubRecognize(t *testing.T) {
	var client *Client
	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client should not error: %v", err)
	}
	if _, err := client.Recognize(context.Background(), nil); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Recognize error = %v", err)
	}
}

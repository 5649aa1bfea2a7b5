// Package format provides deck container detection for slidesmith.
package format

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format represents a detected container format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PPTX indicates a PowerPoint presentation (.pptx).
	PPTX
	// POTX indicates a PowerPoint template (.potx).
	POTX
	// PPSX indicates a PowerPoint slide show (.ppsx).
	PPSX
	// PPTM indicates a macro-enabled presentation (.pptm).
	PPTM
	// PPT indicates a legacy binary presentation (.ppt).
	PPT
	// DOCX indicates a Word document, a common wrong upload.
	DOCX
	// XLSX indicates an Excel workbook, a common wrong upload.
	XLSX
	// PDF indicates a PDF document.
	PDF
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PPTX:
		return "PPTX"
	case POTX:
		return "POTX"
	case PPSX:
		return "PPSX"
	case PPTM:
		return "PPTM"
	case PPT:
		return "PPT"
	case DOCX:
		return "DOCX"
	case XLSX:
		return "XLSX"
	case PDF:
		return "PDF"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case Unknown:
		return ""
	default:
		return "." + strings.ToLower(f.String())
	}
}

// Supported reports whether the deck codec can read the format. All
// PresentationML packages share the same part layout.
func (f Format) Supported() bool {
	switch f {
	case PPTX, POTX, PPSX, PPTM:
		return true
	}
	return false
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pptx":
		return PPTX
	case ".potx":
		return POTX
	case ".ppsx":
		return PPSX
	case ".pptm":
		return PPTM
	case ".ppt", ".pot", ".pps":
		return PPT
	case ".docx":
		return DOCX
	case ".xlsx":
		return XLSX
	case ".pdf":
		return PDF
	default:
		return Unknown
	}
}

var (
	magicZIP = []byte{0x50, 0x4B, 0x03, 0x04}
	magicCFB = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	magicPDF = []byte("%PDF")
)

// DetectFromMagic checks file magic bytes to determine format.
// ZIP archives return Unknown; use DetectFromReader to look inside them.
// A compound file is reported as PPT since only legacy presentations are
// expected in this position.
func DetectFromMagic(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, magicPDF):
		return PDF
	case bytes.HasPrefix(data, magicCFB):
		return PPT
	}
	return Unknown
}

// DetectFromReader inspects the content to determine format. PresentationML
// variants are told apart by the content type of the main part.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, 8)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	if bytes.HasPrefix(magic, magicZIP) {
		return detectZIPFormat(r, size)
	}
	return DetectFromMagic(magic), nil
}

// DetectBytes is DetectFromReader over an in-memory document.
func DetectBytes(data []byte) (Format, error) {
	return DetectFromReader(bytes.NewReader(data), int64(len(data)))
}

// mainContentTypes maps the content type of ppt/presentation.xml to a format.
var mainContentTypes = map[string]Format{
	"application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml": PPTX,
	"application/vnd.openxmlformats-officedocument.presentationml.template.main+xml":     POTX,
	"application/vnd.openxmlformats-officedocument.presentationml.slideshow.main+xml":    PPSX,
	"application/vnd.ms-powerpoint.presentation.macroEnabled.main+xml":                   PPTM,
	"application/vnd.ms-powerpoint.template.macroEnabled.main+xml":                       PPTM,
	"application/vnd.ms-powerpoint.slideshow.macroEnabled.main+xml":                      PPTM,
}

// detectZIPFormat inspects a ZIP archive for Office Open XML markers.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	var contentTypes *zip.File
	hasPresentation := false
	for _, f := range zr.File {
		switch {
		case f.Name == "[Content_Types].xml":
			contentTypes = f
		case f.Name == "ppt/presentation.xml":
			hasPresentation = true
		case strings.HasPrefix(f.Name, "word/"):
			return DOCX, nil
		case strings.HasPrefix(f.Name, "xl/"):
			return XLSX, nil
		}
	}
	if contentTypes == nil || !hasPresentation {
		return Unknown, nil
	}

	rc, err := contentTypes.Open()
	if err != nil {
		return Unknown, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, 1<<20))
	if err != nil {
		return Unknown, err
	}
	ct := string(data)
	for typ, f := range mainContentTypes {
		if strings.Contains(ct, typ) {
			return f, nil
		}
	}
	// A presentation part with an unusual content type is still a deck.
	return PPTX, nil
}

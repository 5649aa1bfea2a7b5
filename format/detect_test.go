package format

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/tsawler/slidesmith/internal/testdeck"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PPTX, "PPTX"},
		{POTX, "POTX"},
		{PPSX, "PPSX"},
		{PPTM, "PPTM"},
		{PPT, "PPT"},
		{DOCX, "DOCX"},
		{Unknown, "Unknown"},
		{Format(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_Extension(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PPTX, ".pptx"},
		{POTX, ".potx"},
		{PPT, ".ppt"},
		{Unknown, ""},
	}

	for _, tt := range tests {
		if got := tt.format.Extension(); got != tt.want {
			t.Errorf("Format(%d).Extension() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_Supported(t *testing.T) {
	for _, f := range []Format{PPTX, POTX, PPSX, PPTM} {
		if !f.Supported() {
			t.Errorf("%s should be supported", f)
		}
	}
	for _, f := range []Format{Unknown, PPT, DOCX, XLSX, PDF} {
		if f.Supported() {
			t.Errorf("%s should not be supported", f)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"deck.pptx", PPTX},
		{"DECK.PPTX", PPTX},
		{"brand.potx", POTX},
		{"show.ppsx", PPSX},
		{"macro.pptm", PPTM},
		{"old.ppt", PPT},
		{"report.docx", DOCX},
		{"paper.pdf", PDF},
		{"notes.txt", Unknown},
		{"noext", Unknown},
	}

	for _, tt := range tests {
		if got := Detect(tt.filename); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"pdf", []byte("%PDF-1.7\n"), PDF},
		{"cfb", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}, PPT},
		{"zip", []byte{0x50, 0x4B, 0x03, 0x04}, Unknown},
		{"short", []byte{0x50}, Unknown},
		{"text", []byte("hello"), Unknown},
	}

	for _, tt := range tests {
		if got := DetectFromMagic(tt.data); got != tt.want {
			t.Errorf("%s: DetectFromMagic() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func zipWith(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectBytes(t *testing.T) {
	template := zipWith(t, map[string]string{
		"[Content_Types].xml":  `<Types><Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.template.main+xml"/></Types>`,
		"ppt/presentation.xml": `<p:presentation/>`,
	})
	docx := zipWith(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   `<w:document/>`,
	})
	plainZip := zipWith(t, map[string]string{"readme.txt": "hi"})

	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"pptx", testdeck.Numbered(1).Bytes(), PPTX},
		{"potx", template, POTX},
		{"docx", docx, DOCX},
		{"plain zip", plainZip, Unknown},
		{"pdf", []byte("%PDF-1.4"), PDF},
		{"empty", nil, Unknown},
	}

	for _, tt := range tests {
		got, err := DetectBytes(tt.data)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: DetectBytes() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

package service

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestExtractorValidate(t *testing.T) {
	extractor := NewExtractor(1024)

	tests := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		wantErr     error
	}{
		{"txt ok", "notes.txt", "text/plain", 100, nil},
		{"pdf ok", "contract.pdf", "application/pdf", 100, nil},
		{"docx ok", "lease.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", 100, nil},
		{"uppercase extension", "CONTRACT.PDF", "application/pdf", 100, nil},
		{"empty content type accepted", "notes.txt", "", 100, nil},
		{"octet-stream accepted", "contract.pdf", "application/octet-stream", 100, nil},
		{"content type with charset", "notes.txt", "text/plain; charset=utf-8", 100, nil},
		{"size at limit", "notes.txt", "text/plain", 1024, nil},
		{"size over limit", "notes.txt", "text/plain", 1025, ErrInvalidInput},
		{"unsupported extension", "image.png", "image/png", 100, ErrInvalidInput},
		{"no extension", "README", "text/plain", 100, ErrInvalidInput},
		{"mismatched content type", "notes.txt", "application/pdf", 100, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := extractor.Validate(tt.filename, tt.contentType, tt.size)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExtractorExtractText(t *testing.T) {
	extractor := NewExtractor(1024 * 1024)

	text, err := extractor.Extract("notes.txt", []byte("This agreement is binding."))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "This agreement is binding." {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestExtractorExtractEmptyText(t *testing.T) {
	extractor := NewExtractor(1024 * 1024)

	_, err := extractor.Extract("empty.txt", []byte("   \n\t  "))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Expected ErrExtractionFailed, got %v", err)
	}
}

// buildDOCX assembles a minimal OOXML container with the given paragraphs.
func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	body.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("Failed to create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(body.String())); err != nil {
		t.Fatalf("Failed to write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractorExtractDOCX(t *testing.T) {
	extractor := NewExtractor(1024 * 1024)

	data := buildDOCX(t, "First paragraph.", "Second paragraph.")
	text, err := extractor.Extract("contract.docx", data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(text, "First paragraph.") || !strings.Contains(text, "Second paragraph.") {
		t.Errorf("Missing paragraph text: %q", text)
	}
	// Paragraph boundaries become newlines
	if !strings.Contains(text, "First paragraph.\n") {
		t.Errorf("Expected newline after paragraph: %q", text)
	}
}

func TestExtractorExtractDOCXMissingDocumentXML(t *testing.T) {
	extractor := NewExtractor(1024 * 1024)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("other.xml")
	f.Write([]byte("<x/>"))
	zw.Close()

	_, err := extractor.Extract("contract.docx", buf.Bytes())
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractorExtractLegacyDoc(t *testing.T) {
	extractor := NewExtractor(1024 * 1024)

	// Legacy binary .doc files are not zip containers
	_, err := extractor.Extract("old.doc", []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractorExtractInvalidPDF(t *testing.T) {
	extractor := NewExtractor(1024 * 1024)

	_, err := extractor.Extract("broken.pdf", []byte("not a pdf at all"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractorExtractUnsupportedFormat(t *testing.T) {
	extractor := NewExtractor(1024 * 1024)

	_, err := extractor.Extract("image.png", []byte("png bytes"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

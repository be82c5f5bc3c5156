package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// allowedExtensions maps accepted upload extensions to their expected MIME types.
var allowedExtensions = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".txt":  {"text/plain"},
}

// Extractor validates uploaded files and extracts their text content.
type Extractor struct {
	maxSize int64
}

func NewExtractor(maxSize int64) *Extractor {
	return &Extractor{maxSize: maxSize}
}

// Validate checks the file against the extension allow-list, the declared
// content type and the size ceiling. Returns ErrInvalidInput on violation.
func (e *Extractor) Validate(filename, contentType string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	expected, ok := allowedExtensions[ext]
	if !ok {
		return fmt.Errorf("%w: only PDF, DOC, DOCX and TXT files are supported", ErrInvalidInput)
	}

	if size > e.maxSize {
		return fmt.Errorf("%w: file too large, maximum size is %d bytes", ErrInvalidInput, e.maxSize)
	}

	// Browsers sometimes send octet-stream for valid files; anything else
	// must match the extension's MIME type regardless of what the extension
	// claims.
	if contentType != "" && contentType != "application/octet-stream" {
		base := contentType
		if i := strings.Index(base, ";"); i >= 0 {
			base = strings.TrimSpace(base[:i])
		}
		matched := false
		for _, want := range expected {
			if base == want {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("%w: content type %q does not match %s file", ErrInvalidInput, base, ext)
		}
	}

	return nil
}

// Extract returns the plain text of the uploaded file. Returns
// ErrExtractionFailed when the file cannot be parsed or yields no text
// (encrypted, corrupt, or a legacy binary .doc).
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var text string
	var err error
	switch ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".doc", ".docx":
		text, err = extractDOCX(data)
	case ".txt":
		text = strings.ToValidUTF8(string(data), "")
	default:
		return "", fmt.Errorf("%w: unsupported file format %q", ErrInvalidInput, ext)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text content found in %s", ErrExtractionFailed, filename)
	}

	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	content, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	text, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	return string(text), nil
}

// extractDOCX reads word/document.xml out of the OOXML zip container and
// collects the text runs. Legacy binary .doc files fail the zip open and are
// reported as extraction failures.
func extractDOCX(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a valid Word document: %v", ErrExtractionFailed, err)
	}

	for _, file := range zipReader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		defer rc.Close()

		return parseDocumentXML(rc)
	}

	return "", fmt.Errorf("%w: word/document.xml not found in archive", ErrExtractionFailed)
}

func parseDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}

// Package extractor converts uploaded document bytes into plain text.
//
// Extraction is deliberately structure-light: headings come out as their own
// lines and paragraphs keep their line breaks, so downstream structure
// detection sees the same text a human would. Anything richer (styles,
// tables, images) is dropped.
package extractor

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrNoText reports that a document parsed fine but contained nothing
// extractable.
var ErrNoText = errors.New("no extractable text")

// ExtractionError wraps a failure to pull text out of a document.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor pulls plain text from one document format.
type Extractor interface {
	Extract(r io.Reader, filename string) (string, error)
}

// SupportedExtensions lists the file extensions this service accepts.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tune format-specific extraction behavior.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the extractor matching a filename's extension.
func (o Options) ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: o.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// Extract dispatches on the filename and returns the document's plain text.
// Parse failures and empty results both come back as *ExtractionError.
func (o Options) Extract(r io.Reader, filename string) (string, error) {
	ex, err := o.ForFile(filename)
	if err != nil {
		return "", &ExtractionError{Filename: filename, Err: err}
	}
	text, err := ex.Extract(r, filename)
	if err != nil {
		return "", &ExtractionError{Filename: filename, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Filename: filename, Err: ErrNoText}
	}
	return text, nil
}

var defaultOptions = Options{PDFFallbackPdftotext: true}

// ForFile returns the extractor for a filename using default options.
func ForFile(filename string) (Extractor, error) {
	return defaultOptions.ForFile(filename)
}

// Extract pulls plain text from a document using default options.
func Extract(r io.Reader, filename string) (string, error) {
	return defaultOptions.Extract(r, filename)
}

// Supported reports whether the filename's extension has an extractor.
func Supported(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

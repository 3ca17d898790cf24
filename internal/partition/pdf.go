// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package partition

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"
)

// PDFDocument is a Document backed by a PDF file. pdfcpu counts pages and
// writes sub-documents; tabula extracts page text.
type PDFDocument struct {
	path   string
	pages  int
	conf   *model.Configuration
	reader *reader.Reader
}

// OpenPDF opens the PDF at path. Non-PDF input and files pdfcpu cannot parse
// fail with ErrInvalidInputType. The caller must Close the document.
func OpenPDF(path string) (*PDFDocument, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInputType, filepath.Base(path))
	}

	conf := model.NewDefaultConfiguration()
	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInputType, filepath.Base(path), err)
	}

	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for text extraction: %w", path, err)
	}

	return &PDFDocument{path: path, pages: pages, conf: conf, reader: r}, nil
}

// Path returns the source file path.
func (d *PDFDocument) Path() string { return d.path }

// PageCount implements Document.
func (d *PDFDocument) PageCount() int { return d.pages }

// PageText implements Document.
func (d *PDFDocument) PageText(index int) (string, error) {
	if index < 0 || index >= d.pages {
		return "", fmt.Errorf("page index %d out of range [0, %d)", index, d.pages)
	}
	// FromReader leaves the shared reader open after Text returns.
	text, _, err := tabula.FromReader(d.reader).Pages(index + 1).Text()
	if err != nil {
		return "", err
	}
	return text, nil
}

// WriteSubDocument implements Document.
func (d *PDFDocument) WriteSubDocument(start, end int, path string) error {
	if start < 0 || end > d.pages || start >= end {
		return fmt.Errorf("invalid page range [%d, %d) for %d pages", start, end, d.pages)
	}
	selection := []string{fmt.Sprintf("%d-%d", start+1, end)}
	if err := api.TrimFile(d.path, path, selection, d.conf); err != nil {
		return fmt.Errorf("trimming pages %s: %w", selection[0], err)
	}
	return nil
}

// Close releases the text extraction reader.
func (d *PDFDocument) Close() error {
	if d.reader == nil {
		return nil
	}
	err := d.reader.Close()
	d.reader = nil
	return err
}

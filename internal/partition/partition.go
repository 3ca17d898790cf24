// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package partition splits a paginated document into consecutive fixed-size
// page groups and materializes each group as a sub-document and a text blob.
package partition

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// MinPages is the smallest page count a document may have.
const MinPages = 2

var (
	// ErrInsufficientPages is returned when a document has fewer than MinPages pages.
	ErrInsufficientPages = errors.New("document needs at least 2 pages")

	// ErrInvalidInputType is returned when the input is not a supported document.
	ErrInvalidInputType = errors.New("invalid input type: only PDF files are supported")

	// ErrInvalidGroupSize is returned for a non-positive group size.
	ErrInvalidGroupSize = errors.New("group size must be positive")
)

// Document is a read-only paginated source. Page indices are 0-based.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// PageText returns the extracted text of one page.
	PageText(index int) (string, error)

	// WriteSubDocument writes a new document holding pages [start, end) in
	// their original order to path.
	WriteSubDocument(start, end int, path string) error
}

// Group is a contiguous page range [Start, End) with a 1-based Index.
type Group struct {
	Index int
	Start int
	End   int
}

// Len returns the number of pages in the group.
func (g Group) Len() int { return g.End - g.Start }

// Name returns the base name shared by the group's side artifacts.
func (g Group) Name() string { return fmt.Sprintf("group_%d", g.Index) }

// Groups lazily yields the groups covering [0, pageCount) in ascending
// order. Every group holds groupSize pages except possibly the last.
// Nothing is yielded for a non-positive groupSize.
func Groups(pageCount, groupSize int) iter.Seq[Group] {
	return func(yield func(Group) bool) {
		if groupSize < 1 {
			return
		}
		index := 1
		for start := 0; start < pageCount; start += groupSize {
			end := min(start+groupSize, pageCount)
			if !yield(Group{Index: index, Start: start, End: end}) {
				return
			}
			index++
		}
	}
}

// GroupCount returns ceil(pageCount / groupSize).
func GroupCount(pageCount, groupSize int) int {
	if groupSize < 1 || pageCount < 1 {
		return 0
	}
	return (pageCount + groupSize - 1) / groupSize
}

// ExtractText concatenates the text of every page in g, each followed by a
// newline.
func ExtractText(doc Document, g Group) (string, error) {
	var b strings.Builder
	for i := g.Start; i < g.End; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", i+1, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// TextExtractor produces the text of a page group. subDocPath is the group's
// already written sub-document.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document, g Group, subDocPath string) (string, error)
}

// PageTextExtractor extracts text page by page through the Document.
type PageTextExtractor struct{}

// Extract implements TextExtractor.
func (PageTextExtractor) Extract(_ context.Context, doc Document, g Group, _ string) (string, error) {
	return ExtractText(doc, g)
}

// Material holds the side artifacts written for one group.
type Material struct {
	Group       Group
	SubDocument string
	TextFile    string
	Text        string
}

// Partitioner drives grouping and materialization for one document.
type Partitioner struct {
	doc       Document
	groupSize int
	extractor TextExtractor
}

// New validates the document and group size. It fails before any group is
// produced when the document has fewer than MinPages pages.
func New(doc Document, groupSize int, extractor TextExtractor) (*Partitioner, error) {
	if groupSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGroupSize, groupSize)
	}
	if n := doc.PageCount(); n < MinPages {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientPages, n)
	}
	if extractor == nil {
		extractor = PageTextExtractor{}
	}
	return &Partitioner{doc: doc, groupSize: groupSize, extractor: extractor}, nil
}

// PageCount returns the page count of the underlying document.
func (p *Partitioner) PageCount() int { return p.doc.PageCount() }

// GroupCount returns the number of groups the document splits into.
func (p *Partitioner) GroupCount() int { return GroupCount(p.doc.PageCount(), p.groupSize) }

// Groups yields the document's groups in ascending order.
func (p *Partitioner) Groups() iter.Seq[Group] {
	return Groups(p.doc.PageCount(), p.groupSize)
}

// Materialize writes <dir>/group_<k>.pdf and <dir>/group_<k>.txt for g and
// returns their paths along with the extracted text.
func (p *Partitioner) Materialize(ctx context.Context, g Group, dir string) (Material, error) {
	m := Material{
		Group:       g,
		SubDocument: filepath.Join(dir, g.Name()+".pdf"),
		TextFile:    filepath.Join(dir, g.Name()+".txt"),
	}

	if err := p.doc.WriteSubDocument(g.Start, g.End, m.SubDocument); err != nil {
		return m, fmt.Errorf("writing %s: %w", filepath.Base(m.SubDocument), err)
	}

	text, err := p.extractor.Extract(ctx, p.doc, g, m.SubDocument)
	if err != nil {
		return m, fmt.Errorf("extracting %s: %w", g.Name(), err)
	}
	m.Text = text

	if err := os.WriteFile(m.TextFile, []byte(text), 0o644); err != nil {
		return m, fmt.Errorf("writing %s: %w", filepath.Base(m.TextFile), err)
	}
	return m, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package partition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocument holds page texts in memory. Sub-documents are written as the
// list of their page texts, one per line.
type fakeDocument struct {
	pages   []string
	failAt  int // page index whose text extraction fails; -1 for none
	written [][2]int
}

func newFakeDocument(n int) *fakeDocument {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf("page %d", i+1)
	}
	return &fakeDocument{pages: pages, failAt: -1}
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) PageText(index int) (string, error) {
	if index == d.failAt {
		return "", errors.New("unreadable page")
	}
	return d.pages[index], nil
}

func (d *fakeDocument) WriteSubDocument(start, end int, path string) error {
	d.written = append(d.written, [2]int{start, end})
	return os.WriteFile(path, []byte(strings.Join(d.pages[start:end], "\n")), 0o644)
}

func collect(pageCount, groupSize int) []Group {
	var out []Group
	for g := range Groups(pageCount, groupSize) {
		out = append(out, g)
	}
	return out
}

func sizes(groups []Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.Len()
	}
	return out
}

func TestGroups(t *testing.T) {
	tests := []struct {
		name      string
		pages     int
		groupSize int
		want      []int
	}{
		{"two pages fit one group", 2, 4, []int{2}},
		{"nine pages by four", 9, 4, []int{4, 4, 1}},
		{"exact multiple", 8, 4, []int{4, 4}},
		{"single page groups", 3, 1, []int{1, 1, 1}},
		{"group larger than document", 5, 10, []int{5}},
		{"zero group size yields nothing", 5, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(tt.pages, tt.groupSize)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, sizes(got))
			for i, g := range got {
				assert.Equal(t, i+1, g.Index)
			}
		})
	}
}

func TestGroups_CoverDocument(t *testing.T) {
	for n := MinPages; n <= 40; n++ {
		for s := 1; s <= 12; s++ {
			groups := collect(n, s)
			wantCount := (n + s - 1) / s
			require.Len(t, groups, wantCount, "n=%d s=%d", n, s)
			require.Equal(t, wantCount, GroupCount(n, s))

			next := 0
			for i, g := range groups {
				require.Equal(t, next, g.Start, "gap or overlap at n=%d s=%d group %d", n, s, g.Index)
				if i < len(groups)-1 {
					require.Equal(t, s, g.Len())
				} else {
					require.Equal(t, n-s*(wantCount-1), g.Len())
				}
				next = g.End
			}
			require.Equal(t, n, next)
		}
	}
}

func TestGroups_StopsEarly(t *testing.T) {
	var seen int
	for g := range Groups(100, 4) {
		seen++
		if g.Index == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		pages     int
		groupSize int
		wantErr   error
	}{
		{"valid", 5, 4, nil},
		{"minimum pages", 2, 4, nil},
		{"one page rejected", 1, 4, ErrInsufficientPages},
		{"empty document rejected", 0, 4, ErrInsufficientPages},
		{"zero group size rejected", 5, 0, ErrInvalidGroupSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(newFakeDocument(tt.pages), tt.groupSize, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pages, p.PageCount())
		})
	}
}

func TestExtractText(t *testing.T) {
	doc := newFakeDocument(9)

	text, err := ExtractText(doc, Group{Index: 3, Start: 8, End: 9})
	require.NoError(t, err)
	assert.Equal(t, "page 9\n", text)

	text, err = ExtractText(doc, Group{Index: 1, Start: 0, End: 4})
	require.NoError(t, err)
	assert.Equal(t, "page 1\npage 2\npage 3\npage 4\n", text)

	doc.failAt = 2
	_, err = ExtractText(doc, Group{Index: 1, Start: 0, End: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 3")
}

func TestMaterialize(t *testing.T) {
	dir := t.TempDir()
	doc := newFakeDocument(9)
	p, err := New(doc, 4, nil)
	require.NoError(t, err)

	var materials []Material
	for g := range p.Groups() {
		m, err := p.Materialize(context.Background(), g, dir)
		require.NoError(t, err)
		materials = append(materials, m)
	}
	require.Len(t, materials, 3)
	assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 9}}, doc.written)

	last := materials[2]
	assert.Equal(t, filepath.Join(dir, "group_3.pdf"), last.SubDocument)
	assert.Equal(t, filepath.Join(dir, "group_3.txt"), last.TextFile)
	assert.Equal(t, "page 9\n", last.Text)

	data, err := os.ReadFile(materials[1].TextFile)
	require.NoError(t, err)
	assert.Equal(t, "page 5\npage 6\npage 7\npage 8\n", string(data))
}

func TestMaterialize_WriteFailure(t *testing.T) {
	p, err := New(newFakeDocument(4), 2, nil)
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err = p.Materialize(context.Background(), Group{Index: 1, Start: 0, End: 2}, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group_1.pdf")
}

// fakeRuntime implements container.Runtime for the markitdown extractor.
type fakeRuntime struct {
	hasImage bool
	output   string
	runErr   error
}

func (f *fakeRuntime) Name() string { return "docker" }

func (f *fakeRuntime) Available(context.Context) bool { return true }

func (f *fakeRuntime) ImageExists(context.Context, string) error {
	if f.hasImage {
		return nil
	}
	return errors.New("no such image")
}

func (f *fakeRuntime) Run(_ context.Context, _ string, stdin io.Reader, stdout io.Writer) error {
	if f.runErr != nil {
		return f.runErr
	}
	if _, err := io.ReadAll(stdin); err != nil {
		return err
	}
	_, err := io.WriteString(stdout, f.output)
	return err
}

func TestMarkitdownExtractor(t *testing.T) {
	ctx := context.Background()

	_, err := NewMarkitdownExtractor(ctx, &fakeRuntime{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "markitdown image not available")

	ext, err := NewMarkitdownExtractor(ctx, &fakeRuntime{hasImage: true, output: "# Slide source"})
	require.NoError(t, err)

	dir := t.TempDir()
	p, err := New(newFakeDocument(3), 4, ext)
	require.NoError(t, err)

	m, err := p.Materialize(ctx, Group{Index: 1, Start: 0, End: 3}, dir)
	require.NoError(t, err)
	assert.Equal(t, "# Slide source\n", m.Text)

	empty, err := NewMarkitdownExtractor(ctx, &fakeRuntime{hasImage: true})
	require.NoError(t, err)
	p, err = New(newFakeDocument(3), 4, empty)
	require.NoError(t, err)
	_, err = p.Materialize(ctx, Group{Index: 1, Start: 0, End: 3}, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty output")
}

func TestOpenPDF_RejectsInvalidInput(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o644))
	_, err := OpenPDF(txt)
	assert.ErrorIs(t, err, ErrInvalidInputType)

	fake := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(fake, []byte("this is not a pdf"), 0o644))
	_, err = OpenPDF(fake)
	assert.ErrorIs(t, err, ErrInvalidInputType)
}

// Package pdf wraps the PDF libraries behind the few operations the
// splitter needs: page count, bookmark outline, per-page text, and
// extraction of a contiguous page range into a standalone document.
package pdf

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	textpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// ErrPageOutOfRange is returned when a page or page range falls outside the document.
var ErrPageOutOfRange = errors.New("page out of range")

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	api.DisableConfigDir()
}

// OutlineEntry is one flattened bookmark.
type OutlineEntry struct {
	Level int    // Nesting depth, 1 for top-level entries
	Title string // Bookmark title
	Page  int    // Target page (1-indexed, 0 if the bookmark has no page destination)
}

// Document is an open PDF file. The underlying file handle is shared by
// every read and stays open until Close.
type Document struct {
	path  string
	f     *os.File
	size  int64
	pages int
	text  *textpdf.Reader
}

// Open opens the PDF at path and reads its page count.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get page count for %s: %w", path, err)
	}

	return &Document{
		path:  path,
		f:     f,
		size:  fi.Size(),
		pages: pageCount,
	}, nil
}

// CountPages returns the page count of the PDF at path.
func CountPages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()
	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count for %s: %w", path, err)
	}
	return n, nil
}

// Path returns the path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pages
}

// Outline returns the bookmark tree flattened depth-first, so entries
// appear in reading order with their nesting level.
// A document without bookmarks returns an empty slice.
func (d *Document) Outline() ([]OutlineEntry, error) {
	if err := d.rewind(); err != nil {
		return nil, err
	}
	bms, err := api.Bookmarks(d.f, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}

	var entries []OutlineEntry
	flatten(bms, 1, &entries)
	return entries, nil
}

func flatten(bms []pdfcpu.Bookmark, level int, out *[]OutlineEntry) {
	for _, bm := range bms {
		*out = append(*out, OutlineEntry{
			Level: level,
			Title: strings.TrimSpace(bm.Title),
			Page:  bm.PageFrom,
		})
		if len(bm.Kids) > 0 {
			flatten(bm.Kids, level+1, out)
		}
	}
}

// PageLines returns the text lines of a 0-indexed page, top to bottom.
// Glyphs are grouped into lines by their baseline, so lines positioned
// with Td, TD, T* or Tm all come out separately. Pages without a text
// layer return no lines.
func (d *Document) PageLines(page int) (lines []string, err error) {
	if page < 0 || page >= d.pages {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page+1, d.pages)
	}
	r, err := d.textReader()
	if err != nil {
		return nil, err
	}

	p := r.Page(page + 1)
	if p.V.IsNull() {
		return nil, nil
	}

	// The content interpreter panics on malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			lines = nil
			err = fmt.Errorf("failed to extract text from page %d: %v", page+1, rec)
		}
	}()
	return groupLines(p.Content().Text), nil
}

type textLine struct {
	y     float64
	tol   float64
	glyph []textpdf.Text
}

// groupLines assigns each glyph to the line whose baseline is within half
// a font size of its own, then orders lines top to bottom and glyphs left
// to right. Glyphs at the same x keep content stream order.
func groupLines(texts []textpdf.Text) []string {
	var rows []*textLine
	for _, t := range texts {
		var row *textLine
		for _, r := range rows {
			if math.Abs(r.y-t.Y) <= r.tol {
				row = r
				break
			}
		}
		if row == nil {
			row = &textLine{y: t.Y, tol: math.Max(t.FontSize/2, 1)}
			rows = append(rows, row)
		}
		row.glyph = append(row.glyph, t)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row.glyph, func(i, j int) bool { return row.glyph[i].X < row.glyph[j].X })
		var b strings.Builder
		for _, t := range row.glyph {
			b.WriteString(t.S)
		}
		lines = append(lines, b.String())
	}
	return lines
}

// textReader lazily parses the document for text extraction.
func (d *Document) textReader() (r *textpdf.Reader, err error) {
	if d.text != nil {
		return d.text, nil
	}
	// The text parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("failed to parse PDF text layer: %v", rec)
		}
	}()
	r, err = textpdf.NewReader(d.f, d.size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF text layer: %w", err)
	}
	d.text = r
	return r, nil
}

// ExtractRange writes a standalone PDF holding the 0-indexed pages
// [start, end) to w.
func (d *Document) ExtractRange(w io.Writer, start, end int) error {
	if start < 0 || end > d.pages || start >= end {
		return fmt.Errorf("%w: pages [%d, %d) of %d", ErrPageOutOfRange, start, end, d.pages)
	}
	if err := d.rewind(); err != nil {
		return err
	}

	// pdfcpu selects 1-indexed inclusive ranges.
	sel := fmt.Sprintf("%d-%d", start+1, end)
	if start+1 == end {
		sel = fmt.Sprintf("%d", end)
	}
	if err := api.Trim(d.f, w, []string{sel}, nil); err != nil {
		return fmt.Errorf("failed to extract pages %s: %w", sel, err)
	}
	return nil
}

func (d *Document) rewind() error {
	if d.f == nil {
		return os.ErrClosed
	}
	if _, err := d.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek PDF: %w", err)
	}
	return nil
}

// Close releases the file handle. It is safe to call more than once.
func (d *Document) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	d.text = nil
	return err
}

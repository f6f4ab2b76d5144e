// Package detect finds chapter boundaries in a PDF. The bookmark outline
// is preferred; when it has no entries at the requested level the page
// text is scanned for "Chapter N" lines instead.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackzampolin/splitbook/internal/pdf"
	"github.com/jackzampolin/splitbook/internal/types"
)

const (
	// DefaultLevel is the outline depth of top-level chapters.
	DefaultLevel = 1
	// DefaultScanLines is how many lines at the top of each page the text scan inspects.
	DefaultScanLines = 10
	// DefaultTitleMaxLen caps titles taken from matched text lines, in runes.
	DefaultTitleMaxLen = 60
)

// ErrInvalidLevel is returned for an outline level below 1.
var ErrInvalidLevel = errors.New("outline level must be at least 1")

var chapterLine = regexp.MustCompile(`(?i)^Chapter\s+(\d+|[IVXLC]+)`)

// Source is the subset of a PDF document the detector reads.
type Source interface {
	PageCount() int
	Outline() ([]pdf.OutlineEntry, error)
	PageLines(page int) ([]string, error)
}

// Options tunes detection. Zero values take the defaults.
type Options struct {
	Level       int // Outline depth to split at (1 = chapters, 2 = sections, ...)
	ScanLines   int // Lines per page inspected by the text scan
	TitleMaxLen int // Max runes kept from a matched text line
}

func (o Options) withDefaults() Options {
	if o.Level == 0 {
		o.Level = DefaultLevel
	}
	if o.ScanLines <= 0 {
		o.ScanLines = DefaultScanLines
	}
	if o.TitleMaxLen <= 0 {
		o.TitleMaxLen = DefaultTitleMaxLen
	}
	return o
}

// Result is the outcome of a detection run.
// An empty Chapters slice means nothing was found; it is not an error.
type Result struct {
	Chapters   []types.Chapter       `json:"chapters" yaml:"chapters"`
	Source     types.DetectionSource `json:"source" yaml:"source"`
	TotalPages int                   `json:"total_pages" yaml:"total_pages"`
}

// Detector finds chapter boundaries.
type Detector struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Detector. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{opts: opts.withDefaults(), logger: logger}
}

// DetectFile opens the PDF at path, detects its chapters, and closes it.
func DetectFile(ctx context.Context, path string, opts Options, logger *slog.Logger) (Result, error) {
	d := New(opts, logger)
	if d.opts.Level < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidLevel, d.opts.Level)
	}

	doc, err := pdf.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer doc.Close()

	return d.Detect(ctx, doc)
}

// Detect returns the chapters of src. Outline entries at the configured
// level win; otherwise the text scan result is returned.
func (d *Detector) Detect(ctx context.Context, src Source) (Result, error) {
	if d.opts.Level < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidLevel, d.opts.Level)
	}

	total := src.PageCount()
	result := Result{Source: types.SourceNone, TotalPages: total}

	source := types.SourceTOC
	chapters := BuildChapters(d.fromOutline(src), total, source)
	if len(chapters) == 0 {
		boundaries, err := d.fromText(ctx, src)
		if err != nil {
			return result, err
		}
		source = types.SourceTextScan
		chapters = BuildChapters(boundaries, total, source)
	}

	result.Chapters = chapters
	if len(chapters) == 0 {
		d.logger.Debug("no chapters detected", "level", d.opts.Level, "pages", total)
		return result, nil
	}

	d.logger.Debug("chapters detected", "count", len(chapters), "source", source, "pages", total)
	result.Source = source
	return result, nil
}

// fromOutline returns the outline entries at the configured level with
// 0-indexed pages. Outline read failures count as "no outline".
func (d *Detector) fromOutline(src Source) []types.Boundary {
	entries, err := src.Outline()
	if err != nil {
		d.logger.Debug("outline unavailable, falling back to text scan", "error", err)
		return nil
	}
	if len(entries) == 0 {
		d.logger.Debug("document has no outline, falling back to text scan")
		return nil
	}

	var boundaries []types.Boundary
	for _, e := range entries {
		if e.Level != d.opts.Level {
			continue
		}
		boundaries = append(boundaries, types.Boundary{Title: e.Title, StartPage: e.Page - 1})
	}
	if len(boundaries) == 0 {
		d.logger.Debug("no outline entries at requested level, falling back to text scan",
			"level", d.opts.Level, "entries", len(entries))
	}
	return boundaries
}

// fromText scans the top lines of every page for a "Chapter N" line.
// Only the first match on a page counts.
func (d *Detector) fromText(ctx context.Context, src Source) ([]types.Boundary, error) {
	var boundaries []types.Boundary
	for page := 0; page < src.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines, err := src.PageLines(page)
		if err != nil {
			d.logger.Debug("skipping page without readable text", "page", page+1, "error", err)
			continue
		}
		if title, ok := MatchChapterLine(lines, d.opts.ScanLines, d.opts.TitleMaxLen); ok {
			boundaries = append(boundaries, types.Boundary{Title: title, StartPage: page})
		}
	}
	return boundaries, nil
}

// MatchChapterLine reports the first of the top maxLines lines that
// starts with "Chapter" followed by a decimal or Roman numeral. The
// returned title is the trimmed line cut to maxTitle runes.
func MatchChapterLine(lines []string, maxLines, maxTitle int) (string, bool) {
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if chapterLine.MatchString(line) {
			return truncateRunes(line, maxTitle), true
		}
	}
	return "", false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// BuildChapters turns ordered boundaries into contiguous chapters over
// [first boundary, total). Boundaries outside the document, or not
// strictly after the previous kept boundary, are dropped so that every
// chapter has at least one page.
func BuildChapters(boundaries []types.Boundary, total int, source types.DetectionSource) []types.Chapter {
	kept := make([]types.Boundary, 0, len(boundaries))
	for _, b := range boundaries {
		if b.StartPage < 0 || b.StartPage >= total {
			continue
		}
		if n := len(kept); n > 0 && b.StartPage <= kept[n-1].StartPage {
			continue
		}
		kept = append(kept, b)
	}

	chapters := make([]types.Chapter, len(kept))
	for i, b := range kept {
		end := total
		if i+1 < len(kept) {
			end = kept[i+1].StartPage
		}
		chapters[i] = types.Chapter{
			Index:     i + 1,
			Title:     b.Title,
			StartPage: b.StartPage,
			EndPage:   end,
			Source:    source,
		}
	}
	return chapters
}

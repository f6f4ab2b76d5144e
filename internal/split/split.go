// Package split writes one PDF per detected chapter plus a manifest.
package split

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jackzampolin/splitbook/internal/manifest"
	"github.com/jackzampolin/splitbook/internal/pdf"
	"github.com/jackzampolin/splitbook/internal/types"
)

// DefaultFilenameMaxLen caps the sanitized title part of a chapter filename.
const DefaultFilenameMaxLen = 50

var (
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separators = regexp.MustCompile(`[\s_]+`)
)

// Extractor writes a standalone PDF of the 0-indexed pages [start, end).
type Extractor interface {
	ExtractRange(w io.Writer, start, end int) error
}

// Options tunes the splitter.
type Options struct {
	FilenameMaxLen int
	// Progress, if set, is called with each chapter file path after it is written.
	Progress func(path string)
}

// Splitter writes chapter files.
type Splitter struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Splitter. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Splitter {
	if opts.FilenameMaxLen <= 0 {
		opts.FilenameMaxLen = DefaultFilenameMaxLen
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{opts: opts, logger: logger}
}

// SplitFile opens inputPath, writes its chapters to outputDir, and closes it.
func SplitFile(ctx context.Context, inputPath string, chapters []types.Chapter, outputDir string, opts Options, logger *slog.Logger) ([]string, error) {
	doc, err := pdf.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return New(opts, logger).Split(ctx, doc, filepath.Base(inputPath), chapters, outputDir)
}

// Split writes each chapter of src to outputDir in index order, then
// writes manifest.json naming sourceName as the origin. It returns the
// chapter file paths.
//
// The manifest is written last: if any chapter fails, files already
// written stay on disk and no manifest is produced.
func (s *Splitter) Split(ctx context.Context, src Extractor, sourceName string, chapters []types.Chapter, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(chapters))
	files := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		name := ChapterFilename(ch, s.opts.FilenameMaxLen)
		path := filepath.Join(outputDir, name)
		if err := writeChapter(src, ch, path); err != nil {
			return paths, fmt.Errorf("failed to write chapter %d (%s): %w", ch.Index, name, err)
		}
		s.logger.Debug("wrote chapter", "index", ch.Index, "file", name, "pages", ch.PageRange())

		paths = append(paths, path)
		files = append(files, name)
		if s.opts.Progress != nil {
			s.opts.Progress(path)
		}
	}

	manifestPath, err := manifest.Write(outputDir, manifest.New(sourceName, chapters, files))
	if err != nil {
		return paths, err
	}
	s.logger.Debug("wrote manifest", "path", manifestPath, "chapters", len(chapters))

	return paths, nil
}

// writeChapter stages the chapter under a temporary name in the target
// directory and renames it into place.
func writeChapter(src Extractor, ch types.Chapter, path string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.New().String()+".pdf.tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := src.ExtractRange(f, ch.StartPage, ch.EndPage); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// ChapterFilename returns "{index:02d}_{sanitized title}.pdf".
func ChapterFilename(ch types.Chapter, maxLen int) string {
	return fmt.Sprintf("%02d_%s.pdf", ch.Index, SanitizeFilename(ch.Title, maxLen))
}

// SanitizeFilename turns a title into a filename fragment. Anything
// other than a Unicode letter or number, underscore, hyphen, or whitespace
// becomes an underscore, combining marks included. Runs of whitespace and
// underscores collapse to one underscore, the result is cut to maxLen
// runes, and leading or trailing underscores are removed.
func SanitizeFilename(title string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultFilenameMaxLen
	}
	safe := disallowed.ReplaceAllString(title, "_")
	safe = separators.ReplaceAllString(safe, "_")
	if r := []rune(safe); len(r) > maxLen {
		safe = string(r[:maxLen])
	}
	return strings.Trim(safe, "_")
}

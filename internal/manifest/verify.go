package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PageCounter returns the page count of the PDF at path.
type PageCounter func(path string) (int, error)

// Problem is one inconsistency between a manifest and its directory.
type Problem struct {
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Report is the result of Verify.
type Report struct {
	Dir      string    `json:"dir" yaml:"dir"`
	Source   string    `json:"source" yaml:"source"`
	Chapters int       `json:"chapters" yaml:"chapters"`
	Problems []Problem `json:"problems" yaml:"problems"`
}

// OK reports whether verification found no problems.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) addf(file, format string, args ...any) {
	r.Problems = append(r.Problems, Problem{File: file, Message: fmt.Sprintf(format, args...)})
}

// Verify loads dir's manifest and checks it against the files on disk:
// indices run 1..N, page ranges are contiguous, every listed file is a
// plain name that exists in dir,
// and each file holds as many pages as its range says. A missing or
// schema-invalid manifest is returned as an error; everything else is
// reported as a Problem.
func Verify(dir string, count PageCounter) (Report, error) {
	m, err := Load(dir)
	if err != nil {
		return Report{Dir: dir}, err
	}

	report := Report{Dir: dir, Source: m.Source, Chapters: len(m.Chapters), Problems: []Problem{}}
	seen := make(map[string]int, len(m.Chapters))
	prevEnd := 0

	for i, e := range m.Chapters {
		if e.Index != i+1 {
			report.addf(e.File, "index %d at position %d, expected %d", e.Index, i+1, i+1)
		}
		if first, dup := seen[e.File]; dup {
			report.addf(e.File, "file shared by chapters %d and %d", first, e.Index)
		}
		seen[e.File] = e.Index

		start, end, err := ParsePages(e.Pages)
		if err != nil {
			report.addf(e.File, "%v", err)
			continue
		}
		if i > 0 && start != prevEnd+1 {
			report.addf(e.File, "pages %s do not follow previous chapter ending at %d", e.Pages, prevEnd)
		}
		prevEnd = end

		if filepath.Base(e.File) != e.File {
			report.addf(e.File, "file is not a plain name inside the directory")
			continue
		}
		path := filepath.Join(dir, e.File)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				report.addf(e.File, "file missing")
			} else {
				report.addf(e.File, "cannot stat file: %v", err)
			}
			continue
		}
		if count == nil {
			continue
		}
		n, err := count(path)
		if err != nil {
			report.addf(e.File, "cannot read PDF: %v", err)
			continue
		}
		if want := end - start + 1; n != want {
			report.addf(e.File, "has %d pages, manifest range %s implies %d", n, e.Pages, want)
		}
	}

	return report, nil
}

// ParsePages parses a 1-indexed inclusive "start-end" range.
func ParsePages(pages string) (start, end int, err error) {
	a, b, ok := strings.Cut(pages, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed page range %q", pages)
	}
	start, err = strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed page range %q", pages)
	}
	end, err = strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed page range %q", pages)
	}
	if start < 1 || end < start {
		return 0, 0, fmt.Errorf("empty page range %q", pages)
	}
	return start, end, nil
}

// Package types provides shared types used across multiple packages.
// This package has no dependencies on other splitbook packages to avoid import cycles.
package types

import "fmt"

// DetectionSource indicates where a chapter boundary came from.
type DetectionSource string

const (
	// SourceTOC indicates boundaries taken from the document's bookmark outline.
	SourceTOC DetectionSource = "toc"
	// SourceTextScan indicates boundaries found by scanning page text for "Chapter N" lines.
	SourceTextScan DetectionSource = "text_scan"
	// SourceNone is reported when neither method found a boundary.
	SourceNone DetectionSource = "none"
)

// Boundary is a page at which a new chapter is deemed to begin.
type Boundary struct {
	Title     string // Title from the outline entry or the matched text line
	StartPage int    // 0-indexed
}

// Chapter is one detected chapter of a source document.
// Pages are 0-indexed with an exclusive end, so a chapter always spans
// [StartPage, EndPage).
type Chapter struct {
	Index     int             `json:"index" yaml:"index"`
	Title     string          `json:"title" yaml:"title"`
	StartPage int             `json:"start_page" yaml:"start_page"`
	EndPage   int             `json:"end_page" yaml:"end_page"`
	Source    DetectionSource `json:"source" yaml:"source"`
}

// PageCount returns the number of pages in the chapter.
func (c Chapter) PageCount() int {
	return c.EndPage - c.StartPage
}

// PageRange returns the 1-indexed inclusive page range for display, e.g. "5-12".
func (c Chapter) PageRange() string {
	return fmt.Sprintf("%d-%d", c.StartPage+1, c.EndPage)
}

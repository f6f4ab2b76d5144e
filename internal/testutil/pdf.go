package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Bookmark is an outline entry for a generated PDF.
type Bookmark struct {
	Title string
	Page  int // 0-indexed target page
	Kids  []Bookmark
}

// PDFSpec describes a document for BuildPDF: one entry per page holding
// that page's text lines, and an optional bookmark outline.
type PDFSpec struct {
	Pages   [][]string
	Outline []Bookmark
}

// WritePDF builds a PDF from spec and writes it to dir/name.
func WritePDF(t testing.TB, dir, name string, spec PDFSpec) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildPDF(spec), 0o644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}

// BuildPDF renders a minimal, valid PDF 1.4 file: Helvetica text pages
// with one text row per line, a classic xref table, and an outline tree
// when spec.Outline is set.
func BuildPDF(spec PDFSpec) []byte {
	const (
		catalogObj  = 1
		pagesObj    = 2
		fontObj     = 3
		outlinesObj = 4
		firstPage   = 5
	)
	pageObj := func(i int) int { return firstPage + 2*i }
	contentObj := func(i int) int { return firstPage + 2*i + 1 }

	objects := map[int]string{}
	next := firstPage + 2*len(spec.Pages)

	kids := make([]string, len(spec.Pages))
	for i, lines := range spec.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))

		var content strings.Builder
		content.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")
		for j, line := range lines {
			if j > 0 {
				content.WriteString("0 -18 Td\n")
			}
			fmt.Fprintf(&content, "(%s) Tj\n", escapeString(line))
		}
		content.WriteString("ET\n")

		objects[pageObj(i)] = fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesObj, fontObj, contentObj(i))
		objects[contentObj(i)] = fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String())
	}

	objects[pagesObj] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(spec.Pages))
	objects[fontObj] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

	if len(spec.Outline) > 0 {
		first, last, count := writeOutline(spec.Outline, outlinesObj, &next, objects, pageObj)
		objects[outlinesObj] = fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>", first, last, count)
		objects[catalogObj] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /Outlines %d 0 R /PageMode /UseOutlines >>", pagesObj, outlinesObj)
	} else {
		objects[catalogObj] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj)
		objects[outlinesObj] = "null"
	}

	size := next
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, size)
	for n := 1; n < size; n++ {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, objects[n])
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n < size; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, catalogObj, xref)
	return buf.Bytes()
}

// writeOutline assigns object numbers to a sibling list of bookmarks and
// their descendants, and returns the first and last sibling objects plus
// the number of visible descendants.
func writeOutline(bms []Bookmark, parent int, next *int, objects map[int]string, pageObj func(int) int) (first, last, count int) {
	nums := make([]int, len(bms))
	for i := range bms {
		nums[i] = *next
		*next++
	}

	for i, bm := range bms {
		var dict strings.Builder
		fmt.Fprintf(&dict, "<< /Title (%s) /Parent %d 0 R /Dest [%d 0 R /Fit]", escapeString(bm.Title), parent, pageObj(bm.Page))
		if i > 0 {
			fmt.Fprintf(&dict, " /Prev %d 0 R", nums[i-1])
		}
		if i < len(bms)-1 {
			fmt.Fprintf(&dict, " /Next %d 0 R", nums[i+1])
		}
		if len(bm.Kids) > 0 {
			kf, kl, kc := writeOutline(bm.Kids, nums[i], next, objects, pageObj)
			fmt.Fprintf(&dict, " /First %d 0 R /Last %d 0 R /Count %d", kf, kl, kc)
			count += kc
		}
		dict.WriteString(" >>")
		objects[nums[i]] = dict.String()
		count++
	}

	return nums[0], nums[len(nums)-1], count
}

func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

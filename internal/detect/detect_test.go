package detect

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/splitbook/internal/pdf"
	"github.com/jackzampolin/splitbook/internal/testutil"
	"github.com/jackzampolin/splitbook/internal/types"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	pages      [][]string
	outline    []pdf.OutlineEntry
	outlineErr error
	pageErrs   map[int]error
}

func (f *fakeSource) PageCount() int { return len(f.pages) }

func (f *fakeSource) Outline() ([]pdf.OutlineEntry, error) {
	return f.outline, f.outlineErr
}

func (f *fakeSource) PageLines(page int) ([]string, error) {
	if err := f.pageErrs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func blankPages(n int) [][]string {
	return make([][]string, n)
}

// checkSequence asserts the invariants every detection result must hold.
func checkSequence(t *testing.T, chapters []types.Chapter, total int) {
	t.Helper()
	for i, ch := range chapters {
		if ch.Index != i+1 {
			t.Errorf("chapter %d: index %d, want %d", i, ch.Index, i+1)
		}
		if ch.PageCount() <= 0 {
			t.Errorf("chapter %d: non-positive page count %d", ch.Index, ch.PageCount())
		}
		if ch.StartPage < 0 || ch.EndPage > total {
			t.Errorf("chapter %d: range [%d, %d) outside document of %d pages", ch.Index, ch.StartPage, ch.EndPage, total)
		}
		if i+1 < len(chapters) && ch.EndPage != chapters[i+1].StartPage {
			t.Errorf("chapter %d: end %d != next start %d", ch.Index, ch.EndPage, chapters[i+1].StartPage)
		}
	}
	if n := len(chapters); n > 0 && chapters[n-1].EndPage != total {
		t.Errorf("last chapter ends at %d, want %d", chapters[n-1].EndPage, total)
	}
}

func TestDetect_FromOutline(t *testing.T) {
	src := &fakeSource{
		pages: blankPages(30),
		outline: []pdf.OutlineEntry{
			{Level: 1, Title: "Introduction", Page: 3},
			{Level: 2, Title: "Background", Page: 4},
			{Level: 1, Title: "Methods", Page: 10},
			{Level: 2, Title: "Sampling", Page: 12},
			{Level: 1, Title: "Results", Page: 21},
		},
	}

	result, err := New(Options{}, nil).Detect(context.Background(), src)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Source != types.SourceTOC {
		t.Errorf("expected source %q, got %q", types.SourceTOC, result.Source)
	}
	if result.TotalPages != 30 {
		t.Errorf("expected 30 total pages, got %d", result.TotalPages)
	}

	want := []types.Chapter{
		{Index: 1, Title: "Introduction", StartPage: 2, EndPage: 9, Source: types.SourceTOC},
		{Index: 2, Title: "Methods", StartPage: 9, EndPage: 20, Source: types.SourceTOC},
		{Index: 3, Title: "Results", StartPage: 20, EndPage: 30, Source: types.SourceTOC},
	}
	if len(result.Chapters) != len(want) {
		t.Fatalf("expected %d chapters, got %d: %+v", len(want), len(result.Chapters), result.Chapters)
	}
	for i := range want {
		if result.Chapters[i] != want[i] {
			t.Errorf("chapter %d: got %+v, want %+v", i, result.Chapters[i], want[i])
		}
	}
	checkSequence(t, result.Chapters, 30)
}

func TestDetect_Level2(t *testing.T) {
	src := &fakeSource{
		pages: blankPages(20),
		outline: []pdf.OutlineEntry{
			{Level: 1, Title: "Part One", Page: 1},
			{Level: 2, Title: "1.1", Page: 2},
			{Level: 2, Title: "1.2", Page: 6},
			{Level: 1, Title: "Part Two", Page: 10},
			{Level: 2, Title: "2.1", Page: 11},
		},
	}

	result, err := New(Options{Level: 2}, nil).Detect(context.Background(), src)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(result.Chapters) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(result.Chapters))
	}
	if result.Chapters[0].StartPage != 1 {
		t.Errorf("first section should start at page index 1, got %d", result.Chapters[0].StartPage)
	}
	checkSequence(t, result.Chapters, 20)
}

func TestDetect_FallsBackWhenLevelMissing(t *testing.T) {
	pages := blankPages(12)
	pages[2] = []string{"Chapter 1", "It was a dark night."}
	pages[7] = []string{"  CHAPTER II  ", "Morning."}

	src := &fakeSource{
		pages: pages,
		outline: []pdf.OutlineEntry{
			{Level: 2, Title: "Only a section", Page: 3},
		},
	}

	result, err := New(Options{Level: 1}, nil).Detect(context.Background(), src)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Source != types.SourceTextScan {
		t.Fatalf("expected text scan fallback, got %q", result.Source)
	}
	if len(result.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(result.Chapters))
	}
	if result.Chapters[0].Title != "Chapter 1" || result.Chapters[1].Title != "CHAPTER II" {
		t.Errorf("unexpected titles: %q, %q", result.Chapters[0].Title, result.Chapters[1].Title)
	}
	checkSequence(t, result.Chapters, 12)
}

func TestDetect_FallsBackOnOutlineError(t *testing.T) {
	pages := blankPages(4)
	pages[1] = []string{"Chapter 7"}

	src := &fakeSource{pages: pages, outlineErr: errors.New("broken outline")}

	var logs testutil.LogBuffer
	result, err := New(Options{}, logs.Logger()).Detect(context.Background(), src)
	if err != nil {
		t.Fatalf("outline errors should not fail detection: %v", err)
	}
	if len(result.Chapters) != 1 || result.Chapters[0].StartPage != 1 {
		t.Fatalf("unexpected chapters: %+v", result.Chapters)
	}
	if !strings.Contains(logs.String(), "broken outline") {
		t.Errorf("expected outline error to be logged, got:\n%s", logs.String())
	}
}

func TestDetect_NothingFound(t *testing.T) {
	pages := blankPages(5)
	pages[0] = []string{"Preface", "Some words about chapters."}

	result, err := New(Options{}, nil).Detect(context.Background(), &fakeSource{pages: pages})
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if len(result.Chapters) != 0 {
		t.Errorf("expected no chapters, got %d", len(result.Chapters))
	}
	if result.Source != types.SourceNone {
		t.Errorf("expected source %q, got %q", types.SourceNone, result.Source)
	}
}

func TestDetect_TextScanSkipsUnreadablePages(t *testing.T) {
	pages := blankPages(6)
	pages[0] = []string{"Chapter 1"}
	pages[3] = []string{"Chapter 2"}
	pages[4] = []string{"Chapter 3"}

	src := &fakeSource{pages: pages, pageErrs: map[int]error{3: errors.New("bad font")}}

	result, err := New(Options{}, testutil.Logger(t)).Detect(context.Background(), src)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(result.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(result.Chapters))
	}
	if result.Chapters[1].StartPage != 4 {
		t.Errorf("expected second chapter at page index 4, got %d", result.Chapters[1].StartPage)
	}
	checkSequence(t, result.Chapters, 6)
}

func TestDetect_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: -1}, nil).Detect(context.Background(), &fakeSource{pages: blankPages(1)})
	if !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestDetect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}, nil).Detect(ctx, &fakeSource{pages: blankPages(3)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMatchChapterLine(t *testing.T) {
	long := "Chapter 12 " + strings.Repeat("x", 80)

	tests := []struct {
		name     string
		lines    []string
		maxLines int
		want     string
		wantOK   bool
	}{
		{"decimal", []string{"Chapter 3"}, 10, "Chapter 3", true},
		{"roman lower", []string{"chapter iv: The Road"}, 10, "chapter iv: The Road", true},
		{"tab separated", []string{"Chapter\t9"}, 10, "Chapter\t9", true},
		{"leading whitespace trimmed", []string{"   Chapter 2 "}, 10, "Chapter 2", true},
		{"first match wins", []string{"Chapter 1", "Chapter 2"}, 10, "Chapter 1", true},
		{"not at line start", []string{"See Chapter 4"}, 10, "", false},
		{"no numeral", []string{"Chapters"}, 10, "", false},
		{"beyond scan window", []string{"a", "b", "Chapter 5"}, 2, "", false},
		{"title truncated", []string{long}, 10, long[:60], true},
		{"empty page", nil, 10, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchChapterLine(tt.lines, tt.maxLines, DefaultTitleMaxLen)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildChapters(t *testing.T) {
	t.Run("front matter dropped", func(t *testing.T) {
		chapters := BuildChapters([]types.Boundary{{Title: "A", StartPage: 5}, {Title: "B", StartPage: 8}}, 10, types.SourceTOC)
		if len(chapters) != 2 {
			t.Fatalf("expected 2 chapters, got %d", len(chapters))
		}
		if chapters[0].StartPage != 5 {
			t.Errorf("first chapter should start at the first boundary, got %d", chapters[0].StartPage)
		}
		checkSequence(t, chapters, 10)
	})

	t.Run("invalid boundaries dropped", func(t *testing.T) {
		chapters := BuildChapters([]types.Boundary{
			{Title: "before start", StartPage: -1},
			{Title: "A", StartPage: 0},
			{Title: "same page", StartPage: 0},
			{Title: "B", StartPage: 4},
			{Title: "backwards", StartPage: 2},
			{Title: "past end", StartPage: 10},
		}, 10, types.SourceTOC)

		if len(chapters) != 2 {
			t.Fatalf("expected 2 chapters, got %d: %+v", len(chapters), chapters)
		}
		if chapters[0].Title != "A" || chapters[1].Title != "B" {
			t.Errorf("unexpected titles: %q, %q", chapters[0].Title, chapters[1].Title)
		}
		checkSequence(t, chapters, 10)
	})

	t.Run("empty input", func(t *testing.T) {
		if chapters := BuildChapters(nil, 10, types.SourceTOC); len(chapters) != 0 {
			t.Errorf("expected no chapters, got %d", len(chapters))
		}
	})
}

func TestDetectFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("outline", func(t *testing.T) {
		path := testutil.WritePDF(t, dir, "outline.pdf", testutil.PDFSpec{
			Pages: [][]string{{"Title page"}, {"Intro"}, {"More"}, {"Body"}, {"End"}},
			Outline: []testutil.Bookmark{
				{Title: "Intro", Page: 1},
				{Title: "Body", Page: 3, Kids: []testutil.Bookmark{{Title: "Sub", Page: 4}}},
			},
		})

		result, err := DetectFile(context.Background(), path, Options{}, nil)
		if err != nil {
			t.Fatalf("DetectFile failed: %v", err)
		}
		if result.Source != types.SourceTOC {
			t.Fatalf("expected toc source, got %q", result.Source)
		}
		if len(result.Chapters) != 2 {
			t.Fatalf("expected 2 chapters, got %d", len(result.Chapters))
		}
		if result.Chapters[0].PageRange() != "2-3" || result.Chapters[1].PageRange() != "4-5" {
			t.Errorf("unexpected ranges: %s, %s", result.Chapters[0].PageRange(), result.Chapters[1].PageRange())
		}
	})

	t.Run("text scan", func(t *testing.T) {
		path := testutil.WritePDF(t, dir, "text.pdf", testutil.PDFSpec{
			Pages: [][]string{{"Contents"}, {"Chapter 1", "Once"}, {"text"}, {"Chapter 2", "Twice"}},
		})

		result, err := DetectFile(context.Background(), path, Options{}, nil)
		if err != nil {
			t.Fatalf("DetectFile failed: %v", err)
		}
		if result.Source != types.SourceTextScan {
			t.Fatalf("expected text scan source, got %q", result.Source)
		}
		if len(result.Chapters) != 2 {
			t.Fatalf("expected 2 chapters, got %d", len(result.Chapters))
		}
		checkSequence(t, result.Chapters, 4)
		if result.Chapters[0].Title != "Chapter 1" || result.Chapters[1].Title != "Chapter 2" {
			t.Errorf("titles should be the heading line only, got %q and %q",
				result.Chapters[0].Title, result.Chapters[1].Title)
		}
	})

	t.Run("heading below a page number", func(t *testing.T) {
		path := testutil.WritePDF(t, dir, "numbered.pdf", testutil.PDFSpec{
			Pages: [][]string{{"Preface"}, {"12", "Chapter 1", "The Beginning"}, {"body"}, {"Chapter 2", "Next"}},
		})

		result, err := DetectFile(context.Background(), path, Options{}, nil)
		if err != nil {
			t.Fatalf("DetectFile failed: %v", err)
		}
		if len(result.Chapters) != 2 {
			t.Fatalf("expected 2 chapters, got %+v", result.Chapters)
		}
		first, second := result.Chapters[0], result.Chapters[1]
		if first.Title != "Chapter 1" || first.StartPage != 1 || first.EndPage != 3 {
			t.Errorf("unexpected first chapter: %+v", first)
		}
		if second.Title != "Chapter 2" || second.StartPage != 3 || second.EndPage != 4 {
			t.Errorf("unexpected second chapter: %+v", second)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := DetectFile(context.Background(), filepath.Join(dir, "nope.pdf"), Options{}, nil)
		if err == nil {
			t.Error("expected error for missing file")
		}
	})
}

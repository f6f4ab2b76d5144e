// Package preview renders detected chapters for an operator and asks
// whether to go ahead with a split.
package preview

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jackzampolin/splitbook/internal/types"
)

// titleWidth is the widest title shown in the table before it is elided.
const titleWidth = 45

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	rightStyle  = cellStyle.Align(lipgloss.Right)
)

// RenderTable writes a table of chapters detected in input.
func RenderTable(w io.Writer, input string, chapters []types.Chapter) {
	fmt.Fprintf(w, "\nDetected %d chapters in %s:\n\n", len(chapters), filepath.Base(input))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers("#", "Title", "Pages", "Size").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				return cellStyle
			}
			return rightStyle
		})

	for _, ch := range chapters {
		t.Row(
			strconv.Itoa(ch.Index),
			ShortTitle(ch.Title),
			ch.PageRange(),
			fmt.Sprintf("%d pages", ch.PageCount()),
		)
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
}

// ShortTitle elides titles longer than the table's title column.
func ShortTitle(title string) string {
	r := []rune(title)
	if len(r) <= titleWidth {
		return title
	}
	return string(r[:titleWidth-3]) + "..."
}

// Confirm prints prompt and reads one line from in. An empty answer,
// "y", or "yes" (any case) is a yes; anything else is a no. End of input
// before any answer is a no.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	ok, eof := readAnswer(in)
	if eof {
		// End of input: keep the terminal on a fresh line.
		fmt.Fprintln(out)
	}
	return ok
}

// ConfirmContext is Confirm that gives up with a no when ctx is done,
// so an interrupt at the prompt reads as a decline. A context that is
// already done returns no without prompting or reading.
func ConfirmContext(ctx context.Context, in io.Reader, out io.Writer, prompt string) bool {
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprint(out, prompt)

	type answer struct{ ok, eof bool }
	answers := make(chan answer, 1)
	go func() {
		ok, eof := readAnswer(in)
		answers <- answer{ok, eof}
	}()

	select {
	case a := <-answers:
		if a.eof {
			fmt.Fprintln(out)
		}
		return a.ok
	case <-ctx.Done():
		fmt.Fprintln(out)
		return false
	}
}

// readAnswer reads one line and reports whether it is a yes, and whether
// input ended before any answer was given.
func readAnswer(in io.Reader) (ok, eof bool) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, true
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true, false
	default:
		return false, false
	}
}

// NoChaptersHelp explains why detection may have come up empty.
func NoChaptersHelp(w io.Writer, input string) {
	fmt.Fprintf(w, "No chapters detected in %s\n", input)
	fmt.Fprintln(w, "\nPossible reasons:")
	fmt.Fprintln(w, "  - The PDF has no bookmarks/TOC")
	fmt.Fprintln(w, "  - No entries at the requested level (-l option)")
	fmt.Fprintln(w, "  - Chapter text patterns not recognized")
	fmt.Fprintln(w, "\nConsider specifying manual page ranges or adding bookmarks first.")
}

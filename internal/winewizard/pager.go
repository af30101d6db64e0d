package winewizard

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/term"
)

type lineKind int

const (
	lineNormal lineKind = iota
	lineFixme
	lineWarn
	lineError
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// classifyLine sorts a line of wine output by its debug channel class, e.g.
// "0024:err:module:import_dll" or "wine: Unhandled page fault".
func classifyLine(line string) lineKind {
	l := strings.ToLower(line)
	switch {
	case hasChannel(l, "err"), strings.HasPrefix(l, "wine: "), strings.Contains(l, "unhandled exception"):
		return lineError
	case hasChannel(l, "warn"):
		return lineWarn
	case hasChannel(l, "fixme"):
		return lineFixme
	}
	return lineNormal
}

func hasChannel(line, class string) bool {
	return strings.HasPrefix(line, class+":") || strings.Contains(line, ":"+class+":")
}

func outputLines(out Output) []string {
	text := strings.TrimRight(ansiEscape.ReplaceAllString(out.Text, ""), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// outputMarkup renders lines as tview markup and returns the rows holding
// errors.
func outputMarkup(lines []string) (string, []int) {
	var b strings.Builder
	var errRows []int
	for i, raw := range lines {
		line := tview.Escape(raw)
		switch classifyLine(raw) {
		case lineError:
			errRows = append(errRows, i)
			fmt.Fprintf(&b, "[red::b]%s[-::-]", line)
		case lineWarn:
			fmt.Fprintf(&b, "[yellow]%s[-]", line)
		case lineFixme:
			fmt.Fprintf(&b, "[gray]%s[-]", line)
		default:
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String(), errRows
}

// nextRow returns the error row after (or before) current, wrapping around.
func nextRow(rows []int, current int, forward bool) int {
	if len(rows) == 0 {
		return current
	}
	if forward {
		for _, r := range rows {
			if r > current {
				return r
			}
		}
		return rows[0]
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i] < current {
			return rows[i]
		}
	}
	return rows[len(rows)-1]
}

func outputTitle(out Output, errCount int) string {
	title := fmt.Sprintf("exit status %d", out.ExitCode)
	if errCount > 0 {
		title += fmt.Sprintf(", %d error lines", errCount)
	}
	return title
}

// printOutput writes the captured output with errors and warnings colored.
func printOutput(w io.Writer, out Output) {
	lines := outputLines(out)
	for _, line := range lines {
		switch classifyLine(line) {
		case lineError:
			cFprintf(w, colError, "%s\n", line)
		case lineWarn:
			cFprintf(w, colWarn, "%s\n", line)
		default:
			fmt.Fprintln(w, line)
		}
	}
	cFprintf(w, colNote, "Program output: %s\n", outputTitle(out, countErrors(lines)))
}

func countErrors(lines []string) int {
	n := 0
	for _, line := range lines {
		if classifyLine(line) == lineError {
			n++
		}
	}
	return n
}

// ViewOutput shows a debug run's output. On a terminal with more lines than
// fit it opens a viewer positioned on the first error; n and p move between
// error lines.
func ViewOutput(w io.Writer, out Output) error {
	lines := outputLines(out)
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		printOutput(w, out)
		return nil
	}
	if _, height, err := term.GetSize(fd); err == nil && len(lines) <= height-2 {
		printOutput(w, out)
		return nil
	}

	markup, errRows := outputMarkup(lines)
	app := tview.NewApplication()
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false).
		SetText(markup)
	view.SetBorder(true).SetTitle(" Program output: " + outputTitle(out, len(errRows)) + " ")

	current := -1
	if len(errRows) > 0 {
		current = errRows[0]
		view.ScrollTo(current, 0)
	} else {
		view.ScrollToEnd()
	}

	help := "[gray]q: close"
	if len(errRows) > 0 {
		help += "   n/p: next/previous error"
	}
	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(help + "[-]")

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(view, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			app.Stop()
			return nil
		}
		if event.Key() != tcell.KeyRune {
			return event
		}
		switch event.Rune() {
		case 'q':
			app.Stop()
			return nil
		case 'n', 'p':
			if len(errRows) == 0 {
				return event
			}
			current = nextRow(errRows, current, event.Rune() == 'n')
			view.ScrollTo(current, 0)
			return nil
		}
		return event
	})

	if err := app.SetRoot(layout, true).SetFocus(view).Run(); err != nil {
		return fmt.Errorf("output viewer failed: %w", err)
	}
	return nil
}

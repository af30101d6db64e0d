package winewizard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// UI is everything the wizard asks of the user. Implementations block until
// the user answers; a false ok means the user backed out.
type UI interface {
	Confirm(text string) bool
	Error(text string)
	// Finish asks whether the program installed or run in the prefix works.
	Finish(prefixName string) bool
	ShowOutput(out Output)
	SelectSolution() (slug string, ok bool)
	SelectArch() (arch string, ok bool)
	// ReviewScripts shows the solution's own scripts and asks to run them.
	ReviewScripts(before, after string) bool
	SelectFile(title, dir string) (path string, ok bool)
	OpenURL(target string)
}

// color-compatible formatter (works with *color.Theme, color.RGBColor and color.Tag)
type colorSprinter interface {
	Sprintf(format string, a ...any) string
}

// cFprintf writes with a colored style or plain when nil
func cFprintf(w io.Writer, p colorSprinter, format string, a ...any) {
	if p == nil {
		fmt.Fprintf(w, format, a...)
		return
	}
	fmt.Fprint(w, p.Sprintf(format, a...))
}

// ConsoleUI prompts on a terminal.
type ConsoleUI struct {
	mu     sync.Mutex // one prompt reads input at a time
	in     *bufio.Reader
	out    io.Writer
	opener string
	viewer func(w io.Writer, out Output) error
}

func NewConsoleUI(in io.Reader, out io.Writer) *ConsoleUI {
	return &ConsoleUI{
		in:     bufio.NewReader(in),
		out:    out,
		opener: "xdg-open",
		viewer: ViewOutput,
	}
}

func (u *ConsoleUI) readLine(prompt string) (string, bool) {
	cFprintf(u.out, colArrow, "-> ")
	cFprintf(u.out, colNote, "%s", prompt)
	line, err := u.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(u.out)
		return "", false
	}
	return strings.TrimSpace(line), true
}

// askForConfirmation loops until a yes/no answer. Empty input means yes.
func (u *ConsoleUI) askForConfirmation(format string, a ...any) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	prompt := fmt.Sprintf(format, a...) + " [Y/n]: "
	for {
		response, ok := u.readLine(prompt)
		if !ok {
			return false // On error (like Ctrl+D), default to "no"
		}
		switch strings.ToLower(response) {
		case "", "y", "yes":
			return true
		case "n", "no":
			return false
		}
		cFprintf(u.out, colWarn, "Invalid input.\n")
	}
}

func (u *ConsoleUI) Confirm(text string) bool {
	return u.askForConfirmation("%s", text)
}

func (u *ConsoleUI) Error(text string) {
	cFprintf(u.out, colError, "Error: %s\n", text)
}

func (u *ConsoleUI) Finish(prefixName string) bool {
	return u.askForConfirmation("Does %q work correctly?", prefixName)
}

func (u *ConsoleUI) ShowOutput(out Output) {
	if err := u.viewer(u.out, out); err != nil {
		cFprintf(u.out, colWarn, "Failed to show output: %v\n", err)
	}
}

func (u *ConsoleUI) SelectSolution() (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	slug, ok := u.readLine("Solution (slug, empty to cancel): ")
	if !ok || slug == "" {
		return "", false
	}
	return slug, true
}

func (u *ConsoleUI) SelectArch() (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for {
		arch, ok := u.readLine("Architecture [32/64] (default 32): ")
		if !ok {
			return "", false
		}
		switch arch {
		case "", "32":
			return "32", true
		case "64":
			return "64", true
		case "c", "cancel":
			return "", false
		}
		cFprintf(u.out, colWarn, "Invalid input.\n")
	}
}

func (u *ConsoleUI) ReviewScripts(before, after string) bool {
	if before != "" {
		cFprintf(u.out, colInfo, "Before script:\n")
		fmt.Fprintln(u.out, before)
	}
	if after != "" {
		cFprintf(u.out, colInfo, "After script:\n")
		fmt.Fprintln(u.out, after)
	}
	return u.askForConfirmation("The solution contains additional scripts. Run them?")
}

func (u *ConsoleUI) SelectFile(title, dir string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	path, ok := u.readLine(title + " (path, empty to cancel): ")
	if !ok || path == "" {
		return "", false
	}
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}
	return path, true
}

// OpenURL hands target to the desktop opener without waiting for it.
func (u *ConsoleUI) OpenURL(target string) {
	cmd := exec.Command(u.opener, target)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		cFprintf(u.out, colWarn, "Open %s manually: %v\n", target, err)
		return
	}
	go cmd.Wait()
}

// Stdio returns a ConsoleUI on the process's standard streams.
func Stdio() *ConsoleUI { return NewConsoleUI(os.Stdin, os.Stdout) }

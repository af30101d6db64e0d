package winewizard

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

type menuEntry struct {
	label      string
	action     Action
	background bool
}

// buildMenu lists every prefix with its shortcuts and actions, followed by
// the global entries.
func (w *Wizard) buildMenu() ([]menuEntry, []string, error) {
	paths := w.settings.Paths
	prefixes, err := ListPrefixes(paths)
	if err != nil {
		return nil, nil, err
	}

	var entries []menuEntry
	var headers []string // headers[i] is printed before entries[i] when non-empty
	add := func(header string, e menuEntry) {
		entries = append(entries, e)
		headers = append(headers, header)
	}

	for _, rec := range prefixes {
		header := rec.Name
		switch {
		case w.busy.Contains(rec.Hash):
			header += " (installing)"
		case w.running.Contains(rec.Hash):
			header += " (running)"
		}
		shortcuts, err := ListShortcuts(paths, rec.Hash)
		if err != nil {
			w.logger.Warn("failed to list shortcuts", "prefix", rec.Hash, "error", err)
		}
		for _, sc := range shortcuts {
			if sc.Debug || rec.Debug {
				add(header, menuEntry{label: "Debug " + sc.Name, action: DebugAction{
					PrefixHash: rec.Hash, Exe: sc.Exe, WorkDir: sc.WorkDir, Args: sc.Arguments(), Shortcut: sc.Path,
				}})
			} else {
				add(header, menuEntry{label: "Run " + sc.Name, background: true, action: RunAction{
					PrefixHash: rec.Hash, Exe: sc.Exe, WorkDir: sc.WorkDir, Args: sc.Arguments(),
				}})
			}
			header = ""
		}
		add(header, menuEntry{label: "Run file...", action: RunFileAction{PrefixHash: rec.Hash}})
		add("", menuEntry{label: "Browse", action: BrowseAction{PrefixHash: rec.Hash}})
		if w.running.Contains(rec.Hash) {
			add("", menuEntry{label: "Terminate", action: TerminateAction{PrefixHash: rec.Hash, Name: rec.Name}})
		}
		if !w.running.Contains(rec.Hash) && !w.busy.Contains(rec.Hash) {
			add("", menuEntry{label: "Delete", action: DeleteAction{PrefixHash: rec.Hash, Name: rec.Name}})
		}
	}

	if w.busy.Len() == 0 {
		add("Wine Wizard", menuEntry{label: "Install...", action: InstallAction{}})
		add("", menuEntry{label: "Help", action: HelpAction{}})
	} else {
		add("Wine Wizard", menuEntry{label: "Help", action: HelpAction{}})
	}
	add("", menuEntry{label: "Quit", action: QuitAction{}})
	return entries, headers, nil
}

// parseChoice turns a 1-based menu number into an index.
func parseChoice(input string, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if n <= 0 || n > max {
		return 0, fmt.Errorf("number out of range (1-%d): %d", max, n)
	}
	return n - 1, nil
}

// Menu runs the interactive menu until the user quits or input ends.
// Run entries are started in the background so they stay quittable.
func (w *Wizard) Menu(ctx context.Context, u *ConsoleUI) error {
	var bg sync.WaitGroup
	defer bg.Wait()

	for !w.shutdown.Quitting() {
		entries, headers, err := w.buildMenu()
		if err != nil {
			return err
		}
		fmt.Fprintln(u.out)
		for i, e := range entries {
			if headers[i] != "" {
				cFprintf(u.out, colInfo, "%s\n", headers[i])
			}
			fmt.Fprintf(u.out, "  %2d) %s\n", i+1, e.label)
		}

		u.mu.Lock()
		input, ok := u.readLine("Select an entry: ")
		u.mu.Unlock()
		if !ok {
			return nil
		}
		if input == "" {
			continue
		}
		idx, err := parseChoice(input, len(entries))
		if err != nil {
			cFprintf(u.out, colError, "Error: %v\n", err)
			continue
		}

		e := entries[idx]
		if ia, isInstall := e.action.(InstallAction); isInstall {
			cwd, _ := os.Getwd()
			exe, ok := u.SelectFile("Select Installer", cwd)
			if !ok {
				continue
			}
			ia.Request = InstallRequest{Exe: exe}
			e.action = ia
		}
		if e.background {
			bg.Add(1)
			go func(a Action) {
				defer bg.Done()
				w.Report(w.Dispatch(ctx, a))
			}(e.action)
			continue
		}
		w.Report(w.Dispatch(ctx, e.action))
	}
	return nil
}

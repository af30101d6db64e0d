package winewizard

import (
	"context"
	"fmt"
)

// Action is one menu command. The concrete types carry their own payload.
type Action interface {
	action()
}

// InstallAction installs Request into a new prefix.
type InstallAction struct {
	Request InstallRequest
}

// RunAction launches a program and returns when it exits.
type RunAction struct {
	PrefixHash string
	Exe        string
	WorkDir    string
	Args       []string
}

// DebugAction runs a program, captures its output and asks whether it works.
// Shortcut, when set, has its Debug flag cleared on a positive answer.
type DebugAction struct {
	PrefixHash string
	Exe        string
	WorkDir    string
	Args       []string
	Shortcut   string
}

// RunFileAction lets the user pick a file inside the prefix and debugs it.
type RunFileAction struct {
	PrefixHash string
	Exe        string // optional; asked through the UI when empty
}

type TerminateAction struct {
	PrefixHash string
	Name       string
}

type BrowseAction struct {
	PrefixHash string
}

type DeleteAction struct {
	PrefixHash string
	Name       string
}

type HelpAction struct{}

type QuitAction struct{}

func (InstallAction) action()   {}
func (RunAction) action()       {}
func (DebugAction) action()     {}
func (RunFileAction) action()   {}
func (TerminateAction) action() {}
func (BrowseAction) action()    {}
func (DeleteAction) action()    {}
func (HelpAction) action()      {}
func (QuitAction) action()      {}

// Dispatch performs a. Errors are returned unreported; see Report.
func (w *Wizard) Dispatch(ctx context.Context, a Action) error {
	switch a := a.(type) {
	case InstallAction:
		_, err := w.Start(ctx, a.Request)
		return err
	case RunAction:
		return w.run(ctx, a)
	case DebugAction:
		return w.debug(ctx, a.PrefixHash, a.Exe, a.WorkDir, a.Args, a.Shortcut)
	case RunFileAction:
		return w.runFile(ctx, a)
	case TerminateAction:
		return w.terminate(ctx, a)
	case BrowseAction:
		if !w.settings.Paths.PrefixExists(a.PrefixHash) {
			return fmt.Errorf("%w: %s", ErrPrefixNotFound, a.PrefixHash)
		}
		w.ui.OpenURL(w.settings.Paths.Prefix(a.PrefixHash))
		return nil
	case DeleteAction:
		return w.delete(a)
	case HelpAction:
		w.ui.OpenURL(w.settings.HelpURL)
		return nil
	case QuitAction:
		w.Quit(ctx)
		return nil
	}
	return fmt.Errorf("unknown action %T", a)
}

func (w *Wizard) run(ctx context.Context, a RunAction) error {
	if !w.settings.Paths.PrefixExists(a.PrefixHash) {
		return fmt.Errorf("%w: %s", ErrPrefixNotFound, a.PrefixHash)
	}
	script, err := RunScript(a.Exe, a.WorkDir, a.Args)
	if err != nil {
		return err
	}
	return w.engine.Release(ctx, a.PrefixHash, script)
}

func (w *Wizard) debug(ctx context.Context, hash, exe, workDir string, args []string, shortcut string) error {
	paths := w.settings.Paths
	rec, err := LoadRecord(paths, hash)
	if err != nil {
		return err
	}
	script, err := RunScript(exe, workDir, args)
	if err != nil {
		return err
	}
	out, err := w.engine.Debug(ctx, hash, script)
	if err != nil {
		return err
	}
	if w.shutdown.Quitting() {
		return ErrShuttingDown
	}
	if !w.ui.Finish(rec.Name) {
		w.ui.ShowOutput(out)
		return nil
	}
	if shortcut != "" {
		if err := clearShortcutDebug(shortcut); err != nil {
			w.logger.Warn("failed to update shortcut", "shortcut", shortcut, "error", err)
		}
	}
	if rec.Debug {
		rec.Debug = false
		if err := SaveRecord(paths, rec); err != nil {
			w.logger.Warn("failed to clear debug flag", "prefix", hash, "error", err)
		}
	}
	return nil
}

func (w *Wizard) runFile(ctx context.Context, a RunFileAction) error {
	paths := w.settings.Paths
	if !paths.PrefixExists(a.PrefixHash) {
		return fmt.Errorf("%w: %s", ErrPrefixNotFound, a.PrefixHash)
	}
	exe := a.Exe
	if exe == "" {
		var ok bool
		if exe, ok = w.ui.SelectFile("Select Installer", paths.Drive(a.PrefixHash)); !ok {
			return ErrAborted
		}
	}
	if err := validateInstaller(exe); err != nil {
		return err
	}
	return w.debug(ctx, a.PrefixHash, exe, "", nil, "")
}

func (w *Wizard) terminate(ctx context.Context, a TerminateAction) error {
	if !w.settings.Paths.PrefixExists(a.PrefixHash) {
		return fmt.Errorf("%w: %s", ErrPrefixNotFound, a.PrefixHash)
	}
	if !w.ui.Confirm(fmt.Sprintf("Are you sure you want to terminate %q?", a.Name)) {
		return ErrAborted
	}
	script, err := assetScript("terminate.sh")
	if err != nil {
		return err
	}
	return w.engine.Wait(ctx, a.PrefixHash, script)
}

func (w *Wizard) delete(a DeleteAction) error {
	paths := w.settings.Paths
	if !paths.PrefixExists(a.PrefixHash) {
		return fmt.Errorf("%w: %s", ErrPrefixNotFound, a.PrefixHash)
	}
	if w.busy.Contains(a.PrefixHash) || w.running.Contains(a.PrefixHash) {
		return fmt.Errorf("%w: %s", ErrPrefixInUse, a.Name)
	}
	if !w.ui.Confirm(fmt.Sprintf("Are you sure you want to delete %q?", a.Name)) {
		return ErrAborted
	}
	if err := paths.RemovePrefix(a.PrefixHash); err != nil {
		return err
	}
	colArrow.Print("-> ")
	colSuccess.Printf("Deleted %s\n", a.Name)
	return nil
}

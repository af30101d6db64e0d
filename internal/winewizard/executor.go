package winewizard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Invocation is one script run inside a prefix.
type Invocation struct {
	Prefix  string // prefix hash
	Script  string
	Capture bool // collect stdout and stderr into Output.Text
	Attach  bool // run inside the configured terminal emulator, if any
}

// Output is what a captured run produced.
type Output struct {
	Text     string
	ExitCode int
}

// Interpreter executes scripts. A non-zero exit status is reported through
// Output.ExitCode, not as an error.
type Interpreter interface {
	Run(ctx context.Context, inv Invocation) (Output, error)
}

// ShellInterpreter writes the embedded header plus the script to a temp file
// and runs it with Shell.
type ShellInterpreter struct {
	Shell    string
	Terminal []string
	Paths    Paths
	Stdin    io.Reader // attached runs only
	Stdout   io.Writer
	Stderr   io.Writer
}

func NewShellInterpreter(s Settings) *ShellInterpreter {
	return &ShellInterpreter{
		Shell:    s.Shell,
		Terminal: s.Terminal,
		Paths:    s.Paths,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Environment returns the variables every script sees.
func (i *ShellInterpreter) Environment(hash string) []string {
	return append(os.Environ(),
		"WINEPREFIX="+i.Paths.Wine(hash),
		"WW_PREFIX="+i.Paths.Prefix(hash),
		"WW_PREFIX_HASH="+hash,
		"WW_CACHE="+i.Paths.Cache,
		"WW_DATA="+i.Paths.Data,
	)
}

func (i *ShellInterpreter) Run(ctx context.Context, inv Invocation) (Output, error) {
	header, err := assetScript("header.sh")
	if err != nil {
		return Output{}, err
	}
	if err := os.MkdirAll(i.Paths.Temp, 0o755); err != nil {
		return Output{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	f, err := os.CreateTemp(i.Paths.Temp, "ww-*.sh")
	if err != nil {
		return Output{}, fmt.Errorf("failed to create script file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(header + "\n" + inv.Script); err != nil {
		f.Close()
		return Output{}, fmt.Errorf("failed to write script file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Output{}, err
	}

	args := []string{i.Shell, f.Name()}
	if inv.Attach && len(i.Terminal) > 0 {
		args = append(append([]string(nil), i.Terminal...), args...)
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = i.Environment(inv.Prefix)
	// detached runs must not compete with the menu for input
	if inv.Attach {
		cmd.Stdin = i.Stdin
	}

	var buf bytes.Buffer
	if inv.Capture {
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	} else {
		cmd.Stdout = i.Stdout
		cmd.Stderr = i.Stderr
	}
	// own process group so cancellation takes wine and its children down too
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return Output{}, fmt.Errorf("failed to start %s: %w", i.Shell, err)
	}
	pgid := cmd.Process.Pid
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			syscall.Kill(-pgid, syscall.SIGKILL)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	out := Output{Text: buf.String()}
	if waitErr != nil {
		if ctx.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return out, fmt.Errorf("script aborted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return out, waitErr
		}
		out.ExitCode = exitErr.ExitCode()
	}
	return out, nil
}

// Engine runs scripts in the four execution modes and keeps the running
// registry in step with release and debug runs.
type Engine struct {
	interp   Interpreter
	running  *Registry
	shutdown *Shutdown
	logger   hclog.Logger
}

func NewEngine(interp Interpreter, running *Registry, shutdown *Shutdown, logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{interp: interp, running: running, shutdown: shutdown, logger: logger.Named("engine")}
}

// Terminal runs a script attached to the console and blocks until it ends.
// It cannot be interrupted through ctx.
func (e *Engine) Terminal(ctx context.Context, hash, script string) error {
	e.logger.Debug("terminal", "prefix", hash)
	out, err := e.interp.Run(context.WithoutCancel(ctx), Invocation{Prefix: hash, Script: script, Attach: true})
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		e.logger.Warn("script exited with non-zero status", "prefix", hash, "mode", "terminal", "code", out.ExitCode)
	}
	return nil
}

// track marks hash running for the duration of one release or debug run.
// The returned context also ends when a quit is requested.
func (e *Engine) track(ctx context.Context, hash string) (context.Context, func(), error) {
	release := e.running.Hold(hash)
	// checked after Hold so a concurrent Quit either sees the prefix or we see the flag
	if e.shutdown.Quitting() {
		release()
		return nil, nil, ErrShuttingDown
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-e.shutdown.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		cancel()
		release()
	}, nil
}

// Release runs a detached script while the prefix is marked running.
func (e *Engine) Release(ctx context.Context, hash, script string) error {
	ctx, done, err := e.track(ctx, hash)
	if err != nil {
		return err
	}
	defer done()
	e.logger.Debug("release", "prefix", hash)
	out, err := e.interp.Run(ctx, Invocation{Prefix: hash, Script: script})
	if err != nil {
		if e.shutdown.Quitting() {
			return ErrShuttingDown
		}
		return err
	}
	e.logger.Debug("release finished", "prefix", hash, "code", out.ExitCode)
	return nil
}

// Debug runs a script while the prefix is marked running and returns its
// combined output.
func (e *Engine) Debug(ctx context.Context, hash, script string) (Output, error) {
	ctx, done, err := e.track(ctx, hash)
	if err != nil {
		return Output{}, err
	}
	defer done()
	e.logger.Debug("debug", "prefix", hash)
	out, err := e.interp.Run(ctx, Invocation{Prefix: hash, Script: script, Capture: true})
	e.logger.Debug("debug finished", "prefix", hash, "code", out.ExitCode, "bytes", len(out.Text))
	if err != nil && e.shutdown.Quitting() {
		return out, ErrShuttingDown
	}
	return out, err
}

// Wait runs an untracked script to completion.
func (e *Engine) Wait(ctx context.Context, hash, script string) error {
	e.logger.Debug("wait", "prefix", hash)
	_, err := e.interp.Run(ctx, Invocation{Prefix: hash, Script: script})
	return err
}

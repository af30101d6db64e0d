package winewizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// InstallRequest names the installer to run in a new prefix. Solution and
// Arch are asked through the UI when empty.
type InstallRequest struct {
	Exe      string
	WorkDir  string
	Args     []string
	Solution string
	Arch     string
}

// InstallResult is the outcome of a finished install. Whether the Windows
// installer actually worked is only known through Confirmed.
type InstallResult struct {
	PrefixHash string
	Name       string
	Output     Output
	Confirmed  bool
}

type installPlan struct {
	name    string
	arch    string
	scripts Scripts
}

// Wizard drives installs and prefix actions. Its registries live as long as
// the Wizard itself.
type Wizard struct {
	settings Settings
	ui       UI
	fetcher  Fetcher
	engine   *Engine
	running  *Registry
	busy     *Registry
	shutdown *Shutdown
	logger   hclog.Logger
}

func NewWizard(s Settings, ui UI, fetcher Fetcher, interp Interpreter, logger hclog.Logger) *Wizard {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	running := NewRegistry()
	shutdown := NewShutdown()
	return &Wizard{
		settings: s,
		ui:       ui,
		fetcher:  fetcher,
		engine:   NewEngine(interp, running, shutdown, logger),
		running:  running,
		busy:     NewRegistry(),
		shutdown: shutdown,
		logger:   logger,
	}
}

func (w *Wizard) Running() *Registry { return w.running }
func (w *Wizard) Busy() *Registry { return w.busy }
func (w *Wizard) Shutdown() *Shutdown { return w.shutdown }
func (w *Wizard) Settings() Settings { return w.settings }
func (w *Wizard) Paths() Paths { return w.settings.Paths }

// Start is the entry point for install requests from the command line or the
// menu. While another install is in progress, in this process or another,
// it fails with ErrBusy without prompting.
func (w *Wizard) Start(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	if w.busy.Len() > 0 {
		return nil, ErrBusy
	}
	unlock, err := acquireInstallLock(w.settings.Paths.Cache)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return w.Install(ctx, req)
}

// validateInstaller checks that exe exists and is an EXE or MSI file.
func validateInstaller(exe string) error {
	info, err := os.Stat(exe)
	if err != nil || info.IsDir() {
		return inputErrorf("file %q not found", exe)
	}
	switch strings.ToUpper(filepath.Ext(exe)) {
	case ".EXE", ".MSI":
		return nil
	}
	return inputErrorf("file %q is not a valid Windows application", exe)
}

// Install creates a fresh prefix for the selected solution and runs the
// installer in it.
func (w *Wizard) Install(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	if err := validateInstaller(req.Exe); err != nil {
		return nil, err
	}
	exe, err := filepath.Abs(req.Exe)
	if err != nil {
		return nil, inputErrorf("%v", err)
	}
	workDir := req.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(exe)
	}
	paths := w.settings.Paths
	if err := paths.Ensure(); err != nil {
		return nil, err
	}

	plan, err := w.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	hash := PrefixHash(plan.name)
	if w.running.Contains(hash) || w.busy.Contains(hash) {
		return nil, fmt.Errorf("%w: %s", ErrPrefixInUse, plan.name)
	}
	if paths.PrefixExists(hash) {
		w.logger.Info("removing existing prefix", "name", plan.name, "prefix", hash)
		if err := paths.RemovePrefix(hash); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(paths.Prefix(hash), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create prefix: %w", err)
	}

	releaseBusy := w.busy.Hold(hash)
	defer releaseBusy()

	colArrow.Print("-> ")
	colSuccess.Printf("Installing %s (%s-bit)\n", plan.name, plan.arch)
	if err := w.engine.Terminal(ctx, hash, plan.scripts.Before); err != nil {
		return nil, err
	}
	rec := EnvironmentRecord{Hash: hash, Name: plan.name, Arch: plan.arch, Debug: true}
	if err := SaveRecord(paths, rec); err != nil {
		return nil, fmt.Errorf("failed to save prefix settings: %w", err)
	}

	create, err := assetScript("create.sh")
	if err != nil {
		return nil, err
	}
	if err := w.engine.Release(ctx, hash, create); err != nil {
		return nil, err
	}
	if w.shutdown.Quitting() {
		return nil, ErrShuttingDown
	}

	w.installMenubuilder(hash, plan.arch)

	if plan.scripts.AfterConfirm != "" {
		if err := w.engine.Terminal(ctx, hash, plan.scripts.AfterConfirm); err != nil {
			return nil, err
		}
	}

	run, err := RunScript(exe, workDir, req.Args)
	if err != nil {
		return nil, err
	}
	out, err := w.engine.Debug(ctx, hash, run)
	if err != nil {
		return nil, err
	}
	if w.shutdown.Quitting() {
		return nil, ErrShuttingDown
	}

	if err := w.engine.Terminal(ctx, hash, plan.scripts.After); err != nil {
		return nil, err
	}
	releaseBusy()

	res := &InstallResult{PrefixHash: hash, Name: plan.name, Output: out}
	res.Confirmed = w.ui.Finish(plan.name)
	if !res.Confirmed {
		w.ui.ShowOutput(out)
		return res, nil
	}
	rec.Debug = false
	if err := SaveRecord(paths, rec); err != nil {
		w.logger.Warn("failed to clear debug flag", "prefix", hash, "error", err)
	}
	return res, nil
}

// prepare fetches the repository and the solution, resolves and acquires the
// artifacts and synthesizes the install scripts.
func (w *Wizard) prepare(ctx context.Context, req InstallRequest) (*installPlan, error) {
	paths := w.settings.Paths
	repoPath := paths.CacheFile(repoCacheName(w.settings.RepoURL))
	if err := w.fetcher.Fetch(ctx, FetchRequest{Mirrors: []string{w.settings.RepoURL}, Dest: repoPath}); err != nil {
		return nil, err
	}
	repo, err := LoadRepository(repoPath)
	if err != nil {
		return nil, err
	}
	if err := repo.CheckVersion(Version()); err != nil {
		return nil, err
	}
	removed, err := clearRepository(paths.Cache, repo)
	if err != nil {
		w.logger.Warn("cache pruning failed", "error", err)
	}
	if len(removed) > 0 {
		w.logger.Debug("pruned cache", "files", removed)
	}

	slug := req.Solution
	if slug == "" {
		var ok bool
		if slug, ok = w.ui.SelectSolution(); !ok {
			return nil, ErrAborted
		}
	}
	arch := req.Arch
	if arch == "" {
		var ok bool
		if arch, ok = w.ui.SelectArch(); !ok {
			return nil, ErrAborted
		}
	}
	if arch != "32" && arch != "64" {
		return nil, inputErrorf("unsupported architecture %q", arch)
	}

	solPath := filepath.Join(paths.Temp, "solution")
	solURL := w.settings.APIURL + "?c=get&slug=" + url.QueryEscape(slug) + "&arch=" + arch
	if err := w.fetcher.Fetch(ctx, FetchRequest{Mirrors: []string{solURL}, Dest: solPath}); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(solPath)
	if err != nil {
		return nil, fmt.Errorf("read solution: %w", err)
	}
	sol, err := LoadSolution(data)
	if err != nil {
		return nil, err
	}

	files, err := SolutionClosure(repo, arch, sol)
	if err != nil {
		return nil, err
	}
	if err := EnsureArtifacts(ctx, repo, files, paths, w.fetcher); err != nil {
		return nil, err
	}

	userScripts := w.settings.UseScripts && sol.HasUserScripts() &&
		w.ui.ReviewScripts(sol.BeforeScript, sol.AfterScript)
	scripts := Synthesize(repo, sol, ScriptOptions{
		Arch:        arch,
		Video:       w.settings.Video,
		UserScripts: userScripts,
	})
	return &installPlan{name: sol.Name, arch: arch, scripts: scripts}, nil
}

// installMenubuilder replaces wine's menu builder with the bundled one so
// shortcuts land in the prefix. A missing source only warns.
func (w *Wizard) installMenubuilder(hash, arch string) {
	paths := w.settings.Paths
	copies := [][2]string{
		{filepath.Join(paths.Data, "winemenubuilder.exe"), filepath.Join(paths.Sys32(hash, arch), "winemenubuilder.exe")},
	}
	if arch == "64" {
		copies = append(copies, [2]string{
			filepath.Join(paths.Data, "winemenubuilder64.exe"),
			filepath.Join(paths.Sys64(hash), "winemenubuilder.exe"),
		})
	}
	for _, c := range copies {
		if err := replaceFile(c[0], c[1]); err != nil {
			w.logger.Warn("menubuilder not installed", "src", c[0], "error", err)
		}
	}
}

func replaceFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	os.Remove(dst)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Quit asks for confirmation, sets the shutdown flag and terminates every
// running prefix. It reports whether quitting was confirmed.
func (w *Wizard) Quit(ctx context.Context) bool {
	if !w.ui.Confirm("Are you sure you want to quit from Wine Wizard?") {
		return false
	}
	// flag first: calls unblocked by the termination must already see it
	w.shutdown.Quit()
	w.terminateRunning(ctx)
	return true
}

func (w *Wizard) terminateRunning(ctx context.Context) {
	script, err := assetScript("terminate.sh")
	if err != nil {
		w.logger.Error("terminate script missing", "error", err)
		return
	}
	for _, hash := range w.running.Snapshot() {
		if err := w.engine.Wait(ctx, hash, script); err != nil {
			w.logger.Warn("terminate failed", "prefix", hash, "error", err)
		}
	}
}

// Report shows err to the user. Cancellations and declined prompts are silent.
func (w *Wizard) Report(err error) {
	if err == nil || isSilent(err) {
		return
	}
	w.ui.Error(err.Error())
	if errors.Is(err, ErrVersionMismatch) {
		w.ui.OpenURL(w.settings.DownloadURL)
	}
}

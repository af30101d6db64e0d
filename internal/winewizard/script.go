package winewizard

import (
	"fmt"
	"strings"
)

const (
	functionTemplate = "ww_%s()\n{\n%s\n}\n"
	packageTemplate  = "ww_installed_%[1]s()\n{\n%[2]s\n}\nww_install_%[1]s()\n{\n%[3]s\n}\n"
	userScriptInfo   = "ww_info 'Start additional script ...'\n"
)

// Scripts are the synthesized phases of one install transaction.
type Scripts struct {
	// Before creates the wine installation for the before version.
	Before string
	// AfterConfirm installs the before-packages and the optional user
	// before-script into the created prefix. Empty when there is nothing to do.
	AfterConfirm string
	// After switches to the after version, installs the after-packages, runs
	// the optional user after-script and ends with the repository's Done trailer.
	After string
}

// ScriptOptions parameterize synthesis.
type ScriptOptions struct {
	Arch  string
	Video VideoSettings
	// UserScripts appends the solution's own scripts. The caller sets it only
	// when the user opted in and accepted them.
	UserScripts bool
}

// ConstScript renders every repository function and the check/install pair
// of each installable package of arch.
func ConstScript(repo *Repository, arch string) string {
	var b strings.Builder
	for _, f := range repo.Functions {
		fmt.Fprintf(&b, functionTemplate, f.Name, f.Body)
	}
	for _, p := range repo.Packages(arch) {
		if p.Type != PackageTypePackage {
			continue
		}
		fmt.Fprintf(&b, packageTemplate, p.Name, p.Check, p.Install)
	}
	return b.String()
}

// InitFragment instantiates the repository's Init template. Placeholders are
// %1 arch, %2 wine version, %3 WIDTHxHEIGHT and %4 video memory size; they are
// replaced in one pass so substituted values are never expanded again.
func InitFragment(tmpl, arch, wineVersion string, video VideoSettings) string {
	r := strings.NewReplacer(
		"%1", arch,
		"%2", wineVersion,
		"%3", video.Geometry(),
		"%4", fmt.Sprint(video.VideoMemorySize),
	)
	out := r.Replace(tmpl)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// EscapeUserScript doubles every backslash so it survives literal embedding.
func EscapeUserScript(s string) string {
	return strings.ReplaceAll(s, `\`, `\\`)
}

func installDirective(pkg string) string     { return "ww_install " + pkg + "\n" }
func installWineDirective(ver string) string { return "ww_install_wine " + ver + "\n" }

// Synthesize builds the before, after-confirm and after scripts for sol.
func Synthesize(repo *Repository, sol *Solution, opts ScriptOptions) Scripts {
	constScript := ConstScript(repo, opts.Arch)
	beforeInit := constScript + InitFragment(repo.Init, opts.Arch, sol.BeforeWine, opts.Video)

	var s Scripts
	s.Before = beforeInit + installWineDirective(sol.BeforeWine)

	if len(sol.BeforePackages) > 0 || sol.BeforeScript != "" {
		var b strings.Builder
		b.WriteString(beforeInit)
		for _, p := range sol.BeforePackages {
			b.WriteString(installDirective(p))
		}
		if opts.UserScripts && sol.BeforeScript != "" {
			b.WriteString(userScriptInfo)
			b.WriteString(EscapeUserScript(sol.BeforeScript))
			b.WriteString("\n")
		}
		s.AfterConfirm = b.String()
	}

	var a strings.Builder
	a.WriteString(constScript)
	a.WriteString(InitFragment(repo.Init, opts.Arch, sol.AfterWine, opts.Video))
	if sol.AfterWine != sol.BeforeWine {
		a.WriteString(installWineDirective(sol.AfterWine))
	}
	for _, p := range sol.AfterPackages {
		a.WriteString(installDirective(p))
	}
	if opts.UserScripts && sol.AfterScript != "" {
		a.WriteString(userScriptInfo)
		a.WriteString(EscapeUserScript(sol.AfterScript))
		a.WriteString("\n")
	}
	a.WriteString(repo.Done)
	s.After = a.String()
	return s
}

// HasUserScripts reports whether sol carries scripts worth reviewing.
func (s *Solution) HasUserScripts() bool {
	return s.BeforeScript != "" || s.AfterScript != ""
}

// shellEscape escapes content for safe use in shell commands
func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// RunScript renders the embedded run template for exe.
func RunScript(exe, workDir string, args []string) (string, error) {
	tmpl, err := embeddedAssets.ReadFile("assets/run.sh")
	if err != nil {
		return "", err
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellEscape(a)
	}
	r := strings.NewReplacer(
		"%1", shellEscape(exe),
		"%2", shellEscape(workDir),
		"%3", strings.Join(quoted, " "),
	)
	return r.Replace(string(tmpl)), nil
}

func assetScript(name string) (string, error) {
	data, err := embeddedAssets.ReadFile("assets/" + name)
	if err != nil {
		return "", fmt.Errorf("embedded script %s: %w", name, err)
	}
	return string(data), nil
}

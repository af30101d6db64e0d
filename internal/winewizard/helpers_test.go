package winewizard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// sampleRepository returns a repository document for version.
func sampleRepository(version string) string {
	return fmt.Sprintf(`WineWizardVersion = %s
Init = ww_init %%1 %%2 %%3 %%4
Done = ww_done

[Functions.echo]
Body = """printf '%%s\n' "$1"
return 0"""

[Packages32.wine-1.8]
Type = 1
Files = wine-1.8.tar.xz

[Packages32.wine-2.0]
Type = 1
Files = wine-2.0.tar.xz

[Packages32.firefox]
Check = test -f firefox
Install = ww_echo firefox
Files = firefox.exe
Required = vcrun2013

[Packages32.vcrun2013]
Check = test -f vcrun
Install = ww_echo vcrun
Files = vcredist_x86.exe

[Packages64.wine-2.0]
Type = 1
Files = wine-2.0-64.tar.xz

[Files.wine-1.8.tar.xz]
Mirrors = https://mirror.test/wine-1.8.tar.xz

[Files.wine-2.0.tar.xz]
Mirrors = https://mirror.test/wine-2.0.tar.xz

[Files.wine-2.0-64.tar.xz]
Mirrors = https://mirror.test/wine-2.0-64.tar.xz

[Files.firefox.exe]
Mirrors = https://mirror.test/firefox.exe, https://backup.test/firefox.exe

[Files.vcredist_x86.exe]
Mirrors = https://mirror.test/vcredist_x86.exe
`, version)
}

const sampleSolution = `{
  "name": "Firefox",
  "bw": "wine-1.8",
  "aw": "wine-2.0",
  "bp": ["vcrun2013"],
  "ap": ["firefox"],
  "bs": "",
  "as": ""
}`

func mustParseRepository(t *testing.T, data string) *Repository {
	t.Helper()
	repo, err := ParseRepository([]byte(data))
	if err != nil {
		t.Fatalf("ParseRepository() error = %v", err)
	}
	return repo
}

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	p := Paths{
		Cache: filepath.Join(dir, "cache"),
		Data:  filepath.Join(dir, "data"),
		Temp:  filepath.Join(dir, "tmp"),
	}
	if err := p.Ensure(); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	return p
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	return Settings{
		Paths:       testPaths(t),
		Video:       VideoSettings{ScreenWidth: 1024, ScreenHeight: 768, VideoMemorySize: 512},
		RepoURL:     "https://repo.test/main.wwrepo",
		APIURL:      "https://api.test/",
		DownloadURL: "https://download.test/",
		HelpURL:     "https://help.test/",
		Shell:       "/bin/sh",
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// fakeFetcher serves documents from memory.
type fakeFetcher struct {
	mu      sync.Mutex
	content map[string]string // url -> body
	errs    map[string]error  // url -> error
	calls   []FetchRequest
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{content: make(map[string]string), errs: make(map[string]error)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req FetchRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if ctx.Err() != nil {
		return ErrAcquisitionCancelled
	}
	for _, m := range req.Mirrors {
		if err, ok := f.errs[m]; ok {
			return err
		}
		body, ok := f.content[m]
		if !ok {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(req.Dest), 0o755); err != nil {
			return err
		}
		return os.WriteFile(req.Dest, []byte(body), 0o644)
	}
	return fmt.Errorf("no content for %v", req.Mirrors)
}

func (f *fakeFetcher) fetched(dest string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Dest == dest {
			return true
		}
	}
	return false
}

// fakeInterpreter records invocations. hook, when set, decides the result.
type fakeInterpreter struct {
	mu   sync.Mutex
	runs []Invocation
	hook func(ctx context.Context, inv Invocation) (Output, error)
}

func (f *fakeInterpreter) Run(ctx context.Context, inv Invocation) (Output, error) {
	f.mu.Lock()
	f.runs = append(f.runs, inv)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, inv)
	}
	return Output{Text: "ok\n"}, nil
}

func (f *fakeInterpreter) invocations() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Invocation(nil), f.runs...)
}

// fakeUI answers prompts from fields and counts every call.
type fakeUI struct {
	mu sync.Mutex

	confirm  bool
	finish   bool
	slug     string
	arch     string
	scripts  bool
	file     string
	calls    []string
	errors   []string
	outputs  []Output
	openURLs []string
}

func (u *fakeUI) record(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, name)
}

func (u *fakeUI) Confirm(text string) bool {
	u.record("Confirm")
	return u.confirm
}

func (u *fakeUI) Error(text string) {
	u.record("Error")
	u.mu.Lock()
	u.errors = append(u.errors, text)
	u.mu.Unlock()
}

func (u *fakeUI) Finish(string) bool {
	u.record("Finish")
	return u.finish
}

func (u *fakeUI) ShowOutput(out Output) {
	u.record("ShowOutput")
	u.mu.Lock()
	u.outputs = append(u.outputs, out)
	u.mu.Unlock()
}

func (u *fakeUI) SelectSolution() (string, bool) {
	u.record("SelectSolution")
	return u.slug, u.slug != ""
}

func (u *fakeUI) SelectArch() (string, bool) {
	u.record("SelectArch")
	return u.arch, u.arch != ""
}

func (u *fakeUI) ReviewScripts(before, after string) bool {
	u.record("ReviewScripts")
	return u.scripts
}

func (u *fakeUI) SelectFile(title, dir string) (string, bool) {
	u.record("SelectFile")
	return u.file, u.file != ""
}

func (u *fakeUI) OpenURL(target string) {
	u.record("OpenURL")
	u.mu.Lock()
	u.openURLs = append(u.openURLs, target)
	u.mu.Unlock()
}

func (u *fakeUI) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

func (u *fakeUI) called(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, c := range u.calls {
		if c == name {
			return true
		}
	}
	return false
}

func containsAll(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in:\n%s", w, got)
		}
	}
}

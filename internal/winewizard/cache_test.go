package winewizard

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestRepoCacheName(t *testing.T) {
	tests := map[string]string{
		"https://r.test/main.wwrepo":     "main.wwrepo",
		"https://r.test/main.wwrepo.zst": "main.wwrepo.zst",
		"https://r.test/repo.xz":         "main.wwrepo.xz",
		"https://r.test/repo.gz":         "main.wwrepo.gz",
	}
	for in, want := range tests {
		if got := repoCacheName(in); got != want {
			t.Errorf("repoCacheName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClearRepository(t *testing.T) {
	dir := t.TempDir()
	keep := []string{"main.wwrepo", "main.wwrepo.zst", "install.lock", "firefox.exe", "firefox.exe.lock", "wine-2.0.tar.xz"}
	drop := []string{"old-wine.tar.xz", "old-wine.tar.xz.lock", "stray.part"}
	for _, name := range append(append([]string{}, keep...), drop...) {
		writeFile(t, filepath.Join(dir, name), name)
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	removed, err := clearRepository(dir, mustParseRepository(t, sampleRepository("1")))
	if err != nil {
		t.Fatalf("clearRepository() error = %v", err)
	}
	sort.Strings(removed)
	sort.Strings(drop)
	if len(removed) != len(drop) {
		t.Fatalf("removed = %v, want %v", removed, drop)
	}
	for i := range drop {
		if removed[i] != drop[i] {
			t.Errorf("removed = %v, want %v", removed, drop)
		}
	}
	for _, name := range append(keep, "subdir") {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s was removed", name)
		}
	}

	if removed, err := clearRepository(filepath.Join(dir, "missing"), mustParseRepository(t, sampleRepository("1"))); err != nil || removed != nil {
		t.Errorf("clearRepository(missing) = %v, %v", removed, err)
	}
}

func TestAcquireInstallLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	unlock, err := acquireInstallLock(dir)
	if err != nil {
		t.Fatalf("acquireInstallLock() error = %v", err)
	}
	if _, err := acquireInstallLock(dir); !errors.Is(err, ErrBusy) {
		t.Fatalf("second acquire error = %v, want ErrBusy", err)
	}
	unlock()

	unlock, err = acquireInstallLock(dir)
	if err != nil {
		t.Fatalf("acquire after release error = %v", err)
	}
	unlock()
}

package winewizard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const installLockName = "install.lock"

// repoCacheName keeps the compression suffix of the repository URL so
// LoadRepository knows how to unpack the cached copy.
func repoCacheName(repoURL string) string {
	for _, ext := range []string{".zst", ".xz", ".gz"} {
		if strings.HasSuffix(repoURL, ext) {
			return repoFileName + ext
		}
	}
	return repoFileName
}

// clearRepository removes every cached file the repository no longer lists.
// The repository itself, the install lock and the lock files of listed
// artifacts are kept. It returns the names it removed.
func clearRepository(cacheDir string, repo *Repository) ([]string, error) {
	keep := map[string]bool{installLockName: true}
	for _, name := range []string{repoFileName, repoFileName + ".zst", repoFileName + ".xz", repoFileName + ".gz"} {
		keep[name] = true
		keep[name+".lock"] = true
	}
	for _, name := range repo.FileNames() {
		keep[name] = true
		keep[name+".lock"] = true
	}

	entries, err := os.ReadDir(cacheDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	var removed []string
	for _, e := range entries {
		if e.IsDir() || keep[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(cacheDir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to prune %s: %w", e.Name(), err)
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}

// acquireInstallLock takes the process-wide install lock without blocking.
// A lock held by another process yields ErrBusy.
func acquireInstallLock(cacheDir string) (func(), error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cacheDir, installLockName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open install lock: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("failed to acquire install lock: %w", err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

package winewizard

import (
	"fmt"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"
)

const repoFileName = "main.wwrepo"

// Paths is the on-disk layout: a shared artifact cache and one directory per prefix.
type Paths struct {
	Cache string
	Data  string
	Temp  string
}

func defaultPaths(cacheDir, dataDir string) (Paths, error) {
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return Paths{}, fmt.Errorf("resolve cache dir: %w", err)
		}
		cacheDir = filepath.Join(base, "winewizard")
	}
	if dataDir == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return Paths{}, fmt.Errorf("resolve data dir: %w", err)
			}
			base = filepath.Join(home, ".local", "share")
		}
		dataDir = filepath.Join(base, "winewizard")
	}
	return Paths{
		Cache: cacheDir,
		Data:  dataDir,
		Temp:  filepath.Join(os.TempDir(), fmt.Sprintf("winewizard-%d", os.Getuid())),
	}, nil
}

// Ensure creates the cache, data and temp directories.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Cache, p.Prefixes(), p.Temp} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (p Paths) RepoFile() string { return filepath.Join(p.Cache, repoFileName) }
func (p Paths) CacheFile(name string) string { return filepath.Join(p.Cache, name) }
func (p Paths) Prefixes() string { return filepath.Join(p.Data, "prefixes") }
func (p Paths) Prefix(hash string) string { return filepath.Join(p.Prefixes(), hash) }
func (p Paths) Wine(hash string) string { return filepath.Join(p.Prefix(hash), "wine") }
func (p Paths) Drive(hash string) string { return filepath.Join(p.Wine(hash), "drive_c") }
func (p Paths) Windows(hash string) string { return filepath.Join(p.Drive(hash), "windows") }
func (p Paths) Shortcuts(hash string) string { return filepath.Join(p.Prefix(hash), "shortcuts") }
func (p Paths) PrefixSettings(hash string) string {
	return filepath.Join(p.Prefix(hash), ".settings")
}

// Sys32 is the directory holding 32-bit system binaries for arch.
func (p Paths) Sys32(hash, arch string) string {
	if arch == "64" {
		return filepath.Join(p.Windows(hash), "syswow64")
	}
	return filepath.Join(p.Windows(hash), "system32")
}

// Sys64 is the 64-bit system directory of a 64-bit prefix.
func (p Paths) Sys64(hash string) string {
	return filepath.Join(p.Windows(hash), "system32")
}

// PrefixHash derives the prefix identity from its display name.
func PrefixHash(name string) string {
	h := blake3.New(16, nil)
	h.Write([]byte(name))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// PrefixExists reports whether a prefix directory exists for hash.
func (p Paths) PrefixExists(hash string) bool {
	info, err := os.Stat(p.Prefix(hash))
	return err == nil && info.IsDir()
}

// RemovePrefix deletes the whole prefix tree.
func (p Paths) RemovePrefix(hash string) error {
	if hash == "" {
		return fmt.Errorf("empty prefix hash")
	}
	if err := os.RemoveAll(p.Prefix(hash)); err != nil {
		return fmt.Errorf("failed to remove prefix %s: %w", hash, err)
	}
	return nil
}

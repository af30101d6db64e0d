package winewizard

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// EnvironmentRecord is the per-prefix .settings file.
type EnvironmentRecord struct {
	Hash  string `ini:"-"`
	Name  string `ini:"Name"`
	Arch  string `ini:"Arch"`
	Debug bool   `ini:"Debug"`
}

// SaveRecord writes rec into the prefix directory.
func SaveRecord(paths Paths, rec EnvironmentRecord) error {
	f := ini.Empty()
	if err := f.Section("").ReflectFrom(&rec); err != nil {
		return err
	}
	if err := os.MkdirAll(paths.Prefix(rec.Hash), 0o755); err != nil {
		return fmt.Errorf("failed to create prefix %s: %w", rec.Hash, err)
	}
	return f.SaveTo(paths.PrefixSettings(rec.Hash))
}

// LoadRecord reads the .settings of hash.
func LoadRecord(paths Paths, hash string) (EnvironmentRecord, error) {
	rec := EnvironmentRecord{Hash: hash}
	f, err := ini.Load(paths.PrefixSettings(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return rec, fmt.Errorf("%w: %s", ErrPrefixNotFound, hash)
		}
		return rec, err
	}
	if err := f.Section("").MapTo(&rec); err != nil {
		return rec, err
	}
	rec.Hash = hash
	return rec, nil
}

// ListPrefixes returns every prefix with a readable record, sorted by name.
func ListPrefixes(paths Paths) ([]EnvironmentRecord, error) {
	entries, err := os.ReadDir(paths.Prefixes())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []EnvironmentRecord
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec, err := LoadRecord(paths, e.Name())
		if err != nil {
			debugf("skipping prefix %s: %v\n", e.Name(), err)
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindPrefix resolves a prefix by display name or hash.
func FindPrefix(paths Paths, ref string) (EnvironmentRecord, error) {
	if ref == "" {
		return EnvironmentRecord{}, fmt.Errorf("%w: empty name", ErrPrefixNotFound)
	}
	if rec, err := LoadRecord(paths, ref); err == nil {
		return rec, nil
	}
	return LoadRecord(paths, PrefixHash(ref))
}

// Shortcut is a launcher file inside a prefix, written by the menu builder
// or by hand.
type Shortcut struct {
	Path    string `ini:"-"`
	Name    string `ini:"Name"`
	Exe     string `ini:"Exe"`
	Args    string `ini:"Args"`
	WorkDir string `ini:"WorkDir"`
	Debug   bool   `ini:"Debug"`
}

// Arguments splits Args on whitespace.
func (s Shortcut) Arguments() []string { return strings.Fields(s.Args) }

// ListShortcuts reads every *.ini in the prefix's shortcut directory.
func ListShortcuts(paths Paths, hash string) ([]Shortcut, error) {
	matches, err := filepath.Glob(filepath.Join(paths.Shortcuts(hash), "*.ini"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]Shortcut, 0, len(matches))
	for _, m := range matches {
		sc, err := LoadShortcut(m)
		if err != nil {
			debugf("skipping shortcut %s: %v\n", m, err)
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

func LoadShortcut(path string) (Shortcut, error) {
	sc := Shortcut{Path: path}
	f, err := ini.Load(path)
	if err != nil {
		return sc, err
	}
	if err := f.Section("").MapTo(&sc); err != nil {
		return sc, err
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), ".ini")
	}
	sc.Path = path
	return sc, nil
}

// SaveShortcut writes sc back to sc.Path.
func SaveShortcut(sc Shortcut) error {
	f := ini.Empty()
	if err := f.Section("").ReflectFrom(&sc); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
		return err
	}
	return f.SaveTo(sc.Path)
}

// clearShortcutDebug drops the Debug flag once a debug run was confirmed good.
func clearShortcutDebug(path string) error {
	sc, err := LoadShortcut(path)
	if err != nil {
		return err
	}
	if !sc.Debug {
		return nil
	}
	sc.Debug = false
	return SaveShortcut(sc)
}

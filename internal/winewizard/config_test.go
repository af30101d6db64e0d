package winewizard

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadConfigFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winewizard.conf")
	writeFile(t, path, `# Wine Wizard settings
WINEWIZARD_SHELL=/bin/sh
  WINEWIZARD_TERMINAL = "xterm -e"
WINEWIZARD_REPO_URL=https://x.test/a?b=c#frag
not a setting
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	want := map[string]string{
		"WINEWIZARD_SHELL":    "/bin/sh",
		"WINEWIZARD_TERMINAL": "xterm -e",
		"WINEWIZARD_REPO_URL": "https://x.test/a?b=c#frag",
	}
	for k, v := range want {
		if got := cfg.Values[k]; got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if _, ok := cfg.Values["not a setting"]; ok {
		t.Error("line without a value became a setting")
	}
}

func TestSettingsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Values: map[string]string{
		"WINEWIZARD_CACHE_DIR": filepath.Join(dir, "cache"),
		"WINEWIZARD_DATA_DIR":  filepath.Join(dir, "data"),
	}}
	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if s.Shell != "/bin/bash" || s.RepoURL != defaultRepoURL || s.UseScripts {
		t.Errorf("settings = %+v", s)
	}
	if s.Video != (VideoSettings{ScreenWidth: 800, ScreenHeight: 600, VideoMemorySize: 256}) {
		t.Errorf("Video = %+v", s.Video)
	}
	if s.Paths.Cache != filepath.Join(dir, "cache") || s.Paths.Data != filepath.Join(dir, "data") {
		t.Errorf("Paths = %+v", s.Paths)
	}
	if s.Terminal != nil {
		t.Errorf("Terminal = %v, want none", s.Terminal)
	}
}

func TestSettingsValues(t *testing.T) {
	cfg := &Config{Values: map[string]string{
		"WINEWIZARD_CACHE_DIR":     t.TempDir(),
		"WINEWIZARD_DATA_DIR":      t.TempDir(),
		"WINEWIZARD_TERMINAL":      "xterm -hold -e",
		"WINEWIZARD_USE_SCRIPTS":   "1",
		"WINEWIZARD_SCREEN_WIDTH":  "1920",
		"WINEWIZARD_SCREEN_HEIGHT": "1080",
	}}
	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if !reflect.DeepEqual(s.Terminal, []string{"xterm", "-hold", "-e"}) {
		t.Errorf("Terminal = %v", s.Terminal)
	}
	if !s.UseScripts || s.Video.Geometry() != "1920x1080" {
		t.Errorf("settings = %+v", s)
	}

	for _, bad := range []string{"-5", "lots"} {
		cfg.Values["WINEWIZARD_VIDEO_MEMORY"] = bad
		if _, err := cfg.Settings(); err == nil {
			t.Errorf("Settings() accepted video memory %q", bad)
		}
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winewizard.conf")
	writeFile(t, path, "# defaults\nWINEWIZARD_SHELL=/bin/sh\nWINEWIZARD_API_URL=https://file.test/\n")
	t.Setenv("WINEWIZARD_API_URL", "https://env.test/")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Values["WINEWIZARD_SHELL"] != "/bin/sh" {
		t.Errorf("shell = %q", cfg.Values["WINEWIZARD_SHELL"])
	}
	if cfg.Values["WINEWIZARD_API_URL"] != "https://env.test/" {
		t.Errorf("api url = %q, want the environment value", cfg.Values["WINEWIZARD_API_URL"])
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.conf")); err != nil {
		t.Errorf("loadConfig(missing) error = %v", err)
	}
}

func TestSetConfigValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "winewizard.conf")
	writeFile(t, path, "# keep me\nWINEWIZARD_SHELL=/bin/sh\nWINEWIZARD_API_URL=https://file.test/\n")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := setConfigValue(cfg, "WINEWIZARD_SHELL", "/bin/bash"); err != nil {
		t.Fatal(err)
	}
	if err := setConfigValue(cfg, "WINEWIZARD_USE_SCRIPTS", "1"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# keep me") {
		t.Errorf("comment lost:\n%s", data)
	}
	if cfg.Values["WINEWIZARD_USE_SCRIPTS"] != "1" {
		t.Error("in-memory value not updated")
	}

	reloaded, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"WINEWIZARD_SHELL":       "/bin/bash",
		"WINEWIZARD_API_URL":     "https://file.test/",
		"WINEWIZARD_USE_SCRIPTS": "1",
	}
	for k, v := range want {
		if got := reloaded.Values[k]; got != v {
			t.Errorf("%s = %q after save, want %q", k, got, v)
		}
	}

	fresh := &Config{Path: filepath.Join(t.TempDir(), "new", "winewizard.conf"), Values: map[string]string{}}
	if err := setConfigValue(fresh, "WINEWIZARD_SHELL", "/bin/zsh"); err != nil {
		t.Fatal(err)
	}
	again, err := loadConfig(fresh.Path)
	if err != nil || again.Values["WINEWIZARD_SHELL"] != "/bin/zsh" {
		t.Errorf("new config = %v, %v", again, err)
	}
}

package winewizard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// Config holds the KEY=VALUE pairs from the config file and environment.
type Config struct {
	Path   string
	Values map[string]string
	file   *ini.File
}

// VideoSettings parameterize the prefix initialization template.
type VideoSettings struct {
	ScreenWidth     int
	ScreenHeight    int
	VideoMemorySize int
}

// Geometry renders the screen size as WIDTHxHEIGHT.
func (v VideoSettings) Geometry() string {
	return fmt.Sprintf("%dx%d", v.ScreenWidth, v.ScreenHeight)
}

// Settings is the typed view of Config, resolved once at startup.
type Settings struct {
	Paths       Paths
	Video       VideoSettings
	RepoURL     string
	APIURL      string
	DownloadURL string
	HelpURL     string
	Shell       string
	Terminal    []string
	UseScripts  bool
	S3          S3Settings
}

// S3Settings configure the client used for s3:// mirrors.
type S3Settings struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// DefaultConfigPath returns $WINEWIZARD_CONFIG or the XDG location.
func DefaultConfigPath() string {
	if p := os.Getenv("WINEWIZARD_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), "winewizard-config")
	}
	return filepath.Join(dir, "winewizard", "winewizard.conf")
}

func configLoadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		Loose:                   true,
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}
}

// loadConfig reads path (a missing file is not an error) and applies env overrides.
func loadConfig(path string) (*Config, error) {
	file, err := ini.LoadSources(configLoadOptions(), path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	cfg := &Config{Path: path, Values: file.Section(ini.DefaultSection).KeysHash(), file: file}
	mergeEnvOverrides(cfg)
	return cfg, nil
}

// Merge WINEWIZARD_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "WINEWIZARD_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

// rawSettings is the flat key layout of the config file. Fields keep their
// defaults when the key is absent.
type rawSettings struct {
	RepoURL     string `ini:"WINEWIZARD_REPO_URL"`
	APIURL      string `ini:"WINEWIZARD_API_URL"`
	DownloadURL string `ini:"WINEWIZARD_DOWNLOAD_URL"`
	HelpURL     string `ini:"WINEWIZARD_HELP_URL"`
	Shell       string `ini:"WINEWIZARD_SHELL"`
	Terminal    string `ini:"WINEWIZARD_TERMINAL"`
	UseScripts  bool   `ini:"WINEWIZARD_USE_SCRIPTS"`
	CacheDir    string `ini:"WINEWIZARD_CACHE_DIR"`
	DataDir     string `ini:"WINEWIZARD_DATA_DIR"`
	Width       int    `ini:"WINEWIZARD_SCREEN_WIDTH"`
	Height      int    `ini:"WINEWIZARD_SCREEN_HEIGHT"`
	VideoMemory int    `ini:"WINEWIZARD_VIDEO_MEMORY"`
	S3Endpoint  string `ini:"WINEWIZARD_S3_ENDPOINT"`
	S3Region    string `ini:"WINEWIZARD_S3_REGION"`
	S3KeyID     string `ini:"WINEWIZARD_S3_ACCESS_KEY_ID"`
	S3Secret    string `ini:"WINEWIZARD_S3_SECRET_ACCESS_KEY"`
}

// Settings resolves the typed settings, applying defaults.
func (c *Config) Settings() (Settings, error) {
	raw := rawSettings{
		RepoURL:     defaultRepoURL,
		APIURL:      defaultAPIURL,
		DownloadURL: defaultDownloadURL,
		HelpURL:     defaultHelpURL,
		Shell:       "/bin/bash",
		Width:       800,
		Height:      600,
		VideoMemory: 256,
		S3Region:    "auto",
	}
	// file values and env overrides are mapped together; empty values keep the default
	merged := ini.Empty()
	for k, v := range c.Values {
		if v = strings.TrimSpace(v); v != "" {
			merged.Section(ini.DefaultSection).Key(k).SetValue(v)
		}
	}
	if err := merged.Section(ini.DefaultSection).StrictMapTo(&raw); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	for key, n := range map[string]int{
		"WINEWIZARD_SCREEN_WIDTH":  raw.Width,
		"WINEWIZARD_SCREEN_HEIGHT": raw.Height,
		"WINEWIZARD_VIDEO_MEMORY":  raw.VideoMemory,
	} {
		if n <= 0 {
			return Settings{}, fmt.Errorf("config %s: expected a positive integer, got %d", key, n)
		}
	}

	s := Settings{
		Video:       VideoSettings{ScreenWidth: raw.Width, ScreenHeight: raw.Height, VideoMemorySize: raw.VideoMemory},
		RepoURL:     raw.RepoURL,
		APIURL:      raw.APIURL,
		DownloadURL: raw.DownloadURL,
		HelpURL:     raw.HelpURL,
		Shell:       raw.Shell,
		Terminal:    strings.Fields(raw.Terminal),
		UseScripts:  raw.UseScripts,
		S3: S3Settings{
			Endpoint:        raw.S3Endpoint,
			Region:          raw.S3Region,
			AccessKeyID:     raw.S3KeyID,
			SecretAccessKey: raw.S3Secret,
		},
	}
	if len(s.Terminal) == 0 {
		s.Terminal = nil
	}

	var err error
	s.Paths, err = defaultPaths(raw.CacheDir, raw.DataDir)
	if err != nil {
		return s, err
	}
	return s, nil
}

// setConfigValue updates key in the config file, keeping every other line intact.
func setConfigValue(cfg *Config, key, value string) error {
	file := cfg.file
	if file == nil {
		var err error
		if file, err = ini.LoadSources(configLoadOptions(), cfg.Path); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	file.Section(ini.DefaultSection).Key(key).SetValue(value)

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := file.SaveTo(cfg.Path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	cfg.file = file
	cfg.Values[key] = value
	return nil
}

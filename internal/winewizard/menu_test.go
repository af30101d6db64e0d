package winewizard

import (
	"path/filepath"
	"testing"
)

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in      string
		max     int
		want    int
		wantErr bool
	}{
		{"1", 3, 0, false},
		{" 3\n", 3, 2, false},
		{"0", 3, 0, true},
		{"4", 3, 0, true},
		{"q", 3, 0, true},
	}
	for _, tt := range tests {
		got, err := parseChoice(tt.in, tt.max)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("parseChoice(%q, %d) = %d, %v", tt.in, tt.max, got, err)
		}
	}
}

func labels(entries []menuEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.label
	}
	return out
}

func TestBuildMenu(t *testing.T) {
	f := newWizardFixture(t)
	paths := f.settings.Paths
	game := installedPrefix(t, paths, "Game")
	if err := SaveRecord(paths, EnvironmentRecord{Hash: game, Name: "Game", Arch: "32"}); err != nil {
		t.Fatal(err)
	}
	if err := SaveShortcut(Shortcut{Path: filepath.Join(paths.Shortcuts(game), "game.ini"), Name: "Game", Exe: "C:/game.exe"}); err != nil {
		t.Fatal(err)
	}
	tool := installedPrefix(t, paths, "Tool")
	if err := SaveShortcut(Shortcut{Path: filepath.Join(paths.Shortcuts(tool), "tool.ini"), Name: "Tool", Exe: "C:/tool.exe"}); err != nil {
		t.Fatal(err)
	}
	f.w.Running().Add(game)

	entries, headers, err := f.w.buildMenu()
	if err != nil {
		t.Fatalf("buildMenu() error = %v", err)
	}
	want := []string{
		"Run Game", "Run file...", "Browse", "Terminate",
		"Debug Tool", "Run file...", "Browse", "Delete",
		"Install...", "Help", "Quit",
	}
	got := labels(entries)
	if len(got) != len(want) {
		t.Fatalf("menu = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("menu = %v, want %v", got, want)
		}
	}
	if headers[0] != "Game (running)" || headers[4] != "Tool" || headers[8] != "Wine Wizard" {
		t.Errorf("headers = %q", headers)
	}
	if !entries[0].background || entries[4].background {
		t.Error("only run entries go to the background")
	}

	f.w.Busy().Add("other")
	entries, _, err = f.w.buildMenu()
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.label == "Install..." {
			t.Error("install offered while another install is in progress")
		}
	}
}

package winewizard

import (
	"embed"

	"github.com/gookit/color"
)

var (
	version   = "dev"     // overridden at build time
	buildDate = "unknown" // overridden at build time

	//go:embed assets/*.sh assets/*.json
	embeddedAssets embed.FS
)

// Default endpoints; each one can be overridden from the config file.
const (
	defaultRepoURL     = "https://wwizard.net/repo/main.wwrepo"
	defaultAPIURL      = "https://wwizard.net/api/"
	defaultDownloadURL = "https://wwizard.net/download/"
	defaultHelpURL     = "https://wwizard.net/help/"
)

// color helpers
var (
	colInfo    = color.Info
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)

// Version reports the application version the repository must match.
func Version() string { return version }

// SetVersion overrides the application version. Used by tests and packagers.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

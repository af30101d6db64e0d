package winewizard

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates the diagnostic logger. Console output for the user goes
// through the color helpers instead.
func NewLogger(level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "winewizard",
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv("WINEWIZARD_JSON_LOG") == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// logLevel returns the configured log level, warn when unset.
func logLevel(cfg *Config) string {
	if cfg != nil {
		if v := cfg.Values["WINEWIZARD_LOG_LEVEL"]; v != "" {
			return v
		}
	}
	return "warn"
}

// debugEnabled is toggled once at startup from WINEWIZARD_DEBUG.
var debugEnabled bool

// debugf prints debug messages when WINEWIZARD_DEBUG=1
func debugf(format string, args ...any) {
	if debugEnabled {
		fmt.Printf(format, args...)
	}
}

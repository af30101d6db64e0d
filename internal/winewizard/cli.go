package winewizard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

// app holds what every command needs once the config is loaded.
type app struct {
	cfg      *Config
	settings Settings
	logger   hclog.Logger
	ui       *ConsoleUI
	wizard   *Wizard
}

func newApp() (*app, error) {
	cfg, err := loadConfig(DefaultConfigPath())
	if err != nil {
		return nil, err
	}
	debugEnabled = cfg.Values["WINEWIZARD_DEBUG"] == "1"
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(logLevel(cfg), os.Stderr)
	ui := Stdio()
	fetcher := NewHTTPFetcher(settings.S3, os.Stderr, logger.Named("fetch"))
	interp := NewShellInterpreter(settings)
	return &app{
		cfg:      cfg,
		settings: settings,
		logger:   logger,
		ui:       ui,
		wizard:   NewWizard(settings, ui, fetcher, interp, logger),
	}, nil
}

// settingKeys are shown by the settings command in this order.
var settingKeys = []string{
	"WINEWIZARD_REPO_URL",
	"WINEWIZARD_API_URL",
	"WINEWIZARD_DOWNLOAD_URL",
	"WINEWIZARD_HELP_URL",
	"WINEWIZARD_CACHE_DIR",
	"WINEWIZARD_DATA_DIR",
	"WINEWIZARD_SHELL",
	"WINEWIZARD_TERMINAL",
	"WINEWIZARD_SCREEN_WIDTH",
	"WINEWIZARD_SCREEN_HEIGHT",
	"WINEWIZARD_VIDEO_MEMORY",
	"WINEWIZARD_USE_SCRIPTS",
	"WINEWIZARD_DEBUG",
	"WINEWIZARD_LOG_LEVEL",
	"WINEWIZARD_S3_ENDPOINT",
	"WINEWIZARD_S3_REGION",
	"WINEWIZARD_S3_ACCESS_KEY_ID",
	"WINEWIZARD_S3_SECRET_ACCESS_KEY",
}

func newRootCmd(ctx context.Context, a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "winewizard",
		Short:         "Install Windows software into isolated wine prefixes",
		Version:       Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.wizard.Menu(ctx, a.ui)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	var solution, arch, workDir string
	installCmd := &cobra.Command{
		Use:   "install <installer.exe|.msi> [args...]",
		Short: "Create a prefix for a solution and run an installer in it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wizard.Start(ctx, InstallRequest{
				Exe:      args[0],
				WorkDir:  workDir,
				Args:     args[1:],
				Solution: solution,
				Arch:     arch,
			})
			if err != nil {
				return err
			}
			colArrow.Print("-> ")
			if res.Confirmed {
				colSuccess.Printf("%s installed in prefix %s\n", res.Name, res.PrefixHash)
			} else {
				colWarn.Printf("%s installed in prefix %s with problems\n", res.Name, res.PrefixHash)
			}
			return nil
		},
	}
	installCmd.Flags().StringVar(&solution, "solution", "", "solution slug (asked when empty)")
	installCmd.Flags().StringVar(&arch, "arch", "", "prefix architecture, 32 or 64 (asked when empty)")
	installCmd.Flags().StringVar(&workDir, "workdir", "", "working directory of the installer")

	var runWorkDir string
	runCmd := &cobra.Command{
		Use:   "run <prefix> <exe> [args...]",
		Short: "Run a program inside a prefix",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := FindPrefix(a.settings.Paths, args[0])
			if err != nil {
				return err
			}
			if rec.Debug {
				return a.wizard.Dispatch(ctx, DebugAction{PrefixHash: rec.Hash, Exe: args[1], WorkDir: runWorkDir, Args: args[2:]})
			}
			return a.wizard.Dispatch(ctx, RunAction{PrefixHash: rec.Hash, Exe: args[1], WorkDir: runWorkDir, Args: args[2:]})
		},
	}
	runCmd.Flags().StringVar(&runWorkDir, "workdir", "", "working directory of the program")

	debugCmd := &cobra.Command{
		Use:   "debug <prefix> <exe> [args...]",
		Short: "Run a program inside a prefix and show its output on failure",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := FindPrefix(a.settings.Paths, args[0])
			if err != nil {
				return err
			}
			return a.wizard.Dispatch(ctx, DebugAction{PrefixHash: rec.Hash, Exe: args[1], WorkDir: runWorkDir, Args: args[2:]})
		},
	}
	debugCmd.Flags().StringVar(&runWorkDir, "workdir", "", "working directory of the program")

	runFileCmd := &cobra.Command{
		Use:   "run-file <prefix> [file]",
		Short: "Debug an executable located inside the prefix",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := FindPrefix(a.settings.Paths, args[0])
			if err != nil {
				return err
			}
			act := RunFileAction{PrefixHash: rec.Hash}
			if len(args) == 2 {
				act.Exe = args[1]
			}
			return a.wizard.Dispatch(ctx, act)
		},
	}

	prefixCmd := func(use, short string, mk func(EnvironmentRecord) Action) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <prefix>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rec, err := FindPrefix(a.settings.Paths, args[0])
				if err != nil {
					return err
				}
				return a.wizard.Dispatch(ctx, mk(rec))
			},
		}
	}
	terminateCmd := prefixCmd("terminate", "Stop every program running in a prefix", func(r EnvironmentRecord) Action {
		return TerminateAction{PrefixHash: r.Hash, Name: r.Name}
	})
	deleteCmd := prefixCmd("delete", "Delete a prefix", func(r EnvironmentRecord) Action {
		return DeleteAction{PrefixHash: r.Hash, Name: r.Name}
	})
	browseCmd := prefixCmd("browse", "Open the prefix directory", func(r EnvironmentRecord) Action {
		return BrowseAction{PrefixHash: r.Hash}
	})

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List prefixes and their shortcuts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPrefixes(a.settings.Paths)
		},
	}

	menuCmd := &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.wizard.Menu(ctx, a.ui)
		},
	}

	settingsCmd := &cobra.Command{
		Use:   "settings [KEY [VALUE]]",
		Short: "Show or change configuration",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 0:
				colNote.Printf("Config file: %s\n", a.cfg.Path)
				for _, k := range settingKeys {
					fmt.Printf("  %-32s %s\n", k, a.cfg.Values[k])
				}
				return nil
			case 1:
				fmt.Println(a.cfg.Values[normalizeKey(args[0])])
				return nil
			}
			key := normalizeKey(args[0])
			if !isSettingKey(key) {
				return fmt.Errorf("unknown setting %s", key)
			}
			if err := setConfigValue(a.cfg, key, args[1]); err != nil {
				return err
			}
			colArrow.Print("-> ")
			colSuccess.Printf("%s=%s\n", key, args[1])
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			color.Info.Printf("winewizard %s", Version())
			if buildDate != "unknown" {
				fmt.Printf(" (built %s)", buildDate)
			}
			fmt.Println()
		},
	}

	root.AddCommand(installCmd, runCmd, debugCmd, runFileCmd, terminateCmd, deleteCmd,
		browseCmd, listCmd, menuCmd, settingsCmd, versionCmd)
	return root
}

func normalizeKey(k string) string {
	k = strings.ToUpper(k)
	if !strings.HasPrefix(k, "WINEWIZARD_") {
		k = "WINEWIZARD_" + k
	}
	return k
}

func isSettingKey(k string) bool {
	for _, s := range settingKeys {
		if s == k {
			return true
		}
	}
	return false
}

func listPrefixes(paths Paths) error {
	prefixes, err := ListPrefixes(paths)
	if err != nil {
		return err
	}
	if len(prefixes) == 0 {
		colNote.Println("No prefixes found")
		return nil
	}
	for _, rec := range prefixes {
		colArrow.Print("-> ")
		colSuccess.Printf("%s", rec.Name)
		fmt.Printf("  %s  %s-bit", rec.Hash, rec.Arch)
		if rec.Debug {
			colWarn.Print("  debug")
		}
		fmt.Println()
		shortcuts, err := ListShortcuts(paths, rec.Hash)
		if err != nil {
			return err
		}
		sort.Slice(shortcuts, func(i, j int) bool { return shortcuts[i].Name < shortcuts[j].Name })
		for _, sc := range shortcuts {
			fmt.Printf("     %s: %s %s\n", sc.Name, sc.Exe, sc.Args)
		}
	}
	return nil
}

// Main is the CLI entrypoint.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			colArrow.Print("\n-> ")
			color.Danger.Printf("Received %v. Cancelling\n", sig)
			cancel()
			select {
			case <-sigs:
				colArrow.Print("\n-> ")
				color.Danger.Println("Second interrupt received. Forcing immediate exit.")
				os.Exit(130)
			case <-time.After(10 * time.Second):
				os.Exit(130)
			}
		case <-ctx.Done():
		}
	}()

	a, err := newApp()
	if err != nil {
		colError.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	root := newRootCmd(ctx, a)
	err = root.ExecuteContext(ctx)
	switch {
	case err == nil:
	case isSilent(err):
		colNote.Println("Cancelled")
	case errors.Is(err, ErrBusy):
		colError.Printf("Error: %v\n", err)
		os.Exit(2)
	default:
		a.wizard.Report(err)
		os.Exit(1)
	}
}

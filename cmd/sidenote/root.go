package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote"
	"github.com/aretw0/sidenote/internal/platform"
	"github.com/aretw0/sidenote/pkg/editor"
	"github.com/aretw0/sidenote/pkg/view"
)

var (
	verbose      bool
	configPath   string
	adapter      string
	dir          string
	format       string
	noVersioning bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sidenote",
	Short: "Notes with tags, favorites and autosave over a synchronized key-value store",
	Long: `sidenote keeps notes in a synchronized storage area: a directory of JSON or
YAML files (optionally versioned with git), a SQLite database or Redis.
Preferences are kept per device in a local area.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .sidenote.yaml found upwards)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs, memory, sqlite or redis")
	rootCmd.PersistentFlags().StringVar(&dir, "dir", "", "Storage location (directory, database file or redis URL)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "File format of the fs adapter: json or yaml")
	rootCmd.PersistentFlags().BoolVar(&noVersioning, "no-versioning", false, "Disable git versioning of the fs adapter")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig() platform.Config {
	if configPath != "" {
		cfg, err := platform.LoadConfig(configPath)
		if err != nil {
			fatal("Failed to load config", err)
		}
		return cfg
	}

	wd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get CWD", err)
	}
	cfg, path, err := platform.DiscoverConfig(wd)
	if err != nil {
		fatal("Failed to load config", err)
	}
	if path != "" {
		slog.Debug("using config", "path", path)
	}
	return cfg
}

// stackOptions merges the config file with the command line flags.
func stackOptions(cfg platform.Config, extra ...sidenote.Option) (string, []sidenote.Option) {
	opts := append(cfg.Options(), sidenote.WithLogger(slog.Default()))
	if adapter != "" {
		opts = append(opts, sidenote.WithAdapter(adapter))
	}
	if format != "" {
		opts = append(opts, sidenote.WithFormat(format))
	}
	if noVersioning {
		opts = append(opts, sidenote.WithVersioning(false))
	}
	opts = append(opts, extra...)

	uri := cfg.URI()
	if dir != "" {
		uri = dir
	}
	return uri, opts
}

// openStack opens the configured backend or exits.
func openStack(ctx context.Context, extra ...sidenote.Option) (*sidenote.Stack, platform.Config) {
	cfg := loadConfig()
	uri, opts := stackOptions(cfg, extra...)
	stack, err := sidenote.Open(ctx, uri, opts...)
	if err != nil {
		fatal("Failed to open notes", err)
	}
	return stack, cfg
}

// openReconciler opens the backend and loads the view state.
func openReconciler(ctx context.Context) (*view.Reconciler, *sidenote.Stack) {
	stack, cfg := openStack(ctx)
	var editorOpts []editor.Option
	if cfg.Debounce > 0 {
		editorOpts = append(editorOpts, editor.WithDebounce(cfg.Debounce))
	}
	r := sidenote.NewReconciler(stack,
		view.WithLogger(slog.Default()),
		view.WithEditorOptions(editorOpts...),
	)
	if err := r.Start(ctx); err != nil {
		fatal("Failed to load notes", err)
	}
	return r, stack
}

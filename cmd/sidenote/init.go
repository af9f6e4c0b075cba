package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote"
	"github.com/aretw0/sidenote/internal/platform"
)

var initWriteConfig bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a notes directory",
	Long: `Initialize the storage area in the current directory (or --dir).
For the fs adapter this creates the directory and, unless --no-versioning is
given, a git repository. With --write-config the settings are saved to
.sidenote.yaml.`,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}

		cfg := platform.Config{Adapter: adapter, Format: format}
		if noVersioning {
			versioned := false
			cfg.Versioning = &versioned
		}
		target := cwd
		if dir != "" {
			target = dir
		}

		ctx := context.Background()
		stack, err := sidenote.Open(ctx, target, append(cfg.Options(), sidenote.WithAutoInit(true))...)
		if err != nil {
			fatal("Failed to initialize notes", err)
		}
		defer stack.Close()

		if initWriteConfig {
			if dir != "" {
				cfg.Path = dir
			}
			path := filepath.Join(cwd, platform.ConfigFileName)
			if err := cfg.Save(path); err != nil {
				fatal("Failed to write config", err)
			}
			fmt.Println("Wrote", path)
		}

		fmt.Println("Initialized sidenote in", target)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false, "Save the settings to .sidenote.yaml")
}

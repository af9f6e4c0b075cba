package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/git"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize notes with the remote",
	Long: `Synchronize a versioned notes directory with its git remote: remote changes
are integrated first, then local commits are pushed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		stack, _ := openStack(ctx)
		defer stack.Close()

		fmt.Println("Syncing...")
		err := stack.Notes.Sync(ctx)
		switch {
		case errors.Is(err, core.ErrSyncUnsupported):
			fmt.Println("This storage synchronizes on every write; nothing to do.")
		case errors.Is(err, git.ErrNoRemote):
			fmt.Fprintf(os.Stderr, "Error: Sync failed: %v\n", err)
			fmt.Println("Tip: add a remote with 'git remote add origin <url>'.")
			os.Exit(1)
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error: Sync failed: %v\n", err)
			fmt.Println("If there are merge conflicts, resolve them in the repository and run sync again.")
			os.Exit(1)
		default:
			fmt.Println("Sync completed successfully.")
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

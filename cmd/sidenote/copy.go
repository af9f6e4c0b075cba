package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote"
	"github.com/aretw0/sidenote/pkg/editor"
)

// copyCmd represents the copy command
var copyCmd = &cobra.Command{
	Use:   "copy <id>",
	Short: "Copy a note to the clipboard as plain text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		stack, _ := openStack(ctx)
		defer stack.Close()

		n, err := stack.Notes.Get(ctx, args[0])
		if err != nil {
			fatal("Failed to read note", err)
		}

		session := sidenote.NewSession(ctx, stack.Notes, n, editor.WithLogger(slog.Default()))
		defer session.Discard()
		if err := session.Copy(); err != nil {
			fatal("Failed to copy note", err)
		}
		fmt.Printf("Copied %q (%s)\n", n.DisplayTitle(), session.CountLabel())
	},
}

func init() {
	rootCmd.AddCommand(copyCmd)
}

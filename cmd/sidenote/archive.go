package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		stack, _ := openStack(ctx)
		defer stack.Close()

		if err := stack.Notes.Archive(ctx, args[0]); err != nil {
			fatal("Failed to archive note", err)
		}
		fmt.Printf("Archived %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}

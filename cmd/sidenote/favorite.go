package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// favoriteCmd represents the favorite command
var favoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle the favorite flag of a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		stack, _ := openStack(ctx)
		defer stack.Close()

		if err := stack.Notes.ToggleFavorite(ctx, args[0]); err != nil {
			fatal("Failed to toggle favorite", err)
		}
		n, err := stack.Notes.Get(ctx, args[0])
		if err != nil {
			fatal("Failed to read note", err)
		}
		if n.Favorite {
			fmt.Printf("%s is now a favorite\n", n.ID)
		} else {
			fmt.Printf("%s is no longer a favorite\n", n.ID)
		}
	},
}

func init() {
	rootCmd.AddCommand(favoriteCmd)
}

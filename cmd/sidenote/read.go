package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote/pkg/text"
)

var readHTML bool

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Print a note",
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

		counts := text.Stats(n.Content)
		fmt.Println(n.DisplayTitle())
		fmt.Printf("Updated %s · %s\n", text.TimeAgo(n.UpdatedAt, time.Now()), counts.Detailed())
		if len(n.Tags) > 0 {
			fmt.Println("Tags:", strings.Join(n.Tags, ", "))
		}
		fmt.Println()
		if readHTML {
			fmt.Println(n.Content)
			return
		}
		fmt.Println(text.PlainText(n.Content))
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().BoolVar(&readHTML, "html", false, "Print the stored HTML instead of plain text")
}

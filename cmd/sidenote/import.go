package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote/pkg/export"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import notes from a JSON export",
	Long: `Import the notes of a JSON export (an array of records or a single record).
Records keep their IDs, so importing an export restores the notes it holds;
records without an ID get a fresh one.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fatal("Failed to read file", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		stack, _ := openStack(ctx)
		defer stack.Close()

		notes, err := export.ParseJSON(data, time.Now())
		if err != nil {
			fatal("Failed to parse export", err)
		}
		for _, n := range notes {
			if err := stack.Notes.Save(ctx, n); err != nil {
				fatal("Failed to save note", err)
			}
		}
		fmt.Printf("Imported %d notes\n", len(notes))
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

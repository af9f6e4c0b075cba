package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	newTitle   string
	newContent string
	newTags    []string
)

// newCmd represents the new command
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note",
	Long:  `Create a note and print its ID. Content is HTML, as produced by the rich-text editor.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		r, stack := openReconciler(ctx)
		defer stack.Close()

		session, err := r.CreateNote(ctx)
		if err != nil {
			fatal("Failed to create note", err)
		}
		if newTitle != "" {
			session.SetTitle(newTitle)
		}
		if newContent != "" {
			session.SetContent(newContent)
		}
		for _, tag := range newTags {
			session.AddTag(tag)
		}
		if err := r.CloseEditor(ctx); err != nil {
			fatal("Failed to save note", err)
		}

		fmt.Println(session.ID())
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Note title")
	newCmd.Flags().StringVarP(&newContent, "content", "c", "", "Note content (HTML)")
	newCmd.Flags().StringSliceVar(&newTags, "tag", nil, "Tag to add (repeatable)")
}

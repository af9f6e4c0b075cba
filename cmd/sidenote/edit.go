package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/editor"
	"github.com/aretw0/sidenote/pkg/git"
)

var (
	editTitle      string
	editContent    string
	editTags       []string
	editAddTags    []string
	editRemoveTags []string
	editMessage    string
)

// editCmd represents the edit command
var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit the title, content or tags of a note",
	Long: `Edit a note through an editor session: the edits are saved as one write
when the session closes. With a versioned directory, --message sets the commit message.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		stack, _ := openStack(ctx)
		defer stack.Close()

		n, err := stack.Notes.Get(ctx, args[0])
		if err != nil {
			fatal("Failed to read note", err)
		}

		msg := git.FormatMessage(git.CommitTypeDocs, "notes", "edit "+n.ID, "")
		if editMessage != "" {
			msg = git.AppendFooter(editMessage)
		}
		ctx = context.WithValue(ctx, core.ChangeReasonKey, msg)

		session := sidenote.NewSession(ctx, stack.Notes, n, editor.WithLogger(slog.Default()))
		flags := cmd.Flags()
		if flags.Changed("title") {
			session.SetTitle(editTitle)
		}
		if flags.Changed("content") {
			session.SetContent(editContent)
		}
		if flags.Changed("tags") {
			session.SetTags(editTags)
		}
		for _, tag := range editAddTags {
			session.AddTag(tag)
		}
		for _, tag := range editRemoveTags {
			session.RemoveTag(tag)
		}

		if session.State() == editor.StateClean {
			fmt.Println("Nothing to change.")
			session.Discard()
			return
		}
		if err := session.Close(ctx); err != nil {
			fatal("Failed to save note", err)
		}
		fmt.Printf("Saved at %s (%s)\n", session.LastSavedAt(), session.CountLabel())
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&editContent, "content", "c", "", "New content (HTML)")
	editCmd.Flags().StringSliceVar(&editTags, "tags", nil, "Replace all tags")
	editCmd.Flags().StringSliceVar(&editAddTags, "add-tag", nil, "Tag to add (repeatable)")
	editCmd.Flags().StringSliceVar(&editRemoveTags, "remove-tag", nil, "Tag to remove (repeatable)")
	editCmd.Flags().StringVarP(&editMessage, "message", "m", "", "Commit message for versioned directories")
}

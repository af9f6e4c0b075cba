package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deleteAll       bool
	deleteFavorites bool
	deleteTags      []string
	deleteQuery     string
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete notes",
	Long: `Delete the given notes. With --all every note is deleted; combined with
--query, --favorites or --tag only the matching notes are.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !deleteAll && len(args) == 0 {
			fatal("Nothing to delete", errors.New("pass note IDs or --all"))
		}

		ctx, cancel := signalContext()
		defer cancel()

		r, stack := openReconciler(ctx)
		defer stack.Close()

		if !deleteAll {
			for _, id := range args {
				if err := r.DeleteNote(ctx, id); err != nil {
					fatal("Failed to delete note", err)
				}
				fmt.Printf("Deleted %s\n", id)
			}
			return
		}

		filtered := deleteFavorites || deleteQuery != "" || len(deleteTags) > 0
		before := len(r.Notes())
		var err error
		if filtered {
			r.SetQuery(deleteQuery)
			r.SetFavoritesOnly(deleteFavorites)
			for _, tag := range deleteTags {
				r.SelectTag(tag)
			}
			err = r.DeleteVisible(ctx)
		} else {
			err = r.DeleteAll(ctx)
		}
		if err != nil {
			fatal("Failed to delete notes", err)
		}
		fmt.Printf("Deleted %d notes\n", before-len(r.Notes()))
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every note (or every matching note)")
	deleteCmd.Flags().BoolVar(&deleteFavorites, "favorites", false, "With --all, only favorites")
	deleteCmd.Flags().StringSliceVar(&deleteTags, "tag", nil, "With --all, only notes with any of these tags")
	deleteCmd.Flags().StringVarP(&deleteQuery, "query", "q", "", "With --all, only notes matching the search")
}

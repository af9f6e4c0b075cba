package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/text"
)

var (
	listJSON      bool
	listQuery     string
	listFavorites bool
	listTags      []string
	listOrder     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently updated first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		order := core.SortOrder(listOrder)
		if order != core.SortNewest && order != core.SortOldest {
			fatal("Invalid order", fmt.Errorf("%q (want newest or oldest)", listOrder))
		}

		ctx, cancel := signalContext()
		defer cancel()

		r, stack := openReconciler(ctx)
		defer stack.Close()

		r.SetQuery(listQuery)
		r.SetFavoritesOnly(listFavorites)
		for _, tag := range listTags {
			r.SelectTag(tag)
		}
		notes := core.SortByRecency(r.Visible(), order)

		if listJSON {
			records := make([]core.Record, len(notes))
			for i, n := range notes {
				records[i] = core.Serialize(n)
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(records); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		now := time.Now()
		for _, n := range notes {
			marker := " "
			if n.Favorite {
				marker = "*"
			}
			line := fmt.Sprintf("%s %s  %s  (%s, %s)", marker, n.ID, n.DisplayTitle(),
				text.TimeAgo(n.UpdatedAt, now), text.Stats(n.Content).Compact())
			if len(n.Tags) > 0 {
				line += "  #" + strings.Join(n.Tags, " #")
			}
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output storage records as JSON")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Case-insensitive search in title and content")
	listCmd.Flags().BoolVar(&listFavorites, "favorites", false, "Only favorites")
	listCmd.Flags().StringSliceVar(&listTags, "tag", nil, "Only notes with any of these tags (repeatable)")
	listCmd.Flags().StringVar(&listOrder, "order", string(core.SortNewest), "Sort order: newest or oldest")
}

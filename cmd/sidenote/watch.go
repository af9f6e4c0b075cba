package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote/pkg/adapters/lifecycle"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/host"
)

// printTabs reports pages the host would open.
type printTabs struct{}

func (printTabs) Create(ctx context.Context, url string) error {
	fmt.Println("open", url)
	return nil
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print note changes as they happen",
	Long: `Follow the storage area and print every note change, including changes
made by other processes or pulled by sync. Stops on Ctrl+C.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		stack, _ := openStack(ctx)
		defer stack.Close()

		dispatcher := host.NewDispatcher(printTabs{}, nil,
			host.WithLogger(slog.Default()),
			host.WithStorageHandler(printChanges),
		)

		source := lifecycle.NewSource(stack.Notes)
		if err := source.Start(ctx); err != nil {
			if errors.Is(err, core.ErrWatchUnsupported) {
				fatal("Cannot watch", fmt.Errorf("the %s storage does not report changes", adapterName()))
			}
			fatal("Failed to watch", err)
		}

		fmt.Println("Watching for changes (Ctrl+C to stop)...")
		if err := dispatcher.Run(ctx, host.StorageEvents(ctx, source.Events())); err != nil && !errors.Is(err, context.Canceled) {
			fatal("Watch stopped", err)
		}
	},
}

func adapterName() string {
	if adapter != "" {
		return adapter
	}
	return "configured"
}

func printChanges(cs core.ChangeSet) {
	stamp := time.UnixMilli(cs.Timestamp).Format(time.TimeOnly)
	parts := make([]string, 0, len(cs.Changes))
	for _, key := range cs.Keys() {
		id, _ := core.NoteID(key)
		parts = append(parts, fmt.Sprintf("%s %s", cs.Changes[key].Kind(), id))
	}
	fmt.Printf("[%s] %s\n", stamp, strings.Join(parts, ", "))
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

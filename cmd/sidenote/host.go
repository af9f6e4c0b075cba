package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote/pkg/host"
)

var (
	hostUpdate          bool
	hostPreviousVersion string
	hostServerURL       string
	hostWelcomeURL      string
	hostPanelPage       string
	hostTabID           int
	hostURL             string
)

// hostCmd represents the host command
var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Deliver host events (install, toolbar click) to the dispatcher",
	Long: `Simulate the events the hosting environment delivers outside of the side
panel. Pages the host would open are printed as "open <url>".`,
}

var hostInstalledCmd = &cobra.Command{
	Use:   "installed",
	Short: "Run the install (or update) handler",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		stack, _ := openStack(ctx)
		defer stack.Close()

		serverURL, err := json.Marshal(hostServerURL)
		if err != nil {
			fatal("Invalid server URL", err)
		}
		d := newDispatcher(host.WithInstallSettings(stack.Local, map[string]json.RawMessage{
			host.ServerURLKey: serverURL,
		}))

		ev := host.Installed{Reason: host.ReasonInstall, PreviousVersion: hostPreviousVersion}
		if hostUpdate {
			ev.Reason = host.ReasonUpdate
		}
		if err := d.Handle(ctx, ev); err != nil {
			fatal("Install handler failed", err)
		}

		raw, ok, err := stack.Local.Get(ctx, host.ServerURLKey)
		if err != nil {
			fatal("Failed to read settings", err)
		}
		if ok {
			var value string
			if err := json.Unmarshal(raw, &value); err == nil {
				fmt.Println("server url:", value)
			}
		}
	},
}

var hostClickCmd = &cobra.Command{
	Use:   "click",
	Short: "Run the toolbar action handler for a tab",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		if err := newDispatcher().Handle(ctx, host.ActionClicked{TabID: hostTabID, URL: hostURL}); err != nil {
			fatal("Action failed", err)
		}
	},
}

var hostWelcomeCmd = &cobra.Command{
	Use:   "welcome",
	Short: "Open the welcome page",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		if err := newDispatcher().Handle(ctx, host.OpenWelcome{}); err != nil {
			fatal("Failed to open welcome page", err)
		}
	},
}

// newDispatcher builds a dispatcher without a side panel, so action clicks
// fall back to opening the panel page.
func newDispatcher(opts ...host.Option) *host.Dispatcher {
	opts = append([]host.Option{
		host.WithLogger(slog.Default()),
		host.WithWelcomeURL(hostWelcomeURL),
		host.WithPanelPage(hostPanelPage),
	}, opts...)
	return host.NewDispatcher(printTabs{}, nil, opts...)
}

func init() {
	rootCmd.AddCommand(hostCmd)
	hostCmd.AddCommand(hostInstalledCmd, hostClickCmd, hostWelcomeCmd)

	hostCmd.PersistentFlags().StringVar(&hostWelcomeURL, "welcome-url", host.DefaultWelcomeURL, "Page opened on first install")
	hostCmd.PersistentFlags().StringVar(&hostPanelPage, "panel-page", host.DefaultPanelPage, "Page opened when no side panel is available")

	hostInstalledCmd.Flags().BoolVar(&hostUpdate, "update", false, "Report an update instead of a first install")
	hostInstalledCmd.Flags().StringVar(&hostPreviousVersion, "previous-version", "", "Version being updated from")
	hostInstalledCmd.Flags().StringVar(&hostServerURL, "server-url", host.DefaultServerURL, "Backend URL written to the local area")

	hostClickCmd.Flags().IntVar(&hostTabID, "tab", 0, "Tab the action was clicked on")
	hostClickCmd.Flags().StringVar(&hostURL, "url", "", "URL of the tab")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote/pkg/prefs"
)

var (
	prefsDarkMode bool
	prefsLocale   string
	prefsLocales  bool
)

// prefsCmd represents the prefs command
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change the preferences of this device",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if prefsLocales {
			for _, code := range prefs.Locales {
				fmt.Println(code)
			}
			return
		}

		ctx, cancel := signalContext()
		defer cancel()

		r, stack := openReconciler(ctx)
		defer stack.Close()

		if cmd.Flags().Changed("dark-mode") {
			if err := r.SetDarkMode(ctx, prefsDarkMode); err != nil {
				fatal("Failed to save dark mode", err)
			}
		}
		if cmd.Flags().Changed("locale") {
			if err := r.SetLocale(ctx, prefsLocale); err != nil {
				fatal("Failed to save locale", err)
			}
		}

		p := r.Preferences()
		fmt.Printf("dark mode: %t\nlocale: %s\n", p.DarkMode, p.Locale)
	},
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.Flags().BoolVar(&prefsDarkMode, "dark-mode", false, "Enable or disable dark mode")
	prefsCmd.Flags().StringVar(&prefsLocale, "locale", "", "Interface locale (see --list-locales)")
	prefsCmd.Flags().BoolVar(&prefsLocales, "list-locales", false, "List the supported locales")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sidenote",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sidenote version %s\n", sidenote.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

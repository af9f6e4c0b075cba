package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/sidenote/pkg/export"
)

var (
	exportFormat string
	exportID     string
	exportOut    string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export notes as text, Markdown or JSON",
	Long: `Export every note into one file named notes-<date>.<ext>, or a single note
(--id) into <title>.<ext>. Use --out - to print to stdout.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f, err := export.ParseFormat(exportFormat)
		if err != nil {
			fatal("Invalid format", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		r, stack := openReconciler(ctx)
		defer stack.Close()

		var (
			data []byte
			name string
		)
		if exportID != "" {
			session, err := r.Open(ctx, exportID)
			if err != nil {
				fatal("Failed to open note", err)
			}
			data, name, err = session.Export(f)
			if err != nil {
				fatal("Failed to export note", err)
			}
			_ = r.CloseEditor(ctx)
		} else {
			data, name, err = r.Export(f, time.Now())
			if err != nil {
				fatal("Failed to export notes", err)
			}
		}

		if exportOut == "-" {
			os.Stdout.Write(data)
			return
		}
		path, err := export.WriteFile(exportOut, name, data)
		if err != nil {
			fatal("Failed to write export", err)
		}
		fmt.Println("Exported to", path)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatText), "Export format: txt, md or json")
	exportCmd.Flags().StringVar(&exportID, "id", "", "Export a single note")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", ".", "Output directory, or - for stdout")
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"docqa/internal/service"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Index a PDF or text document, replacing the current collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		errOut := cmd.ErrOrStderr()
		report, err := a.service.UploadDocument(cmd.Context(), f, filepath.Base(args[0]), func(done, total int) {
			fmt.Fprintf(errOut, "\rextracting page %d/%d", done, total)
			if done == total {
				fmt.Fprintln(errOut)
			}
		})
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
		return nil
	},
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func renderReport(r service.IngestReport) string {
	out := titleStyle.Render(fmt.Sprintf("Indexed %d chunks from %d pages into %q", r.Chunks, r.Pages, r.Collection)) + "\n"
	out += labelStyle.Render(fmt.Sprintf("%d chunks carry a section title", r.Titled)) + "\n"
	for _, s := range r.Sections {
		out += fmt.Sprintf("  %-9s %s\n", s.Pages, s.Title)
	}
	if r.Summary != "" {
		out += "\n" + r.Summary + "\n"
	}
	return out
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

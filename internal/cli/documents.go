package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"policyrag/internal/domain"
)

var showOverview bool

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List the loaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := buildApp(cmd.Context(), cfg, newLogger(cfg, os.Stderr))
		if err != nil {
			return fmt.Errorf("ingest %s: %w", cfg.Documents.Dir, err)
		}
		out := cmd.OutOrStdout()
		renderDocuments(out, a.engine.Documents())
		fmt.Fprintf(out, "\n%d loaded, %d skipped, %d duplicates\n", a.report.Loaded, a.report.Skipped, a.report.Duplicates)
		for _, e := range a.report.Errors {
			fmt.Fprintf(out, "  skipped %s\n", e.Error())
		}
		if showOverview {
			fmt.Fprintf(out, "\nOverview:\n%s\n", a.overview(summarySentences))
		}
		return nil
	},
}

func init() {
	documentsCmd.Flags().BoolVar(&showOverview, "overview", false, "print an extractive overview of the corpus")
	rootCmd.AddCommand(documentsCmd)
}

func renderDocuments(w io.Writer, docs []domain.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return
	}
	header := lipgloss.NewStyle().Bold(true)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return header
			}
			return lipgloss.NewStyle()
		}).
		Headers("TITLE", "CATEGORY", "VERSION", "DATE", "ID")
	for _, d := range docs {
		t.Row(d.Title, d.Category, d.Version, d.DateString(), d.ID)
	}
	fmt.Fprintln(w, t.Render())
}

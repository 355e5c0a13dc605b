package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"policyrag/internal/client"
	"policyrag/internal/config"
	"policyrag/internal/domain"
	"policyrag/internal/tui"
)

var (
	askRemote        bool
	askTopK          int
	summarySentences int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question against the documents",
	Long: `Answer a question and print the response as JSON.

Without a question an interactive session is started. With --remote the
question is sent to a running policyrag server instead of a local engine.`,
	Example: `  policyrag ask "How fast must a data incident be reported?"
  policyrag ask --remote --url http://localhost:8080/run "onboarding deadline"
  policyrag ask`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askRemote, "remote", false, "query a running server")
	askCmd.Flags().String("url", "", "server /run endpoint for --remote")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of documents to retrieve (0 uses the configured value)")
	askCmd.Flags().IntVar(&summarySentences, "summary-sentences", 3, "sentences in the corpus overview shown by the interactive session")
	askCmd.Flags().Float64("min-confidence", 0, "confidence below which an answer is reported as low_confidence")

	_ = viper.BindPFlag("client.url", askCmd.Flags().Lookup("url"))
	_ = viper.BindPFlag("retrieval.min_confidence", askCmd.Flags().Lookup("min-confidence"))

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(args, " "))
	interactive := question == ""

	// Logs would corrupt the interactive screen.
	var logOut io.Writer = os.Stderr
	if interactive {
		logOut = io.Discard
	}
	log := newLogger(cfg, logOut)

	topK := askTopK
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	var (
		asker   tui.Asker
		summary string
	)
	if askRemote {
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		asker = c
		summary = "Connected to " + cfg.Client.URL
	} else {
		a, err := buildApp(cmd.Context(), cfg, log)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", cfg.Documents.Dir, err)
		}
		asker = a.engine
		if interactive {
			summary = a.overview(summarySentences)
		}
	}

	if interactive {
		m := tui.New(asker, summary, topK, cfg.Retrieval.MinConfidence)
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("interactive session: %w", err)
		}
		return nil
	}

	resp, err := asker.ProcessQuery(cmd.Context(), question, topK)
	if err != nil {
		return err
	}
	return printResponse(cmd.OutOrStdout(), resp, cfg.Retrieval.MinConfidence)
}

func newClient(cfg *config.AppConfig) (*client.Client, error) {
	return client.New(client.Config{
		URL:        cfg.Client.URL,
		AuthHeader: cfg.Client.AuthHeader,
		Timeout:    cfg.Client.Timeout(),
		MaxRetries: cfg.Client.MaxRetries,
	})
}

// printResponse writes resp in the same envelope the server returns.
func printResponse(w io.Writer, resp *domain.QueryResponse, minConfidence float64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(domain.NewRunResponse(resp, minConfidence))
}

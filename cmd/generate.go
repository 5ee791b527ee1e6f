package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alantheprice/reqgen/pkg/configuration"
	"github.com/alantheprice/reqgen/pkg/orchestration"
)

var (
	generateName          string
	generateDescription   string
	generateClientContext string
	generateContext       []string
	generateOutDir        string
	generateMock          bool
	generateMaxRetries    int
	generateProvider      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the BRD, PRD, FRD and TRD for a project",
	Long: `Creates a project and generates its requirements documents in order.
Each document is given the previously generated documents as context. Generation
stops at the first document that fails.

Examples:
  reqgen generate --name "Shop" --description "An online shop for used books"
  reqgen generate --name "Shop" --description "..." --context audience=students --out docs/
  reqgen generate --name "Demo" --description "..." --mock`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if generateMock {
			cfg.LLM.UseMockProvider = true
		}
		return runGenerate(cmd, cfg)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateName, "name", "", "project name")
	generateCmd.Flags().StringVar(&generateDescription, "description", "", "project description")
	generateCmd.Flags().StringVar(&generateClientContext, "client-context", "", "background about the client")
	generateCmd.Flags().StringArrayVar(&generateContext, "context", nil, "additional context as key=value (repeatable)")
	generateCmd.Flags().StringVar(&generateOutDir, "out", "", "directory to write the generated documents to")
	generateCmd.Flags().BoolVar(&generateMock, "mock", false, "use the built-in mock provider")
	generateCmd.Flags().IntVar(&generateMaxRetries, "max-retries", 3, "attempts per document (default from generation.max_retries)")
	generateCmd.Flags().StringVar(&generateProvider, "provider", "", "use only this provider")
	_ = generateCmd.MarkFlagRequired("name")
}

func runGenerate(cmd *cobra.Command, cfg *configuration.Config) error {
	additional, err := parseContext(generateContext)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	proj, err := a.projects.CreateProject(ctx, generateName, generateDescription, generateClientContext)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	resp := a.orchestrator.GenerateRequirements(ctx, newGenerateRequest(cmd, cfg, proj.ID, additional))

	out := cmd.OutOrStdout()
	printSummary(out, resp)
	if generateOutDir != "" {
		if err := writeDocuments(generateOutDir, resp); err != nil {
			return err
		}
		fmt.Fprintf(out, "Documents written to %s\n", generateOutDir)
	}
	if !resp.Success {
		return fmt.Errorf("requirements generation failed: %s", strings.Join(resp.Errors, "; "))
	}
	return nil
}

// newGenerateRequest builds the run request. --max-retries overrides the
// configured generation.max_retries only when given.
func newGenerateRequest(cmd *cobra.Command, cfg *configuration.Config, projectID string, additional map[string]string) orchestration.Request {
	retries := cfg.Generation.MaxRetries
	if cmd.Flags().Changed("max-retries") {
		retries = generateMaxRetries
	}
	return orchestration.Request{
		ProjectID:         projectID,
		AdditionalContext: additional,
		MaxRetries:        retries,
		PreferredProvider: generateProvider,
	}
}

// parseContext turns key=value pairs into a map
func parseContext(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --context %q: expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func printSummary(w io.Writer, resp *orchestration.Response) {
	fmt.Fprintf(w, "Run %s: %s (%d%%)\n", resp.RunID, resp.Progress.Status, resp.Progress.Percent)
	for _, docType := range resp.DocumentOrder {
		status := "Pending"
		if doc, ok := resp.Progress.Documents[docType]; ok {
			status = string(doc.Status)
		}
		fmt.Fprintf(w, "  %-4s %s\n", docType, status)
	}
	for _, warning := range resp.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
}

// writeDocuments writes each generated document to dir/<TYPE>.md
func writeDocuments(dir string, resp *orchestration.Response) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, docType := range resp.DocumentOrder {
		content, ok := resp.GeneratedDocuments[docType]
		if !ok {
			continue
		}
		path := filepath.Join(dir, docType+".md")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alantheprice/reqgen/pkg/providers"
	providersllm "github.com/alantheprice/reqgen/pkg/providers/llm"
)

var providersCheck bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured LLM providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		factory := providers.NewDefaultFactory(cfg.LLM)
		out := cmd.OutOrStdout()

		available := factory.GetAvailableProviders()
		if len(available) == 0 {
			fmt.Fprintln(out, "No LLM providers are configured")
			return nil
		}
		for _, name := range available {
			marker := " "
			if name == factory.DefaultProvider() {
				marker = "*"
			}
			line := fmt.Sprintf("%s %s", marker, name)
			if providersCheck {
				line += " " + checkProvider(cmd.Context(), factory, name)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	providersCmd.Flags().BoolVar(&providersCheck, "check", false, "send a short request to each provider")
}

func checkProvider(ctx context.Context, factory *providersllm.Factory, name string) string {
	provider, err := factory.GetProvider(name)
	if err != nil {
		return "error: " + err.Error()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if providersllm.ValidateConnection(ctx, provider) {
		return "ok"
	}
	return "unreachable"
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alantheprice/reqgen/pkg/configuration"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers"
	"github.com/alantheprice/reqgen/pkg/validation"
)

// Sends one short request to every provider that has credentials configured.
func main() {
	fmt.Println("=== Testing Provider Connectivity ===")
	fmt.Println()

	cfg, err := configuration.Load(configuration.DefaultConfigPath())
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	factory := providers.NewDefaultFactory(cfg.LLM)

	passed := 0
	failed := 0

	available := factory.GetAvailableProviders()
	if len(available) == 0 {
		fmt.Println("SKIPPED - No API keys found")
		return
	}

	for i, name := range available {
		fmt.Printf("%d. Testing %s... ", i+1, name)
		provider, err := factory.GetProvider(name)
		if err != nil {
			fmt.Printf("FAILED - %v\n", err)
			failed++
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		resp, err := provider.Generate(ctx, types.GenerationRequest{
			Prompt:    "Write a markdown document titled 'Smoke Test' with one short paragraph.",
			MaxTokens: 200,
		})
		cancel()

		switch {
		case err != nil:
			fmt.Printf("FAILED - transient: %v\n", err)
			failed++
		case !resp.Success:
			fmt.Printf("FAILED - %s\n", resp.Error)
			failed++
		default:
			result := validation.NewValidator().ValidateMarkdownStructure(resp.Content)
			fmt.Printf("PASSED (%s, %d tokens, %v, markdown valid: %v)\n",
				resp.Model, resp.TokensUsed, resp.Duration.Round(time.Millisecond), result.Valid)
			passed++
		}
	}

	fmt.Printf("\n=== Results: %d passed, %d failed ===\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

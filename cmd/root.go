package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reqgen",
	Short: "Generate business, product, functional and technical requirements documents",
	Long: `Reqgen turns a short project description into a chain of requirements documents
using Large Language Models. Each document builds on the ones before it:

  BRD  - Business Requirements Document
  PRD  - Product Requirements Document
  FRD  - Functional Requirements Document
  TRD  - Technical Requirements Document

Available commands:
  generate   - Generate the full document chain for a project
  serve      - Run the HTTP API
  validate   - Validate a markdown or YAML document
  providers  - List configured LLM providers
  templates  - List document templates`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .reqgen/config.yaml)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(templatesCmd)
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alantheprice/reqgen/pkg/validation"
)

var validateType string

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a markdown or YAML document",
	Long: `Checks a document's structure. Files ending in .yaml or .yml are checked as YAML.
With --type the required sections of that document type (BRD, PRD, FRD, TRD) are
checked as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		result := validateFile(validation.NewValidator(), args[0], string(content), validateType)
		printValidation(cmd.OutOrStdout(), result)
		if !result.Valid {
			return fmt.Errorf("%s is not valid", args[0])
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateType, "type", "", "document type to check required sections for")
}

func validateFile(v *validation.Validator, path, content, docType string) *validation.Result {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return v.ValidateYaml(content)
	}
	if docType != "" {
		return v.ValidateDocument(strings.ToUpper(docType), content)
	}
	return v.ValidateMarkdownStructure(content)
}

func printValidation(w io.Writer, result *validation.Result) {
	if result.Valid {
		fmt.Fprintln(w, "valid")
	} else {
		fmt.Fprintln(w, "invalid")
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	keys := make([]string, 0, len(result.Metadata))
	for k := range result.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %v\n", k, result.Metadata[k])
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alantheprice/reqgen/pkg/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List document templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine := templates.NewEngine(templates.Options{Dir: cfg.Templates.Dir})
		names, err := engine.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

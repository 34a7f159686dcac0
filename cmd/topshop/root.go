package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for topshop.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topshop",
		Short: "Classify storefronts by platform and product category",
		Long: `topshop fetches the public pages of storefront domains and scores weak
signals to decide two things per domain:

  platform  is the store built on Shopify
  category  does the store sell women's fashion

Indicator patterns, weights and thresholds come from a YAML rule file
(see "topshop init"). Results are saved to a local SQLite record store
that "topshop list" and "topshop rank" query.`,
		Version:       versionInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewRankCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

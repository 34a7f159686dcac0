package main

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/topshop.yaml
var configTemplate embed.FS

const templatePath = "templates/topshop.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a rule file with the built-in defaults",
		Long: `Init writes a commented .topshop rule file to the current directory.

The file lists every indicator with its default patterns, weights, caps
and thresholds, plus commented examples of per-site cookies, headers and
region overrides.

Examples:
  # Create .topshop in the current directory
  topshop init

  # Create the rule file at a specific path
  topshop init -o rules/topshop.yaml

  # Overwrite an existing file
  topshop init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "Output file path for the rule file")
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing rule file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("rule file already exists: %s (use -f to overwrite)", outputPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", outputPath, err)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read rule file template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// 0600: the file may hold per-site cookies.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write rule file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created rule file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to tune classification:")
	fmt.Fprintln(out, "  - indicator patterns, keyword lists and price expressions")
	fmt.Fprintln(out, "  - per-match weights, caps and decision thresholds")
	fmt.Fprintln(out, "  - per-site cookies, headers and regions")
	return nil
}

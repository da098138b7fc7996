package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/drugindex/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/drugindex.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new drugindex configuration file",
		Long: `Initialize creates a commented .drugindex configuration file in the current directory.

Set a contact address in userAgent (or the From header) before crawling so the
site operator can reach you.

Examples:
  # Create .drugindex in current directory
  drugindex init

  # Create config file at a specific path
  drugindex init -o ~/.config/drugindex/config.yaml

  # Force overwrite existing file
  drugindex init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
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
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/drugindex.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file before your first crawl:")
	fmt.Fprintln(out, "  - Put a contact address in userAgent")
	fmt.Fprintln(out, "  - Adjust requestsPerMinute if the site asks for a slower pace")
	fmt.Fprintln(out, "  - Enable the page cache while developing against the site")

	return nil
}

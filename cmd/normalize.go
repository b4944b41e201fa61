package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/parser"
)

var normalizeFormat string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <compose-file>",
	Short: "Print the canonical form of a local compose file",
	Long: `Canonicalize a compose file: every shorthand is expanded to its long
form. Values that cannot be read are replaced by defaults and reported
on stderr.

Examples:
  compose-edit normalize docker-compose.yml
  compose-edit normalize --format yaml ./stack`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeFormat, "format", "f", "json", "Output format: json, yaml")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	doc, notices, err := parser.ParseComposeFile(args[0])
	if err != nil {
		return err
	}
	printNotices(notices)

	out, err := renderDocument(doc, normalizeFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func renderDocument(doc *models.Document, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to generate JSON: %w", err)
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("failed to generate YAML: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown format %q (json, yaml)", format)
	}
}

package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show [service]",
	Short: "Fetch a stack and print its canonical document",
	Long: `Fetch the configured stack from the mutation service and print the
canonical document, or a single service.

Examples:
  compose-edit show --server prod --stack shop
  compose-edit show api --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "json", "Output format: json, yaml")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	doc := s.Document()

	if len(args) == 1 {
		svc, ok := doc.Services[args[0]]
		if !ok {
			return fmt.Errorf("service %q not found in %s", args[0], s.Ref())
		}
		doc.Services = map[string]models.Service{args[0]: svc}
		doc.Networks, doc.Volumes, doc.Secrets, doc.Configs = nil, nil, nil, nil
	} else {
		color.New(color.FgCyan).Fprintf(cmd.ErrOrStderr(), "%s: %d service(s)\n", s.Ref(), len(doc.Services))
	}

	out, err := renderDocument(doc, showFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

package cmd

import (
	"fmt"
	"maps"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-edit/internal/edit"
	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/parser"
)

var (
	svcImage    string
	svcPorts    []string
	svcEnv      []string
	svcUnsetEnv []string
	svcVolumes  []string
	svcRestart  string
	svcCommand  string
	svcPreview  bool
	svcFormat   string
	svcUnified  bool
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "List, add, edit, remove and rename services",
}

var serviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the services of the configured stack",
	Args:  cobra.NoArgs,
	RunE:  runServiceList,
}

var serviceAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a service",
	Long: `Add a service to the configured stack.

Examples:
  compose-edit service add cache --image redis:7 --port 6379 --restart always
  compose-edit service add api --image node:20 --env PORT=3000 --volume ./src:/app`,
	Args: cobra.ExactArgs(1),
	RunE: runServiceAdd,
}

var serviceSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Edit fields of a service and save or preview them",
	Long: `Edit fields of a service. Only the fields given are sent.

Examples:
  compose-edit service set api --image node:22
  compose-edit service set api --env DEBUG=1 --unset-env LEGACY --preview --unified`,
	Args: cobra.ExactArgs(1),
	RunE: runServiceSet,
}

var serviceRmCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"remove"},
	Short:   "Remove a service",
	Long: `Remove a service. Services depending on it are listed and left as they
are.`,
	Args: cobra.ExactArgs(1),
	RunE: runServiceRm,
}

var serviceRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a service and rewrite its dependents",
	Args:  cobra.ExactArgs(2),
	RunE:  runServiceRename,
}

func init() {
	addFlags := serviceAddCmd.Flags()
	addFlags.StringVar(&svcImage, "image", "", "Image of the new service (required)")
	addFlags.StringArrayVarP(&svcPorts, "port", "p", nil, "Port in compose short syntax, repeatable")
	addFlags.StringArrayVarP(&svcEnv, "env", "e", nil, "Environment variable KEY=VALUE, repeatable")
	addFlags.StringArrayVarP(&svcVolumes, "volume", "v", nil, "Mount in compose short syntax, repeatable")
	addFlags.StringVar(&svcRestart, "restart", "", "Restart policy")
	_ = serviceAddCmd.MarkFlagRequired("image")

	setFlags := serviceSetCmd.Flags()
	setFlags.StringVar(&svcImage, "image", "", "Image")
	setFlags.StringArrayVarP(&svcPorts, "port", "p", nil, "Replace ports, repeatable")
	setFlags.StringArrayVarP(&svcEnv, "env", "e", nil, "Set environment variable KEY=VALUE, repeatable")
	setFlags.StringArrayVar(&svcUnsetEnv, "unset-env", nil, "Remove environment variable, repeatable")
	setFlags.StringArrayVarP(&svcVolumes, "volume", "v", nil, "Replace mounts, repeatable")
	setFlags.StringVar(&svcRestart, "restart", "", "Restart policy")
	setFlags.StringVar(&svcCommand, "command", "", "Command, split on whitespace")
	setFlags.BoolVar(&svcPreview, "preview", false, "Preview instead of saving")
	setFlags.StringVarP(&svcFormat, "format", "f", "text", "Preview format: text, json, markdown, category, category-detail")
	setFlags.BoolVar(&svcUnified, "unified", false, "Also print a unified YAML diff with --preview")

	serviceCmd.AddCommand(serviceListCmd, serviceAddCmd, serviceSetCmd, serviceRmCmd, serviceRenameCmd)
	rootCmd.AddCommand(serviceCmd)
}

func runServiceList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	bold := color.New(color.Bold).SprintFunc()
	for _, name := range s.Services() {
		svc, _ := s.Effective(name)
		image := "-"
		if svc.Image != nil {
			image = *svc.Image
		} else if svc.Build != nil {
			image = "(build " + svc.Build.Context + ")"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", bold(name), image)
	}
	return nil
}

func runServiceAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	env, err := parseEnv(svcEnv)
	if err != nil {
		return err
	}
	svc := models.NewServiceConfig{
		Image:       svcImage,
		Ports:       parsePorts(svcPorts),
		Environment: env,
		Volumes:     parseMounts(svcVolumes),
		Restart:     svcRestart,
	}
	if err := s.AddService(cmd.Context(), args[0], svc); err != nil {
		return err
	}
	color.Green("Added service %s to %s", args[0], s.Ref())
	return nil
}

func runServiceSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	env, err := parseEnv(svcEnv)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	err = s.Edit(name, func(e *edit.ServiceEdit) error {
		if flags.Changed("image") {
			e.SetImage(svcImage)
		}
		if flags.Changed("port") {
			e.SetPorts(parsePorts(svcPorts))
		}
		if flags.Changed("volume") {
			e.SetVolumes(parseMounts(svcVolumes))
		}
		if flags.Changed("restart") {
			e.SetRestart(svcRestart)
		}
		if flags.Changed("command") {
			e.SetCommand(strings.Fields(svcCommand))
		}
		if len(env) > 0 || len(svcUnsetEnv) > 0 {
			merged := maps.Clone(e.Effective().Environment)
			if merged == nil {
				merged = make(map[string]string)
			}
			maps.Copy(merged, env)
			for _, key := range svcUnsetEnv {
				delete(merged, key)
			}
			e.SetEnvironment(merged)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !s.Status().Dirty {
		color.Yellow("No changes for %s", name)
		return nil
	}

	if svcPreview {
		if err := s.Preview(cmd.Context()); err != nil {
			return err
		}
		p := s.Status().Preview
		return printPreview(p.Report, p.Original, p.Modified, svcFormat, svcUnified)
	}
	if err := s.SaveService(cmd.Context(), name); err != nil {
		return err
	}
	color.Green("Saved %s in %s", name, s.Ref())
	return nil
}

func runServiceRm(cmd *cobra.Command, args []string) error {
	name := args[0]
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	if deps := s.Dependents(name); len(deps) > 0 {
		color.Yellow("Warning: %s is a dependency of %s; their depends_on entries are left as they are", name, strings.Join(deps, ", "))
	}
	if err := s.RemoveService(cmd.Context(), name); err != nil {
		return err
	}
	color.Green("Removed service %s from %s", name, s.Ref())
	return nil
}

func runServiceRename(cmd *cobra.Command, args []string) error {
	oldName, newName := args[0], args[1]
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	deps := s.Dependents(oldName)
	if err := s.RenameService(cmd.Context(), oldName, newName); err != nil {
		return err
	}
	color.Green("Renamed service %s to %s in %s", oldName, newName, s.Ref())
	if len(deps) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Rewrote depends_on in: %s\n", strings.Join(deps, ", "))
	}
	return nil
}

func parsePorts(values []string) []models.Port {
	var ports []models.Port
	for _, v := range values {
		ports = append(ports, parser.NormalizePort(v))
	}
	return ports
}

func parseMounts(values []string) []models.Mount {
	var mounts []models.Mount
	for _, v := range values {
		mounts = append(mounts, parser.NormalizeVolume(v))
	}
	return mounts
}

func parseEnv(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	list := make([]any, 0, len(values))
	for _, v := range values {
		if !strings.Contains(v, "=") {
			return nil, fmt.Errorf("invalid --env %q, expected KEY=VALUE", v)
		}
		list = append(list, v)
	}
	return parser.NormalizeEnvironment(list), nil
}

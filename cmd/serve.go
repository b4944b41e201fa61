package cmd

import (
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-edit/internal/server"
	"github.com/stackgen-cli/compose-edit/internal/stack"
)

var (
	serveStacks string
	serveListen string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mutation service over local stack directories",
	Long: `Serve compose stacks from local directories. Every subdirectory of
the stacks directory holding a compose file is a stack. Applied
change-sets snapshot the original file under .compose-edit/.

Examples:
  compose-edit serve --stacks /srv/stacks
  compose-edit serve --stacks /srv/stacks --server prod --listen :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveStacks, "stacks", "", "Directory of stacks, served under --server (default: local)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config, :8780)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	servers := make(map[string]string, len(cfg.Stacks)+1)
	for id, dir := range cfg.Stacks {
		servers[id] = dir
	}
	if serveStacks != "" {
		id := cfg.Server
		if id == "" {
			id = "local"
		}
		servers[id] = serveStacks
	}
	if len(servers) == 0 {
		return errors.New("no stacks configured, pass --stacks or set stacks in the config file")
	}
	listen := cfg.Listen
	if serveListen != "" {
		listen = serveListen
	}

	for id, dir := range servers {
		logger.Info("serving stacks", "server", id, "dir", dir)
	}
	manager := stack.NewManager(servers, stack.WithLogger(logger))
	router := server.NewRouter(manager, server.WithLogger(logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx, listen, router, logger, func(addr net.Addr) {
		color.Green("compose-edit listening on %s", addr)
	})
}

package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Broccolito/PilotR/pkg/config"
	"github.com/Broccolito/PilotR/pkg/server"
)

type serveFlags struct {
	configPath string
	workdir    string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio",
		Args:  cobra.NoArgs,
		RunE:  flags.runServeCommand,
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to an optional YAML config file")
	cmd.Flags().StringVarP(&flags.workdir, "workdir", "w", "", "Pre-select a working directory at startup")

	return cmd
}

func (f *serveFlags) runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if f.workdir != "" {
		cfg.Workdir = f.workdir
	}

	return server.New(cfg).Run(cmd.Context())
}

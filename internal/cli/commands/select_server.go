package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reservas-dev/reservas/internal/cli/config"
	"github.com/reservas-dev/reservas/internal/cli/serverselect"
	"github.com/reservas-dev/reservas/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-server [alias-or-url]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ reservas select-server                        # Interactive selection
  $ reservas select-server prod                   # Select by alias
  $ reservas select-server http://localhost:8000  # Select by URL`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectServer(cmd, urlOrAlias)
		},
	}

	return cmd
}

func runSelectServer(cmd *cobra.Command, urlOrAlias string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'reservas init <api-url>' to create a configuration file", err)
	}

	var server *config.Server
	if urlOrAlias != "" {
		server, err = cfg.GetServerByAlias(urlOrAlias)
		if err != nil {
			server, err = cfg.GetServerByURL(urlOrAlias)
		}
		if err != nil {
			return fmt.Errorf("server '%s' not found in %s", urlOrAlias, config.ConfigFileName)
		}
	} else {
		server, err = serverselect.PromptServerSelection(cfg)
		if err != nil {
			return err
		}
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Selected server: %s (%s)\n", server.Alias, server.URL)
	return nil
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/composer-link/internal/config"
)

// configCommand creates the config command group.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect composer-link configuration",
	}
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configShowCommand())
	return cmd
}

func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.NewLoader(c.configPath).Path()
			if path == "" {
				newPrinter(cmd.ErrOrStderr()).warning("no user config directory available")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func (c *CLI) configShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Long: `Show prints the settings after layering flags, COMPOSER_LINK_* environment
variables, the config file and defaults. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			out := newPrinter(cmd.OutOrStdout())
			out.keyValue(config.KeyComposerBinary, cfg.ComposerBinary)
			out.keyValue(config.KeyUpdateArgs, strings.Join(cfg.UpdateArgs, " "))
			out.keyValue(config.KeyRepositoryURL, orNone(cfg.RepositoryURL))
			out.keyValue(config.KeyRepositoryToken, mask(cfg.RepositoryToken))
			out.keyValue(config.KeyRepositoryUsername, orNone(cfg.RepositoryUsername))
			out.keyValue(config.KeyRepositoryPassword, mask(cfg.RepositoryPassword))
			out.keyValue(config.KeyHTTPTimeout, cfg.HTTPTimeout.String())
			return nil
		},
	}
	addConfigFlags(cmd, true)
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func mask(secret string) string {
	if secret == "" {
		return "(none)"
	}
	return "********"
}

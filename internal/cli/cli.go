package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/composer-link/internal/config"
	"github.com/matzehuels/composer-link/pkg/buildinfo"
	cerrors "github.com/matzehuels/composer-link/pkg/errors"
	"github.com/matzehuels/composer-link/pkg/installer"
	"github.com/matzehuels/composer-link/pkg/integrations"
	"github.com/matzehuels/composer-link/pkg/integrations/packagist"
	"github.com/matzehuels/composer-link/pkg/link"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "composer-link"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Flag names bound to configuration keys.
const (
	flagConfig         = "config"
	flagComposerBinary = "composer-binary"
	flagRepositoryURL  = "repository-url"
	flagHTTPTimeout    = "http-timeout"
	flagUpdateArg      = "update-arg"
)

var flagKeys = map[string]string{
	flagComposerBinary: config.KeyComposerBinary,
	flagRepositoryURL:  config.KeyRepositoryURL,
	flagHTTPTimeout:    config.KeyHTTPTimeout,
	flagUpdateArg:      config.KeyUpdateArgs,
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "composer-link installs a local package into a consumer for development",
		Long: `composer-link temporarily links a Composer package you are working on into a
consumer package. It points the consumer at the package's working directory,
runs composer update so the package is installed as a symlink, and then
restores both composer.json files exactly as they were.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, flagConfig, "", "config file (default $XDG_CONFIG_HOME/composer-link/config.toml)")

	root.AddCommand(c.linkCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// FormatError renders err for the terminal. Repository index failures carry
// their numeric code.
func FormatError(err error) string {
	msg := cerrors.UserMessage(err)
	if n := cerrors.Number(err); n != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, n)
	}
	return msg
}

// =============================================================================
// Configuration
// =============================================================================

// addConfigFlags registers the flags that override configuration keys.
func addConfigFlags(cmd *cobra.Command, withResolver bool) {
	cmd.Flags().String(flagComposerBinary, "", "composer executable")
	cmd.Flags().StringSlice(flagUpdateArg, nil, "extra argument passed to composer update (repeatable)")
	if withResolver {
		cmd.Flags().String(flagRepositoryURL, "", "repository index URL used to pick the link version")
		cmd.Flags().Duration(flagHTTPTimeout, 0, "timeout for the repository index request")
	}
}

// loadConfig layers flags of cmd over the environment and config file.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	l := config.NewLoader(c.configPath)
	if err := l.BindFlags(cmd.Flags(), flagKeys); err != nil {
		return nil, err
	}
	return l.Load()
}

// =============================================================================
// Factories
// =============================================================================

// newResolver returns the repository index client, or nil when no index is
// configured.
func newResolver(cfg *config.Config, logger *log.Logger) (link.Resolver, error) {
	if cfg.RepositoryURL == "" {
		return nil, nil
	}
	httpClient := integrations.NewClient(integrations.NewHTTPClient(cfg.HTTPTimeout), cfg.Credentials().Headers())
	client, err := packagist.NewClient(cfg.RepositoryURL, packagist.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	logger.Debug("using repository index", "url", client.IndexURL())
	return client, nil
}

// newRunner returns the composer runner for cfg. Child output goes to out.
func newRunner(cfg *config.Config, out io.Writer, logger *log.Logger) *installer.Runner {
	return &installer.Runner{
		Binary: cfg.ComposerBinary,
		Args:   cfg.UpdateArgs,
		Stdout: out,
		Stderr: out,
		Logger: logger,
	}
}

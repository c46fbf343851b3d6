package cli

import (
	"bytes"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/composer-link/pkg/composer"
	cerrors "github.com/matzehuels/composer-link/pkg/errors"
	"github.com/matzehuels/composer-link/pkg/link"
)

// linkOptions holds the link command flags.
type linkOptions struct {
	force      bool
	showOutput bool
}

// linkCommand creates the link command.
func (c *CLI) linkCommand() *cobra.Command {
	opts := &linkOptions{}

	cmd := &cobra.Command{
		Use:   "link <consumer-dir> <dependency-dir>",
		Short: "Install a local package into a consumer as a symlink",
		Long: `Link installs the package in <dependency-dir> into the consumer in <consumer-dir>.

The dependency is given a temporary version and the consumer a path repository
and a caret constraint on that version, then composer update installs it as a
symlink into the consumer's vendor directory. Both composer.json files are
restored afterwards, also when the update fails.

With a repository index configured, the temporary version is the patch after
the latest published one and only the dependency is updated. Without one the
dependency is installed as 999.999.999 and the consumer is updated in full.`,
		Example: `  # Link a library into an application
  composer-link link ./app ../my-library

  # Reinstall even if the library is already linked
  composer-link link --force ./app ../my-library

  # Pick the version from a repository index
  composer-link link --repository-url https://repo.packagist.org/packages.json ./app ../my-library`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLink(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "install even when the dependency is already linked")
	cmd.Flags().BoolVar(&opts.showOutput, "show-output", false, "stream composer output instead of showing a spinner")
	addConfigFlags(cmd, true)

	return cmd
}

func (c *CLI) runLink(cmd *cobra.Command, consumerDir, dependencyDir string, opts *linkOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := newPrinter(cmd.OutOrStdout())

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	resolver, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}

	consumer, err := composer.Open(consumerDir)
	if err != nil {
		return err
	}
	dependency, err := composer.Open(dependencyDir)
	if err != nil {
		return err
	}
	depName, err := dependency.Name()
	if err != nil {
		return err
	}
	if err := cerrors.ValidateComposerPackageName(depName); err != nil {
		return err
	}

	// Composer output is buffered behind a spinner unless asked for or
	// debugging, and printed only when the run fails.
	stream := opts.showOutput || logger.GetLevel() <= log.DebugLevel
	var captured bytes.Buffer
	toolOut := io.Writer(&captured)
	if stream {
		toolOut = cmd.ErrOrStderr()
	}

	linkOpts := []link.Option{link.WithLogger(logger)}
	if resolver != nil {
		linkOpts = append(linkOpts, link.WithResolver(resolver))
	}
	linker := link.New(consumer, dependency, newRunner(cfg, toolOut, logger), linkOpts...)

	prog := newProgress(logger)
	var spinner *Spinner
	if !stream {
		spinner = newSpinnerWithContext(ctx, cmd.ErrOrStderr(), "Linking "+depName+"...")
		spinner.Start()
	}

	res, err := linker.Link(ctx, opts.force)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		if !stream {
			newPrinter(cmd.ErrOrStderr()).raw(captured.Bytes())
		}
		return err
	}

	if res.Skipped {
		out.info("%s is already linked into %s", depName, consumerDir)
		out.nextStep("To reinstall", "composer-link link --force "+consumerDir+" "+dependencyDir)
		return nil
	}
	prog.done("Linked " + depName)

	out.success("Linked %s", depName)
	out.keyValue("Version", res.Version)
	out.keyValue("Constraint", res.Constraint)
	out.keyValue("State", describeState(res.State))
	if target, err := consumer.InstallationPath(dependency); err == nil {
		out.path(target)
	}
	if res.State != composer.StateLinked {
		out.warning("composer did not install %s as a symlink to %s", depName, dependencyDir)
	}
	return nil
}

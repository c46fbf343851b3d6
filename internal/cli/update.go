package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/composer-link/pkg/composer"
	cerrors "github.com/matzehuels/composer-link/pkg/errors"
)

// updateCommand creates the update command.
func (c *CLI) updateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <consumer-dir> [package]",
		Short: "Run composer update in a package directory",
		Long: `Update runs composer update in <consumer-dir>, restricted to [package] when
given. Composer output is streamed to stderr.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pkg string
			if len(args) == 2 {
				pkg = args[1]
			}
			return c.runUpdate(cmd, args[0], pkg)
		},
	}
	addConfigFlags(cmd, false)
	return cmd
}

func (c *CLI) runUpdate(cmd *cobra.Command, dir, pkg string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	target, err := composer.Open(dir)
	if err != nil {
		return err
	}
	path, err := target.Path()
	if err != nil {
		return err
	}

	if pkg = strings.TrimSpace(pkg); pkg != "" {
		if err := cerrors.ValidateComposerPackageName(pkg); err != nil {
			return err
		}
	}

	runner := newRunner(cfg, cmd.ErrOrStderr(), logger)
	prog := newProgress(logger)
	if pkg != "" {
		err = runner.UpdatePackage(ctx, path, pkg)
	} else {
		err = runner.UpdateAll(ctx, path)
	}
	if err != nil {
		return err
	}
	prog.done("Updated " + path)

	newPrinter(cmd.OutOrStdout()).success("composer update finished")
	return nil
}

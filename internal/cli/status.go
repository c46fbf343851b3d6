package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/composer-link/pkg/composer"
)

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <consumer-dir> <dependency-dir>",
		Short: "Report whether a consumer has a local package linked",
		Long: `Status reports whether the consumer's vendor directory holds a symlink to the
dependency's working directory. A symlink pointing anywhere else is reported
as linked to another directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0], args[1])
		},
	}
}

func runStatus(cmd *cobra.Command, consumerDir, dependencyDir string) error {
	out := newPrinter(cmd.OutOrStdout())

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
	target, err := consumer.InstallationPath(dependency)
	if err != nil {
		return err
	}

	_, state, err := consumer.IsLinked(dependency)
	if err != nil {
		return err
	}

	switch state {
	case composer.StateLinked:
		out.success("%s is linked", depName)
	case composer.StateMismatch:
		out.warning("%s is linked to another directory", depName)
	default:
		out.info("%s is not linked", depName)
	}
	out.keyValue("State", string(state))
	out.path(target)
	return nil
}

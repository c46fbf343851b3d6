// Package installer runs composer's update command for a package directory.
package installer

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	cerrors "github.com/matzehuels/composer-link/pkg/errors"
)

// DefaultBinary is the composer executable looked up on PATH.
const DefaultBinary = "composer"

// Runner invokes "<Binary> update [<package>] [Args...]" in a package
// directory. The zero value runs "composer" with output discarded.
type Runner struct {
	Binary string    // executable to run; DefaultBinary when empty
	Args   []string  // extra arguments appended after the package name
	Stdout io.Writer // child stdout; discarded when nil
	Stderr io.Writer // child stderr; discarded when nil
	Logger *log.Logger
}

// UpdateAll runs an unrestricted update in dir.
func (r *Runner) UpdateAll(ctx context.Context, dir string) error {
	return r.update(ctx, dir, "")
}

// UpdatePackage updates only pkg in dir. A blank pkg is rejected with
// INVALID_ARGUMENT.
func (r *Runner) UpdatePackage(ctx context.Context, dir, pkg string) error {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return cerrors.New(cerrors.ErrCodeInvalidArgument, "package name is required")
	}
	return r.update(ctx, dir, pkg)
}

func (r *Runner) update(ctx context.Context, dir, pkg string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return cerrors.New(cerrors.ErrCodeNotFound, "path '%s' doesnt exists", dir)
	}

	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	args := []string{"update"}
	if pkg != "" {
		args = append(args, pkg)
	}
	args = append(args, r.Args...)

	logger := r.logger()
	logger.Debug("running package manager", "binary", binary, "args", args, "dir", dir)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status := exitErr.ExitCode()
			logger.Debug("package manager failed", "exit_status", status)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cerrors.ExternalTool(status, ctxErr, "composer update interrupted")
			}
			return cerrors.ExternalTool(status, err, "failed to update composer, exit status %d", status)
		}
		return cerrors.ExternalTool(-1, err, "failed to run %s", binary)
	}
	return nil
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.New(io.Discard)
}

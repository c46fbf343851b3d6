// Package link installs a local dependency into a consumer package for
// development and then puts both manifests back the way they were.
//
// A link run rewrites the dependency's version and the consumer's require
// constraint and repositories list so that composer installs the dependency
// from its working directory as a symlink, runs composer's update, and then
// restores both manifests from a snapshot taken before the first write. The
// restore runs whether the update succeeded or not.
package link

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/composer-link/pkg/composer"
	cerrors "github.com/matzehuels/composer-link/pkg/errors"
	"github.com/matzehuels/composer-link/pkg/manifest"
	"github.com/matzehuels/composer-link/pkg/observability"
	"github.com/matzehuels/composer-link/pkg/version"
)

// Resolver looks up the latest published version of a package. A nil
// version with a nil error means the package is not published.
type Resolver interface {
	LatestVersion(ctx context.Context, pkg string) (*semver.Version, error)
}

// Updater runs the package manager's update in a package directory.
type Updater interface {
	UpdateAll(ctx context.Context, dir string) error
	UpdatePackage(ctx context.Context, dir, pkg string) error
}

// State is the phase a link run is in.
type State string

const (
	StateIdle             State = "idle"
	StateComputingVersion State = "computing-version"
	StateMutating         State = "mutating"
	StateInstalling       State = "installing"
	StateRestoring        State = "restoring"
	StateDone             State = "done"
)

// Result describes the outcome of a link run.
type Result struct {
	Version    string             // version the dependency was installed as
	Constraint string             // constraint written to the consumer during the run
	Skipped    bool               // true when the dependency was already linked
	State      composer.LinkState // link state observed after the run
}

// Linker links one dependency into one consumer.
//
// A Linker is not safe for concurrent use, and two Linkers must not operate
// on the same manifests at the same time.
type Linker struct {
	consumer   *composer.Package
	dependency *composer.Package
	updater    Updater
	resolver   Resolver
	logger     *log.Logger
	state      State
}

// Option configures a [Linker].
type Option func(*Linker)

// WithResolver makes the run base the dependency's version on the latest
// version published in a repository index, and restricts the update to the
// dependency. Without a resolver the dependency is installed as 999.999.999
// and the consumer is updated in full.
func WithResolver(r Resolver) Option {
	return func(l *Linker) { l.resolver = r }
}

// WithLogger sets the logger for state transitions and restore steps.
func WithLogger(logger *log.Logger) Option {
	return func(l *Linker) { l.logger = logger }
}

// New creates a Linker that installs dependency into consumer using updater.
func New(consumer, dependency *composer.Package, updater Updater, opts ...Option) *Linker {
	l := &Linker{
		consumer:   consumer,
		dependency: dependency,
		updater:    updater,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard)
	}
	return l
}

// State returns the phase of the current or last run.
func (l *Linker) State() State { return l.state }

// Link installs the dependency unless the consumer already has it linked.
// With force it installs regardless.
func (l *Linker) Link(ctx context.Context, force bool) (*Result, error) {
	linked, state, err := l.consumer.IsLinked(l.dependency)
	if err != nil {
		return nil, err
	}
	if linked && !force {
		l.logger.Info("dependency already linked, skipping")
		return &Result{Skipped: true, State: state}, nil
	}
	return l.Install(ctx)
}

// Install performs one link run: snapshot, choose a version, rewrite both
// manifests, run the update and restore the manifests.
//
// If rewriting or updating fails, the manifests are restored and the
// original error is returned, joined with any restore error. A resolver
// error is returned before anything is written.
func (l *Linker) Install(ctx context.Context) (res *Result, err error) {
	if l.updater == nil {
		return nil, cerrors.New(cerrors.ErrCodeInvalidConfiguration, "no updater configured")
	}

	depName, err := l.dependency.Name()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger := l.logger.With("run", uuid.NewString()[:8], "dependency", depName)
	l.state = StateIdle
	defer func() {
		var v string
		if res != nil {
			v = res.Version
		}
		observability.Link().OnLinkComplete(ctx, depName, v, time.Since(start), err)
	}()

	tx, err := l.snapshot()
	if err != nil {
		return nil, err
	}

	l.transition(ctx, logger, depName, StateComputingVersion)
	chosen, err := l.chooseVersion(ctx, logger, depName)
	if err != nil {
		return nil, err
	}
	constraint := version.Constraint(chosen)
	if ok, err := version.Satisfies(constraint, chosen); err != nil || !ok {
		if err == nil {
			err = cerrors.New(cerrors.ErrCodeVersionParse, "version %s does not satisfy %s", chosen, constraint)
		}
		return nil, err
	}
	logger.Debug("chose version", "version", chosen.String(), "constraint", constraint)

	l.transition(ctx, logger, depName, StateMutating)
	if err := l.mutate(tx, depName, chosen.String(), constraint); err != nil {
		return nil, l.restoreAfter(ctx, logger, depName, tx, err)
	}

	l.transition(ctx, logger, depName, StateInstalling)
	if err := l.update(ctx, depName); err != nil {
		return nil, l.restoreAfter(ctx, logger, depName, tx, err)
	}

	l.transition(ctx, logger, depName, StateRestoring)
	if err := l.restore(tx); err != nil {
		return nil, err
	}
	l.transition(ctx, logger, depName, StateDone)

	res = &Result{Version: chosen.String(), Constraint: constraint, State: composer.StateNotLinked}
	if _, state, err := l.consumer.IsLinked(l.dependency); err != nil {
		logger.Debug("could not determine link state", "err", err)
	} else {
		res.State = state
	}
	return res, nil
}

func (l *Linker) chooseVersion(ctx context.Context, logger *log.Logger, depName string) (*semver.Version, error) {
	if l.resolver == nil {
		return version.Next(nil), nil
	}
	latest, err := l.resolver.LatestVersion(ctx, depName)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		logger.Debug("dependency not published, using sentinel version", "sentinel", version.Sentinel)
	} else {
		logger.Debug("latest published version", "version", latest.String())
	}
	return version.Next(latest), nil
}

// mutate writes the run's version, constraint and path repository. The
// dependency is saved before the consumer.
func (l *Linker) mutate(tx *Transaction, depName, chosen, constraint string) error {
	dep := l.dependency.Manifest()
	if err := dep.SetVersion(chosen); err != nil {
		return err
	}

	depPath, err := l.dependency.Path()
	if err != nil {
		return err
	}

	consumer := l.consumer.Manifest()
	if err := consumer.Reload(); err != nil {
		return err
	}
	if err := consumer.SetRequireConstraint(depName, constraint); err != nil {
		return err
	}
	repos, err := consumer.Repositories()
	if err != nil {
		return err
	}
	repos, tx.AddedRepository = manifest.AddPath(repos, depPath)
	if tx.AddedRepository {
		if err := consumer.SetRepositories(repos); err != nil {
			return err
		}
	}

	if err := dep.Save(); err != nil {
		return err
	}
	return consumer.Save()
}

func (l *Linker) update(ctx context.Context, depName string) error {
	dir, err := l.consumer.Path()
	if err != nil {
		return err
	}
	if l.resolver != nil {
		return l.updater.UpdatePackage(ctx, dir, depName)
	}
	return l.updater.UpdateAll(ctx, dir)
}

func (l *Linker) restoreAfter(ctx context.Context, logger *log.Logger, depName string, tx *Transaction, cause error) error {
	logger.Debug("link run failed, restoring manifests", "err", cause)
	l.transition(ctx, logger, depName, StateRestoring)
	restoreErr := l.restore(tx)
	l.transition(ctx, logger, depName, StateDone)
	if restoreErr != nil {
		logger.Error("failed to restore manifests", "err", restoreErr)
		return errors.Join(cause, restoreErr)
	}
	return cause
}

func (l *Linker) transition(ctx context.Context, logger *log.Logger, depName string, to State) {
	from := l.state
	l.state = to
	logger.Debug("state", "from", string(from), "to", string(to))
	observability.Link().OnStateChange(ctx, depName, string(from), string(to))
}

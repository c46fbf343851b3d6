package link

import (
	"errors"

	"github.com/matzehuels/composer-link/pkg/manifest"
)

// Transaction records what a link run changes so that restore can undo it.
// It is built before the first write and consumed once by restore.
type Transaction struct {
	// DependencyOriginalVersion is the dependency's version before the run,
	// nil if its manifest had none.
	DependencyOriginalVersion *string

	// ConsumerOriginalConstraint is the consumer's constraint on the
	// dependency before the run, nil if it did not require it.
	ConsumerOriginalConstraint *string

	// AddedRepository is set when the run appended the path repository.
	// A path entry the consumer already had is left in place on restore.
	AddedRepository bool

	// HadRequire records whether the consumer had a require key at all.
	HadRequire bool

	// RequireWasEmptyList records a require key holding [] rather than a
	// map, so that restore writes it back in that form.
	RequireWasEmptyList bool

	// HadRepositories records whether the consumer had a repositories key
	// at all, so that a key created by the run is removed again.
	HadRepositories bool

	depName string
	depPath string
	used    bool
}

// snapshot reads the current on-disk state of both manifests.
func (l *Linker) snapshot() (*Transaction, error) {
	depName, err := l.dependency.Name()
	if err != nil {
		return nil, err
	}
	depPath, err := l.dependency.Path()
	if err != nil {
		return nil, err
	}

	dep := l.dependency.Manifest()
	if err := dep.Reload(); err != nil {
		return nil, err
	}
	consumer := l.consumer.Manifest()
	if err := consumer.Reload(); err != nil {
		return nil, err
	}

	tx := &Transaction{depName: depName, depPath: depPath}

	if v, ok, err := dep.Version(); err != nil {
		return nil, err
	} else if ok {
		tx.DependencyOriginalVersion = &v
	}
	if c, ok, err := consumer.RequireConstraint(depName); err != nil {
		return nil, err
	} else if ok {
		tx.ConsumerOriginalConstraint = &c
	}
	if tx.HadRequire, err = consumer.HasRequire(); err != nil {
		return nil, err
	}
	if tx.RequireWasEmptyList, err = consumer.RequireIsEmptyList(); err != nil {
		return nil, err
	}
	if tx.HadRepositories, err = consumer.HasRepositories(); err != nil {
		return nil, err
	}
	return tx, nil
}

// restore puts both manifests back to the snapshot. The consumer is
// re-read first so that changes made by the update on disk are kept. Both
// manifests are attempted even if the first fails.
func (l *Linker) restore(tx *Transaction) error {
	if tx.used {
		return nil
	}
	tx.used = true
	return errors.Join(l.restoreConsumer(tx), l.restoreDependency(tx))
}

func (l *Linker) restoreConsumer(tx *Transaction) error {
	consumer := l.consumer.Manifest()
	if err := consumer.Reload(); err != nil {
		return err
	}

	if tx.ConsumerOriginalConstraint == nil {
		if err := consumer.RemoveRequireConstraint(tx.depName); err != nil {
			return err
		}
		switch {
		case !tx.HadRequire:
			if err := consumer.PruneRequire(); err != nil {
				return err
			}
		case tx.RequireWasEmptyList:
			if err := consumer.EmptyRequireToList(); err != nil {
				return err
			}
		}
	} else if err := consumer.SetRequireConstraint(tx.depName, *tx.ConsumerOriginalConstraint); err != nil {
		return err
	}

	if tx.AddedRepository {
		repos, err := consumer.Repositories()
		if err != nil {
			return err
		}
		repos = manifest.RemovePath(repos, tx.depPath)
		if len(repos) == 0 && !tx.HadRepositories {
			err = consumer.RemoveRepositories()
		} else {
			err = consumer.SetRepositories(repos)
		}
		if err != nil {
			return err
		}
	}
	return consumer.Save()
}

func (l *Linker) restoreDependency(tx *Transaction) error {
	dep := l.dependency.Manifest()
	if err := dep.Reload(); err != nil {
		return err
	}
	if tx.DependencyOriginalVersion == nil {
		if err := dep.RemoveVersion(); err != nil {
			return err
		}
	} else if err := dep.SetVersion(*tx.DependencyOriginalVersion); err != nil {
		return err
	}
	return dep.Save()
}

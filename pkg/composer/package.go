// Package composer models a Composer package on disk: its manifest, its real
// location and its vendor directory.
package composer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cerrors "github.com/matzehuels/composer-link/pkg/errors"
	"github.com/matzehuels/composer-link/pkg/manifest"
)

// VendorDir is the directory composer installs dependencies into.
const VendorDir = "vendor"

// LinkState describes how a consumer's installation of a dependency relates
// to the dependency's working directory.
type LinkState string

const (
	// StateLinked means the installation path is a symlink to the dependency.
	StateLinked LinkState = "linked"
	// StateMismatch means the installation path is a symlink to somewhere else.
	StateMismatch LinkState = "mismatch"
	// StateNotLinked means the installation path is missing or a regular directory.
	StateNotLinked LinkState = "not"
)

// Package is a handle on one composer package.
type Package struct {
	manifest *manifest.Manifest
}

// New wraps an already opened manifest.
func New(m *manifest.Manifest) *Package {
	return &Package{manifest: m}
}

// Open returns the package in folder. The folder must exist, resolve to a real
// path and contain a composer.json.
func Open(folder string) (*Package, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, cerrors.New(cerrors.ErrCodeNotFound, "folder %s not found", folder)
	}
	dir, err := filepath.EvalSymlinks(folder)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodePathResolutionFailed, err, "failed to retrieve path for: %s", folder)
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodePathResolutionFailed, err, "failed to retrieve path for: %s", folder)
	}
	path := filepath.Join(dir, manifest.FileName)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, cerrors.New(cerrors.ErrCodeNotFound, "file %s not found", path)
	}
	return New(manifest.Open(path)), nil
}

// Manifest returns the package's composer.json.
func (p *Package) Manifest() *manifest.Manifest { return p.manifest }

// Name returns the package name from the manifest.
func (p *Package) Name() (string, error) { return p.manifest.Name() }

// Path returns the real path of the package directory.
func (p *Package) Path() (string, error) { return p.manifest.Dir() }

// VendorPath returns the package's vendor directory. It may not exist.
func (p *Package) VendorPath() (string, error) {
	dir, err := p.Path()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, VendorDir), nil
}

// InstallationSubpath returns where the package lives below a vendor
// directory: its name, lower-cased and trimmed.
func (p *Package) InstallationSubpath() (string, error) {
	name, err := p.Name()
	if err != nil {
		return "", err
	}
	sub := strings.ToLower(strings.TrimSpace(name))
	if err := cerrors.ValidatePackageName(sub); err != nil {
		return "", err
	}
	return filepath.FromSlash(sub), nil
}

// InstallationPath returns where dep is installed in this package's vendor
// directory.
func (p *Package) InstallationPath(dep *Package) (string, error) {
	vendor, err := p.VendorPath()
	if err != nil {
		return "", err
	}
	sub, err := dep.InstallationSubpath()
	if err != nil {
		return "", err
	}
	return filepath.Join(vendor, sub), nil
}

// IsLinked reports whether dep is installed in this package as a symlink to
// dep's own directory. A symlink pointing elsewhere, or at nothing, is
// reported as [StateMismatch].
func (p *Package) IsLinked(dep *Package) (bool, LinkState, error) {
	target, err := p.InstallationPath(dep)
	if err != nil {
		return false, StateNotLinked, err
	}

	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, StateNotLinked, nil
	}
	if err != nil {
		return false, StateNotLinked, cerrors.Wrap(cerrors.ErrCodePathResolutionFailed, err, "failed to retrieve path for: %s", target)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return false, StateNotLinked, nil
	}

	resolved, err := filepath.EvalSymlinks(target)
	if errors.Is(err, fs.ErrNotExist) {
		// Dangling, e.g. the dependency moved since it was last linked.
		return false, StateMismatch, nil
	}
	if err != nil {
		return false, StateNotLinked, cerrors.Wrap(cerrors.ErrCodePathResolutionFailed, err, "failed to retrieve path for: %s", target)
	}
	depPath, err := dep.Path()
	if err != nil {
		return false, StateNotLinked, err
	}
	if resolved == depPath {
		return true, StateLinked, nil
	}
	return false, StateMismatch, nil
}

package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	cerrors "github.com/matzehuels/composer-link/pkg/errors"
)

// FileName is the name of a composer manifest inside a package directory.
const FileName = "composer.json"

// Keys of the composer.json fields this package works with.
const (
	KeyName         = "name"
	KeyVersion      = "version"
	KeyRequire      = "require"
	KeyRepositories = "repositories"
)

// Manifest gives typed access to a composer.json file.
//
// The file is read lazily on first access and cached; edits stay in memory
// until [Manifest.Save]. Setters never re-read the file: callers that need to
// merge against the latest on-disk state call [Manifest.Reload] first.
//
// A Manifest is not safe for concurrent use.
type Manifest struct {
	path string
	doc  *object
}

// Open returns a Manifest for the file at path. No I/O happens until the
// first access.
func Open(path string) *Manifest {
	return &Manifest{path: path}
}

// Path returns the manifest's file path as given to [Open].
func (m *Manifest) Path() string { return m.path }

// Loaded reports whether the file has been read.
func (m *Manifest) Loaded() bool { return m.doc != nil }

// Load reads the file unless it is already loaded. With force it re-reads
// unconditionally, discarding in-memory edits.
//
// Errors: NOT_FOUND if the file is missing, PARSE_ERROR for malformed JSON or
// a known key with the wrong shape.
func (m *Manifest) Load(force bool) error {
	if m.doc != nil && !force {
		return nil
	}

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return cerrors.New(cerrors.ErrCodeNotFound, "file %s not found", m.path)
	}
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeNotFound, err, "failed to read %s", m.path)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeParse, err, "syntax errors in %s", m.path)
	}
	if err := validate(data); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeParse, err, "unexpected structure in %s", m.path)
	}

	m.doc = doc
	return nil
}

// Reload re-reads the file, discarding in-memory edits.
func (m *Manifest) Reload() error {
	return m.Load(true)
}

// Dir returns the real, absolute path of the directory holding the manifest.
func (m *Manifest) Dir() (string, error) {
	abs, err := filepath.Abs(filepath.Dir(m.path))
	if err != nil {
		return "", cerrors.Wrap(cerrors.ErrCodePathResolutionFailed, err, "failed to retrieve path for: %s", m.path)
	}
	dir, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", cerrors.Wrap(cerrors.ErrCodePathResolutionFailed, err, "failed to retrieve path for: %s", m.path)
	}
	return dir, nil
}

// Name returns the package name. It fails with MISSING_KEY if the manifest
// has none.
func (m *Manifest) Name() (string, error) {
	if err := m.Load(false); err != nil {
		return "", err
	}
	name, ok := m.doc.values[KeyName].(string)
	if !ok {
		return "", cerrors.New(cerrors.ErrCodeMissingKey, "key '%s' not found in file '%s'", KeyName, m.path)
	}
	return name, nil
}

// Version returns the package version. The second result is false if the
// manifest does not declare one.
func (m *Manifest) Version() (string, bool, error) {
	if err := m.Load(false); err != nil {
		return "", false, err
	}
	v, ok := m.doc.values[KeyVersion].(string)
	return v, ok, nil
}

// SetVersion sets the package version in memory.
func (m *Manifest) SetVersion(version string) error {
	if err := m.Load(false); err != nil {
		return err
	}
	m.doc.set(KeyVersion, version)
	return nil
}

// RemoveVersion deletes the version key in memory.
func (m *Manifest) RemoveVersion() error {
	if err := m.Load(false); err != nil {
		return err
	}
	m.doc.delete(KeyVersion)
	return nil
}

// RequireConstraint returns the version constraint the manifest requires for
// pkg. The second result is false if pkg is not required.
func (m *Manifest) RequireConstraint(pkg string) (string, bool, error) {
	require, err := m.require(false)
	if err != nil || require == nil {
		return "", false, err
	}
	c, ok := require.values[pkg].(string)
	return c, ok, nil
}

// SetRequireConstraint sets or overwrites the constraint for pkg in memory.
// The require map is created if the manifest has none.
func (m *Manifest) SetRequireConstraint(pkg, constraint string) error {
	require, err := m.require(true)
	if err != nil {
		return err
	}
	require.set(pkg, constraint)
	return nil
}

// RemoveRequireConstraint deletes pkg from the require map in memory.
func (m *Manifest) RemoveRequireConstraint(pkg string) error {
	require, err := m.require(false)
	if err != nil || require == nil {
		return err
	}
	require.delete(pkg)
	return nil
}

// RequireIsEmptyList reports whether the require key holds an empty JSON
// array, the form PHP's json_encode gives an empty map.
func (m *Manifest) RequireIsEmptyList() (bool, error) {
	if err := m.Load(false); err != nil {
		return false, err
	}
	list, ok := m.doc.values[KeyRequire].([]any)
	return ok && len(list) == 0, nil
}

// EmptyRequireToList turns an empty require map back into an empty array.
func (m *Manifest) EmptyRequireToList() error {
	require, err := m.require(false)
	if err != nil || require == nil {
		return err
	}
	if len(require.keys) == 0 {
		m.doc.set(KeyRequire, []any{})
	}
	return nil
}

// HasRequire reports whether the manifest has a require key.
func (m *Manifest) HasRequire() (bool, error) {
	if err := m.Load(false); err != nil {
		return false, err
	}
	_, ok := m.doc.get(KeyRequire)
	return ok, nil
}

// PruneRequire deletes the require map in memory if it has no entries.
func (m *Manifest) PruneRequire() error {
	require, err := m.require(false)
	if err != nil || require == nil {
		return err
	}
	if len(require.keys) == 0 {
		m.doc.delete(KeyRequire)
	}
	return nil
}

func (m *Manifest) require(create bool) (*object, error) {
	if err := m.Load(false); err != nil {
		return nil, err
	}
	if require, ok := m.doc.values[KeyRequire].(*object); ok {
		return require, nil
	}
	// An empty array is the only other shape the schema admits.
	if !create {
		return nil, nil
	}
	require := newObject()
	m.doc.set(KeyRequire, require)
	return require, nil
}

// HasRepositories reports whether the manifest has a repositories key.
func (m *Manifest) HasRepositories() (bool, error) {
	if err := m.Load(false); err != nil {
		return false, err
	}
	_, ok := m.doc.get(KeyRepositories)
	return ok, nil
}

// Repositories returns the repository entries in file order. Both the list
// form and the map form ({"name": {...}}) are read. A missing key yields an
// empty list, not an error.
func (m *Manifest) Repositories() ([]Repository, error) {
	if err := m.Load(false); err != nil {
		return nil, err
	}
	switch raw := m.doc.values[KeyRepositories].(type) {
	case []any:
		repos := make([]Repository, 0, len(raw))
		for _, v := range raw {
			repos = append(repos, decodeRepository("", v))
		}
		return repos, nil
	case *object:
		repos := make([]Repository, 0, len(raw.keys))
		for _, k := range raw.keys {
			repos = append(repos, decodeRepository(k, raw.values[k]))
		}
		return repos, nil
	default:
		return []Repository{}, nil
	}
}

// SetRepositories replaces the repository entries in memory. A manifest
// using the map form keeps it: entries keep their names and new entries are
// named after their URL.
func (m *Manifest) SetRepositories(repos []Repository) error {
	if err := m.Load(false); err != nil {
		return err
	}
	if _, ok := m.doc.values[KeyRepositories].(*object); ok {
		m.doc.set(KeyRepositories, repositoryMap(repos))
		return nil
	}
	raw := make([]any, 0, len(repos))
	for _, r := range repos {
		raw = append(raw, r.value())
	}
	m.doc.set(KeyRepositories, raw)
	return nil
}

func repositoryMap(repos []Repository) *object {
	o := newObject()
	for i, r := range repos {
		key := r.name()
		if key == "" {
			if p, ok := r.(PathRepository); ok {
				key = p.URL
			}
		}
		if _, taken := o.values[key]; taken || key == "" {
			key = fmt.Sprintf("%s#%d", key, i)
		}
		o.set(key, r.value())
	}
	return o
}

// RemoveRepositories deletes the repositories key in memory.
func (m *Manifest) RemoveRepositories() error {
	if err := m.Load(false); err != nil {
		return err
	}
	m.doc.delete(KeyRepositories)
	return nil
}

// Save writes the in-memory data back to disk. It does nothing if the file
// was never loaded. The write is atomic: the content goes to a temporary file
// in the same directory which then replaces the manifest.
func (m *Manifest) Save() error {
	if m.doc == nil {
		return nil
	}
	data, err := encodeDocument(m.doc)
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeWriteFailed, err, "failed to encode %s", m.path)
	}
	if err := writeFileAtomic(m.path, data); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeWriteFailed, err, "failed to write %s", m.path)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	// Write through a symlinked manifest instead of replacing the link.
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	perm := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

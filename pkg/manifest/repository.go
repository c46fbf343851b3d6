package manifest

// TypePath is the repository type composer uses for packages on the local filesystem.
const TypePath = "path"

// Repository is one entry of a manifest's "repositories" list or map. It is
// either a [PathRepository] or a [RawRepository]; entries of any other type,
// and disabled entries such as {"packagist.org": false}, are carried through
// untouched.
type Repository interface {
	// Type returns the entry's "type" field, or "" if it has none.
	Type() string

	// name is the entry's key when the manifest uses the map form.
	name() string
	value() any
}

// PathRepository is a "path" repository pointing at a package directory.
type PathRepository struct {
	URL string

	key string
	raw *object // as read from disk; nil for entries built in code
}

// Type returns [TypePath].
func (r PathRepository) Type() string { return TypePath }

func (r PathRepository) name() string { return r.key }

func (r PathRepository) value() any {
	if r.raw != nil {
		if u, _ := r.raw.get("url"); u == r.URL {
			return r.raw
		}
	}
	o := newObject()
	if r.raw != nil {
		for _, k := range r.raw.keys {
			o.set(k, r.raw.values[k])
		}
	} else {
		o.set("type", TypePath)
	}
	o.set("url", r.URL)
	return o
}

// RawRepository is a repository entry of a type this package does not model
// (composer, vcs, package, ...). Its content is preserved as read.
type RawRepository struct {
	kind string
	key  string
	raw  any
}

// Type returns the entry's "type" field.
func (r RawRepository) Type() string { return r.kind }

func (r RawRepository) name() string { return r.key }

func (r RawRepository) value() any { return r.raw }

func decodeRepository(key string, v any) Repository {
	obj, ok := v.(*object)
	if !ok {
		return RawRepository{key: key, raw: v}
	}
	kind, _ := obj.values["type"].(string)
	if kind == TypePath {
		if u, ok := obj.values["url"].(string); ok {
			return PathRepository{URL: u, key: key, raw: obj}
		}
	}
	return RawRepository{kind: kind, key: key, raw: obj}
}

// FindPath returns the index of the path repository whose URL is url, or -1.
func FindPath(repos []Repository, url string) int {
	for i, r := range repos {
		if p, ok := r.(PathRepository); ok && p.URL == url {
			return i
		}
	}
	return -1
}

// AddPath returns repos with a path repository for url appended, unless one
// is already present. The second result reports whether an entry was added.
func AddPath(repos []Repository, url string) ([]Repository, bool) {
	if FindPath(repos, url) >= 0 {
		return repos, false
	}
	out := make([]Repository, 0, len(repos)+1)
	out = append(out, repos...)
	return append(out, PathRepository{URL: url}), true
}

// RemovePath returns repos without any path repository for url.
func RemovePath(repos []Repository, url string) []Repository {
	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		if p, ok := r.(PathRepository); ok && p.URL == url {
			continue
		}
		out = append(out, r)
	}
	return out
}

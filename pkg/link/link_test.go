package link

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/composer-link/pkg/composer"
	cerrors "github.com/matzehuels/composer-link/pkg/errors"
	"github.com/matzehuels/composer-link/pkg/manifest"
	"github.com/matzehuels/composer-link/pkg/observability"
)

const consumerJSON = `{
  "name": "acme/app",
  "require": {
    "php": ">=8.1",
    "acme/dep": "^1.0"
  }
}
`

const dependencyJSON = `{
  "name": "acme/dep",
  "version": "1.0.0",
  "autoload": {
    "psr-4": {
      "Acme\\Dep\\": "src/"
    }
  }
}
`

type fixture struct {
	consumerDir string
	depDir      string
	consumer    *composer.Package
	dependency  *composer.Package
}

func newFixture(t *testing.T, consumerContent, depContent string) *fixture {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		consumerDir: filepath.Join(root, "app"),
		depDir:      filepath.Join(root, "dep"),
	}
	for dir, content := range map[string]string{f.consumerDir: consumerContent, f.depDir: depContent} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if f.consumer, err = composer.Open(f.consumerDir); err != nil {
		t.Fatal(err)
	}
	if f.dependency, err = composer.Open(f.depDir); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) read(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// linkVendor makes the consumer's vendor entry for acme/dep a symlink to the
// dependency, as composer does when installing from a path repository.
func (f *fixture) linkVendor(t *testing.T) {
	t.Helper()
	target := filepath.Join(f.consumerDir, "vendor", "acme", "dep")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(f.depDir, target); err != nil {
		t.Fatal(err)
	}
}

type fakeResolver struct {
	version *semver.Version
	err     error
	calls   []string
}

func (r *fakeResolver) LatestVersion(_ context.Context, pkg string) (*semver.Version, error) {
	r.calls = append(r.calls, pkg)
	return r.version, r.err
}

// fakeUpdater records calls and runs onUpdate in place of composer.
type fakeUpdater struct {
	all      []string
	packages []string
	onUpdate func() error
}

func (u *fakeUpdater) UpdateAll(_ context.Context, dir string) error {
	u.all = append(u.all, dir)
	return u.run()
}

func (u *fakeUpdater) UpdatePackage(_ context.Context, dir, pkg string) error {
	u.packages = append(u.packages, pkg)
	return u.run()
}

func (u *fakeUpdater) run() error {
	if u.onUpdate == nil {
		return nil
	}
	return u.onUpdate()
}

// duringUpdate captures both manifests as composer would see them.
type duringUpdate struct {
	depVersion string
	constraint string
	pathRepos  []string
}

func capture(t *testing.T, f *fixture, into *duringUpdate) func() error {
	return func() error {
		dep := manifest.Open(filepath.Join(f.depDir, manifest.FileName))
		consumer := manifest.Open(filepath.Join(f.consumerDir, manifest.FileName))
		into.depVersion, _, _ = dep.Version()
		into.constraint, _, _ = consumer.RequireConstraint("acme/dep")
		repos, err := consumer.Repositories()
		if err != nil {
			t.Errorf("reading repositories during update: %v", err)
		}
		for _, r := range repos {
			if p, ok := r.(manifest.PathRepository); ok {
				into.pathRepos = append(into.pathRepos, p.URL)
			}
		}
		f.linkVendor(t)
		return nil
	}
}

func TestInstall_WithoutResolver(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	var seen duringUpdate
	updater := &fakeUpdater{}
	updater.onUpdate = capture(t, f, &seen)

	res, err := New(f.consumer, f.dependency, updater).Install(context.Background())
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}

	if res.Version != "999.999.999" || res.Constraint != "^999.999.999" {
		t.Errorf("Result = %+v, want version 999.999.999 with ^999.999.999", res)
	}
	if res.State != composer.StateLinked {
		t.Errorf("Result.State = %s, want linked", res.State)
	}
	if len(updater.all) != 1 || updater.all[0] != f.consumerDir || len(updater.packages) != 0 {
		t.Errorf("updater calls: all=%v packages=%v, want one full update in %s", updater.all, updater.packages, f.consumerDir)
	}

	if seen.depVersion != "999.999.999" {
		t.Errorf("dependency version during update = %q", seen.depVersion)
	}
	if seen.constraint != "^999.999.999" {
		t.Errorf("consumer constraint during update = %q", seen.constraint)
	}
	if !slices.Equal(seen.pathRepos, []string{f.depDir}) {
		t.Errorf("path repositories during update = %v, want [%s]", seen.pathRepos, f.depDir)
	}

	if got := f.read(t, f.consumerDir); got != consumerJSON {
		t.Errorf("consumer not restored:\n%s", got)
	}
	if got := f.read(t, f.depDir); got != dependencyJSON {
		t.Errorf("dependency not restored:\n%s", got)
	}
}

func TestInstall_WithResolver(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	var seen duringUpdate
	updater := &fakeUpdater{}
	updater.onUpdate = capture(t, f, &seen)
	resolver := &fakeResolver{version: semver.MustParse("2.3.4")}

	res, err := New(f.consumer, f.dependency, updater, WithResolver(resolver)).Install(context.Background())
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}

	if res.Version != "2.3.5" || res.Constraint != "^2.3.5" {
		t.Errorf("Result = %+v, want 2.3.5 with ^2.3.5", res)
	}
	if seen.constraint != "^2.3.5" || seen.depVersion != "2.3.5" {
		t.Errorf("during update: constraint=%q version=%q", seen.constraint, seen.depVersion)
	}
	if !slices.Equal(resolver.calls, []string{"acme/dep"}) {
		t.Errorf("resolver calls = %v", resolver.calls)
	}
	if !slices.Equal(updater.packages, []string{"acme/dep"}) || len(updater.all) != 0 {
		t.Errorf("updater calls: all=%v packages=%v, want update of acme/dep only", updater.all, updater.packages)
	}
	if got := f.read(t, f.consumerDir); got != consumerJSON {
		t.Errorf("consumer not restored:\n%s", got)
	}
}

func TestInstall_UnpublishedDependency(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	res, err := New(f.consumer, f.dependency, &fakeUpdater{}, WithResolver(&fakeResolver{})).Install(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != "999.999.999" {
		t.Errorf("Version = %q, want 999.999.999", res.Version)
	}
}

func TestInstall_RestoresAbsentKeys(t *testing.T) {
	consumer := "{\n  \"name\": \"acme/app\"\n}\n"
	dep := "{\n  \"name\": \"acme/dep\"\n}\n"
	f := newFixture(t, consumer, dep)
	var seen duringUpdate
	updater := &fakeUpdater{}
	updater.onUpdate = capture(t, f, &seen)

	if _, err := New(f.consumer, f.dependency, updater).Install(context.Background()); err != nil {
		t.Fatal(err)
	}
	if seen.constraint == "" || len(seen.pathRepos) != 1 {
		t.Fatalf("manifests were not rewritten during update: %+v", seen)
	}
	if got := f.read(t, f.consumerDir); got != consumer {
		t.Errorf("consumer not restored, want require and repositories removed:\n%s", got)
	}
	if got := f.read(t, f.depDir); got != dep {
		t.Errorf("dependency not restored, want version removed:\n%s", got)
	}
}

func TestInstall_KeepsExistingPathRepository(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)

	// Point the consumer at the dependency before the run.
	withRepo := strings.Replace(consumerJSON, "\n}\n", ",\n  \"repositories\": [\n    {\n      \"type\": \"path\",\n      \"url\": \""+f.depDir+"\"\n    }\n  ]\n}\n", 1)
	if err := os.WriteFile(filepath.Join(f.consumerDir, manifest.FileName), []byte(withRepo), 0o644); err != nil {
		t.Fatal(err)
	}

	var seen duringUpdate
	updater := &fakeUpdater{}
	updater.onUpdate = capture(t, f, &seen)

	if _, err := New(f.consumer, f.dependency, updater).Install(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(seen.pathRepos) != 1 {
		t.Errorf("path repositories during update = %v, want exactly one", seen.pathRepos)
	}
	if got := f.read(t, f.consumerDir); got != withRepo {
		t.Errorf("consumer not restored:\n%s\nwant:\n%s", got, withRepo)
	}
}

func TestInstall_UpdateFailureRestores(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	updateErr := cerrors.ExternalTool(2, nil, "failed to update composer, exit status 2")
	updater := &fakeUpdater{onUpdate: func() error { return updateErr }}

	l := New(f.consumer, f.dependency, updater)
	res, err := l.Install(context.Background())
	if res != nil {
		t.Errorf("Install() result = %+v, want nil", res)
	}
	if !errors.Is(err, updateErr) {
		t.Fatalf("Install() error = %v, want the update error", err)
	}
	if l.State() != StateDone {
		t.Errorf("State() = %s, want %s", l.State(), StateDone)
	}
	if got := f.read(t, f.consumerDir); got != consumerJSON {
		t.Errorf("consumer not restored after failure:\n%s", got)
	}
	if got := f.read(t, f.depDir); got != dependencyJSON {
		t.Errorf("dependency not restored after failure:\n%s", got)
	}
}

func TestInstall_RestoreErrorDoesNotMaskCause(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	updateErr := cerrors.ExternalTool(1, nil, "failed to update composer, exit status 1")
	updater := &fakeUpdater{onUpdate: func() error {
		os.Remove(filepath.Join(f.consumerDir, manifest.FileName))
		return updateErr
	}}

	_, err := New(f.consumer, f.dependency, updater).Install(context.Background())
	if !errors.Is(err, updateErr) {
		t.Fatalf("Install() error = %v, want the update error first", err)
	}
	if got := cerrors.GetCode(err); got != cerrors.ErrCodeExternalToolFailed {
		t.Errorf("GetCode() = %s, want %s", got, cerrors.ErrCodeExternalToolFailed)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Install() error = %v, want restore failure included", err)
	}
	// The dependency is still restored.
	if got := f.read(t, f.depDir); got != dependencyJSON {
		t.Errorf("dependency not restored:\n%s", got)
	}
}

func TestInstall_ResolverErrorWritesNothing(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	resolverErr := cerrors.HTTPStatus(401, "https://repo.example.com/packages.json")
	updater := &fakeUpdater{}

	_, err := New(f.consumer, f.dependency, updater, WithResolver(&fakeResolver{err: resolverErr})).Install(context.Background())
	if cerrors.Number(err) != 10401 {
		t.Fatalf("Install() error = %v, want numeric code 10401", err)
	}
	if len(updater.all)+len(updater.packages) != 0 {
		t.Error("updater ran after resolver failure")
	}
	if got := f.read(t, f.consumerDir); got != consumerJSON {
		t.Errorf("consumer modified:\n%s", got)
	}
	if got := f.read(t, f.depDir); got != dependencyJSON {
		t.Errorf("dependency modified:\n%s", got)
	}
}

func TestInstall_NoUpdater(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	_, err := New(f.consumer, f.dependency, nil).Install(context.Background())
	if !cerrors.Is(err, cerrors.ErrCodeInvalidConfiguration) {
		t.Errorf("Install() error = %v, want INVALID_CONFIGURATION", err)
	}
}

func TestLink_SkipsWhenLinked(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	f.linkVendor(t)
	updater := &fakeUpdater{}

	res, err := New(f.consumer, f.dependency, updater).Link(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped || res.State != composer.StateLinked {
		t.Errorf("Link() = %+v, want skipped and linked", res)
	}
	if len(updater.all)+len(updater.packages) != 0 {
		t.Error("updater ran for an already linked dependency")
	}
	if got := f.read(t, f.consumerDir); got != consumerJSON {
		t.Errorf("consumer modified:\n%s", got)
	}
}

func TestLink_Force(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	f.linkVendor(t)
	updater := &fakeUpdater{}

	res, err := New(f.consumer, f.dependency, updater).Link(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped {
		t.Error("Link(force) skipped the install")
	}
	if len(updater.all) != 1 {
		t.Errorf("UpdateAll called %d times, want 1", len(updater.all))
	}
}

func TestLink_NotLinkedInstalls(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	updater := &fakeUpdater{}
	updater.onUpdate = func() error { f.linkVendor(t); return nil }

	res, err := New(f.consumer, f.dependency, updater).Link(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.State != composer.StateLinked {
		t.Errorf("Link() = %+v, want installed and linked", res)
	}
}

func TestLink_ReinstallsOverDanglingSymlink(t *testing.T) {
	f := newFixture(t, consumerJSON, dependencyJSON)
	stale := filepath.Join(f.consumerDir, "vendor", "acme", "dep")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(f.consumerDir, "gone"), stale); err != nil {
		t.Fatal(err)
	}

	updater := &fakeUpdater{}
	updater.onUpdate = func() error {
		if err := os.Remove(stale); err != nil {
			return err
		}
		f.linkVendor(t)
		return nil
	}

	res, err := New(f.consumer, f.dependency, updater).Link(context.Background(), false)
	if err != nil {
		t.Fatalf("Link() error: %v", err)
	}
	if len(updater.all) != 1 {
		t.Errorf("updater ran %d times, want 1", len(updater.all))
	}
	if res.Skipped || res.State != composer.StateLinked {
		t.Errorf("Link() = %+v, want installed and linked", res)
	}
}

func TestInstall_RestoresPHPEncodedShapes(t *testing.T) {
	consumer := `{
  "name": "acme/app",
  "require": [],
  "repositories": {
    "packagist.org": false
  }
}
`
	f := newFixture(t, consumer, dependencyJSON)
	var seen duringUpdate
	updater := &fakeUpdater{}
	updater.onUpdate = capture(t, f, &seen)

	if _, err := New(f.consumer, f.dependency, updater).Install(context.Background()); err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if seen.constraint != "^999.999.999" {
		t.Errorf("consumer constraint during update = %q", seen.constraint)
	}
	if !slices.Equal(seen.pathRepos, []string{f.depDir}) {
		t.Errorf("path repositories during update = %v, want [%s]", seen.pathRepos, f.depDir)
	}
	if got := f.read(t, f.consumerDir); got != consumer {
		t.Errorf("consumer not restored:\n%s", got)
	}
}

func TestInstall_ReportsStateTransitions(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &recordingLinkHooks{}
	observability.SetLinkHooks(hooks)

	f := newFixture(t, consumerJSON, dependencyJSON)
	if _, err := New(f.consumer, f.dependency, &fakeUpdater{}).Install(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"idle->computing-version",
		"computing-version->mutating",
		"mutating->installing",
		"installing->restoring",
		"restoring->done",
	}
	if !slices.Equal(hooks.transitions, want) {
		t.Errorf("transitions = %v, want %v", hooks.transitions, want)
	}
	if hooks.completed != "999.999.999" || hooks.completeErr != nil {
		t.Errorf("OnLinkComplete(%q, %v), want 999.999.999 without error", hooks.completed, hooks.completeErr)
	}
}

type recordingLinkHooks struct {
	observability.NoopLinkHooks
	transitions []string
	completed   string
	completeErr error
}

func (h *recordingLinkHooks) OnStateChange(_ context.Context, _, from, to string) {
	h.transitions = append(h.transitions, from+"->"+to)
}

func (h *recordingLinkHooks) OnLinkComplete(_ context.Context, _, version string, _ time.Duration, err error) {
	h.completed = version
	h.completeErr = err
}

package composer

import (
	"os"
	"path/filepath"
	"testing"

	cerrors "github.com/matzehuels/composer-link/pkg/errors"
	"github.com/matzehuels/composer-link/pkg/manifest"
)

// makePackage creates dir/composer.json declaring name and returns the real
// path of dir.
func makePackage(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"name": "` + name + `"}`
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	makePackage(t, filepath.Join(root, "app"), "acme/app")
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "file"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		folder   string
		wantCode cerrors.Code
	}{
		{"valid", filepath.Join(root, "app"), ""},
		{"missing folder", filepath.Join(root, "missing"), cerrors.ErrCodeNotFound},
		{"regular file", filepath.Join(root, "file"), cerrors.ErrCodeNotFound},
		{"no composer.json", filepath.Join(root, "empty"), cerrors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Open(tt.folder)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Open() error: %v", err)
				}
				if name, _ := p.Name(); name != "acme/app" {
					t.Errorf("Name() = %q, want acme/app", name)
				}
				return
			}
			if !cerrors.Is(err, tt.wantCode) {
				t.Errorf("Open() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestPackage_Paths(t *testing.T) {
	root := t.TempDir()
	appDir := makePackage(t, filepath.Join(root, "app"), "acme/app")
	depDir := makePackage(t, filepath.Join(root, "dep"), "  Acme/Dep-Lib ")

	app, err := Open(filepath.Join(root, "app"))
	if err != nil {
		t.Fatal(err)
	}
	dep, err := Open(filepath.Join(root, "dep"))
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := app.Path(); got != appDir {
		t.Errorf("Path() = %q, want %q", got, appDir)
	}
	if got, _ := dep.Path(); got != depDir {
		t.Errorf("Path() = %q, want %q", got, depDir)
	}
	if got, _ := app.VendorPath(); got != filepath.Join(appDir, "vendor") {
		t.Errorf("VendorPath() = %q", got)
	}
	if got, _ := dep.InstallationSubpath(); got != filepath.Join("acme", "dep-lib") {
		t.Errorf("InstallationSubpath() = %q, want acme/dep-lib", got)
	}
	want := filepath.Join(appDir, "vendor", "acme", "dep-lib")
	if got, _ := app.InstallationPath(dep); got != want {
		t.Errorf("InstallationPath() = %q, want %q", got, want)
	}
}

func TestPackage_PathThroughSymlink(t *testing.T) {
	root := t.TempDir()
	appDir := makePackage(t, filepath.Join(root, "app"), "acme/app")
	link := filepath.Join(root, "alias")
	if err := os.Symlink(appDir, link); err != nil {
		t.Fatal(err)
	}

	p, err := Open(link)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := p.Path(); got != appDir {
		t.Errorf("Path() = %q, want real path %q", got, appDir)
	}
}

func TestPackage_InstallationSubpathRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	makePackage(t, filepath.Join(root, "evil"), "../../etc")

	p, err := Open(filepath.Join(root, "evil"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.InstallationSubpath(); !cerrors.Is(err, cerrors.ErrCodeInvalidArgument) {
		t.Errorf("InstallationSubpath() error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestPackage_IsLinked(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, installPath, depDir, other string)
		wantOK    bool
		wantState LinkState
	}{
		{
			name:      "not installed",
			setup:     func(*testing.T, string, string, string) {},
			wantState: StateNotLinked,
		},
		{
			name: "installed as directory",
			setup: func(t *testing.T, installPath, _, _ string) {
				if err := os.MkdirAll(installPath, 0o755); err != nil {
					t.Fatal(err)
				}
			},
			wantState: StateNotLinked,
		},
		{
			name: "linked",
			setup: func(t *testing.T, installPath, depDir, _ string) {
				symlink(t, depDir, installPath)
			},
			wantOK:    true,
			wantState: StateLinked,
		},
		{
			name: "linked elsewhere",
			setup: func(t *testing.T, installPath, _, other string) {
				symlink(t, other, installPath)
			},
			wantState: StateMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			makePackage(t, filepath.Join(root, "app"), "acme/app")
			depDir := makePackage(t, filepath.Join(root, "dep"), "acme/dep")
			other := makePackage(t, filepath.Join(root, "other"), "acme/dep")

			app, _ := Open(filepath.Join(root, "app"))
			dep, _ := Open(filepath.Join(root, "dep"))
			installPath, err := app.InstallationPath(dep)
			if err != nil {
				t.Fatal(err)
			}
			tt.setup(t, installPath, depDir, other)

			ok, state, err := app.IsLinked(dep)
			if err != nil {
				t.Fatalf("IsLinked() error: %v", err)
			}
			if ok != tt.wantOK || state != tt.wantState {
				t.Errorf("IsLinked() = %v, %s; want %v, %s", ok, state, tt.wantOK, tt.wantState)
			}
		})
	}
}

func TestPackage_IsLinkedDanglingSymlink(t *testing.T) {
	root := t.TempDir()
	makePackage(t, filepath.Join(root, "app"), "acme/app")
	makePackage(t, filepath.Join(root, "dep"), "acme/dep")

	app, _ := Open(filepath.Join(root, "app"))
	dep, _ := Open(filepath.Join(root, "dep"))
	installPath, _ := app.InstallationPath(dep)
	symlink(t, filepath.Join(root, "gone"), installPath)

	linked, state, err := app.IsLinked(dep)
	if err != nil {
		t.Fatalf("IsLinked() error: %v", err)
	}
	if linked || state != StateMismatch {
		t.Errorf("IsLinked() = %v, %s; want false, mismatch", linked, state)
	}
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}
}

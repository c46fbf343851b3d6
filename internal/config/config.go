// Package config loads composer-link settings.
//
// Values are layered, highest precedence first: command-line flags,
// COMPOSER_LINK_* environment variables (a .env file in the working
// directory is loaded into the environment first), the TOML config file,
// and built-in defaults.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	cerrors "github.com/matzehuels/composer-link/pkg/errors"
	"github.com/matzehuels/composer-link/pkg/installer"
	"github.com/matzehuels/composer-link/pkg/integrations"
)

const (
	appName  = "composer-link"
	fileName = "config.toml"

	// EnvPrefix prefixes every environment variable the loader reads.
	EnvPrefix = "COMPOSER_LINK"
)

// Setting keys, shared by the config file, the environment and flags.
const (
	KeyComposerBinary     = "composer_binary"
	KeyRepositoryURL      = "repository_url"
	KeyRepositoryToken    = "repository_token"
	KeyRepositoryUsername = "repository_username"
	KeyRepositoryPassword = "repository_password"
	KeyUpdateArgs         = "update_args"
	KeyHTTPTimeout        = "http_timeout"
)

// Config holds the effective settings.
type Config struct {
	ComposerBinary     string
	RepositoryURL      string
	RepositoryToken    string
	RepositoryUsername string
	RepositoryPassword string
	UpdateArgs         []string
	HTTPTimeout        time.Duration
}

// Credentials returns the repository index credentials.
func (c *Config) Credentials() integrations.Credentials {
	return integrations.Credentials{
		Token:    c.RepositoryToken,
		Username: c.RepositoryUsername,
		Password: c.RepositoryPassword,
	}
}

// fileConfig mirrors config.toml. http_timeout is a duration string such
// as "15s".
type fileConfig struct {
	ComposerBinary     string   `toml:"composer_binary"`
	RepositoryURL      string   `toml:"repository_url"`
	RepositoryToken    string   `toml:"repository_token"`
	RepositoryUsername string   `toml:"repository_username"`
	RepositoryPassword string   `toml:"repository_password"`
	UpdateArgs         []string `toml:"update_args"`
	HTTPTimeout        string   `toml:"http_timeout"`
}

// DefaultPath returns the config file location:
// $XDG_CONFIG_HOME/composer-link/config.toml, falling back to the
// platform's user config directory.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, fileName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, fileName), nil
}

// Loader layers the configuration sources.
type Loader struct {
	v        *viper.Viper
	path     string
	envFiles []string
}

// NewLoader creates a Loader reading the config file at path. An empty path
// selects [DefaultPath]. envFiles are loaded into the environment before
// reading it; none means ".env" in the working directory. Missing env files
// are ignored.
func NewLoader(path string, envFiles ...string) *Loader {
	if path == "" {
		path, _ = DefaultPath()
	}
	v := viper.New()
	v.SetDefault(KeyComposerBinary, installer.DefaultBinary)
	v.SetDefault(KeyHTTPTimeout, integrations.DefaultTimeout)
	v.SetDefault(KeyUpdateArgs, []string{})
	return &Loader{v: v, path: path, envFiles: envFiles}
}

// Path returns the config file location.
func (l *Loader) Path() string { return l.path }

// BindFlags binds flags to setting keys. A flag only takes effect when set
// on the command line. Unknown flag names are skipped.
func (l *Loader) BindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return cerrors.Wrap(cerrors.ErrCodeInvalidConfiguration, err, "failed to bind flag --%s", flag)
		}
	}
	return nil
}

// Load reads every source and returns the effective configuration.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := l.readFile(); err != nil {
		return nil, err
	}

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()

	cfg := &Config{
		ComposerBinary:     strings.TrimSpace(l.v.GetString(KeyComposerBinary)),
		RepositoryURL:      strings.TrimSpace(l.v.GetString(KeyRepositoryURL)),
		RepositoryToken:    l.v.GetString(KeyRepositoryToken),
		RepositoryUsername: l.v.GetString(KeyRepositoryUsername),
		RepositoryPassword: l.v.GetString(KeyRepositoryPassword),
		UpdateArgs:         l.v.GetStringSlice(KeyUpdateArgs),
		HTTPTimeout:        l.v.GetDuration(KeyHTTPTimeout),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads env files into the environment. A missing file is
// skipped; an unreadable or malformed one is an error.
func (l *Loader) loadEnvFiles() error {
	files := l.envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return cerrors.Wrap(cerrors.ErrCodeInvalidConfiguration, err, "failed to load env file %s", f)
		}
	}
	return nil
}

// readFile applies config file values as defaults, so that environment and
// flags still override them.
func (l *Loader) readFile() error {
	if l.path == "" {
		return nil
	}
	var fc fileConfig
	md, err := toml.DecodeFile(l.path, &fc)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", l.path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return cerrors.New(cerrors.ErrCodeInvalidConfiguration, "unknown keys in %s: %s", l.path, strings.Join(keys, ", "))
	}

	set := func(key string, value any) {
		if md.IsDefined(key) {
			l.v.SetDefault(key, value)
		}
	}
	set(KeyComposerBinary, fc.ComposerBinary)
	set(KeyRepositoryURL, fc.RepositoryURL)
	set(KeyRepositoryToken, fc.RepositoryToken)
	set(KeyRepositoryUsername, fc.RepositoryUsername)
	set(KeyRepositoryPassword, fc.RepositoryPassword)
	set(KeyUpdateArgs, fc.UpdateArgs)
	if md.IsDefined(KeyHTTPTimeout) {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return cerrors.Wrap(cerrors.ErrCodeInvalidConfiguration, err, "invalid %s in %s", KeyHTTPTimeout, l.path)
		}
		l.v.SetDefault(KeyHTTPTimeout, d)
	}
	return nil
}

func (c *Config) validate() error {
	if c.ComposerBinary == "" {
		return cerrors.New(cerrors.ErrCodeInvalidConfiguration, "%s cannot be empty", KeyComposerBinary)
	}
	if c.HTTPTimeout <= 0 {
		return cerrors.New(cerrors.ErrCodeInvalidConfiguration, "%s must be positive", KeyHTTPTimeout)
	}
	if c.RepositoryURL != "" {
		if err := cerrors.ValidateIndexURL(c.RepositoryURL); err != nil {
			return err
		}
	}
	return nil
}

package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety and correctness.
// The name ends up as a path below the consumer's vendor directory, so it
// rejects names that could be used for path traversal.
//
// The validation rules are intentionally conservative:
//   - No empty names (after trimming whitespace)
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidArgument, "package name is required")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidArgument, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidArgument, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidArgument, "package name contains invalid characters: %q", pattern)
		}
	}
	return nil
}

// composerPackageNameRegex matches Composer's vendor/package naming rule.
var composerPackageNameRegex = regexp.MustCompile(`^[a-z0-9]([_.-]?[a-z0-9]+)*/[a-z0-9](([_.]|-{1,2})?[a-z0-9]+)*$`)

// ValidateComposerPackageName validates a "vendor/package" name. Composer
// compares names case-insensitively, so the name is lower-cased first.
func ValidateComposerPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if !composerPackageNameRegex.MatchString(strings.ToLower(strings.TrimSpace(name))) {
		return New(ErrCodeInvalidArgument, "invalid composer package name: %q", name)
	}
	return nil
}

// ValidateIndexURL validates a repository index URL. It must be absolute
// (scheme and host) and use http or https.
func ValidateIndexURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfiguration, "repository URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidConfiguration, err, "invalid url for repo server: %q", rawURL)
	}
	if !u.IsAbs() || u.Host == "" {
		return New(ErrCodeInvalidConfiguration, "invalid url for repo server: %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidConfiguration, "repository URL must use http or https scheme: %q", rawURL)
	}
	return nil
}

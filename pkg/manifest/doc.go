// Package manifest reads and writes composer.json files.
//
// A [Manifest] exposes the fields the link workflow touches (name, version,
// require constraints and the repositories list) and preserves everything
// else in the file, including key order. Repository entries are a small
// tagged variant: [PathRepository] for "path" entries and [RawRepository]
// for anything else.
//
// Files are validated against an embedded JSON schema on load and written
// atomically on save, formatted with two-space indentation and unescaped
// slashes as composer itself writes them.
package manifest

// Package pkg provides the libraries behind composer-link.
//
// # Overview
//
// composer-link installs a Composer package from a local working directory
// into a consumer package so changes show up in the consumer's vendor
// directory without publishing. The pkg directory is organized as:
//
//  1. [manifest] - Ordered composer.json documents with atomic saves
//  2. [composer] - Package folders, installation paths and link detection
//  3. [version] - Link version selection and caret constraints
//  4. [integrations] - Repository index client (packagist.json format)
//  5. [installer] - Runs composer update in a package directory
//  6. [link] - The link run: snapshot, rewrite, update, restore
//
// # Link run
//
//	dependency/composer.json  consumer/composer.json
//	         ↓                        ↓
//	    [version] pick a version above the latest published one
//	         ↓
//	    write version, caret constraint and path repository
//	         ↓
//	    [installer] composer update
//	         ↓
//	    restore both manifests
//
// # Quick Start
//
//	consumer, _ := composer.Open("./app")
//	dependency, _ := composer.Open("../my-library")
//	runner := &installer.Runner{Stdout: os.Stderr, Stderr: os.Stderr}
//
//	res, err := link.New(consumer, dependency, runner).Link(ctx, false)
//
// [manifest]: https://pkg.go.dev/github.com/matzehuels/composer-link/pkg/manifest
// [composer]: https://pkg.go.dev/github.com/matzehuels/composer-link/pkg/composer
// [version]: https://pkg.go.dev/github.com/matzehuels/composer-link/pkg/version
// [integrations]: https://pkg.go.dev/github.com/matzehuels/composer-link/pkg/integrations
// [installer]: https://pkg.go.dev/github.com/matzehuels/composer-link/pkg/installer
// [link]: https://pkg.go.dev/github.com/matzehuels/composer-link/pkg/link
package pkg

// Package integrations provides the HTTP plumbing for repository index clients.
//
// # Overview
//
// A [Client] performs single GET requests against a repository index with a
// set of default headers, typically the Authorization header built from
// [Credentials]. Index-specific clients live in subpackages:
//
//   - [packagist]: composer repository indexes (packages.json)
//
// # Status Handling
//
// Every non-200 response becomes a structured error from pkg/errors:
//
//   - 401: AUTH_FAILED (numeric code 10401)
//   - 404: INDEX_NOT_FOUND (numeric code 10402)
//   - any other status: REMOTE_RETRIEVE_FAILED (numeric code 10000 + status)
//
// Transport failures become NETWORK_ERROR. Nothing is cached and nothing is
// retried.
//
// [packagist]: github.com/matzehuels/composer-link/pkg/integrations/packagist
package integrations

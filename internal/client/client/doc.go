// Package client contains the remote side of the client core.
//
// # Overview
//
// The package provides:
//  1. The backend contract (see the API interface) and its HTTP+JSON
//     implementation, RESTClient. Every request carries the apikey header;
//     calls under /rest/v1 also carry a bearer token.
//  2. Authenticator, an http.RoundTripper that injects the access token,
//     turns a 401 into one silent refresh shared by all concurrent callers,
//     retries the original request once, and locks the session behind the
//     PIN when the refresh token is rejected.
//  3. Local cache bootstrap (InitDatabase, RunMigrations).
//
// # Error Handling
//
// Non-2xx responses are *APIError values that unwrap to the sentinels in
// internal/common: a 404 matches common.ErrorNotFound, 401/403
// common.ErrorUnauthorized, and 5xx, 408, 429 or a transport failure
// common.ErrorUnavailable.
//
// All operations accept context.Context and honor cancellation.
package client

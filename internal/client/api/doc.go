// Package api is the HTTP facade every other client component talks
// through.
//
// A single Client serves two base paths: BaseV1 (the versioned prefix,
// /api/v1 by default) and BaseRoot (no prefix), because the backend
// namespaces its routes inconsistently. Both share one pipeline:
//
//  1. client-side rate limit (optional);
//  2. X-Request-ID;
//  3. Authorization: Bearer <token> when the TokenSource holds a token,
//     no Authorization header at all otherwise;
//  4. per-request timeout;
//  5. 401 responses fan out to the registered unauthorized handlers
//     (session teardown, navigation to login) before the error is returned.
//
// The token is read from the TokenSource on every request, so a login or
// logout is visible to the very next request on either base path.
//
// Non-2xx responses are returned as *Error, which unwraps to one of the
// sentinel errors (ErrUnauthorized, ErrNotFound, ...). Transport failures
// unwrap to ErrUnavailable. There are no retries.
package api

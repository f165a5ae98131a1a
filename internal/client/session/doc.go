// Package session owns the authenticated session of the client core: the
// bearer token and the user identity returned by login or register.
//
// The Store persists both under the "token" and "user" storage keys,
// restores them at start-up and serves the token to the api client on
// every request (it implements api.TokenSource). Login and register are
// tried on the versioned base path first and then on the root path,
// because the backend exposes its auth routes under either prefix
// depending on the deployment.
//
// None of the Store's session operations return errors to the caller:
// Login and Register report failures in Result, Logout and
// HandleUnauthorized always leave the Store logged out.
package session

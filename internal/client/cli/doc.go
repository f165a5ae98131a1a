// Package cli provides the interactive autoservice admin console.
//
// It wires configuration, local storage, the API client, the session
// store, the profile service and one resource store per collection into a
// REPL. The console plays the part of the dashboard: it navigates between
// the login and dashboard entry points when the session changes, lists
// and edits collections, and shows the derived statistics.
//
// Key features:
//   - Login / Register / Logout, with the session restored at start-up
//   - list, search, show, add, edit and delete for every collection
//   - Joined views of service records and spare parts
//   - Dashboard statistics and the current user's profile
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli

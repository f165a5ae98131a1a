// Package resources holds one Store per entity collection the backend
// exposes. A Store owns the collection's items together with its loading
// and error state, and keeps them consistent with the create, update and
// delete calls issued through it.
//
// Stores never sequence requests: when two mutations race, whichever
// response arrives last wins. After Close, late responses are dropped.
package resources

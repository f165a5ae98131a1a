// Package models defines the entities exchanged with the service-center
// backend and the numeric field types used for form input.
//
// Form inputs arrive as text. ForeignKey and Number accept either a JSON
// number or a numeric string when decoding and always encode as a JSON
// number, so a category id typed as "3" reaches the server as 3.
package models

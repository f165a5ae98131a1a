// Package profile keeps exactly one extended profile record for the
// signed-in user, reachable even when the backend is not.
//
// Records live in the storage repository under "profile:{id}", falling
// back to "profile:{email}" and then "profile:default". Reads and writes
// try the backend first and fall back to the local record; neither
// GetCurrent nor Update ever fails. Result tells the caller which path
// produced the data.
package profile

package manifest

import "errors"

// ErrNotFound is returned when a named dependency does not appear in
// either the runtime or dev dependency section of a manifest.
var ErrNotFound = errors.New("manifest: dependency not found")

// ErrMalformed is returned when the manifest file cannot be parsed as
// JSON, or lacks the object shape a package.json requires.
var ErrMalformed = errors.New("manifest: malformed manifest file")

// ErrUnreadable is returned when the manifest file cannot be read
// from disk (missing, permission denied).
var ErrUnreadable = errors.New("manifest: manifest file unreadable")

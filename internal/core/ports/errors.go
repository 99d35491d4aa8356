package ports

import "errors"

// Geolocation failure classes. Both are expected, non-fatal conditions that
// route the dialogue to manual location entry.
var (
	// ErrNoGeolocation means the client has no geolocation capability.
	ErrNoGeolocation = errors.New("geolocation not supported")
	// ErrPermissionDenied means the user refused the position prompt.
	ErrPermissionDenied = errors.New("geolocation permission denied")
)

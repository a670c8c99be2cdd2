package layout

import "errors"

var (
	// ErrConfigNotFound means the layout file is missing or unreadable.
	// Generate recovers from it by falling back to probabilistic placement.
	ErrConfigNotFound = errors.New("layout config not found")

	// ErrInvalidConfiguration means the generator parameters or the loaded
	// record are nonsensical. It is fatal to layout construction.
	ErrInvalidConfiguration = errors.New("invalid layout configuration")
)

package dist

import "errors"

var (
	// ErrUnknownFormat is returned for a package format value outside
	// wheel/sdist/both.
	ErrUnknownFormat = errors.New("unknown package format")

	// ErrBothFormats is returned when a dist-directory install is
	// requested with the "both" format filter. The caller must choose
	// exactly one artifact format.
	ErrBothFormats = errors.New("package format \"both\" cannot be used when installing from the dist directory")
)

package install

import "errors"

var (
	// ErrArtifactNotFound is returned when no dist artifact matches the
	// primary package for the requested install mode.
	ErrArtifactNotFound = errors.New("no matching dist artifact for primary package")

	// ErrAmbiguousArtifact is returned when more than one dist artifact
	// matches the primary package.
	ErrAmbiguousArtifact = errors.New("multiple dist artifacts match primary package")
)

package install

import "fmt"

// Mode is the strategy used to populate the runtime with the package under
// test.
type Mode int

const (
	// ModeAlreadyInstalled uses the installation already present in the
	// image as-is.
	ModeAlreadyInstalled Mode = iota
	// ModeNone removes the primary package and its providers; the runtime
	// is populated from the dist directory only.
	ModeNone
	// ModeWheel installs the primary package from a locally built wheel.
	ModeWheel
	// ModeSdist installs the primary package from a locally built source
	// distribution.
	ModeSdist
	// ModeVersioned installs a published release from the package index.
	ModeVersioned
)

func (m Mode) String() string {
	switch m {
	case ModeAlreadyInstalled:
		return "already-installed"
	case ModeNone:
		return "none"
	case ModeWheel:
		return "wheel"
	case ModeSdist:
		return "sdist"
	case ModeVersioned:
		return "versioned"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeSpec is the parsed install mode, derived once from the version
// specifier and immutable for the run. Version is set only for
// ModeVersioned.
type ModeSpec struct {
	Mode    Mode
	Version string
}

// ParseModeSpec classifies a version specifier. Empty means use the
// existing installation, "none"/"wheel"/"sdist" select those modes, and any
// other value names a published release.
func ParseModeSpec(versionSpecifier string) ModeSpec {
	switch versionSpecifier {
	case "":
		return ModeSpec{Mode: ModeAlreadyInstalled}
	case "none":
		return ModeSpec{Mode: ModeNone}
	case "wheel":
		return ModeSpec{Mode: ModeWheel}
	case "sdist":
		return ModeSpec{Mode: ModeSdist}
	default:
		return ModeSpec{Mode: ModeVersioned, Version: versionSpecifier}
	}
}

package dist

import "fmt"

// Format identifies the artifact format a dist-directory install is
// restricted to.
type Format int

const (
	FormatWheel Format = iota
	FormatSdist
	// FormatBoth is accepted by the configuration surface but rejected
	// before any install runs: mixing formats risks installing two
	// conflicting builds of the same component.
	FormatBoth
)

func (f Format) String() string {
	switch f {
	case FormatWheel:
		return "wheel"
	case FormatSdist:
		return "sdist"
	case FormatBoth:
		return "both"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses a package format filter value.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "wheel":
		return FormatWheel, nil
	case "sdist":
		return FormatSdist, nil
	case "both":
		return FormatBoth, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

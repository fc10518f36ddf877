package selector

import "fmt"

// TestType is the closed taxonomy of named test-run profiles.
type TestType int

const (
	TypeCore TestType = iota
	TypeHelm
	TypeAll
	TypeQuarantined
	TypePostgres
	TypeMySQL
	TypeHeisentests
	TypeLong
	TypeIntegration
)

var testTypeNames = map[TestType]string{
	TypeCore:        "Core",
	TypeHelm:        "Helm",
	TypeAll:         "All",
	TypeQuarantined: "Quarantined",
	TypePostgres:    "Postgres",
	TypeMySQL:       "MySQL",
	TypeHeisentests: "Heisentests",
	TypeLong:        "Long",
	TypeIntegration: "Integration",
}

func (t TestType) String() string {
	if name, ok := testTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TestType(%d)", int(t))
}

// UnknownTestTypeError is returned for values outside the taxonomy. It is a
// configuration error: the run exits 1 naming the offending value.
type UnknownTestTypeError struct {
	Value string
}

func (e *UnknownTestTypeError) Error() string {
	return fmt.Sprintf("unknown test type: %q", e.Value)
}

func (e *UnknownTestTypeError) ExitCode() int { return 1 }

// ParseTestType resolves a configured test-type value against the taxonomy.
func ParseTestType(s string) (TestType, error) {
	for t, name := range testTypeNames {
		if s == name {
			return t, nil
		}
	}
	return 0, &UnknownTestTypeError{Value: s}
}

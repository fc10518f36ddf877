package bootstrap

import (
	"time"

	"github.com/wolfeidau/preflight/internal/dist"
	"github.com/wolfeidau/preflight/internal/install"
)

// Config is the bootstrapper's immutable input, built once in the CLI layer.
type Config struct {
	// HomeDir is the working home exported to collaborators.
	HomeDir string
	// SourcesDir is the checked-out source tree.
	SourcesDir string
	// TempDir is shared by steps running as different effective users.
	TempDir string
	// DatabaseDSN is echoed for diagnostics when present.
	DatabaseDSN string

	// ToolsDir holds local CLI-tool scripts to symlink into LocalBin.
	ToolsDir string
	LocalBin string
	// ManagedRunner skips the symlink step: managed CI runners provision
	// tools themselves.
	ManagedRunner bool

	// ModeSpec is the parsed install mode.
	ModeSpec install.ModeSpec
	// InstallFromDist enables the dist-directory batch install.
	InstallFromDist bool
	DistDir         string
	DistFormat      dist.Format

	// VersionSpecifier and RuntimeImageVersion are the two version sources
	// matched against LegacyMarker to decide the compatibility flag.
	VersionSpecifier    string
	RuntimeImageVersion string
	LegacyMarker        string

	// KerberosEnabled requests the secure-auth bootstrap explicitly; it
	// also runs when Integrations names it.
	KerberosEnabled bool
	Integrations    []string

	// SSHDir receives the login keypair and authorized_keys.
	SSHDir string
	// SSHRestartArgv restarts the local login service after the
	// credentials are in place.
	SSHRestartArgv []string
	// Host-key readiness poll.
	HostKeyCount    int
	HostKeyInterval time.Duration
	HostKeyTimeout  time.Duration
}

// ApplyDefaults fills the poll settings the caller left unset.
func (c *Config) ApplyDefaults() {
	if c.HostKeyCount == 0 {
		c.HostKeyCount = 3
	}
	if c.HostKeyInterval == 0 {
		c.HostKeyInterval = time.Second
	}
	if c.HostKeyTimeout == 0 {
		c.HostKeyTimeout = 2 * time.Minute
	}
	if c.TempDir == "" {
		c.TempDir = "/tmp"
	}
}

// Package pip wraps the Python package installer executable. It is the only
// path through which the bootstrap installs or removes packages; every
// operation reports success or failure only, with captured output attached
// to the error.
package pip

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Installer is the package installer collaborator consumed by the install
// mode resolver and the dist-directory installer.
type Installer interface {
	// Uninstall removes the named packages. Packages that are not
	// installed are ignored rather than treated as errors.
	Uninstall(ctx context.Context, pkgs ...string) error

	// ListInstalled returns installed package names starting with prefix,
	// from the installer's freeze listing.
	ListInstalled(ctx context.Context, prefix string) ([]string, error)

	// InstallRelease installs the published release of name at version
	// with the given extras from the public package index.
	InstallRelease(ctx context.Context, name, version string, extras Extras) error

	// InstallArtifact installs a locally built artifact (wheel or sdist)
	// with the given extras.
	InstallArtifact(ctx context.Context, path string, extras Extras) error

	// InstallBatch installs the given artifact paths together in one
	// invocation without resolving or upgrading their dependencies.
	InstallBatch(ctx context.Context, paths []string) error
}

// Client is an Installer backed by the pip executable.
type Client struct {
	bin string
}

// NewClient returns a Client using the given pip executable, or "pip" when
// empty.
func NewClient(bin string) *Client {
	if bin == "" {
		bin = "pip"
	}
	return &Client{bin: bin}
}

func (c *Client) Uninstall(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	log.Info().Strs("packages", pkgs).Msg("uninstalling packages")
	args := append([]string{"uninstall", "--yes"}, pkgs...)
	_, err := c.run(ctx, args)
	return err
}

func (c *Client) ListInstalled(ctx context.Context, prefix string) ([]string, error) {
	out, err := c.run(ctx, []string{"freeze"})
	if err != nil {
		return nil, err
	}
	return parseFreeze(out, prefix), nil
}

// parseFreeze extracts package names matching prefix from freeze output.
// Lines are either "name==version" or "name @ url".
func parseFreeze(out, prefix string) []string {
	var names []string
	for line := range strings.Lines(out) {
		name, _, _ := strings.Cut(strings.TrimSpace(line), "==")
		name, _, _ = strings.Cut(name, " @ ")
		name = strings.TrimSpace(name)
		if name != "" && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}

func (c *Client) InstallRelease(ctx context.Context, name, version string, extras Extras) error {
	spec := extras.Spec(name) + "==" + version
	log.Info().Str("spec", spec).Msg("installing release from package index")
	_, err := c.run(ctx, []string{"install", spec})
	return err
}

func (c *Client) InstallArtifact(ctx context.Context, path string, extras Extras) error {
	spec := extras.Spec(path)
	log.Info().Str("spec", spec).Msg("installing local artifact")
	_, err := c.run(ctx, []string{"install", spec})
	return err
}

func (c *Client) InstallBatch(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	log.Info().Strs("paths", paths).Msg("installing artifact batch")
	args := append([]string{"install", "--no-deps"}, paths...)
	_, err := c.run(ctx, args)
	return err
}

func (c *Client) run(ctx context.Context, args []string) (string, error) {
	// #nosec G204 - args are assembled from validated configuration
	cmd := exec.CommandContext(ctx, c.bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &CommandError{
			Args:     args,
			ExitCode: code,
			Output:   strings.TrimSpace(string(out)),
			Err:      err,
		}
	}
	return string(out), nil
}

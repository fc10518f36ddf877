// Package dist scans a directory of locally built distribution artifacts
// (wheels and sdists) and installs the ones matching a format filter in a
// single batch, without resolving their dependencies.
package dist

import (
	"archive/tar"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
)

// Package is a single installable artifact found in the dist directory.
type Package struct {
	Path    string
	Format  Format
	Primary bool
}

// Scan enumerates wheel and sdist artifacts in dir (non-recursive) and marks
// the ones belonging to primaryPackage. Each artifact's CRC-64/NVME checksum
// is logged for provenance.
func Scan(dir, primaryPackage string) ([]Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var pkgs []Package
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		var pkg Package
		switch {
		case strings.HasSuffix(entry.Name(), ".whl"):
			pkg = Package{
				Path:    path,
				Format:  FormatWheel,
				Primary: isPrimaryWheel(entry.Name(), primaryPackage),
			}
		case strings.HasSuffix(entry.Name(), ".tar.gz"):
			pkg = Package{
				Path:    path,
				Format:  FormatSdist,
				Primary: isPrimarySdist(path, primaryPackage),
			}
		default:
			continue
		}

		sum, err := checksum(path)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("artifact", entry.Name()).
			Str("format", pkg.Format.String()).
			Bool("primary", pkg.Primary).
			Str("crc64nvme", sum).
			Msg("found dist artifact")

		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

// isPrimaryWheel reports whether a wheel filename's distribution segment
// matches the primary package. Wheel filenames normalize "-" to "_" in the
// distribution name, so both spellings are treated as equivalent.
func isPrimaryWheel(name, primaryPackage string) bool {
	dist, _, ok := strings.Cut(name, "-")
	if !ok {
		return false
	}
	return normalizeName(dist) == normalizeName(primaryPackage)
}

// isPrimarySdist reads the archive's root directory name to identify the
// package, falling back to filename matching when the archive cannot be
// read. Sdist filenames are unreliable for this because build tools vary in
// how they normalize "-" and "_".
func isPrimarySdist(path, primaryPackage string) bool {
	want := normalizeName(primaryPackage)

	if root, err := archiveRootDir(path); err == nil && root != "" {
		// root dirs are name-version; strip the version suffix
		if idx := strings.LastIndex(root, "-"); idx > 0 {
			root = root[:idx]
		}
		return normalizeName(root) == want
	}

	base := strings.TrimSuffix(filepath.Base(path), ".tar.gz")
	if idx := strings.LastIndex(base, "-"); idx > 0 {
		base = base[:idx]
	}
	return normalizeName(base) == want
}

// archiveRootDir returns the first path segment of the first entry in a
// gzipped tar archive.
func archiveRootDir(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", err
	}
	defer gz.Close()

	hdr, err := tar.NewReader(gz).Next()
	if err != nil {
		return "", err
	}
	root, _, _ := strings.Cut(strings.TrimPrefix(hdr.Name, "./"), "/")
	return root, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "-", "_"))
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := crc64nvme.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

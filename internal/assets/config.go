package assets

type Config struct {
	// SourceDir is the frontend source tree containing package.json
	SourceDir string
	// Entry point glob pattern, relative to SourceDir (e.g., "js/index.jsx")
	EntryPointGlob string
	// Output directory for built files
	OutputDir string
	// Path to metafile
	MetafilePath string
	// PackageManager fetches frontend dependencies (e.g., "yarn")
	PackageManager string
	// Whether to minify output
	Minify bool
	// Whether to enable source maps
	SourceMap bool
}

// DefaultConfig returns the production bundle configuration
func DefaultConfig(sourceDir string) Config {
	return Config{
		SourceDir:      sourceDir,
		EntryPointGlob: "js/*.jsx",
		OutputDir:      "static/dist",
		MetafilePath:   "static/dist/meta.json",
		PackageManager: "yarn",
		Minify:         true,
		SourceMap:      false,
	}
}

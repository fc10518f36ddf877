package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/preflight/internal/pip"
)

// recordingInstaller records the sequence of installer operations.
type recordingInstaller struct {
	ops       []string
	installed []string
	failOn    string
}

func (r *recordingInstaller) op(name string) error {
	r.ops = append(r.ops, name)
	if r.failOn == name {
		return errors.New("boom")
	}
	return nil
}

func (r *recordingInstaller) Uninstall(ctx context.Context, pkgs ...string) error {
	return r.op(fmt.Sprintf("uninstall %v", pkgs))
}

func (r *recordingInstaller) ListInstalled(ctx context.Context, prefix string) ([]string, error) {
	r.ops = append(r.ops, "list "+prefix)
	return r.installed, nil
}

func (r *recordingInstaller) InstallRelease(ctx context.Context, name, version string, extras pip.Extras) error {
	return r.op(fmt.Sprintf("install-release %s==%s %s", name, version, extras.Render()))
}

func (r *recordingInstaller) InstallArtifact(ctx context.Context, path string, extras pip.Extras) error {
	return r.op(fmt.Sprintf("install-artifact %s %s", filepath.Base(path), extras.Render()))
}

func (r *recordingInstaller) InstallBatch(ctx context.Context, paths []string) error {
	return r.op(fmt.Sprintf("install-batch %v", paths))
}

type fakeAssets struct {
	missing bool
	fetched bool
	built   bool
}

func (f *fakeAssets) Missing() bool { return f.missing }

func (f *fakeAssets) FetchDependencies(ctx context.Context) error {
	f.fetched = true
	return nil
}

func (f *fakeAssets) Build() error {
	f.built = true
	return nil
}

func TestParseModeSpec(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want ModeSpec
	}{
		{"", ModeSpec{Mode: ModeAlreadyInstalled}},
		{"none", ModeSpec{Mode: ModeNone}},
		{"wheel", ModeSpec{Mode: ModeWheel}},
		{"sdist", ModeSpec{Mode: ModeSdist}},
		{"1.10.14", ModeSpec{Mode: ModeVersioned, Version: "1.10.14"}},
	} {
		assert.Equal(t, tc.want, ParseModeSpec(tc.in), "specifier %q", tc.in)
	}
}

func TestApply_Wheel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apache_airflow-1.10.14-py2.py3-none-any.whl"), []byte("w"), 0644))

	installer := &recordingInstaller{installed: []string{"apache-airflow-backport-providers-google"}}
	r := NewResolver(installer, nil, Config{
		PrimaryPackage: "apache-airflow",
		ProviderPrefix: "apache-airflow-backport-providers",
		Extras:         pip.ParseExtras("gcp,mysql"),
		DistDir:        dir,
	})

	require.NoError(t, r.Apply(context.Background(), ParseModeSpec("wheel")))

	// exactly: uninstall(primary+providers) -> install wheel with extras -> uninstall(providers)
	assert.Equal(t, []string{
		"list apache-airflow-backport-providers",
		"uninstall [apache-airflow apache-airflow-backport-providers-google]",
		"install-artifact apache_airflow-1.10.14-py2.py3-none-any.whl [gcp,mysql]",
		"list apache-airflow-backport-providers",
		"uninstall [apache-airflow-backport-providers-google]",
	}, installer.ops)
}

func TestApply_WheelMissingArtifact(t *testing.T) {
	installer := &recordingInstaller{}
	r := NewResolver(installer, nil, Config{
		PrimaryPackage: "apache-airflow",
		ProviderPrefix: "apache-airflow-backport-providers",
		DistDir:        t.TempDir(),
	})

	err := r.Apply(context.Background(), ParseModeSpec("wheel"))
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestApply_None(t *testing.T) {
	installer := &recordingInstaller{installed: []string{"apache-airflow-backport-providers-ssh"}}
	r := NewResolver(installer, nil, Config{
		PrimaryPackage: "apache-airflow",
		ProviderPrefix: "apache-airflow-backport-providers",
	})

	require.NoError(t, r.Apply(context.Background(), ParseModeSpec("none")))
	assert.Equal(t, []string{
		"list apache-airflow-backport-providers",
		"uninstall [apache-airflow apache-airflow-backport-providers-ssh]",
	}, installer.ops)
}

func TestApply_Versioned(t *testing.T) {
	installer := &recordingInstaller{}
	r := NewResolver(installer, nil, Config{
		PrimaryPackage: "apache-airflow",
		Extras:         pip.ParseExtras("gcp"),
	})

	require.NoError(t, r.Apply(context.Background(), ParseModeSpec("1.10.12")))
	assert.Equal(t, []string{"install-release apache-airflow==1.10.12 [gcp]"}, installer.ops)
}

func TestApply_AlreadyInstalled(t *testing.T) {
	t.Run("assets present, nothing to do", func(t *testing.T) {
		installer := &recordingInstaller{}
		assets := &fakeAssets{missing: false}
		r := NewResolver(installer, assets, Config{HomeDir: t.TempDir()})

		require.NoError(t, r.Apply(context.Background(), ParseModeSpec("")))
		assert.Empty(t, installer.ops)
		assert.False(t, assets.built)
	})

	t.Run("assets missing triggers build and dir reset", func(t *testing.T) {
		home := t.TempDir()
		stale := filepath.Join(home, "logs", "old.log")
		require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
		require.NoError(t, os.WriteFile(stale, []byte("stale"), 0644))

		assets := &fakeAssets{missing: true}
		r := NewResolver(&recordingInstaller{}, assets, Config{HomeDir: home})

		require.NoError(t, r.Apply(context.Background(), ParseModeSpec("")))
		assert.True(t, assets.fetched)
		assert.True(t, assets.built)

		assert.NoFileExists(t, stale)
		assert.DirExists(t, filepath.Join(home, "logs"))
		assert.DirExists(t, filepath.Join(home, "tmp"))
	})
}

func TestApply_InstallFailureIsFatal(t *testing.T) {
	installer := &recordingInstaller{failOn: "install-release apache-airflow==1.10.12 []"}
	r := NewResolver(installer, nil, Config{PrimaryPackage: "apache-airflow", Extras: pip.Extras{}})

	err := r.Apply(context.Background(), ParseModeSpec("1.10.12"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to install release")
}

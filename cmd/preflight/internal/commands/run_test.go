package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCmd_Validate(t *testing.T) {
	t.Run("both format with dist install rejected", func(t *testing.T) {
		cmd := &RunCmd{InstallFromDist: true, PackageFormat: "both"}
		err := cmd.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "both")
	})

	t.Run("both format without dist install allowed", func(t *testing.T) {
		cmd := &RunCmd{PackageFormat: "both"}
		require.NoError(t, cmd.Validate())
	})

	t.Run("single format with dist install allowed", func(t *testing.T) {
		cmd := &RunCmd{InstallFromDist: true, PackageFormat: "wheel"}
		require.NoError(t, cmd.Validate())
	})

	t.Run("unknown test type rejected before any side effect", func(t *testing.T) {
		cmd := &RunCmd{RunTests: true, TestType: "Smoke", PackageFormat: "wheel"}
		err := cmd.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Smoke")
	})

	t.Run("known test type accepted", func(t *testing.T) {
		cmd := &RunCmd{RunTests: true, TestType: "Postgres", PackageFormat: "wheel"}
		require.NoError(t, cmd.Validate())
	})

	t.Run("test type ignored for interactive runs", func(t *testing.T) {
		cmd := &RunCmd{TestType: "Smoke", PackageFormat: "wheel"}
		require.NoError(t, cmd.Validate())
	})
}

func TestPlanCmd_Validate(t *testing.T) {
	cmd := &PlanCmd{InstallFromDist: true, PackageFormat: "both"}
	require.Error(t, cmd.Validate())

	cmd = &PlanCmd{InstallFromDist: true, PackageFormat: "sdist"}
	require.NoError(t, cmd.Validate())
}

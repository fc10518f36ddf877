package kerberos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled(t *testing.T) {
	assert.True(t, Enabled(true, nil))
	assert.True(t, Enabled(false, []string{"mongo", "kerberos"}))
	assert.False(t, Enabled(false, []string{"mongo", "cassandra"}))
	assert.False(t, Enabled(false, nil))
}

func TestSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("captures non-zero status", func(t *testing.T) {
		b := &Bootstrapper{Argv: []string{"sh", "-c", "exit 2"}}
		assert.Equal(t, 2, b.Setup(ctx))
	})

	t.Run("zero on success", func(t *testing.T) {
		b := &Bootstrapper{Argv: []string{"sh", "-c", "true"}}
		assert.Equal(t, 0, b.Setup(ctx))
	})

	t.Run("no command configured is a no-op", func(t *testing.T) {
		b := &Bootstrapper{}
		assert.Equal(t, 0, b.Setup(ctx))
	})
}

func TestSetupError(t *testing.T) {
	err := &SetupError{Status: 2}
	assert.Equal(t, 1, err.ExitCode())
	assert.Contains(t, err.Error(), "2")
}

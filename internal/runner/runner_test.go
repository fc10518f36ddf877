package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("zero exit code on success", func(t *testing.T) {
		r := New("ci-tests", "true")
		code, err := r.Run(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, code)
	})

	t.Run("propagates exit code verbatim", func(t *testing.T) {
		r := New("ci-tests", "sh")
		code, err := r.Run(ctx, []string{"-c", "exit 7"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 7, code)
	})

	t.Run("environment is passed through", func(t *testing.T) {
		r := New("system-tests", "sh")
		code, err := r.Run(ctx, []string{"-c", `test "$MARKER" = "yes"`}, map[string]string{"MARKER": "yes"})
		require.NoError(t, err)
		assert.Equal(t, 0, code)
	})
}

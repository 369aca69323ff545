package prompt

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Delete?", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirmWithForce_NotInteractive(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	orig := os.Stdin
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = orig })

	_, err = ConfirmWithForce("Delete?", false)
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.False(t, IsAborted(ErrNotInteractive))
}
